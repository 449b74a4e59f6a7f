package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// TripStudentRepository is the SQL side of the attendance ledger.
type TripStudentRepository struct {
	Q intdb.Querier
}

func (r TripStudentRepository) q() intdb.Querier {
	if r.Q != nil {
		return r.Q
	}
	return intconfig.DB
}

func scanTripStudent(s rowScanner) (models.TripStudent, error) {
	var (
		ts         models.TripStudent
		status     string
		attendedAt sql.NullTime
	)
	if err := s.Scan(&ts.TripID, &ts.StudentID, &status, &attendedAt); err != nil {
		return models.TripStudent{}, err
	}
	ts.Status = domain.AttendanceStatus(status)
	if !ts.Status.Valid() {
		return models.TripStudent{}, domain.InternalError{
			Msg: fmt.Sprintf("trip %d student %d has unknown attendance status %q", ts.TripID, ts.StudentID, status),
		}
	}
	if attendedAt.Valid {
		v := attendedAt.Time
		ts.AttendedAt = &v
	}
	return ts, nil
}

// Lock reads the ledger entry with a row lock. Callers hold the trip lock
// already.
func (r TripStudentRepository) Lock(ctx context.Context, tripID, studentID domain.ID) (models.TripStudent, error) {
	row := r.q().QueryRowContext(ctx, intdb.Rebind(`
		SELECT trip_id, student_id, status, attended_at
		FROM trip_students
		WHERE trip_id=? AND student_id=?
		FOR UPDATE
	`), tripID, studentID)
	return scanTripStudent(row)
}

// SetStatus moves an entry from one status to another. attendedAt is written
// as given, so nil clears it.
func (r TripStudentRepository) SetStatus(ctx context.Context, tripID, studentID domain.ID, from, to domain.AttendanceStatus, attendedAt *time.Time) error {
	var at any
	if attendedAt != nil {
		at = *attendedAt
	}
	res, err := r.q().ExecContext(ctx, intdb.Rebind(`
		UPDATE trip_students SET status=?, attended_at=?
		WHERE trip_id=? AND student_id=? AND status=?
	`), string(to), at, tripID, studentID, string(from))
	if err != nil {
		return fmt.Errorf("set attendance trip=%d student=%d: %w", tripID, studentID, err)
	}
	return expectOneRow(res, fmt.Sprintf("set attendance trip=%d student=%d", tripID, studentID))
}

// CountByStatus aggregates the ledger over active students.
func (r TripStudentRepository) CountByStatus(ctx context.Context, tripID domain.ID) (domain.AttendanceCounts, error) {
	var c domain.AttendanceCounts
	err := r.q().QueryRowContext(ctx, intdb.Rebind(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN ts.status='attended' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN ts.status='absent' THEN 1 ELSE 0 END), 0)
		FROM trip_students ts
		JOIN students s ON s.id = ts.student_id
		WHERE ts.trip_id=? AND s.status=?
	`), tripID, domain.StudentActive).Scan(&c.Total, &c.Attended, &c.Absent)
	if err != nil {
		return domain.AttendanceCounts{}, fmt.Errorf("count attendance trip=%d: %w", tripID, err)
	}
	return c, nil
}

// CountPending counts active students still pending on the trip.
func (r TripStudentRepository) CountPending(ctx context.Context, tripID domain.ID) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, intdb.Rebind(`
		SELECT COUNT(*)
		FROM trip_students ts
		JOIN students s ON s.id = ts.student_id
		WHERE ts.trip_id=? AND s.status=? AND ts.status=?
	`), tripID, domain.StudentActive, string(domain.AttendancePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending trip=%d: %w", tripID, err)
	}
	return n, nil
}

// ListRoster returns every ledger entry of the trip with the student's name
// and the stop they board at (pickup) or leave at (dropoff).
func (r TripStudentRepository) ListRoster(ctx context.Context, tripID domain.ID, tripType domain.TripType) ([]models.RosterEntry, error) {
	rows, err := r.q().QueryContext(ctx, intdb.Rebind(`
		SELECT s.id, s.name, s.status, rs.id, COALESCE(rs.name, ''), COALESCE(rs.stop_order, 0),
		       ts.status, ts.attended_at
		FROM trip_students ts
		JOIN students s ON s.id = ts.student_id
		LEFT JOIN route_stops rs ON rs.id = s.`+stopColumn(tripType)+`
		WHERE ts.trip_id=?
		ORDER BY CASE WHEN rs.id IS NULL THEN 1 ELSE 0 END, rs.stop_order, s.name, s.id
	`), tripID)
	if err != nil {
		return nil, fmt.Errorf("list roster trip=%d: %w", tripID, err)
	}
	defer rows.Close()

	out := []models.RosterEntry{}
	for rows.Next() {
		var (
			e          models.RosterEntry
			stopID     sql.NullInt64
			status     string
			attendedAt sql.NullTime
		)
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.StudentStatus, &stopID, &e.StopName, &e.StopOrder, &status, &attendedAt); err != nil {
			return nil, err
		}
		if stopID.Valid {
			id := domain.ID(stopID.Int64)
			e.StopID = &id
		}
		e.Status = domain.AttendanceStatus(status)
		if attendedAt.Valid {
			v := attendedAt.Time
			e.AttendedAt = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// stopColumn picks the student column that assigns them to a stop for the
// given direction.
func stopColumn(t domain.TripType) string {
	if t == domain.TripDropoff {
		return "dropoff_stop_id"
	}
	return "pickup_stop_id"
}
