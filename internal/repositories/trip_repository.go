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
	"schoolbus/internal/utils"
)

const tripColumns = `id, driver_id, route_id, bus_id, trip_date, type, session, status,
	scheduled_start_time, actual_start_time, actual_end_time`

// sessionOrder sorts morning before afternoon, then by type.
const sessionOrder = `CASE session WHEN 'morning' THEN 0 ELSE 1 END, type`

// TripRepository reads and transitions rows of the trips table. Q may be a
// *sql.DB or the *sql.Tx of the calling service.
type TripRepository struct {
	Q intdb.Querier
}

func (r TripRepository) q() intdb.Querier {
	if r.Q != nil {
		return r.Q
	}
	return intconfig.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTrip hydrates a trip and refuses rows that break the shift
// correspondence or carry an unknown status.
func scanTrip(s rowScanner) (models.Trip, error) {
	var (
		t                  models.Trip
		routeID, busID     sql.NullInt64
		tripType, session  string
		status             string
		scheduled          sql.NullString
		startedAt, endedAt sql.NullTime
	)
	if err := s.Scan(
		&t.ID, &t.DriverID, &routeID, &busID, &t.TripDate,
		&tripType, &session, &status,
		&scheduled, &startedAt, &endedAt,
	); err != nil {
		return models.Trip{}, err
	}

	t.Type = domain.TripType(tripType)
	t.Session = domain.DayPart(session)
	t.Status = domain.TripStatus(status)
	if err := t.Shift().Validate(); err != nil {
		return models.Trip{}, domain.InternalError{
			Msg: fmt.Sprintf("trip %d is invalid", t.ID),
			Err: fmt.Errorf("trip %d: %s", t.ID, err.Error()),
		}
	}
	if !t.Status.Valid() {
		return models.Trip{}, domain.InternalError{Msg: fmt.Sprintf("trip %d has unknown status %q", t.ID, status)}
	}

	if routeID.Valid {
		id := domain.ID(routeID.Int64)
		t.RouteID = &id
	}
	if busID.Valid {
		id := domain.ID(busID.Int64)
		t.BusID = &id
	}
	if scheduled.Valid {
		t.ScheduledStartTime = scheduled.String
	}
	if startedAt.Valid {
		v := startedAt.Time
		t.ActualStartTime = &v
	}
	if endedAt.Valid {
		v := endedAt.Time
		t.ActualEndTime = &v
	}
	return t, nil
}

func (r TripRepository) GetByID(ctx context.Context, id domain.ID) (models.Trip, error) {
	row := r.q().QueryRowContext(ctx, intdb.Rebind(`SELECT `+tripColumns+` FROM trips WHERE id=? LIMIT 1`), id)
	return scanTrip(row)
}

// LockByID reads the trip with a row lock held until the surrounding
// transaction ends. Every write to a trip or its ledger takes this lock first.
func (r TripRepository) LockByID(ctx context.Context, id domain.ID) (models.Trip, error) {
	row := r.q().QueryRowContext(ctx, intdb.Rebind(`SELECT `+tripColumns+` FROM trips WHERE id=? FOR UPDATE`), id)
	return scanTrip(row)
}

// FindByShift looks a trip up by its natural key.
func (r TripRepository) FindByShift(ctx context.Context, driverID domain.ID, date time.Time, shift domain.Shift) (models.Trip, error) {
	row := r.q().QueryRowContext(ctx, intdb.Rebind(`
		SELECT `+tripColumns+`
		FROM trips
		WHERE driver_id=? AND trip_date=? AND type=? AND session=?
		LIMIT 1
	`), driverID, utils.FormatDate(date), string(shift.Type), string(shift.Session))
	return scanTrip(row)
}

// FindFirstByStatus returns the driver's earliest trip on date with status,
// ordered by session then type.
func (r TripRepository) FindFirstByStatus(ctx context.Context, driverID domain.ID, date time.Time, status domain.TripStatus) (models.Trip, error) {
	row := r.q().QueryRowContext(ctx, intdb.Rebind(`
		SELECT `+tripColumns+`
		FROM trips
		WHERE driver_id=? AND trip_date=? AND status=?
		ORDER BY `+sessionOrder+`, id
		LIMIT 1
	`), driverID, utils.FormatDate(date), string(status))
	return scanTrip(row)
}

// MarkStarted moves a scheduled trip to in_progress. The status guard in the
// WHERE clause makes a lost race surface as an error instead of a double write.
func (r TripRepository) MarkStarted(ctx context.Context, id domain.ID, at time.Time) error {
	res, err := r.q().ExecContext(ctx, intdb.Rebind(`
		UPDATE trips SET status=?, actual_start_time=?
		WHERE id=? AND status=?
	`), string(domain.TripInProgress), at, id, string(domain.TripScheduled))
	if err != nil {
		return fmt.Errorf("start trip %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Sprintf("start trip %d", id))
}

func (r TripRepository) MarkCompleted(ctx context.Context, id domain.ID, at time.Time) error {
	res, err := r.q().ExecContext(ctx, intdb.Rebind(`
		UPDATE trips SET status=?, actual_end_time=?
		WHERE id=? AND status=?
	`), string(domain.TripCompleted), at, id, string(domain.TripInProgress))
	if err != nil {
		return fmt.Errorf("complete trip %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Sprintf("complete trip %d", id))
}

// ListByDriverBetween lists the driver's trips in [from, to], ordered by date
// then session.
func (r TripRepository) ListByDriverBetween(ctx context.Context, driverID domain.ID, from, to time.Time) ([]models.Trip, error) {
	rows, err := r.q().QueryContext(ctx, intdb.Rebind(`
		SELECT `+tripColumns+`
		FROM trips
		WHERE driver_id=? AND trip_date>=? AND trip_date<=?
		ORDER BY trip_date, `+sessionOrder+`, id
	`), driverID, utils.FormatDate(from), utils.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n != 1 {
		return domain.InternalError{Msg: what + ": state changed concurrently"}
	}
	return nil
}
