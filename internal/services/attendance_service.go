package services

import (
	"context"
	"fmt"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/events"
	"schoolbus/internal/utils"

	"go.uber.org/zap"
)

// ledgerMove is one legal attendance transition. refusals gives the conflict
// message for every other current status.
type ledgerMove struct {
	op       string
	from, to domain.AttendanceStatus
	event    string
	refusals map[domain.AttendanceStatus]string
}

var (
	attendMove = ledgerMove{
		op:   "attend",
		from: domain.AttendancePending,
		to:   domain.AttendanceAttended,
		refusals: map[domain.AttendanceStatus]string{
			domain.AttendanceAttended: "student already attended",
			domain.AttendanceAbsent:   "student already marked absent, check the absence report",
		},
	}
	undoAttendMove = ledgerMove{
		op:   "undo_attend",
		from: domain.AttendanceAttended,
		to:   domain.AttendancePending,
		refusals: map[domain.AttendanceStatus]string{
			domain.AttendancePending: "student not attended yet",
			domain.AttendanceAbsent:  "cannot undo an absence mark from here",
		},
	}
	markAbsentMove = ledgerMove{
		op:    "mark_absent",
		from:  domain.AttendancePending,
		to:    domain.AttendanceAbsent,
		event: events.KindAttendanceAbsent,
		refusals: map[domain.AttendanceStatus]string{
			domain.AttendanceAttended: "student already attended, undo the check-in first",
			domain.AttendanceAbsent:   "student already marked absent",
		},
	}
	reverseAbsenceMove = ledgerMove{
		op:    "reverse_absence",
		from:  domain.AttendanceAbsent,
		to:    domain.AttendancePending,
		event: events.KindAbsenceReversed,
		refusals: map[domain.AttendanceStatus]string{
			domain.AttendancePending:  "student is not marked absent",
			domain.AttendanceAttended: "student is not marked absent",
		},
	}
)

// AttendanceService owns the per-student ledger of a trip. Drivers attend and
// undo; the incident collaborator marks and reverses absences.
type AttendanceService struct {
	Store     Store
	Events    events.Publisher
	Metrics   Recorder
	Clock     Clock
	RequestID string
}

// Attend records that the student boarded (pickup) or left the bus (dropoff).
func (s AttendanceService) Attend(ctx context.Context, driverID, tripID, studentID domain.ID) (models.TripStudent, error) {
	return s.apply(ctx, attendMove, driverID, tripID, studentID)
}

// UndoAttend reverts an attended student to pending. Absences are left alone.
func (s AttendanceService) UndoAttend(ctx context.Context, driverID, tripID, studentID domain.ID) (models.TripStudent, error) {
	return s.apply(ctx, undoAttendMove, driverID, tripID, studentID)
}

// MarkAbsent is the only writer of the absent status.
func (s AttendanceService) MarkAbsent(ctx context.Context, driverID, tripID, studentID domain.ID) (models.TripStudent, error) {
	return s.apply(ctx, markAbsentMove, driverID, tripID, studentID)
}

// ReverseAbsence puts an absent student back to pending, e.g. when an absence
// report was filed for the wrong trip.
func (s AttendanceService) ReverseAbsence(ctx context.Context, driverID, tripID, studentID domain.ID) (models.TripStudent, error) {
	return s.apply(ctx, reverseAbsenceMove, driverID, tripID, studentID)
}

// CountByStatus aggregates the ledger over active students.
func (s AttendanceService) CountByStatus(ctx context.Context, driverID, tripID domain.ID) (domain.AttendanceCounts, error) {
	r := s.Store.Read()
	if _, err := ownedTrip(ctx, r.Trips.GetByID, driverID, tripID); err != nil {
		return domain.AttendanceCounts{}, err
	}
	return r.Ledger.CountByStatus(ctx, tripID)
}

func (s AttendanceService) apply(ctx context.Context, m ledgerMove, driverID, tripID, studentID domain.ID) (models.TripStudent, error) {
	now := s.Clock.now()
	var (
		trip models.Trip
		row  models.TripStudent
	)
	err := s.Store.InTx(ctx, func(r Repos) error {
		t, err := ownedTrip(ctx, r.Trips.LockByID, driverID, tripID)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return domain.ConflictError{
				Resource: "attendance",
				Msg:      fmt.Sprintf("cannot change attendance on a %s trip", t.Status),
				Current:  string(t.Status),
				Details:  map[string]any{"tripId": t.ID, "tripStatus": string(t.Status)},
			}
		}

		ts, err := r.Ledger.Lock(ctx, tripID, studentID)
		if err != nil {
			return notFound(err, domain.NotFoundError{
				Resource: "trip student",
				Msg:      fmt.Sprintf("student %d is not on trip %d", studentID, tripID),
			})
		}
		if ts.Status != m.from {
			msg, ok := m.refusals[ts.Status]
			if !ok {
				msg = fmt.Sprintf("cannot %s a %s student", m.op, ts.Status)
			}
			return domain.ConflictError{
				Resource: "attendance",
				Msg:      msg,
				Current:  string(ts.Status),
				Details:  map[string]any{"tripId": tripID, "studentId": studentID, "status": string(ts.Status)},
			}
		}

		var attendedAt *time.Time
		if m.to == domain.AttendanceAttended {
			attendedAt = &now
		}
		if err := r.Ledger.SetStatus(ctx, tripID, studentID, m.from, m.to, attendedAt); err != nil {
			return err
		}
		ts.Status = m.to
		ts.AttendedAt = attendedAt
		trip, row = t, ts
		return nil
	})
	if err != nil {
		return models.TripStudent{}, failed(s.Metrics, s.RequestID, "attendance", m.op, err)
	}

	recorderOr(s.Metrics).AttendanceTransition(m.from, m.to)
	utils.LogEvent(s.RequestID, "attendance", m.op, string(m.from)+" -> "+string(m.to),
		zap.Int64("trip_id", int64(tripID)), zap.Int64("student_id", int64(studentID)))
	if m.event != "" {
		ev := tripEvent(m.event, trip, now)
		ev.StudentID = studentID
		ev.Status = string(m.to)
		publish(ctx, s.Events, s.RequestID, ev)
	}
	return row, nil
}
