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

// TripLifecycleService owns the trip state machine:
// scheduled -> in_progress -> completed. cancelled is set elsewhere and is
// final here.
type TripLifecycleService struct {
	Store     Store
	Events    events.Publisher
	Metrics   Recorder
	Clock     Clock
	RequestID string
}

// StartTrip moves a scheduled trip of the driver to in_progress.
func (s TripLifecycleService) StartTrip(ctx context.Context, driverID, tripID domain.ID) (models.Trip, error) {
	now := s.Clock.now()
	var trip models.Trip
	err := s.Store.InTx(ctx, func(r Repos) error {
		t, err := ownedTrip(ctx, r.Trips.LockByID, driverID, tripID)
		if err != nil {
			return err
		}
		switch t.Status {
		case domain.TripScheduled:
		case domain.TripInProgress:
			return tripConflict(t, "trip already started")
		default:
			return tripConflict(t, fmt.Sprintf("cannot start a %s trip", t.Status))
		}

		if err := r.Trips.MarkStarted(ctx, t.ID, now); err != nil {
			return err
		}
		t.Status = domain.TripInProgress
		t.ActualStartTime = &now
		trip = t
		return nil
	})
	if err != nil {
		return models.Trip{}, failed(s.Metrics, s.RequestID, "trip", "start_trip", err)
	}

	recorderOr(s.Metrics).TripTransition(domain.TripInProgress)
	utils.LogEvent(s.RequestID, "trip", "start_trip", "trip started",
		zap.Int64("trip_id", int64(trip.ID)), zap.Int64("driver_id", int64(trip.DriverID)))
	publish(ctx, s.Events, s.RequestID, tripEvent(events.KindTripStarted, trip, now))
	return trip, nil
}

// CompleteTrip moves an in-progress trip to completed once no active student
// is pending. The pending count is read under the trip lock.
func (s TripLifecycleService) CompleteTrip(ctx context.Context, driverID, tripID domain.ID) (models.Trip, error) {
	now := s.Clock.now()
	var trip models.Trip
	err := s.Store.InTx(ctx, func(r Repos) error {
		t, err := ownedTrip(ctx, r.Trips.LockByID, driverID, tripID)
		if err != nil {
			return err
		}
		switch t.Status {
		case domain.TripInProgress:
		case domain.TripCompleted:
			return tripConflict(t, "trip already completed")
		case domain.TripScheduled:
			return tripConflict(t, "trip not started yet")
		default:
			return tripConflict(t, fmt.Sprintf("cannot complete a %s trip", t.Status))
		}

		pending, err := r.Ledger.CountPending(ctx, t.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			c := tripConflict(t, fmt.Sprintf("%d students still pending", pending))
			c.Details["pending"] = pending
			return c
		}

		if err := r.Trips.MarkCompleted(ctx, t.ID, now); err != nil {
			return err
		}
		t.Status = domain.TripCompleted
		t.ActualEndTime = &now
		trip = t
		return nil
	})
	if err != nil {
		return models.Trip{}, failed(s.Metrics, s.RequestID, "trip", "complete_trip", err)
	}

	recorderOr(s.Metrics).TripTransition(domain.TripCompleted)
	utils.LogEvent(s.RequestID, "trip", "complete_trip", "trip completed",
		zap.Int64("trip_id", int64(trip.ID)), zap.Int64("driver_id", int64(trip.DriverID)))
	publish(ctx, s.Events, s.RequestID, tripEvent(events.KindTripCompleted, trip, now))
	return trip, nil
}

// StartCurrent starts the trip the locator picks for today.
func (s TripLifecycleService) StartCurrent(ctx context.Context, driverID domain.ID, mode LookupMode) (models.Trip, error) {
	trip, err := s.locate(ctx, driverID, mode)
	if err != nil {
		return models.Trip{}, failed(s.Metrics, s.RequestID, "trip", "start_trip", err)
	}
	return s.StartTrip(ctx, driverID, trip.ID)
}

// CompleteCurrent completes the trip the locator picks for today.
func (s TripLifecycleService) CompleteCurrent(ctx context.Context, driverID domain.ID, mode LookupMode) (models.Trip, error) {
	trip, err := s.locate(ctx, driverID, mode)
	if err != nil {
		return models.Trip{}, failed(s.Metrics, s.RequestID, "trip", "complete_trip", err)
	}
	return s.CompleteTrip(ctx, driverID, trip.ID)
}

func (s TripLifecycleService) locate(ctx context.Context, driverID domain.ID, mode LookupMode) (models.Trip, error) {
	return TripLocator{Trips: s.Store.Read().Trips}.Locate(ctx, driverID, utils.StartOfDay(s.Clock.now()), mode)
}

func tripConflict(t models.Trip, msg string) domain.ConflictError {
	return domain.ConflictError{
		Resource: "trip",
		Msg:      msg,
		Current:  string(t.Status),
		Details:  map[string]any{"tripId": t.ID, "status": string(t.Status)},
	}
}

func tripEvent(kind string, t models.Trip, at time.Time) events.Event {
	ev := events.New(kind, at)
	ev.TripID = t.ID
	ev.DriverID = t.DriverID
	ev.TripType = string(t.Type)
	ev.Session = string(t.Session)
	ev.TripDate = utils.FormatDate(t.TripDate)
	ev.Status = string(t.Status)
	return ev
}
