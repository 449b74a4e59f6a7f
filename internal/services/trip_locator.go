package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
)

// LookupMode selects how the locator finds the driver's trip: by an exact
// shift, or the trip currently in progress falling back to the next one
// scheduled.
type LookupMode struct {
	active bool
	shift  domain.Shift
}

func ExactLookup(s domain.Shift) LookupMode { return LookupMode{shift: s} }

func ActiveLookup() LookupMode { return LookupMode{active: true} }

func (m LookupMode) IsActive() bool { return m.active }

// Shift returns the searched shift; ok is false in active mode.
func (m LookupMode) Shift() (domain.Shift, bool) {
	if m.active {
		return domain.Shift{}, false
	}
	return m.shift, true
}

func (m LookupMode) String() string {
	if m.active {
		return "active"
	}
	return "exact:" + string(m.shift.Type) + "/" + string(m.shift.Session)
}

// ModeFor builds the mode from request parameters. Without any parameter the
// active trip is wanted; otherwise the shift they resolve to.
func ModeFor(t domain.TripType, session domain.DayPart, now time.Time) (LookupMode, error) {
	if t == "" && session == "" {
		return ActiveLookup(), nil
	}
	s, err := domain.ResolveShift(t, session, now)
	if err != nil {
		return LookupMode{}, err
	}
	return ExactLookup(s), nil
}

// TripLocator finds the single authoritative trip of a driver for a day.
type TripLocator struct {
	Trips TripStore
}

func (l TripLocator) Locate(ctx context.Context, driverID domain.ID, today time.Time, mode LookupMode) (models.Trip, error) {
	if shift, ok := mode.Shift(); ok {
		trip, err := l.Trips.FindByShift(ctx, driverID, today, shift)
		if err != nil {
			return models.Trip{}, notFound(err, domain.NotFoundError{
				Resource: "trip",
				Msg:      fmt.Sprintf("no %s trip assigned today", strings.ToLower(shift.Label())),
			})
		}
		return trip, nil
	}

	trip, err := l.Trips.FindFirstByStatus(ctx, driverID, today, domain.TripInProgress)
	if err == nil {
		return trip, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, err
	}
	trip, err = l.Trips.FindFirstByStatus(ctx, driverID, today, domain.TripScheduled)
	if err != nil {
		return models.Trip{}, notFound(err, domain.NotFoundError{
			Resource: "trip",
			Msg:      "no active or scheduled trip today",
		})
	}
	return trip, nil
}

// tripNotFound is returned for missing trips and for trips of another driver,
// so callers cannot probe foreign trip ids.
func tripNotFound(id domain.ID) domain.NotFoundError {
	return domain.NotFoundError{Resource: "trip", Msg: fmt.Sprintf("trip %d not found", id)}
}

// ownedTrip loads or locks a trip and checks it belongs to driverID. A zero
// driverID skips the check (operator tooling).
func ownedTrip(ctx context.Context, load func(context.Context, domain.ID) (models.Trip, error), driverID, tripID domain.ID) (models.Trip, error) {
	trip, err := load(ctx, tripID)
	if err != nil {
		return models.Trip{}, notFound(err, tripNotFound(tripID))
	}
	if driverID != 0 && trip.DriverID != driverID {
		return models.Trip{}, tripNotFound(tripID)
	}
	return trip, nil
}
