package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/repositories"
)

// TripStore is the trip persistence the services need.
type TripStore interface {
	GetByID(ctx context.Context, id domain.ID) (models.Trip, error)
	LockByID(ctx context.Context, id domain.ID) (models.Trip, error)
	FindByShift(ctx context.Context, driverID domain.ID, date time.Time, shift domain.Shift) (models.Trip, error)
	FindFirstByStatus(ctx context.Context, driverID domain.ID, date time.Time, status domain.TripStatus) (models.Trip, error)
	MarkStarted(ctx context.Context, id domain.ID, at time.Time) error
	MarkCompleted(ctx context.Context, id domain.ID, at time.Time) error
	ListByDriverBetween(ctx context.Context, driverID domain.ID, from, to time.Time) ([]models.Trip, error)
}

// LedgerStore is the trip_students persistence.
type LedgerStore interface {
	Lock(ctx context.Context, tripID, studentID domain.ID) (models.TripStudent, error)
	SetStatus(ctx context.Context, tripID, studentID domain.ID, from, to domain.AttendanceStatus, attendedAt *time.Time) error
	CountByStatus(ctx context.Context, tripID domain.ID) (domain.AttendanceCounts, error)
	CountPending(ctx context.Context, tripID domain.ID) (int, error)
	ListRoster(ctx context.Context, tripID domain.ID, tripType domain.TripType) ([]models.RosterEntry, error)
}

// RouteReader reads the route data owned by other collaborators.
type RouteReader interface {
	GetRoute(ctx context.Context, id domain.ID) (models.Route, error)
	GetBus(ctx context.Context, id domain.ID) (models.Bus, error)
	ListStops(ctx context.Context, routeID domain.ID) ([]models.RouteStop, error)
	StopLoads(ctx context.Context, tripID, routeID domain.ID, tripType domain.TripType) ([]models.StopLoad, error)
}

// Repos groups repositories that share one connection or transaction.
type Repos struct {
	Trips  TripStore
	Ledger LedgerStore
	Routes RouteReader
}

// Store hands out repositories. InTx runs fn in one transaction, committing
// when fn returns nil.
type Store interface {
	Read() Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}

// SQLStore backs Store with database/sql. A nil DB falls back to the shared
// connection in config.
type SQLStore struct {
	DB *sql.DB
}

func (s SQLStore) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func reposOn(q intdb.Querier) Repos {
	return Repos{
		Trips:  repositories.TripRepository{Q: q},
		Ledger: repositories.TripStudentRepository{Q: q},
		Routes: repositories.RouteRepository{Q: q},
	}
}

func (s SQLStore) Read() Repos { return reposOn(s.db()) }

func (s SQLStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		return fn(reposOn(tx))
	})
}

// Clock returns the current time in the configured zone.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// notFound turns a repository miss into a NotFoundError and passes every
// other error through.
func notFound(err error, nf domain.NotFoundError) error {
	if errors.Is(err, sql.ErrNoRows) {
		nf.Err = err
		return nf
	}
	return err
}
