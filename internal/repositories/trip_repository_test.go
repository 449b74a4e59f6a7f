package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	intdb "schoolbus/internal/db"
	"schoolbus/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tripCols = []string{
	"id", "driver_id", "route_id", "bus_id", "trip_date", "type", "session", "status",
	"scheduled_start_time", "actual_start_time", "actual_end_time",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestTripRepository_FindByShift(t *testing.T) {
	db, mock := newMock(t)
	started := day.Add(7 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM trips\\s+WHERE driver_id=\\? AND trip_date=\\? AND type=\\? AND session=\\?").
		WithArgs(7, "2025-03-10", "pickup", "morning").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(11, 7, 3, nil, day, "pickup", "morning", "in_progress", "06:45", started, nil))

	repo := TripRepository{Q: db}
	trip, err := repo.FindByShift(context.Background(), 7, day.Add(9*time.Hour), domain.Shift{Type: domain.TripPickup, Session: domain.Morning})
	require.NoError(t, err)

	assert.Equal(t, domain.ID(11), trip.ID)
	require.NotNil(t, trip.RouteID)
	assert.Equal(t, domain.ID(3), *trip.RouteID)
	assert.Nil(t, trip.BusID)
	assert.Equal(t, domain.TripInProgress, trip.Status)
	assert.Equal(t, "06:45", trip.ScheduledStartTime)
	require.NotNil(t, trip.ActualStartTime)
	assert.True(t, started.Equal(*trip.ActualStartTime))
	assert.Nil(t, trip.ActualEndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_NoRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM trips").WillReturnRows(sqlmock.NewRows(tripCols))

	_, err := TripRepository{Q: db}.FindFirstByStatus(context.Background(), 7, day, domain.TripInProgress)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTripRepository_RejectsMismatchedShift(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM trips WHERE id=\\?").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(5, 7, nil, nil, day, "pickup", "afternoon", "scheduled", nil, nil, nil))

	_, err := TripRepository{Q: db}.GetByID(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, domain.IsInternal(err))
	assert.False(t, domain.IsValidation(err))
}

func TestTripRepository_LockUsesForUpdate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM trips WHERE id=\\? FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(5, 7, nil, nil, day, "dropoff", "afternoon", "scheduled", nil, nil, nil))

	trip, err := TripRepository{Q: db}.LockByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.TripDropoff, trip.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_FindFirstByStatusOrdersBySession(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("ORDER BY CASE session WHEN 'morning' THEN 0 ELSE 1 END, type, id\\s+LIMIT 1").
		WithArgs(7, "2025-03-10", "scheduled").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(8, 7, nil, nil, day, "pickup", "morning", "scheduled", nil, nil, nil))

	trip, err := TripRepository{Q: db}.FindFirstByStatus(context.Background(), 7, day, domain.TripScheduled)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(8), trip.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_MarkStarted(t *testing.T) {
	db, mock := newMock(t)
	at := day.Add(7 * time.Hour)

	mock.ExpectExec("UPDATE trips SET status=\\?, actual_start_time=\\?\\s+WHERE id=\\? AND status=\\?").
		WithArgs("in_progress", at, 5, "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, TripRepository{Q: db}.MarkStarted(context.Background(), 5, at))

	// a concurrent writer got there first
	mock.ExpectExec("UPDATE trips").WillReturnResult(sqlmock.NewResult(0, 0))
	err := TripRepository{Q: db}.MarkStarted(context.Background(), 5, at)
	assert.True(t, domain.IsInternal(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_ListByDriverBetween(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WHERE driver_id=\\? AND trip_date>=\\? AND trip_date<=\\?").
		WithArgs(7, "2025-03-10", "2025-03-16").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(1, 7, 3, 2, day, "pickup", "morning", "completed", "06:45", nil, nil).
			AddRow(2, 7, 3, 2, day, "dropoff", "afternoon", "scheduled", "14:30", nil, nil))

	trips, err := TripRepository{Q: db}.ListByDriverBetween(context.Background(), 7, day, day.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, domain.Morning, trips[0].Session)
	assert.Equal(t, domain.Afternoon, trips[1].Session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripRepository_PostgresPlaceholders(t *testing.T) {
	intdb.SetDialect(intdb.Postgres)
	defer intdb.SetDialect(intdb.MySQL)

	db, mock := newMock(t)
	mock.ExpectQuery("FROM trips WHERE id=\\$1 FOR UPDATE").WithArgs(5).
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow(5, 7, nil, nil, day, "pickup", "morning", "scheduled", nil, nil, nil))

	_, err := TripRepository{Q: db}.LockByID(context.Background(), 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
