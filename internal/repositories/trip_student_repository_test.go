package repositories

import (
	"context"
	"testing"
	"time"

	"schoolbus/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripStudentRepository_Lock(t *testing.T) {
	db, mock := newMock(t)
	at := day.Add(7 * time.Hour)

	mock.ExpectQuery("FROM trip_students\\s+WHERE trip_id=\\? AND student_id=\\?\\s+FOR UPDATE").
		WithArgs(5, 9).
		WillReturnRows(sqlmock.NewRows([]string{"trip_id", "student_id", "status", "attended_at"}).
			AddRow(5, 9, "attended", at))

	ts, err := TripStudentRepository{Q: db}.Lock(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceAttended, ts.Status)
	require.NotNil(t, ts.AttendedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStudentRepository_SetStatusClearsTimestamp(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("UPDATE trip_students SET status=\\?, attended_at=\\?\\s+WHERE trip_id=\\? AND student_id=\\? AND status=\\?").
		WithArgs("pending", nil, 5, 9, "attended").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := TripStudentRepository{Q: db}.SetStatus(context.Background(), 5, 9, domain.AttendanceAttended, domain.AttendancePending, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStudentRepository_SetStatusLostRace(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE trip_students").WillReturnResult(sqlmock.NewResult(0, 0))

	at := day.Add(7 * time.Hour)
	err := TripStudentRepository{Q: db}.SetStatus(context.Background(), 5, 9, domain.AttendancePending, domain.AttendanceAttended, &at)
	assert.True(t, domain.IsInternal(err))
}

func TestTripStudentRepository_CountByStatus(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("JOIN students s ON s.id = ts.student_id\\s+WHERE ts.trip_id=\\? AND s.status=\\?").
		WithArgs(5, "active").
		WillReturnRows(sqlmock.NewRows([]string{"total", "attended", "absent"}).AddRow(3, 2, 1))

	c, err := TripStudentRepository{Q: db}.CountByStatus(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceCounts{Total: 3, Attended: 2, Absent: 1}, c)
	assert.Equal(t, 0, c.Remaining())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripStudentRepository_CountPending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("AND s.status=\\? AND ts.status=\\?").
		WithArgs(5, "active", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := TripStudentRepository{Q: db}.CountPending(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTripStudentRepository_ListRosterUsesDirectionStop(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("LEFT JOIN route_stops rs ON rs.id = s.dropoff_stop_id").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "stop_id", "stop_name", "stop_order", "ts_status", "attended_at"}).
			AddRow(9, "Ana", "active", 4, "Gate A", 1, "pending", nil).
			AddRow(10, "Budi", "inactive", nil, "", 0, "pending", nil))

	roster, err := TripStudentRepository{Q: db}.ListRoster(context.Background(), 5, domain.TripDropoff)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.NotNil(t, roster[0].StopID)
	assert.Equal(t, "Gate A", roster[0].StopName)
	assert.Nil(t, roster[1].StopID)
	assert.Equal(t, "inactive", roster[1].StudentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteRepository_StopLoads(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("ON s.pickup_stop_id = rs.id AND s.status = \\?").
		WithArgs(5, "active", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "route_id", "name", "stop_order", "assigned", "processed"}).
			AddRow(1, 3, "Depot Road", 1, 2, 2).
			AddRow(2, 3, "Market", 2, 1, 0))

	loads, err := RouteRepository{Q: db}.StopLoads(context.Background(), 5, 3, domain.TripPickup)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.True(t, loads[0].Done())
	assert.False(t, loads[1].Done())
	assert.Equal(t, "Market", loads[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
