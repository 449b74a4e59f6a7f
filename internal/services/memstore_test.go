package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/utils"
)

type memStudent struct {
	name          string
	status        string
	pickupStopID  domain.ID
	dropoffStopID domain.ID
}

type ledgerKey struct{ trip, student domain.ID }

// memState is the whole database of the in-memory store. Transactions work on
// a clone that replaces the state on commit.
type memState struct {
	trips    map[domain.ID]models.Trip
	ledger   map[ledgerKey]models.TripStudent
	students map[domain.ID]memStudent
	routes   map[domain.ID]models.Route
	stops    map[domain.ID][]models.RouteStop
	buses    map[domain.ID]models.Bus
}

func newMemState() *memState {
	return &memState{
		trips:    map[domain.ID]models.Trip{},
		ledger:   map[ledgerKey]models.TripStudent{},
		students: map[domain.ID]memStudent{},
		routes:   map[domain.ID]models.Route{},
		stops:    map[domain.ID][]models.RouteStop{},
		buses:    map[domain.ID]models.Bus{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.trips {
		c.trips[k] = v
	}
	for k, v := range s.ledger {
		c.ledger[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.stops {
		c.stops[k] = append([]models.RouteStop(nil), v...)
	}
	for k, v := range s.buses {
		c.buses[k] = v
	}
	return c
}

type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore { return &memStore{state: newMemState()} }

func (m *memStore) Read() Repos {
	m.mu.Lock()
	st := m.state.clone()
	m.mu.Unlock()
	return Repos{Trips: st, Ledger: st, Routes: st}
}

func (m *memStore) InTx(_ context.Context, fn func(Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state.clone()
	if err := fn(Repos{Trips: st, Ledger: st, Routes: st}); err != nil {
		return err
	}
	m.state = st
	return nil
}

// fixtures

func (m *memStore) addTrip(t models.Trip) {
	if t.Status == "" {
		t.Status = domain.TripScheduled
	}
	m.state.trips[t.ID] = t
}

func (m *memStore) addStudent(id domain.ID, name string, pickup, dropoff domain.ID) {
	m.state.students[id] = memStudent{name: name, status: domain.StudentActive, pickupStopID: pickup, dropoffStopID: dropoff}
}

func (m *memStore) enroll(tripID domain.ID, studentIDs ...domain.ID) {
	for _, id := range studentIDs {
		m.state.ledger[ledgerKey{tripID, id}] = models.TripStudent{TripID: tripID, StudentID: id, Status: domain.AttendancePending}
	}
}

func (m *memStore) addRoute(id domain.ID, name string, stops ...string) {
	m.state.routes[id] = models.Route{ID: id, Name: name}
	for i, s := range stops {
		m.state.stops[id] = append(m.state.stops[id], models.RouteStop{
			ID: id*100 + domain.ID(i+1), RouteID: id, Name: s, StopOrder: i + 1,
		})
	}
}

func (m *memStore) trip(id domain.ID) models.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.trips[id]
}

func (m *memStore) entry(tripID, studentID domain.ID) models.TripStudent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ledger[ledgerKey{tripID, studentID}]
}

// TripStore

func (s *memState) GetByID(_ context.Context, id domain.ID) (models.Trip, error) {
	t, ok := s.trips[id]
	if !ok {
		return models.Trip{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *memState) LockByID(ctx context.Context, id domain.ID) (models.Trip, error) {
	return s.GetByID(ctx, id)
}

func (s *memState) sortedTrips(keep func(models.Trip) bool) []models.Trip {
	out := []models.Trip{}
	for _, t := range s.trips {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !utils.SameDate(a.TripDate, b.TripDate) {
			return a.TripDate.Before(b.TripDate)
		}
		if ra, rb := domain.SessionRank(a.Session), domain.SessionRank(b.Session); ra != rb {
			return ra < rb
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})
	return out
}

func (s *memState) FindByShift(_ context.Context, driverID domain.ID, date time.Time, shift domain.Shift) (models.Trip, error) {
	found := s.sortedTrips(func(t models.Trip) bool {
		return t.DriverID == driverID && utils.SameDate(t.TripDate, date) && t.Shift() == shift
	})
	if len(found) == 0 {
		return models.Trip{}, sql.ErrNoRows
	}
	return found[0], nil
}

func (s *memState) FindFirstByStatus(_ context.Context, driverID domain.ID, date time.Time, status domain.TripStatus) (models.Trip, error) {
	found := s.sortedTrips(func(t models.Trip) bool {
		return t.DriverID == driverID && utils.SameDate(t.TripDate, date) && t.Status == status
	})
	if len(found) == 0 {
		return models.Trip{}, sql.ErrNoRows
	}
	return found[0], nil
}

func (s *memState) move(id domain.ID, from, to domain.TripStatus, set func(*models.Trip)) error {
	t, ok := s.trips[id]
	if !ok || t.Status != from {
		return domain.InternalError{Msg: "state changed concurrently"}
	}
	t.Status = to
	set(&t)
	s.trips[id] = t
	return nil
}

func (s *memState) MarkStarted(_ context.Context, id domain.ID, at time.Time) error {
	return s.move(id, domain.TripScheduled, domain.TripInProgress, func(t *models.Trip) { t.ActualStartTime = &at })
}

func (s *memState) MarkCompleted(_ context.Context, id domain.ID, at time.Time) error {
	return s.move(id, domain.TripInProgress, domain.TripCompleted, func(t *models.Trip) { t.ActualEndTime = &at })
}

func (s *memState) ListByDriverBetween(_ context.Context, driverID domain.ID, from, to time.Time) ([]models.Trip, error) {
	lo, hi := utils.FormatDate(from), utils.FormatDate(to)
	return s.sortedTrips(func(t models.Trip) bool {
		d := utils.FormatDate(t.TripDate)
		return t.DriverID == driverID && d >= lo && d <= hi
	}), nil
}

// LedgerStore

func (s *memState) Lock(_ context.Context, tripID, studentID domain.ID) (models.TripStudent, error) {
	ts, ok := s.ledger[ledgerKey{tripID, studentID}]
	if !ok {
		return models.TripStudent{}, sql.ErrNoRows
	}
	return ts, nil
}

func (s *memState) SetStatus(_ context.Context, tripID, studentID domain.ID, from, to domain.AttendanceStatus, attendedAt *time.Time) error {
	k := ledgerKey{tripID, studentID}
	ts, ok := s.ledger[k]
	if !ok || ts.Status != from {
		return domain.InternalError{Msg: "state changed concurrently"}
	}
	ts.Status, ts.AttendedAt = to, attendedAt
	s.ledger[k] = ts
	return nil
}

func (s *memState) activeEntries(tripID domain.ID) []models.TripStudent {
	out := []models.TripStudent{}
	for k, ts := range s.ledger {
		if k.trip == tripID && s.students[k.student].status == domain.StudentActive {
			out = append(out, ts)
		}
	}
	return out
}

func (s *memState) CountByStatus(_ context.Context, tripID domain.ID) (domain.AttendanceCounts, error) {
	var c domain.AttendanceCounts
	for _, ts := range s.activeEntries(tripID) {
		c.Total++
		switch ts.Status {
		case domain.AttendanceAttended:
			c.Attended++
		case domain.AttendanceAbsent:
			c.Absent++
		}
	}
	return c, nil
}

func (s *memState) CountPending(_ context.Context, tripID domain.ID) (int, error) {
	n := 0
	for _, ts := range s.activeEntries(tripID) {
		if ts.Status == domain.AttendancePending {
			n++
		}
	}
	return n, nil
}

func (s *memState) stopOf(st memStudent, t domain.TripType) domain.ID {
	if t == domain.TripDropoff {
		return st.dropoffStopID
	}
	return st.pickupStopID
}

func (s *memState) findStop(id domain.ID) (models.RouteStop, bool) {
	for _, stops := range s.stops {
		for _, rs := range stops {
			if rs.ID == id {
				return rs, true
			}
		}
	}
	return models.RouteStop{}, false
}

func (s *memState) ListRoster(_ context.Context, tripID domain.ID, t domain.TripType) ([]models.RosterEntry, error) {
	out := []models.RosterEntry{}
	for k, ts := range s.ledger {
		if k.trip != tripID {
			continue
		}
		st := s.students[k.student]
		e := models.RosterEntry{
			StudentID: k.student, StudentName: st.name, StudentStatus: st.status,
			Status: ts.Status, AttendedAt: ts.AttendedAt,
		}
		if rs, ok := s.findStop(s.stopOf(st, t)); ok {
			id := rs.ID
			e.StopID, e.StopName, e.StopOrder = &id, rs.Name, rs.StopOrder
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.StopID == nil) != (b.StopID == nil) {
			return a.StopID != nil
		}
		if a.StopOrder != b.StopOrder {
			return a.StopOrder < b.StopOrder
		}
		return strings.Compare(a.StudentName, b.StudentName) < 0
	})
	return out, nil
}

// RouteReader

func (s *memState) GetRoute(_ context.Context, id domain.ID) (models.Route, error) {
	r, ok := s.routes[id]
	if !ok {
		return models.Route{}, sql.ErrNoRows
	}
	return r, nil
}

func (s *memState) GetBus(_ context.Context, id domain.ID) (models.Bus, error) {
	b, ok := s.buses[id]
	if !ok {
		return models.Bus{}, sql.ErrNoRows
	}
	return b, nil
}

func (s *memState) ListStops(_ context.Context, routeID domain.ID) ([]models.RouteStop, error) {
	return append([]models.RouteStop{}, s.stops[routeID]...), nil
}

func (s *memState) StopLoads(_ context.Context, tripID, routeID domain.ID, t domain.TripType) ([]models.StopLoad, error) {
	out := []models.StopLoad{}
	for _, rs := range s.stops[routeID] {
		l := models.StopLoad{RouteStop: rs}
		for k, ts := range s.ledger {
			st := s.students[k.student]
			if k.trip != tripID || st.status != domain.StudentActive || s.stopOf(st, t) != rs.ID {
				continue
			}
			l.Assigned++
			if ts.Status != domain.AttendancePending {
				l.Processed++
			}
		}
		out = append(out, l)
	}
	return out, nil
}
