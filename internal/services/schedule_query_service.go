package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/utils"

	"github.com/teambition/rrule-go"
)

// maxScheduleDays bounds the weekly schedule range.
const maxScheduleDays = 31

// ScheduleQueryService builds the read-only driver views. Nothing here takes
// locks or writes.
type ScheduleQueryService struct {
	Store     Store
	Clock     Clock
	RequestID string
}

type TodaySummary struct {
	Date               string            `json:"date"`
	Shift              domain.Shift      `json:"shift"`
	ShiftLabel         string            `json:"shiftLabel"`
	TripID             domain.ID         `json:"tripId"`
	Status             domain.TripStatus `json:"status"`
	RouteName          string            `json:"routeName"`
	ScheduledStartTime string            `json:"scheduledStartTime"`
	ActualStartTime    string            `json:"actualStartTime"`
	ActualEndTime      string            `json:"actualEndTime"`
	PlateNumber        string            `json:"plateNumber"`
	VehicleCode        string            `json:"vehicleCode"`
	Progress           domain.Progress   `json:"progress"`
}

// TodaySummary resolves the shift from the arguments or the clock and
// summarizes that trip.
func (s ScheduleQueryService) TodaySummary(ctx context.Context, driverID domain.ID, t domain.TripType, session domain.DayPart) (TodaySummary, error) {
	now := s.Clock.now()
	shift, err := domain.ResolveShift(t, session, now)
	if err != nil {
		return TodaySummary{}, err
	}

	r := s.Store.Read()
	trip, err := TripLocator{Trips: r.Trips}.Locate(ctx, driverID, utils.StartOfDay(now), ExactLookup(shift))
	if err != nil {
		return TodaySummary{}, err
	}
	counts, err := r.Ledger.CountByStatus(ctx, trip.ID)
	if err != nil {
		return TodaySummary{}, err
	}

	out := TodaySummary{
		Date:               utils.FormatDate(now),
		Shift:              shift,
		ShiftLabel:         shift.Label(),
		TripID:             trip.ID,
		Status:             trip.Status,
		ScheduledStartTime: trip.ScheduledStartTime,
		ActualStartTime:    utils.FormatClock(trip.ActualStartTime, now.Location()),
		ActualEndTime:      utils.FormatClock(trip.ActualEndTime, now.Location()),
		Progress:           domain.ProgressFor(trip.Type, counts),
	}
	if out.RouteName, err = routeName(ctx, r.Routes, trip.RouteID); err != nil {
		return TodaySummary{}, err
	}
	if trip.BusID != nil {
		bus, err := r.Routes.GetBus(ctx, *trip.BusID)
		switch {
		case err == nil:
			out.PlateNumber, out.VehicleCode = bus.PlateNumber, bus.Code
		case !errors.Is(err, sql.ErrNoRows):
			return TodaySummary{}, err
		}
	}
	return out, nil
}

type StopProgress struct {
	StopID    domain.ID         `json:"stopId"`
	Name      string            `json:"name"`
	StopOrder int               `json:"stopOrder"`
	Status    domain.StopStatus `json:"status"`
	Assigned  int               `json:"assigned"`
	Processed int               `json:"processed"`
}

type RouteProgress struct {
	TripID     domain.ID         `json:"tripId"`
	Status     domain.TripStatus `json:"status"`
	ShiftLabel string            `json:"shiftLabel"`
	RouteName  string            `json:"routeName"`
	Stops      []StopProgress    `json:"stops"`
	Progress   domain.Progress   `json:"progress"`
}

// RouteProgress shows where on the route the located trip is.
func (s ScheduleQueryService) RouteProgress(ctx context.Context, driverID domain.ID, mode LookupMode) (RouteProgress, error) {
	now := s.Clock.now()
	r := s.Store.Read()
	trip, err := TripLocator{Trips: r.Trips}.Locate(ctx, driverID, utils.StartOfDay(now), mode)
	if err != nil {
		return RouteProgress{}, err
	}
	counts, err := r.Ledger.CountByStatus(ctx, trip.ID)
	if err != nil {
		return RouteProgress{}, err
	}

	out := RouteProgress{
		TripID:     trip.ID,
		Status:     trip.Status,
		ShiftLabel: trip.Shift().Label(),
		Stops:      []StopProgress{},
		Progress:   domain.ProgressFor(trip.Type, counts),
	}
	if trip.RouteID == nil {
		return out, nil
	}
	if out.RouteName, err = routeName(ctx, r.Routes, trip.RouteID); err != nil {
		return RouteProgress{}, err
	}

	loads, err := r.Routes.StopLoads(ctx, trip.ID, *trip.RouteID, trip.Type)
	if err != nil {
		return RouteProgress{}, err
	}
	plain := make([]domain.StopLoad, len(loads))
	for i, l := range loads {
		plain[i] = l.StopLoad
	}
	for i, st := range domain.InferStopStatuses(trip.Status, plain) {
		l := loads[i]
		out.Stops = append(out.Stops, StopProgress{
			StopID:    l.ID,
			Name:      l.Name,
			StopOrder: l.StopOrder,
			Status:    st,
			Assigned:  l.Assigned,
			Processed: l.Processed,
		})
	}
	return out, nil
}

type ScheduleTrip struct {
	TripID             domain.ID         `json:"tripId"`
	Date               string            `json:"date"`
	Type               domain.TripType   `json:"type"`
	Session            domain.DayPart    `json:"session"`
	ShiftLabel         string            `json:"shiftLabel"`
	Status             domain.TripStatus `json:"status"`
	RouteName          string            `json:"routeName"`
	FirstStop          string            `json:"firstStop"`
	LastStop           string            `json:"lastStop"`
	ScheduledStartTime string            `json:"scheduledStartTime"`
	ActualStartTime    string            `json:"actualStartTime"`
	ActualEndTime      string            `json:"actualEndTime"`
}

type ScheduleDay struct {
	Date    string         `json:"date"`
	Weekday string         `json:"weekday"`
	Trips   []ScheduleTrip `json:"trips"`
}

type WeeklySchedule struct {
	From  string        `json:"from"`
	To    string        `json:"to"`
	Days  []ScheduleDay `json:"days"`
	Trips int           `json:"trips"`
}

// WeeklySchedule lists the driver's trips in [from, to] grouped per day.
// Zero bounds default to the ISO week of today; with one bound given the
// other is placed six days away. School days are always listed, weekend days
// only when they carry a trip.
func (s ScheduleQueryService) WeeklySchedule(ctx context.Context, driverID domain.ID, from, to time.Time) (WeeklySchedule, error) {
	from, to, err := scheduleRange(s.Clock.now(), from, to)
	if err != nil {
		return WeeklySchedule{}, err
	}

	r := s.Store.Read()
	trips, err := r.Trips.ListByDriverBetween(ctx, driverID, from, to)
	if err != nil {
		return WeeklySchedule{}, err
	}

	loc := from.Location()
	ends := map[domain.ID]models.RouteEnds{}
	byDate := map[string][]ScheduleTrip{}
	for _, t := range trips {
		e, err := routeEnds(ctx, r.Routes, t.RouteID, ends)
		if err != nil {
			return WeeklySchedule{}, err
		}
		date := utils.FormatDate(t.TripDate)
		byDate[date] = append(byDate[date], ScheduleTrip{
			TripID:             t.ID,
			Date:               date,
			Type:               t.Type,
			Session:            t.Session,
			ShiftLabel:         t.Shift().Label(),
			Status:             t.Status,
			RouteName:          e.RouteName,
			FirstStop:          e.FirstStop,
			LastStop:           e.LastStop,
			ScheduledStartTime: t.ScheduledStartTime,
			ActualStartTime:    utils.FormatClock(t.ActualStartTime, loc),
			ActualEndTime:      utils.FormatClock(t.ActualEndTime, loc),
		})
	}

	days, err := calendarDays(from, to)
	if err != nil {
		return WeeklySchedule{}, err
	}
	out := WeeklySchedule{From: utils.FormatDate(from), To: utils.FormatDate(to), Days: []ScheduleDay{}, Trips: len(trips)}
	for _, d := range days {
		date := utils.FormatDate(d)
		dayTrips := byDate[date]
		if len(dayTrips) == 0 && isWeekend(d) {
			continue
		}
		if dayTrips == nil {
			dayTrips = []ScheduleTrip{}
		}
		out.Days = append(out.Days, ScheduleDay{Date: date, Weekday: d.Weekday().String(), Trips: dayTrips})
	}
	return out, nil
}

type TripRoster struct {
	TripID     domain.ID            `json:"tripId"`
	ShiftLabel string               `json:"shiftLabel"`
	Status     domain.TripStatus    `json:"status"`
	Students   []models.RosterEntry `json:"students"`
	Progress   domain.Progress      `json:"progress"`
}

// TripRoster is the check-in list of one trip.
func (s ScheduleQueryService) TripRoster(ctx context.Context, driverID, tripID domain.ID) (TripRoster, error) {
	r := s.Store.Read()
	trip, err := ownedTrip(ctx, r.Trips.GetByID, driverID, tripID)
	if err != nil {
		return TripRoster{}, err
	}
	students, err := r.Ledger.ListRoster(ctx, trip.ID, trip.Type)
	if err != nil {
		return TripRoster{}, err
	}
	counts, err := r.Ledger.CountByStatus(ctx, trip.ID)
	if err != nil {
		return TripRoster{}, err
	}
	return TripRoster{
		TripID:     trip.ID,
		ShiftLabel: trip.Shift().Label(),
		Status:     trip.Status,
		Students:   students,
		Progress:   domain.ProgressFor(trip.Type, counts),
	}, nil
}

func scheduleRange(now, from, to time.Time) (time.Time, time.Time, error) {
	switch {
	case from.IsZero() && to.IsZero():
		from, to = utils.WeekBounds(now)
	case to.IsZero():
		to = from.AddDate(0, 0, 6)
	case from.IsZero():
		from = to.AddDate(0, 0, -6)
	}
	from, to = utils.StartOfDay(from), utils.StartOfDay(to)
	if from.After(to) {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "from", Msg: "must not be after to"}
	}
	if days := int(math.Round(to.Sub(from).Hours()/24)) + 1; days > maxScheduleDays {
		return time.Time{}, time.Time{}, domain.ValidationError{
			Field: "to",
			Msg:   fmt.Sprintf("range covers %d days, at most %d allowed", days, maxScheduleDays),
		}
	}
	return from, to, nil
}

// calendarDays enumerates every date in [from, to].
func calendarDays(from, to time.Time) ([]time.Time, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: from,
		Until:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar days: %w", err)
	}
	return rule.All(), nil
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

// routeName tolerates trips without a route and routes removed since the trip
// was provisioned.
func routeName(ctx context.Context, routes RouteReader, id *domain.ID) (string, error) {
	if id == nil {
		return "", nil
	}
	rt, err := routes.GetRoute(ctx, *id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rt.Name, nil
}

func routeEnds(ctx context.Context, routes RouteReader, id *domain.ID, cache map[domain.ID]models.RouteEnds) (models.RouteEnds, error) {
	if id == nil {
		return models.RouteEnds{}, nil
	}
	if e, ok := cache[*id]; ok {
		return e, nil
	}
	name, err := routeName(ctx, routes, id)
	if err != nil {
		return models.RouteEnds{}, err
	}
	stops, err := routes.ListStops(ctx, *id)
	if err != nil {
		return models.RouteEnds{}, err
	}
	e := models.RouteEnds{RouteName: name}
	if len(stops) > 0 {
		e.FirstStop = stops[0].Name
		e.LastStop = stops[len(stops)-1].Name
	}
	cache[*id] = e
	return e, nil
}
