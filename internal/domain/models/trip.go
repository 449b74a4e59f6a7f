package models

import (
	"time"

	"schoolbus/internal/domain"
)

// Trip is one bus run for one driver on one date in one shift.
type Trip struct {
	ID                 domain.ID         `json:"id"`
	DriverID           domain.ID         `json:"driverId"`
	RouteID            *domain.ID        `json:"routeId,omitempty"`
	BusID              *domain.ID        `json:"busId,omitempty"`
	TripDate           time.Time         `json:"tripDate"`
	Type               domain.TripType   `json:"type"`
	Session            domain.DayPart    `json:"session"`
	Status             domain.TripStatus `json:"status"`
	ScheduledStartTime string            `json:"scheduledStartTime,omitempty"`
	ActualStartTime    *time.Time        `json:"actualStartTime,omitempty"`
	ActualEndTime      *time.Time        `json:"actualEndTime,omitempty"`
}

func (t Trip) Shift() domain.Shift {
	return domain.Shift{Type: t.Type, Session: t.Session}
}

// TripStudent is one attendance ledger entry.
type TripStudent struct {
	TripID     domain.ID               `json:"tripId"`
	StudentID  domain.ID               `json:"studentId"`
	Status     domain.AttendanceStatus `json:"status"`
	AttendedAt *time.Time              `json:"attendedAt"`
}

// RosterEntry is a ledger entry joined with the student and their stop for
// the driver check-in list.
type RosterEntry struct {
	StudentID     domain.ID               `json:"studentId"`
	StudentName   string                  `json:"studentName"`
	StudentStatus string                  `json:"studentStatus"`
	StopID        *domain.ID              `json:"stopId,omitempty"`
	StopName      string                  `json:"stopName,omitempty"`
	StopOrder     int                     `json:"stopOrder"`
	Status        domain.AttendanceStatus `json:"status"`
	AttendedAt    *time.Time              `json:"attendedAt"`
}
