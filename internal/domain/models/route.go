package models

import "schoolbus/internal/domain"

// Route is read from the route collaborator's tables.
type Route struct {
	ID   domain.ID `json:"id"`
	Name string    `json:"name"`
}

// RouteStop is a stop in route order.
type RouteStop struct {
	ID        domain.ID `json:"id"`
	RouteID   domain.ID `json:"routeId"`
	Name      string    `json:"name"`
	StopOrder int       `json:"stopOrder"`
}

// StopLoad pairs a stop with the attendance load of its assigned students.
type StopLoad struct {
	RouteStop
	domain.StopLoad
}

// Bus is the vehicle assigned to a trip.
type Bus struct {
	ID          domain.ID `json:"id"`
	PlateNumber string    `json:"plateNumber"`
	Code        string    `json:"code"`
}

// RouteEnds carries the route name with its first and last stop names.
type RouteEnds struct {
	RouteName string
	FirstStop string
	LastStop  string
}
