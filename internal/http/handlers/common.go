package handlers

import (
	"net/http"
	"strings"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/events"
	"schoolbus/internal/http/middleware"
	"schoolbus/internal/services"
	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
)

// Engine carries what the engine handlers need to build services per request.
type Engine struct {
	Store   services.Store
	Events  events.Publisher
	Metrics services.Recorder
	Clock   services.Clock
}

func (e Engine) lifecycle(c *gin.Context) services.TripLifecycleService {
	return services.TripLifecycleService{
		Store: e.Store, Events: e.Events, Metrics: e.Metrics, Clock: e.Clock,
		RequestID: middleware.GetRequestID(c),
	}
}

func (e Engine) attendance(c *gin.Context) services.AttendanceService {
	return services.AttendanceService{
		Store: e.Store, Events: e.Events, Metrics: e.Metrics, Clock: e.Clock,
		RequestID: middleware.GetRequestID(c),
	}
}

func (e Engine) queries(c *gin.Context) services.ScheduleQueryService {
	return services.ScheduleQueryService{Store: e.Store, Clock: e.Clock, RequestID: middleware.GetRequestID(c)}
}

func (e Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload: "+err.Error(), nil)
		return false
	}
	return true
}

// pathID reads a positive id path parameter or answers 400.
func pathID(c *gin.Context, name string) (domain.ID, bool) {
	id, ok := utils.ParsePositiveID(c.Param(name))
	if !ok {
		RespondDomainError(c, domain.ValidationError{Field: name, Msg: "must be a positive integer"})
		return 0, false
	}
	return domain.ID(id), true
}

// shiftParams parses the optional type and session query parameters.
func shiftParams(c *gin.Context) (domain.TripType, domain.DayPart, bool) {
	t, err := domain.ParseTripType(c.Query("type"))
	if err != nil {
		RespondDomainError(c, err)
		return "", "", false
	}
	s, err := domain.ParseDayPart(c.Query("session"))
	if err != nil {
		RespondDomainError(c, err)
		return "", "", false
	}
	return t, s, true
}

func driverID(c *gin.Context) domain.ID {
	return domain.ID(middleware.UserID(c))
}

// TripDTO is a trip as the driver client shows it: dates as YYYY-MM-DD and
// clock times as HH:MM in the service zone.
type TripDTO struct {
	ID                 domain.ID         `json:"id"`
	DriverID           domain.ID         `json:"driverId"`
	RouteID            *domain.ID        `json:"routeId,omitempty"`
	BusID              *domain.ID        `json:"busId,omitempty"`
	TripDate           string            `json:"tripDate"`
	Type               domain.TripType   `json:"type"`
	Session            domain.DayPart    `json:"session"`
	ShiftLabel         string            `json:"shiftLabel"`
	Status             domain.TripStatus `json:"status"`
	ScheduledStartTime string            `json:"scheduledStartTime"`
	ActualStartTime    string            `json:"actualStartTime"`
	ActualEndTime      string            `json:"actualEndTime"`
}

func toTripDTO(t models.Trip, loc *time.Location) TripDTO {
	return TripDTO{
		ID:                 t.ID,
		DriverID:           t.DriverID,
		RouteID:            t.RouteID,
		BusID:              t.BusID,
		TripDate:           utils.FormatDate(t.TripDate),
		Type:               t.Type,
		Session:            t.Session,
		ShiftLabel:         t.Shift().Label(),
		Status:             t.Status,
		ScheduledStartTime: strings.TrimSpace(t.ScheduledStartTime),
		ActualStartTime:    utils.FormatClock(t.ActualStartTime, loc),
		ActualEndTime:      utils.FormatClock(t.ActualEndTime, loc),
	}
}
