package handlers

import (
	"context"
	"net/http"

	"schoolbus/internal/domain"
	"schoolbus/internal/domain/models"
	"schoolbus/internal/services"

	"github.com/gin-gonic/gin"
)

// Today answers the driver dashboard: the trip of the requested or current
// shift with its progress.
func (e Engine) Today(c *gin.Context) {
	t, s, ok := shiftParams(c)
	if !ok {
		return
	}
	sum, err := e.queries(c).TodaySummary(c.Request.Context(), driverID(c), t, s)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (e Engine) RouteProgress(c *gin.Context) {
	mode, ok := e.lookupMode(c)
	if !ok {
		return
	}
	rp, err := e.queries(c).RouteProgress(c.Request.Context(), driverID(c), mode)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rp)
}

// StartCurrentTrip backs the dashboard start button.
func (e Engine) StartCurrentTrip(c *gin.Context) {
	mode, ok := e.lookupMode(c)
	if !ok {
		return
	}
	trip, err := e.lifecycle(c).StartCurrent(c.Request.Context(), driverID(c), mode)
	e.respondTrip(c, trip, err)
}

func (e Engine) CompleteCurrentTrip(c *gin.Context) {
	mode, ok := e.lookupMode(c)
	if !ok {
		return
	}
	trip, err := e.lifecycle(c).CompleteCurrent(c.Request.Context(), driverID(c), mode)
	e.respondTrip(c, trip, err)
}

func (e Engine) StartTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := e.lifecycle(c).StartTrip(c.Request.Context(), driverID(c), id)
	e.respondTrip(c, trip, err)
}

func (e Engine) CompleteTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := e.lifecycle(c).CompleteTrip(c.Request.Context(), driverID(c), id)
	e.respondTrip(c, trip, err)
}

func (e Engine) TripStudents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roster, err := e.queries(c).TripRoster(c.Request.Context(), driverID(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

func (e Engine) lookupMode(c *gin.Context) (services.LookupMode, bool) {
	t, s, ok := shiftParams(c)
	if !ok {
		return services.LookupMode{}, false
	}
	mode, err := services.ModeFor(t, s, e.now())
	if err != nil {
		RespondDomainError(c, err)
		return services.LookupMode{}, false
	}
	return mode, true
}

func (e Engine) respondTrip(c *gin.Context, trip models.Trip, err error) {
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripDTO(trip, e.now().Location()))
}

// Attend checks a student in (pickup) or out (dropoff).
func (e Engine) Attend(c *gin.Context) {
	e.ledgerAction(c, services.AttendanceService.Attend)
}

func (e Engine) UndoAttend(c *gin.Context) {
	e.ledgerAction(c, services.AttendanceService.UndoAttend)
}

type ledgerFunc func(services.AttendanceService, context.Context, domain.ID, domain.ID, domain.ID) (models.TripStudent, error)

func (e Engine) ledgerAction(c *gin.Context, fn ledgerFunc) {
	tripID, ok := pathID(c, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	ts, err := fn(e.attendance(c), c.Request.Context(), driverID(c), tripID, studentID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}
