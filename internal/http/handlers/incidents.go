package handlers

import (
	"net/http"

	"schoolbus/internal/domain"
	"schoolbus/internal/http/middleware"
	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type absenceRequest struct {
	TripID    int64  `json:"tripId" binding:"required,gt=0"`
	StudentID int64  `json:"studentId" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"max=500"`
}

// MarkAbsence is called by the incident collaborator when an absence report
// is filed. Drivers may only report on their own trips.
func (e Engine) MarkAbsence(c *gin.Context) {
	var req absenceRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	ts, err := e.attendance(c).MarkAbsent(c.Request.Context(), scopedDriver(c), domain.ID(req.TripID), domain.ID(req.StudentID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if req.Reason != "" {
		utils.LogEvent(middleware.GetRequestID(c), "incident", "absence_reason", req.Reason,
			zap.Int64("trip_id", req.TripID), zap.Int64("student_id", req.StudentID))
	}
	c.JSON(http.StatusOK, ts)
}

// ReverseAbsence puts a wrongly reported student back to pending. Ops only.
func (e Engine) ReverseAbsence(c *gin.Context) {
	var req absenceRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	ts, err := e.attendance(c).ReverseAbsence(c.Request.Context(), 0, domain.ID(req.TripID), domain.ID(req.StudentID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ts)
}

// scopedDriver limits drivers to their own trips; other roles see every trip.
func scopedDriver(c *gin.Context) domain.ID {
	if middleware.UserRole(c) == middleware.RoleDriver {
		return driverID(c)
	}
	return 0
}
