package handlers

import (
	"net/http"
	"strings"
	"time"

	"schoolbus/internal/domain"
	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
)

// Schedule lists the driver's trips per day. from and to (YYYY-MM-DD) are
// optional and default to the current week.
func (e Engine) Schedule(c *gin.Context) {
	loc := e.now().Location()
	from, ok := dateQuery(c, "from", loc)
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to", loc)
	if !ok {
		return
	}
	ws, err := e.queries(c).WeeklySchedule(c.Request.Context(), driverID(c), from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func dateQuery(c *gin.Context, name string, loc *time.Location) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return time.Time{}, true
	}
	d, err := utils.ParseDate(raw, loc)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: name, Msg: "expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}
