package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolbus/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRespondDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"validation", domain.ValidationError{Field: "session", Msg: "unknown session \"evening\""}, http.StatusBadRequest, "validation_error", "session: unknown session \"evening\""},
		{"not found", domain.NotFoundError{Resource: "trip", Msg: "no morning pickup trip assigned today"}, http.StatusNotFound, "not_found", "no morning pickup trip assigned today"},
		{"conflict", domain.ConflictError{Resource: "trip", Msg: "trip already started"}, http.StatusConflict, "conflict", "trip conflict: trip already started"},
		{"internal", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondDomainError(c, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestRespondDomainError_ConflictDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondDomainError(c, domain.ConflictError{
		Resource: "trip",
		Msg:      "2 students still pending",
		Details:  map[string]any{"pending": 2},
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Details map[string]any `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body.Details["pending"])
}

func TestDateQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/?from=2025-03-10&to=10/03/2025", nil)

	d, ok := dateQuery(c, "from", time.UTC)
	require.True(t, ok)
	assert.Equal(t, "2025-03-10", d.Format("2006-01-02"))

	_, ok = dateQuery(c, "to", time.UTC)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
