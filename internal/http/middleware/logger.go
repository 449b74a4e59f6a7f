package middleware

import (
	"time"

	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPObserver is implemented by the metrics collector.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Logger logs one line per request with request_id, and feeds the observer
// when one is given.
func Logger(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		utils.L().Info("http request",
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Float64("latency_ms", float64(latency.Microseconds())/1000.0),
			zap.String("ip", c.ClientIP()),
		)
		if obs != nil {
			obs.ObserveHTTP(c.Request.Method, c.FullPath(), status, latency)
		}
	}
}
