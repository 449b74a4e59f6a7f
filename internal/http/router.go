package api

import (
	stdhttp "net/http"

	intconfig "schoolbus/internal/config"
	h "schoolbus/internal/http/handlers"
	"schoolbus/internal/http/middleware"
	"schoolbus/internal/metrics"
	"schoolbus/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the engine API. collector may be nil when metrics are
// disabled.
func NewRouter(env intconfig.Env, eng h.Engine, collector *metrics.Collector) *gin.Engine {
	var obs middleware.HTTPObserver
	if collector != nil {
		obs = collector
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(obs), gin.Recovery(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.L().Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"code":   "not_found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	secret := []byte(env.JWTSecret)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Driver dashboard
		driver := api.Group("/driver", middleware.Auth(secret), middleware.RequireRoles(middleware.RoleDriver))
		driver.GET("/today", eng.Today)
		driver.GET("/route-progress", eng.RouteProgress)
		driver.GET("/schedule", eng.Schedule)
		driver.POST("/trip/start", eng.StartCurrentTrip)
		driver.POST("/trip/complete", eng.CompleteCurrentTrip)

		trips := driver.Group("/trips/:id")
		trips.POST("/start", eng.StartTrip)
		trips.POST("/complete", eng.CompleteTrip)
		trips.GET("/students", eng.TripStudents)
		trips.POST("/students/:studentId/attend", eng.Attend)
		trips.POST("/students/:studentId/undo-attend", eng.UndoAttend)

		// Incident / absence reports
		incidents := api.Group("/incidents", middleware.Auth(secret))
		incidents.POST("/absences",
			middleware.RequireRoles(middleware.RoleDriver, middleware.RoleOps, middleware.RoleAdmin), eng.MarkAbsence)
		incidents.POST("/absences/reverse",
			middleware.RequireRoles(middleware.RoleOps, middleware.RoleAdmin), eng.ReverseAbsence)
	}

	h.SetRouter(r)
	return r
}
