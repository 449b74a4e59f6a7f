package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intconfig "schoolbus/internal/config"
	intdb "schoolbus/internal/db"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// engineTables must exist for the engine to serve requests.
var engineTables = []string{"trips", "trip_students", "routes", "route_stops", "buses", "students"}

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "schoolbus engine running"})
}

func DBCheck(c *gin.Context) {
	if intconfig.DB == nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "database not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := intconfig.DB.PingContext(ctx); err != nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "database ping failed", nil)
		return
	}
	if missing := intdb.MissingTables(ctx, intconfig.DB, engineTables...); len(missing) > 0 {
		respondError(c, http.StatusServiceUnavailable, "schema_incomplete", "missing tables, run migrate", gin.H{"missing": missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK", "dialect": intdb.CurrentDialect()})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
