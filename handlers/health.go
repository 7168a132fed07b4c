package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "runsum"

// Pinger is a dependency checked by the readiness endpoint.
type Pinger func(ctx context.Context) error

// RegisterHealth mounts /health and /ready. Readiness pings every check and
// reports 503 when any fails.
func RegisterHealth(rg *gin.RouterGroup, checks map[string]Pinger) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
	})
	rg.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				deps[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not ready"
		}
		c.JSON(status, gin.H{"status": state, "service": ServiceName, "dependencies": deps})
	})
}
