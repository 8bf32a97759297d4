package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/game"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := 0
		if m != nil {
			active = m.GetActiveSessionCount()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"service":         "balldrop-api",
			"version":         version,
			"uptime":          time.Since(startTime).String(),
			"active_sessions": active,
		})
	}
}
