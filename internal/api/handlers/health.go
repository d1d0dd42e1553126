package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/lab"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(c *gin.Context) {
	active := 0
	if lab.Manager != nil {
		active = lab.Manager.ActiveCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"service":         "vectorlab-api",
		"version":         version,
		"uptime":          time.Since(startTime).String(),
		"active_sessions": active,
	})
}
