package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/api/handlers"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg))

		v1.POST("/lab", handlers.CreateLab(cfg))

		// Session endpoints, all gated on the session key
		session := v1.Group("/lab/:token", handlers.SessionKeyMiddleware(cfg))
		{
			session.GET("", handlers.GetLabState)
			session.DELETE("", handlers.EndLab)
			session.POST("/prediction", handlers.SubmitPrediction)
			session.POST("/challenge/:id/start", handlers.StartChallenge)
			session.POST("/challenge/reset", handlers.ResetChallenge)
			session.POST("/vectors/reset", handlers.ResetVectors)
			session.GET("/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleLabWebSocket())
		}
	}
}
