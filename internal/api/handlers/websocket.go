package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/ws"
)

// HandleLabWebSocket handles the real-time drag and challenge channel
func HandleLabWebSocket() gin.HandlerFunc {
	return ws.HandleWebSocket
}
