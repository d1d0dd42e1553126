package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/lab"
	"github.com/vectorlab/backend/internal/prediction"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, lab.ErrSessionNotFound),
		errors.Is(err, lab.ErrVectorNotFound),
		errors.Is(err, challenge.ErrUnknownChallenge):
		return http.StatusNotFound
	case errors.Is(err, prediction.ErrInvalidPrediction):
		return http.StatusBadRequest
	case errors.Is(err, challenge.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, lab.ErrSessionClosed),
		errors.Is(err, challenge.ErrEngineClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error with the mapped status
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[LAB] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// sessionFor loads the :token session, writing the error response on failure
func sessionFor(c *gin.Context) (*lab.Session, bool) {
	if lab.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lab not initialized"})
		return nil, false
	}
	s, err := lab.Manager.Get(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}
