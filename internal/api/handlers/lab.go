package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/lab"
	"github.com/vectorlab/backend/internal/prediction"
)

// CreateLab starts a session and returns its token, access key and initial state
func CreateLab(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lab.Manager == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lab not initialized"})
			return
		}
		s := lab.Manager.Create()
		key, err := IssueSessionKey(cfg, s.Token)
		if err != nil {
			log.Printf("[LAB] Failed to sign session key: %v", err)
			lab.Manager.End(s.Token)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": s.Token,
			"key":   key,
			"state": s.State(),
		})
	}
}

// GetLabState returns the full state of a session
func GetLabState(c *gin.Context) {
	s, ok := sessionFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

// SubmitPrediction scores a prediction against the current resultant
func SubmitPrediction(c *gin.Context) {
	s, ok := sessionFor(c)
	if !ok {
		return
	}
	var req prediction.Prediction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := s.SubmitPrediction(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StartChallenge resets the vectors and starts the :id challenge
func StartChallenge(c *gin.Context) {
	s, ok := sessionFor(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid challenge id"})
		return
	}
	if err := s.StartChallenge(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

// ResetChallenge leaves the active challenge
func ResetChallenge(c *gin.Context) {
	s, ok := sessionFor(c)
	if !ok {
		return
	}
	s.ResetChallenge()
	c.JSON(http.StatusOK, s.State())
}

// ResetVectors restores the default vectors
func ResetVectors(c *gin.Context) {
	s, ok := sessionFor(c)
	if !ok {
		return
	}
	s.ResetVectors()
	c.JSON(http.StatusOK, s.State())
}

// EndLab closes a session
func EndLab(c *gin.Context) {
	if lab.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lab not initialized"})
		return
	}
	if err := lab.Manager.End(c.Param("token")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
