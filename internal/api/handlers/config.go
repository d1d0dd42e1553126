package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/prediction"
	"github.com/vectorlab/backend/internal/vector"
)

// GetConfig returns the values the frontend needs to draw the lab
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"canvas_width":       cfg.CanvasWidth,
			"canvas_height":      cfg.CanvasHeight,
			"tick_millis":        cfg.ChallengeTickMillis,
			"min_label_distance": vector.MinLabelDistance,
			"max_label_distance": vector.MaxLabelDistance,
			"colors":             vector.Colors,
			"directions": []prediction.Direction{
				prediction.DirectionNE, prediction.DirectionSE,
				prediction.DirectionSW, prediction.DirectionNW,
				prediction.DirectionNotSure,
			},
			"magnitude_ranges": []prediction.MagnitudeRange{
				prediction.RangeUnder50, prediction.Range50To100,
				prediction.Range100To150, prediction.RangeOver150,
				prediction.RangeNotSure,
			},
			"challenges": challenge.Catalog(),
		})
	}
}
