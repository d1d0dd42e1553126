// Package prediction scores a learner's qualitative guess of the resultant
// against the actual resultant.
package prediction

import (
	"errors"
	"fmt"
	"math"

	"github.com/vectorlab/backend/internal/vector"
)

// ErrInvalidPrediction is returned when a prediction is submitted with a
// missing or unknown selection.
var ErrInvalidPrediction = errors.New("invalid prediction")

type Direction string

const (
	DirectionNE      Direction = "NE"
	DirectionSE      Direction = "SE"
	DirectionSW      Direction = "SW"
	DirectionNW      Direction = "NW"
	DirectionNotSure Direction = "Not sure"
)

type MagnitudeRange string

const (
	RangeUnder50  MagnitudeRange = "<50N"
	Range50To100  MagnitudeRange = "50-100N"
	Range100To150 MagnitudeRange = "100-150N"
	RangeOver150  MagnitudeRange = ">150N"
	RangeNotSure  MagnitudeRange = "Not sure"
)

type Accuracy string

const (
	AccuracyHigh   Accuracy = "high"
	AccuracyMedium Accuracy = "medium"
	AccuracyLow    Accuracy = "low"
)

// Prediction is the learner's guess before looking at the resultant.
type Prediction struct {
	Direction Direction      `json:"direction"`
	Magnitude MagnitudeRange `json:"magnitude"`
}

func (p Prediction) Validate() error {
	switch p.Direction {
	case DirectionNE, DirectionSE, DirectionSW, DirectionNW, DirectionNotSure:
	case "":
		return fmt.Errorf("%w: direction not selected", ErrInvalidPrediction)
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidPrediction, p.Direction)
	}
	switch p.Magnitude {
	case RangeUnder50, Range50To100, Range100To150, RangeOver150, RangeNotSure:
	case "":
		return fmt.Errorf("%w: magnitude not selected", ErrInvalidPrediction)
	default:
		return fmt.Errorf("%w: unknown magnitude range %q", ErrInvalidPrediction, p.Magnitude)
	}
	return nil
}

// Result is the scored prediction. ShowTips asks the caller to display the
// supplementary tips panel.
type Result struct {
	Prediction        Prediction     `json:"prediction"`
	Accuracy          Accuracy       `json:"accuracy"`
	ActualDirection   Direction      `json:"actual_direction"`
	ActualRange       MagnitudeRange `json:"actual_range"`
	DirectionFeedback string         `json:"direction_feedback"`
	MagnitudeFeedback string         `json:"magnitude_feedback"`
	ShowTips          bool           `json:"show_tips"`
}

// DirectionOf buckets a standard angle in degrees. The quadrant labels follow
// the lab's compass card, not screen orientation.
func DirectionOf(angle float64) Direction {
	switch {
	case angle >= 0 && angle < 90:
		return DirectionNE
	case angle >= 90 && angle < 180:
		return DirectionSE
	case angle >= 180 && angle < 270:
		return DirectionSW
	default:
		return DirectionNW
	}
}

func RangeOf(magnitude float64) MagnitudeRange {
	switch {
	case magnitude < 50:
		return RangeUnder50
	case magnitude < 100:
		return Range50To100
	case magnitude < 150:
		return Range100To150
	default:
		return RangeOver150
	}
}

// Evaluate scores p against the actual resultant. A "Not sure" on either
// field earns medium: partial credit for honesty.
func Evaluate(p Prediction, actual vector.Resultant) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	dir := DirectionOf(actual.Angle)
	rng := RangeOf(actual.Magnitude)
	res := Result{
		Prediction:        p,
		ActualDirection:   dir,
		ActualRange:       rng,
		DirectionFeedback: directionFeedback(p.Direction, dir, actual.Angle),
		MagnitudeFeedback: magnitudeFeedback(p.Magnitude, rng, actual.Magnitude),
	}

	switch {
	case p.Direction == DirectionNotSure || p.Magnitude == RangeNotSure:
		res.Accuracy = AccuracyMedium
	case p.Direction == dir && p.Magnitude == rng:
		res.Accuracy = AccuracyHigh
	case p.Direction == dir || p.Magnitude == rng:
		res.Accuracy = AccuracyMedium
	default:
		res.Accuracy = AccuracyLow
	}
	res.ShowTips = res.Accuracy == AccuracyLow
	return res, nil
}

func directionFeedback(guess, actual Direction, angle float64) string {
	if guess == DirectionNotSure {
		return ""
	}
	msg := fmt.Sprintf("The actual direction is %.0f°, which is in the %s quadrant.", math.Round(angle), actual)
	if guess == actual {
		return "Good prediction! " + msg
	}
	return msg
}

func magnitudeFeedback(guess, actual MagnitudeRange, magnitude float64) string {
	if guess == RangeNotSure {
		return ""
	}
	msg := fmt.Sprintf("The actual magnitude is %.0f N, which is %s.", math.Round(magnitude), actual)
	if guess == actual {
		return "Good estimation! " + msg
	}
	return msg
}
