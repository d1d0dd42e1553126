package challenge

import (
	"math"

	"github.com/vectorlab/backend/internal/vector"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Goal decides whether a resultant satisfies a challenge.
type Goal func(r vector.Resultant) bool

// ProgressFunc scores how close a resultant is to the goal, in percent.
// Results outside [0, 100] are clamped by the engine.
type ProgressFunc func(r vector.Resultant) float64

// Challenge is an immutable goal definition plus its completion flag, which
// only the engine flips.
type Challenge struct {
	ID               int          `json:"id"`
	Description      string       `json:"description"`
	Objective        string       `json:"objective"`
	Feedback         string       `json:"feedback"`
	Explanation      string       `json:"explanation"`
	Hint             string       `json:"hint"`
	LearningOutcome  string       `json:"learning_outcome"`
	RealWorldExample string       `json:"real_world_example"`
	Difficulty       Difficulty   `json:"difficulty"`
	Completed        bool         `json:"completed"`
	Goal             Goal         `json:"-"`
	Progress         ProgressFunc `json:"-"`
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// Catalog returns fresh copies of the built-in challenges.
func Catalog() []Challenge {
	return []Challenge{
		{
			ID:          1,
			Description: "Adjust vectors so the resultant is nearly zero",
			Objective:   "Create a balanced system where all forces cancel each other out",
			Feedback:    "Great job balancing the forces! The resultant is nearly zero.",
			Explanation: "When forces are balanced in all directions, they cancel each other out, resulting in no net force. " +
				"This is the principle of equilibrium in static systems.",
			Hint:             "Try to make pairs of vectors point in opposite directions with similar magnitudes.",
			LearningOutcome:  "Understanding force equilibrium and vector cancellation",
			RealWorldExample: "A bridge in static equilibrium has multiple forces (weight, tension, compression) that sum to zero, keeping it stable.",
			Difficulty:       DifficultyEasy,
			Goal:             func(r vector.Resultant) bool { return r.Magnitude < 20 },
			Progress:         func(r vector.Resultant) float64 { return 100 - r.Magnitude/50*100 },
		},
		{
			ID:          2,
			Description: "Make the resultant point exactly east (0°)",
			Objective:   "Create a system where the net force points horizontally to the right",
			Feedback:    "Perfect! The resultant is pointing east.",
			Explanation: "You've aligned the net force along the positive x-axis by balancing the y-components " +
				"while maintaining positive x-components.",
			Hint:             "Ensure the sum of y-components is close to zero, while keeping a positive sum of x-components.",
			LearningOutcome:  "Understanding directional control of resultant vectors",
			RealWorldExample: "A boat crossing a river with a current needs to aim at a specific angle to travel straight east.",
			Difficulty:       DifficultyMedium,
			Goal: func(r vector.Resultant) bool {
				return math.Abs(r.Angle) < 5 || math.Abs(r.Angle-360) < 5
			},
			Progress: func(r vector.Resultant) float64 {
				return 100 - math.Min(math.Abs(r.Angle), math.Abs(r.Angle-360))/45*100
			},
		},
		{
			ID:          3,
			Description: "Create a resultant with magnitude > 150 N",
			Objective:   "Maximize the resultant force by aligning vectors constructively",
			Feedback:    "Impressive! You've created a strong resultant force.",
			Explanation: "By aligning multiple vectors in similar directions, you've created constructive interference " +
				"that increases the total magnitude.",
			Hint:             "Try to align all vectors in roughly the same direction to maximize their combined effect.",
			LearningOutcome:  "Understanding constructive vector addition and maximizing resultant magnitude",
			RealWorldExample: "Multiple rocket engines pointing in the same direction combine their thrust to launch a spacecraft.",
			Difficulty:       DifficultyMedium,
			Goal:             func(r vector.Resultant) bool { return r.Magnitude > 150 },
			Progress:         func(r vector.Resultant) float64 { return r.Magnitude / 150 * 100 },
		},
		{
			ID:          4,
			Description: "Create a resultant pointing northwest (315°)",
			Objective:   "Manipulate vectors to create a specific resultant direction",
			Feedback:    "Excellent directional control! Your resultant is pointing northwest.",
			Explanation: "You've balanced the x and y components to achieve a specific angle. " +
				"For northwest (315°), you need negative y-components and negative x-components.",
			Hint:             "Try to make the sum of x-components negative and the sum of y-components positive with similar magnitudes.",
			LearningOutcome:  "Mastering precise directional control of resultant vectors",
			RealWorldExample: "Aircraft navigation systems calculate required headings to reach destinations while accounting for crosswinds.",
			Difficulty:       DifficultyHard,
			Goal:             func(r vector.Resultant) bool { return math.Abs(r.Angle-315) < 10 },
			Progress:         func(r vector.Resultant) float64 { return 100 - math.Abs(r.Angle-315)/45*100 },
		},
	}
}
