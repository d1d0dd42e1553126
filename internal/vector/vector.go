package vector

import (
	"math"
)

// AngleReference is the axis a vector's displayed angle is measured from.
type AngleReference string

const (
	ReferenceX AngleReference = "x"
	ReferenceY AngleReference = "y"
)

// Toggle returns the other axis.
func (r AngleReference) Toggle() AngleReference {
	if r == ReferenceX {
		return ReferenceY
	}
	return ReferenceX
}

// Valid reports whether r is one of the two axes.
func (r AngleReference) Valid() bool {
	return r == ReferenceX || r == ReferenceY
}

// Vector is a force drawn on the canvas from Start (tail) to End (head).
type Vector struct {
	ID            int            `json:"id"`
	Start         Point          `json:"start"`
	End           Point          `json:"end"`
	Color         string         `json:"color"`
	Reference     AngleReference `json:"angle_reference"`
	LabelDistance float64        `json:"label_distance"`
}

// Delta returns the components in engineering convention: the screen Y axis
// is flipped so that up is positive.
func (v Vector) Delta() (dx, dy float64) {
	return v.End.X - v.Start.X, v.Start.Y - v.End.Y
}

func (v Vector) Magnitude() float64 {
	dx, dy := v.Delta()
	return math.Sqrt(dx*dx + dy*dy)
}

// AngleStandard is measured counter-clockwise from the positive X axis, in [0, 360).
func (v Vector) AngleStandard() float64 {
	dx, dy := v.Delta()
	return bearing(dx, dy)
}

func (v Vector) Quadrant() int {
	dx, dy := v.Delta()
	return quadrantOf(dx, dy)
}

// AngleFromReference is the angle between the vector and its reference axis, in [0, 90].
// It only reaches 90 when the vector lies on the axis perpendicular to the reference.
func (v Vector) AngleFromReference() float64 {
	dx, dy := v.Delta()
	return angleFromReference(dx, dy, v.Reference)
}

// bearing returns atan2(dy, dx) in degrees normalized to [0, 360).
// atan2(0, 0) is 0, so a zero-length vector has angle 0.
func bearing(dx, dy float64) float64 {
	a := math.Atan2(dy, dx) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	a = math.Mod(a, 360)
	if a >= 360 {
		a = 0
	}
	return a
}

// quadrantOf treats zero as positive on both axes.
func quadrantOf(dx, dy float64) int {
	switch {
	case dx >= 0 && dy >= 0:
		return 1
	case dx < 0 && dy >= 0:
		return 2
	case dx < 0 && dy < 0:
		return 3
	default:
		return 4
	}
}

// angleFromReference folds the direction into the first quadrant and measures
// it from the chosen axis. For off-axis vectors this matches the per-quadrant
// table (180-θ, θ-180, 360-θ from X; 90-θ, θ-90, 270-θ, θ-270 from Y).
func angleFromReference(dx, dy float64, ref AngleReference) float64 {
	ax, ay := math.Abs(dx), math.Abs(dy)
	if ax == 0 && ay == 0 {
		return 0
	}
	if ref == ReferenceY {
		return math.Atan2(ax, ay) * 180 / math.Pi
	}
	return math.Atan2(ay, ax) * 180 / math.Pi
}
