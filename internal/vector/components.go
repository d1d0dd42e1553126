package vector

import (
	"fmt"
	"math"
)

// Components is the polar/cartesian breakdown of one vector as shown in the
// analysis panel.
type Components struct {
	ID                 int            `json:"id"`
	DX                 float64        `json:"dx"`
	DY                 float64        `json:"dy"`
	Magnitude          float64        `json:"magnitude"`
	AngleStandard      float64        `json:"angle"`
	AngleFromReference float64        `json:"angle_from_reference"`
	Quadrant           int            `json:"quadrant"`
	Reference          AngleReference `json:"angle_reference"`
	XDirection         string         `json:"x_direction"`
	YDirection         string         `json:"y_direction"`
	XFormula           string         `json:"x_formula"`
	YFormula           string         `json:"y_formula"`
}

// Analyze derives every displayed quantity of v.
func Analyze(v Vector) Components {
	dx, dy := v.Delta()
	c := Components{
		ID:                 v.ID,
		DX:                 dx,
		DY:                 dy,
		Magnitude:          math.Sqrt(dx*dx + dy*dy),
		AngleStandard:      bearing(dx, dy),
		AngleFromReference: angleFromReference(dx, dy, v.Reference),
		Quadrant:           quadrantOf(dx, dy),
		Reference:          v.Reference,
		XDirection:         "→",
		YDirection:         "↑",
	}
	if dx < 0 {
		c.XDirection = "←"
	}
	if dy < 0 {
		c.YDirection = "↓"
	}

	// Measured from X the horizontal component is the adjacent side, from Y the opposite one.
	xFn, yFn := "cos", "sin"
	if v.Reference == ReferenceY {
		xFn, yFn = "sin", "cos"
	}
	mag := math.Round(c.Magnitude)
	theta := math.Round(c.AngleFromReference)
	c.XFormula = fmt.Sprintf("Fx = %s %.0f %s %.0f° = %.0f N %s", sign(dx), mag, xFn, theta, math.Round(math.Abs(dx)), c.XDirection)
	c.YFormula = fmt.Sprintf("Fy = %s %.0f %s %.0f° = %.0f N %s", sign(dy), mag, yFn, theta, math.Round(math.Abs(dy)), c.YDirection)
	return c
}

// sign takes the sign from the component itself, never from the trig output,
// since the reference angle is already folded into the first quadrant.
func sign(n float64) string {
	if n >= 0 {
		return "+"
	}
	return "-"
}

// Reconstruct rebuilds (dx, dy) from magnitude, reference angle, quadrant and axis.
func Reconstruct(c Components) (dx, dy float64) {
	rad := c.AngleFromReference * math.Pi / 180
	along, across := c.Magnitude*math.Cos(rad), c.Magnitude*math.Sin(rad)
	if c.Reference == ReferenceY {
		dx, dy = across, along
	} else {
		dx, dy = along, across
	}
	if c.Quadrant == 2 || c.Quadrant == 3 {
		dx = -dx
	}
	if c.Quadrant == 3 || c.Quadrant == 4 {
		dy = -dy
	}
	return dx, dy
}

// Verification is the self-check of one vector's trig decomposition.
type Verification struct {
	VectorID     int            `json:"vector_id"`
	Quadrant     int            `json:"quadrant"`
	AngleFromRef float64        `json:"angle_from_ref"`
	Reference    AngleReference `json:"reference"`
	ActualX      float64        `json:"actual_x"`
	ActualY      float64        `json:"actual_y"`
	ExpectedX    float64        `json:"expected_x"`
	ExpectedY    float64        `json:"expected_y"`
	ErrorX       float64        `json:"error_x"`
	ErrorY       float64        `json:"error_y"`
	IsAccurate   bool           `json:"is_accurate"`
}

// Verify checks that every vector's components survive the round trip to
// polar form and back within one unit.
func Verify(vectors []Vector) []Verification {
	out := make([]Verification, 0, len(vectors))
	for _, v := range vectors {
		c := Analyze(v)
		ex, ey := Reconstruct(c)
		errX, errY := math.Abs(ex-c.DX), math.Abs(ey-c.DY)
		out = append(out, Verification{
			VectorID:     v.ID,
			Quadrant:     c.Quadrant,
			AngleFromRef: c.AngleFromReference,
			Reference:    c.Reference,
			ActualX:      c.DX,
			ActualY:      c.DY,
			ExpectedX:    ex,
			ExpectedY:    ey,
			ErrorX:       errX,
			ErrorY:       errY,
			IsAccurate:   errX < 1 && errY < 1,
		})
	}
	return out
}
