package vector

import "math"

// Resultant is the vector sum of a set of forces, in engineering convention.
type Resultant struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Magnitude float64 `json:"magnitude"`
	Angle     float64 `json:"angle"`
}

// Sum adds every vector's components. It is recomputed from scratch on each
// call; the set is always a handful of vectors.
func Sum(vectors []Vector) Resultant {
	var x, y float64
	for _, v := range vectors {
		dx, dy := v.Delta()
		x += dx
		y += dy
	}
	return NewResultant(x, y)
}

// NewResultant builds a resultant from summed components.
func NewResultant(x, y float64) Resultant {
	return Resultant{
		X:         x,
		Y:         y,
		Magnitude: math.Sqrt(x*x + y*y),
		Angle:     bearing(x, y),
	}
}
