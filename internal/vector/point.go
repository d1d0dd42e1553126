package vector

import "math"

// Point is a canvas position. Y grows downward, the way pointer events report it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// finite maps NaN and infinities to 0 so every stored coordinate is a real number.
func finite(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func NewPoint(x, y float64) Point {
	return Point{X: finite(x), Y: finite(y)}
}

func (p Point) Plus(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Minus(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) DistanceTo(o Point) float64 {
	d := o.Minus(p)
	return math.Sqrt(d.X*d.X + d.Y*d.Y)
}

func (p Point) IsEqualTo(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}
