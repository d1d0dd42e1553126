package vector

// Canvas dimensions the presets are laid out on.
const (
	CanvasWidth  = 700.0
	CanvasHeight = 400.0
)

// Label distance bounds for the draggable angle label, as multiples of LabelUnit.
const (
	MinLabelDistance = 0.5
	MaxLabelDistance = 3.0
	LabelUnit        = 20.0
)

var Colors = []string{"#3b82f6", "#10b981", "#8b5cf6", "#f97316"}

type preset struct {
	dx, dy    float64 // screen offsets of the head from the canvas centre
	reference AngleReference
	label     float64
}

var presets = []preset{
	{dx: 192, dy: -166, reference: ReferenceX, label: 2.0},
	{dx: -175, dy: -102, reference: ReferenceY, label: 2.2},
	{dx: -216, dy: 91, reference: ReferenceX, label: 1.8},
	{dx: 165, dy: 130, reference: ReferenceY, label: 2.5},
}

// DefaultSet returns the four starting vectors, all anchored at the canvas centre.
func DefaultSet() []Vector {
	return DefaultSetOn(CanvasWidth, CanvasHeight)
}

// DefaultSetOn lays the presets out around the centre of a width x height canvas.
func DefaultSetOn(width, height float64) []Vector {
	center := NewPoint(width/2, height/2)
	out := make([]Vector, 0, len(presets))
	for i, p := range presets {
		out = append(out, Vector{
			ID:            i + 1,
			Start:         center,
			End:           center.Plus(Point{X: p.dx, Y: p.dy}),
			Color:         Colors[i%len(Colors)],
			Reference:     p.reference,
			LabelDistance: p.label,
		})
	}
	return out
}
