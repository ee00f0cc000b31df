package bezier

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Curve is a parametric curve on [0, Segments()]. Each unit interval
// [i, i+1] is one smooth segment.
type Curve interface {
	Segments() int
	Position(t float64) r3.Vec
	Derivative(t float64) r3.Vec
}

// Piecewise is a chain of cubic segments, segment i covering t in [i, i+1].
type Piecewise struct {
	segments []Cubic
	cyclic   bool
}

// NewPiecewise chains the given segments.
func NewPiecewise(segments ...Cubic) *Piecewise {
	return &Piecewise{segments: segments}
}

// Segments returns the number of cubic segments.
func (p *Piecewise) Segments() int { return len(p.segments) }

// Cyclic reports whether the last segment returns to the first vertex.
func (p *Piecewise) Cyclic() bool { return p.cyclic }

// locate splits t into a segment index and a local parameter in [0, 1].
// Parameters outside [0, Segments()] are clamped.
func (p *Piecewise) locate(t float64) (int, float64) {
	n := len(p.segments)
	if t <= 0 {
		return 0, 0
	}
	if t >= float64(n) {
		return n - 1, 1
	}
	i := int(math.Floor(t))
	return i, t - float64(i)
}

// Position evaluates the curve at t.
func (p *Piecewise) Position(t float64) r3.Vec {
	i, u := p.locate(t)
	return p.segments[i].Position(u)
}

// Derivative evaluates the curve velocity at t.
func (p *Piecewise) Derivative(t float64) r3.Vec {
	i, u := p.locate(t)
	return p.segments[i].Derivative(u)
}

// Acceleration evaluates the second derivative at t.
func (p *Piecewise) Acceleration(t float64) r3.Vec {
	i, u := p.locate(t)
	return p.segments[i].Acceleration(u)
}
