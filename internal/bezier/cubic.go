// Package bezier models the curved helix axes: piecewise cubic bezier paths
// drawn on support planes, their rotation-minimising frames, and an
// arc-length reparametrisation that spaces nucleotides evenly along a curve.
package bezier

import "gonum.org/v1/gonum/spatial/r3"

// Cubic is a cubic bezier curve stored in power-basis form
// B(t) = q0 + t q1 + t² q2 + t³ q3, t in [0, 1].
type Cubic struct {
	q0, q1, q2, q3 r3.Vec
}

// NewCubic builds the curve from its end points and two control points.
func NewCubic(start, control1, control2, end r3.Vec) Cubic {
	return Cubic{
		q0: start,
		q1: r3.Scale(3, r3.Sub(control1, start)),
		q2: r3.Scale(3, r3.Add(r3.Sub(control2, r3.Scale(2, control1)), start)),
		q3: r3.Add(r3.Sub(end, start), r3.Scale(3, r3.Sub(control1, control2))),
	}
}

// Position evaluates B(t) by Horner's rule.
func (c Cubic) Position(t float64) r3.Vec {
	v := r3.Add(c.q2, r3.Scale(t, c.q3))
	v = r3.Add(c.q1, r3.Scale(t, v))
	return r3.Add(c.q0, r3.Scale(t, v))
}

// Derivative evaluates B'(t).
func (c Cubic) Derivative(t float64) r3.Vec {
	v := r3.Add(r3.Scale(3*t, c.q3), r3.Scale(2, c.q2))
	return r3.Add(c.q1, r3.Scale(t, v))
}

// Acceleration evaluates B''(t).
func (c Cubic) Acceleration(t float64) r3.Vec {
	return r3.Add(r3.Scale(6*t, c.q3), r3.Scale(2, c.q2))
}
