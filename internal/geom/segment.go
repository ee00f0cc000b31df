package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Segment is the closed line segment from A to B.
type Segment struct {
	A, B r3.Vec
}

// Length returns |B - A|.
func (s Segment) Length() float64 {
	return r3.Norm(r3.Sub(s.B, s.A))
}

// At returns A + t(B - A).
func (s Segment) At(t float64) r3.Vec {
	return r3.Add(s.A, r3.Scale(t, r3.Sub(s.B, s.A)))
}

// SegmentDistance returns the shortest distance between two segments and the
// parameters (s on p, t on q, both in [0,1]) of the closest points.
//
// Degenerate segments are handled as points.
func SegmentDistance(p, q Segment) (dist, s, t float64) {
	const eps = 1e-12
	d1 := r3.Sub(p.B, p.A)
	d2 := r3.Sub(q.B, q.A)
	r := r3.Sub(p.A, q.A)
	a := r3.Dot(d1, d1)
	e := r3.Dot(d2, d2)
	f := r3.Dot(d2, r)

	switch {
	case a <= eps && e <= eps:
		return r3.Norm(r), 0, 0
	case a <= eps:
		t = clamp01(f / e)
	default:
		c := r3.Dot(d1, r)
		if e <= eps {
			s = clamp01(-c / a)
			break
		}
		b := r3.Dot(d1, d2)
		denom := a*e - b*b
		if denom > eps {
			s = clamp01((b*f - c*e) / denom)
		}
		t = (b*s + f) / e
		if t < 0 {
			t = 0
			s = clamp01(-c / a)
		} else if t > 1 {
			t = 1
			s = clamp01((b - c) / a)
		}
	}
	dist = r3.Norm(r3.Sub(p.At(s), q.At(t)))
	return dist, s, t
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// IsFinite reports whether every component of v is finite.
func IsFinite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
