package bezier

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/geom"
)

// framesPerSegment is the sampling density of a FrameTable.
const framesPerSegment = 64

// FrameTable holds a rotation-minimising frame sampled along a curve. Each
// frame maps local X onto the curve tangent; local Y and Z span the normal
// plane and do not twist around the tangent between samples.
type FrameTable struct {
	curve  Curve
	rotors []geom.Rotor
}

// perpendicular returns a unit vector orthogonal to v.
func perpendicular(v r3.Vec) r3.Vec {
	ref := r3.Vec{X: 1}
	if math.Abs(r3.Unit(v).X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(v, ref))
}

// orthonormalise returns the unit component of ref orthogonal to unit
// vector x, or an arbitrary perpendicular if ref is parallel to x.
func orthonormalise(ref, x r3.Vec) r3.Vec {
	y := r3.Sub(ref, r3.Scale(r3.Dot(ref, x), x))
	if r3.Norm(y) < 1e-9 {
		return perpendicular(x)
	}
	return r3.Unit(y)
}

func tangentAt(c Curve, t float64, fallback r3.Vec) r3.Vec {
	d := c.Derivative(t)
	if r3.Norm(d) < 1e-12 {
		return fallback
	}
	return r3.Unit(d)
}

// NewFrameTable propagates a frame along c with the double reflection
// method. The initial frame's Y axis is up made orthogonal to the starting
// tangent.
func NewFrameTable(c Curve, up r3.Vec) *FrameTable {
	n := c.Segments() * framesPerSegment
	rotors := make([]geom.Rotor, n+1)

	x := tangentAt(c, 0, r3.Vec{X: 1})
	r := orthonormalise(up, x)
	pos := c.Position(0)
	rotors[0] = geom.FromBasis(x, r, r3.Cross(x, r))

	for k := 1; k <= n; k++ {
		t := float64(k) / framesPerSegment
		nextPos := c.Position(t)
		nextX := tangentAt(c, t, x)

		v1 := r3.Sub(nextPos, pos)
		if c1 := r3.Dot(v1, v1); c1 > 1e-18 {
			rL := r3.Sub(r, r3.Scale(2/c1*r3.Dot(v1, r), v1))
			tL := r3.Sub(x, r3.Scale(2/c1*r3.Dot(v1, x), v1))
			v2 := r3.Sub(nextX, tL)
			if c2 := r3.Dot(v2, v2); c2 > 1e-18 {
				r = r3.Sub(rL, r3.Scale(2/c2*r3.Dot(v2, rL), v2))
			} else {
				r = rL
			}
		}
		r = orthonormalise(r, nextX)
		x, pos = nextX, nextPos
		rotors[k] = geom.FromBasis(x, r, r3.Cross(x, r))
	}
	return &FrameTable{curve: c, rotors: rotors}
}

// sample interpolates the stored rotors at t.
func (f *FrameTable) sample(t float64) geom.Rotor {
	last := len(f.rotors) - 1
	pos := t * framesPerSegment
	switch {
	case pos <= 0:
		return f.rotors[0]
	case pos >= float64(last):
		return f.rotors[last]
	}
	k := int(math.Floor(pos))
	return geom.Nlerp(f.rotors[k], f.rotors[k+1], pos-float64(k))
}

// FrameAlong returns the frame at t re-aligned so that local X is exactly
// tangent. Use it with the tangent of an offset curve sharing this table.
func (f *FrameTable) FrameAlong(t float64, tangent r3.Vec) geom.Rotor {
	ref := f.sample(t)
	x := r3.Unit(tangent)
	if r3.Norm(tangent) < 1e-12 {
		x = ref.Rotate(r3.Vec{X: 1})
	}
	y := orthonormalise(ref.Rotate(r3.Vec{Y: 1}), x)
	return geom.FromBasis(x, y, r3.Cross(x, y))
}

// Frame returns the frame of the underlying curve at t.
func (f *FrameTable) Frame(t float64) geom.Rotor {
	return f.FrameAlong(t, f.curve.Derivative(t))
}

// Offset is a curve running parallel to a base curve at a fixed offset in
// its frame: Offset.X along the frame's Z axis and Offset.Y along its Y
// axis, the same convention a grid uses for lattice coordinates.
type Offset struct {
	base   Curve
	frames *FrameTable
	offset r2.Vec
}

// NewOffset returns the curve parallel to base at offset.
func NewOffset(base Curve, frames *FrameTable, offset r2.Vec) *Offset {
	return &Offset{base: base, frames: frames, offset: offset}
}

// Segments matches the base curve.
func (o *Offset) Segments() int { return o.base.Segments() }

// Position evaluates the offset curve.
func (o *Offset) Position(t float64) r3.Vec {
	local := r3.Vec{Y: o.offset.Y, Z: o.offset.X}
	return r3.Add(o.base.Position(t), o.frames.Frame(t).Rotate(local))
}

// Derivative differentiates the offset curve numerically, one-sided at the
// ends of the domain.
func (o *Offset) Derivative(t float64) r3.Vec {
	const h = 1e-6
	lo, hi := t-h, t+h
	if lo < 0 {
		lo = 0
	}
	if tMax := float64(o.Segments()); hi > tMax {
		hi = tMax
	}
	return r3.Scale(1/(hi-lo), r3.Sub(o.Position(hi), o.Position(lo)))
}
