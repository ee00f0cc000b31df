// Package geom holds the small amount of rigid-body maths shared by the
// geometry packages: unit-quaternion rotors, 2-D isometries and segment
// distances.
//
// Rotors wrap gonum's quat.Number so that composition is always quaternion
// multiplication. Euler angles are never stored.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// unitTolerance bounds |q| - 1 for a rotor to count as unit.
const unitTolerance = 1e-6

// Rotor is an orientation stored as a unit quaternion W + Xi + Yj + Zk.
type Rotor struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Identity returns the rotor that leaves every vector unchanged.
func Identity() Rotor {
	return Rotor{W: 1}
}

// FromQuat converts a gonum quaternion.
func FromQuat(q quat.Number) Rotor {
	return Rotor{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Quat returns the rotor as a gonum quaternion.
func (q Rotor) Quat() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// AxisAngle returns the rotation by angle (right-hand rule) around axis.
// A zero axis yields the identity.
func AxisAngle(axis r3.Vec, angle float64) Rotor {
	if r3.Norm(axis) == 0 {
		return Identity()
	}
	return FromQuat(quat.Number(r3.NewRotation(angle, axis)))
}

// FromRotationVector returns the rotation of angle |w| around w/|w|.
func FromRotationVector(w r3.Vec) Rotor {
	angle := r3.Norm(w)
	if angle == 0 {
		return Identity()
	}
	return AxisAngle(w, angle)
}

// Mul composes rotors: q.Mul(p) applies p first, then q.
func (q Rotor) Mul(p Rotor) Rotor {
	return FromQuat(quat.Mul(q.Quat(), p.Quat()))
}

// Inverse returns the conjugate, which is the inverse of a unit rotor.
func (q Rotor) Inverse() Rotor {
	return FromQuat(quat.Conj(q.Quat()))
}

// Norm is the quaternion magnitude.
func (q Rotor) Norm() float64 {
	return quat.Abs(q.Quat())
}

// Normalised rescales q to unit length. A zero or non-finite rotor becomes
// the identity.
func (q Rotor) Normalised() Rotor {
	n := q.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	r := FromQuat(quat.Scale(1/n, q.Quat()))
	// Keep a canonical hemisphere so equal orientations compare equal.
	if r.W < 0 {
		r = Rotor{W: -r.W, X: -r.X, Y: -r.Y, Z: -r.Z}
	}
	return r
}

// IsUnit reports whether q has unit length within tolerance.
func (q Rotor) IsUnit() bool {
	return math.Abs(q.Norm()-1) <= unitTolerance
}

// MustBeUnit panics when q is not a unit rotor. A non-unit rotor reaching a
// geometry query means a mutator skipped normalisation.
func (q Rotor) MustBeUnit() {
	if !q.IsUnit() {
		panic(fmt.Sprintf("geom: non-unit rotor %+v (|q|=%g)", q, q.Norm()))
	}
}

// Rotate applies the rotation to v.
func (q Rotor) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(q.Quat()).Rotate(v)
}

// Axes returns the images of the unit X, Y and Z vectors.
func (q Rotor) Axes() (x, y, z r3.Vec) {
	return q.Rotate(r3.Vec{X: 1}), q.Rotate(r3.Vec{Y: 1}), q.Rotate(r3.Vec{Z: 1})
}

// Angle returns the rotation angle in [0, π].
func (q Rotor) Angle() float64 {
	w := math.Min(1, math.Abs(q.Normalised().W))
	return 2 * math.Acos(w)
}

// FromBasis returns the rotor mapping the unit X, Y and Z vectors onto the
// right-handed orthonormal basis (x, y, z).
func FromBasis(x, y, z r3.Vec) Rotor {
	// Shepperd's method on the rotation matrix with columns x, y, z.
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z
	var q Rotor
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = Rotor{W: s / 4, X: (m21 - m12) / s, Y: (m02 - m20) / s, Z: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = Rotor{W: (m21 - m12) / s, X: s / 4, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = Rotor{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: s / 4, Z: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = Rotor{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: s / 4}
	}
	return q.Normalised()
}

// Nlerp interpolates between two rotors along the shorter arc and
// renormalises. It is adequate for the small angles between neighbouring
// curve samples.
func Nlerp(a, b Rotor, f float64) Rotor {
	if a.W*b.W+a.X*b.X+a.Y*b.Y+a.Z*b.Z < 0 {
		b = Rotor{W: -b.W, X: -b.X, Y: -b.Y, Z: -b.Z}
	}
	return Rotor{
		W: a.W + f*(b.W-a.W),
		X: a.X + f*(b.X-a.X),
		Y: a.Y + f*(b.Y-a.Y),
		Z: a.Z + f*(b.Z-a.Z),
	}.Normalised()
}
