package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Isometry2 is a rigid 2-D transform: rotate by Angle (radians,
// counter-clockwise) then translate.
type Isometry2 struct {
	Translation r2.Vec  `json:"translation"`
	Angle       float64 `json:"rotation"`
}

// IdentityIsometry2 returns the isometry that maps every point to itself.
func IdentityIsometry2() Isometry2 {
	return Isometry2{}
}

// Apply maps p through the isometry.
func (iso Isometry2) Apply(p r2.Vec) r2.Vec {
	return r2.Add(r2.Rotate(p, iso.Angle, r2.Vec{}), iso.Translation)
}

// ApplyVector rotates v without translating it.
func (iso Isometry2) ApplyVector(v r2.Vec) r2.Vec {
	return r2.Rotate(v, iso.Angle, r2.Vec{})
}

// Then returns the isometry that applies iso first, then next.
func (iso Isometry2) Then(next Isometry2) Isometry2 {
	return Isometry2{
		Translation: next.Apply(iso.Translation),
		Angle:       WrapAngle(iso.Angle + next.Angle),
	}
}

// Inverse returns the isometry undoing iso.
func (iso Isometry2) Inverse() Isometry2 {
	return Isometry2{
		Translation: r2.Rotate(r2.Scale(-1, iso.Translation), -iso.Angle, r2.Vec{}),
		Angle:       WrapAngle(-iso.Angle),
	}
}

// WrapAngle maps a into (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	switch {
	case a <= -math.Pi:
		a += 2 * math.Pi
	case a > math.Pi:
		a -= 2 * math.Pi
	}
	return a
}
