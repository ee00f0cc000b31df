package bezier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// piecesPerTurn is how many unit segments an analytic curve spends on one
// revolution, so each Chebyshev fit covers a smooth quarter turn.
const piecesPerTurn = 4

func pieces(turns float64) int {
	return piecesPerTurn * (1 + int(math.Ceil(math.Abs(turns))))
}

// Twist is a helical axis winding around local X: at parameter τ the point
// is (LengthX*τ, Radius*sin θ, Radius*cos θ) with θ = Theta0 + Omega*τ, for
// τ in [0, TMax].
type Twist struct {
	Theta0  float64 `json:"theta0"`
	Omega   float64 `json:"omega"`
	LengthX float64 `json:"length_x"`
	Radius  float64 `json:"radius"`
	TMax    float64 `json:"t_max"`
}

func (tw Twist) turns() float64 { return tw.Omega * tw.TMax / (2 * math.Pi) }

// Segments implements Curve.
func (tw Twist) Segments() int { return pieces(tw.turns()) }

// tau maps the curve parameter on [0, Segments()] to τ.
func (tw Twist) tau(t float64) (float64, float64) {
	k := tw.TMax / float64(tw.Segments())
	return t * k, k
}

// Position implements Curve.
func (tw Twist) Position(t float64) r3.Vec {
	tau, _ := tw.tau(t)
	theta := tw.Theta0 + tw.Omega*tau
	return r3.Vec{X: tw.LengthX * tau, Y: tw.Radius * math.Sin(theta), Z: tw.Radius * math.Cos(theta)}
}

// Derivative implements Curve.
func (tw Twist) Derivative(t float64) r3.Vec {
	tau, k := tw.tau(t)
	theta := tw.Theta0 + tw.Omega*tau
	w := tw.Radius * tw.Omega
	return r3.Scale(k, r3.Vec{X: tw.LengthX, Y: w * math.Cos(theta), Z: -w * math.Sin(theta)})
}

// Torus is a closed curve on the surface of a torus around local Y. One
// revolution around the Y axis winds Windings times around the tube.
type Torus struct {
	BigRadius   float64 `json:"big_radius"`
	SmallRadius float64 `json:"small_radius"`
	Theta0      float64 `json:"theta0"`
	Windings    float64 `json:"windings"`
}

// Segments implements Curve.
func (to Torus) Segments() int { return pieces(to.Windings) }

// angles returns the revolution angle u, the tube angle φ and du/dt.
func (to Torus) angles(t float64) (u, phi, du float64) {
	du = 2 * math.Pi / float64(to.Segments())
	u = t * du
	return u, to.Theta0 + to.Windings*u, du
}

// Position implements Curve.
func (to Torus) Position(t float64) r3.Vec {
	u, phi, _ := to.angles(t)
	ring := to.BigRadius + to.SmallRadius*math.Cos(phi)
	return r3.Vec{X: ring * math.Cos(u), Y: to.SmallRadius * math.Sin(phi), Z: ring * math.Sin(u)}
}

// Derivative implements Curve.
func (to Torus) Derivative(t float64) r3.Vec {
	u, phi, du := to.angles(t)
	ring := to.BigRadius + to.SmallRadius*math.Cos(phi)
	dRing := -to.SmallRadius * to.Windings * math.Sin(phi)
	return r3.Scale(du, r3.Vec{
		X: dRing*math.Cos(u) - ring*math.Sin(u),
		Y: to.SmallRadius * to.Windings * math.Cos(phi),
		Z: dRing*math.Sin(u) + ring*math.Cos(u),
	})
}

// Descriptor names the analytic curve followed by a helix. Exactly one
// field is set.
type Descriptor struct {
	Twist *Twist `json:"Twist,omitempty"`
	Torus *Torus `json:"Torus,omitempty"`
}

// Curve returns the described curve.
func (d Descriptor) Curve() (Curve, error) {
	switch {
	case d.Twist != nil && d.Torus == nil:
		if d.Twist.TMax <= 0 {
			return nil, fmt.Errorf("twist: t_max %g must be positive", d.Twist.TMax)
		}
		return *d.Twist, nil
	case d.Torus != nil && d.Twist == nil:
		if d.Torus.BigRadius <= d.Torus.SmallRadius || d.Torus.SmallRadius < 0 {
			return nil, fmt.Errorf("torus: radii %g, %g do not form a ring", d.Torus.BigRadius, d.Torus.SmallRadius)
		}
		return *d.Torus, nil
	default:
		return nil, fmt.Errorf("curve descriptor must name exactly one curve")
	}
}

// Clone returns a copy sharing no pointers with d.
func (d Descriptor) Clone() Descriptor {
	var c Descriptor
	if d.Twist != nil {
		tw := *d.Twist
		c.Twist = &tw
	}
	if d.Torus != nil {
		to := *d.Torus
		c.Torus = &to
	}
	return c
}
