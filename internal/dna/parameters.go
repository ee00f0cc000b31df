// Package dna owns the physical constants that shape a double helix.
//
// Parameters is a plain value: it is threaded explicitly through every
// geometry call and never stored in a package-level variable, so two
// parameter sets can be evaluated side by side.
package dna

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/ensnano-geometry/internal/config"
)

// Parameters are the physical constants governing helix shape. Lengths are in
// nanometres and angles in radians.
type Parameters struct {
	// ZStep is the rise per base pair along the helix axis.
	ZStep float64 `json:"z_step"`
	// HelixRadius is the distance from the axis to a nucleotide.
	HelixRadius float64 `json:"helix_radius"`
	// BasesPerTurn is the number of base pairs in one full turn.
	BasesPerTurn float64 `json:"bases_per_turn"`
	// GrooveAngle is the angular offset between the backward and forward
	// strand of a base pair (minor groove).
	GrooveAngle float64 `json:"groove_angle"`
	// InterHelixGap is the surface-to-surface gap between neighbouring helices.
	InterHelixGap float64 `json:"inter_helix_gap"`
	// Inclination shifts backward-strand nucleotides along curved axes.
	Inclination float64 `json:"inclination"`
}

// interCentreGap is the centre-to-centre spacing of the pre-0.4.1 parameters,
// kept for every later set so that lattices stay compatible.
const interCentreGap = 2*1.0 + 0.65

// Geary2014DNA is the default set (Geary & Andersen 2014).
var Geary2014DNA = Parameters{
	ZStep:         0.332,
	HelixRadius:   0.93,
	BasesPerTurn:  10.44,
	GrooveAngle:   170.4 / 180.0 * math.Pi,
	InterHelixGap: interCentreGap - 2*0.93,
	Inclination:   0.375,
}

// Geary2014RNA is used for RNA designs.
var Geary2014RNA = Parameters{
	ZStep:         0.281,
	HelixRadius:   0.87,
	BasesPerTurn:  11.0,
	GrooveAngle:   139.9 / 180.0 * math.Pi,
	InterHelixGap: interCentreGap - 2*0.87,
	Inclination:   -0.745,
}

// Geary2014DNAPStick keeps the Geary radius but places the phosphate
// sticks with no inclination.
var Geary2014DNAPStick = Parameters{
	ZStep:         0.332,
	HelixRadius:   0.93,
	BasesPerTurn:  10.44,
	GrooveAngle:   170.4 / 180.0 * math.Pi,
	InterHelixGap: interCentreGap - 2*0.93,
	Inclination:   0,
}

// OldENSnano reproduces the values used before version 0.4.1.
var OldENSnano = Parameters{
	ZStep:         0.332,
	HelixRadius:   1.0,
	BasesPerTurn:  10.44,
	GrooveAngle:   2 * math.Pi * 12 / 34,
	InterHelixGap: 0.65,
	Inclination:   0,
}

// NamedParameters pairs a parameter set with its persisted name.
type NamedParameters struct {
	Name  string
	Value Parameters
}

// NamedSets lists the known sets, default first.
var NamedSets = []NamedParameters{
	{"GEARY_2014_DNA", Geary2014DNA},
	{"GEARY_2014_DNA_P_STICK", Geary2014DNAPStick},
	{"GEARY_2014_RNA", Geary2014RNA},
	{"OLD_ENSNANO", OldENSnano},
}

// Default returns the default parameter set.
func Default() Parameters {
	return Geary2014DNA
}

// Lookup returns the named set, case-insensitively.
func Lookup(name string) (Parameters, bool) {
	for _, n := range NamedSets {
		if strings.EqualFold(n.Name, name) {
			return n.Value, true
		}
	}
	return Parameters{}, false
}

// Validate checks the physical invariants: lengths and helicity strictly
// positive, angles bounded.
func (p Parameters) Validate() error {
	if !(p.ZStep > 0) {
		return fmt.Errorf("z_step must be positive, got %g", p.ZStep)
	}
	if !(p.HelixRadius > 0) {
		return fmt.Errorf("helix_radius must be positive, got %g", p.HelixRadius)
	}
	if !(p.BasesPerTurn > 0) {
		return fmt.Errorf("bases_per_turn must be positive, got %g", p.BasesPerTurn)
	}
	if !(p.InterHelixGap > 0) {
		return fmt.Errorf("inter_helix_gap must be positive, got %g", p.InterHelixGap)
	}
	if math.IsNaN(p.GrooveAngle) || math.Abs(p.GrooveAngle) > 2*math.Pi {
		return fmt.Errorf("groove_angle must be within [-2π, 2π], got %g", p.GrooveAngle)
	}
	if math.IsNaN(p.Inclination) || math.Abs(p.Inclination) > math.Pi {
		return fmt.Errorf("inclination must be within [-π, π], got %g", p.Inclination)
	}
	return nil
}

// AnglePerBase is the phase advance between consecutive nucleotides.
func (p Parameters) AnglePerBase() float64 {
	return 2 * math.Pi / p.BasesPerTurn
}

// InterCentreGap is the centre-to-centre distance of two touching helices,
// which is also the minimum allowed axis separation.
func (p Parameters) InterCentreGap() float64 {
	return 2*p.HelixRadius + p.InterHelixGap
}

// ExpectedCrossoverLength is the distance |AC| between a nucleotide A and its
// 3' neighbour C on the same strand.
func (p Parameters) ExpectedCrossoverLength() float64 {
	ac2 := math.Sqrt2 * math.Sqrt(1-math.Cos(p.AnglePerBase())) * p.HelixRadius
	return math.Sqrt(ac2*ac2 + p.ZStep*p.ZStep)
}

// Delta is the L1 distance between two parameter sets.
func (p Parameters) Delta(other Parameters) float64 {
	return math.Abs(p.Inclination-other.Inclination) +
		math.Abs(p.HelixRadius-other.HelixRadius) +
		math.Abs(p.InterHelixGap-other.InterHelixGap) +
		math.Abs(p.GrooveAngle-other.GrooveAngle) +
		math.Abs(p.ZStep-other.ZStep) +
		math.Abs(p.BasesPerTurn-other.BasesPerTurn)
}

// ClosestNamedSet returns the name of the known set nearest to p.
func (p Parameters) ClosestNamedSet() string {
	best := NamedSets[0].Name
	bestDelta := math.Inf(1)
	for _, n := range NamedSets {
		if d := p.Delta(n.Value); d < bestDelta {
			best, bestDelta = n.Name, d
		}
	}
	return best
}

// String formats the parameters the way the parameter panel lists them.
func (p Parameters) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Radius: %.3f nm\n", p.HelixRadius)
	fmt.Fprintf(&b, "Rise: %.3f nm\n", p.ZStep)
	fmt.Fprintf(&b, "Inclination: %.3f nm\n", p.Inclination)
	fmt.Fprintf(&b, "Helicity: %.2f bp\n", p.BasesPerTurn)
	fmt.Fprintf(&b, "Axis: %.1f°\n", p.GrooveAngle*180/math.Pi)
	fmt.Fprintf(&b, "Inter helix gap: %.2f nm\n", p.InterHelixGap)
	fmt.Fprintf(&b, "Expected xover length: %.2f nm", p.ExpectedCrossoverLength())
	return b.String()
}

// ParametersFromTuning builds the parameter set named in cfg and applies any
// scalar overrides.
func ParametersFromTuning(cfg *config.TuningConfig) (Parameters, error) {
	p, ok := Lookup(cfg.GetParameterSet())
	if !ok {
		return Parameters{}, fmt.Errorf("unknown parameter set %q", cfg.GetParameterSet())
	}
	if cfg.ZStep != nil {
		p.ZStep = *cfg.ZStep
	}
	if cfg.HelixRadius != nil {
		p.HelixRadius = *cfg.HelixRadius
	}
	if cfg.BasesPerTurn != nil {
		p.BasesPerTurn = *cfg.BasesPerTurn
	}
	if cfg.GrooveAngleDeg != nil {
		p.GrooveAngle = *cfg.GrooveAngleDeg * math.Pi / 180
	}
	if cfg.InterHelixGap != nil {
		p.InterHelixGap = *cfg.InterHelixGap
	}
	if cfg.Inclination != nil {
		p.Inclination = *cfg.Inclination
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}
