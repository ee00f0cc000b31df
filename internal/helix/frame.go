package helix

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
)

// Frame is the 3-D reference frame of one nucleotide.
//
// Tangent follows the 5'→3' direction of the strand along the axis, Normal
// points from the axis to the nucleotide and Binormal completes the
// right-handed triple. Orientation maps local X, Y, Z onto Tangent,
// Binormal, Normal.
type Frame struct {
	Position    r3.Vec     `json:"position"`
	Axis        r3.Vec     `json:"axis"`
	Orientation geom.Rotor `json:"orientation"`
	Tangent     r3.Vec     `json:"tangent"`
	Normal      r3.Vec     `json:"normal"`
	Binormal    r3.Vec     `json:"binormal"`
}

// Frame2D is the 2-D view of a nucleotide position.
type Frame2D struct {
	Position r2.Vec  `json:"position"`
	Angle    float64 `json:"angle"`
}

// flip turns a frame around its normal so a backward strand runs 3'→5'
// along the axis.
var flip = geom.AxisAngle(r3.Vec{Z: 1}, math.Pi)

// Frame returns the frame of nucleotide i on the given strand. Indices
// outside the declared range fail with ErrIndexOutOfDeclaredRange.
func (h *Helix) Frame(p dna.Parameters, i int, forward bool) (Frame, error) {
	if err := h.checkIndex(p, i); err != nil {
		return Frame{}, err
	}
	n := i + h.InitialIndex
	axis, axisRotor, err := h.axisFrame(p, n, h.strandShift(p, forward))
	if err != nil {
		return Frame{}, err
	}

	rotor := axisRotor.Mul(geom.AxisAngle(r3.Vec{X: 1}, -h.Theta(p, n, forward)))
	if !forward {
		rotor = rotor.Mul(flip)
	}
	rotor = rotor.Normalised()
	tangent, binormal, normal := rotor.Axes()

	return Frame{
		Position:    r3.Add(axis, r3.Scale(p.HelixRadius, normal)),
		Axis:        axis,
		Orientation: rotor,
		Tangent:     tangent,
		Normal:      normal,
		Binormal:    binormal,
	}, nil
}

// NucleotidePosition is a shorthand for Frame(...).Position.
func (h *Helix) NucleotidePosition(p dna.Parameters, i int, forward bool) (r3.Vec, error) {
	f, err := h.Frame(p, i, forward)
	return f.Position, err
}

// The 2-D view lays each helix out as a horizontal strip: nucleotide i of
// the forward strand sits at ((i+0.5)*sx, 1-0.5*sy) in helix-local units,
// the backward strand at ((i+0.5)*sx, 1+0.5*sy). The isometry maps the
// strip into the shared 2-D plane, whose unit is one z_step and whose y axis
// points down.

// PoseIsometry returns the 2-D isometry implied by the 3-D pose.
func (h *Helix) PoseIsometry(p dna.Parameters) geom.Isometry2 {
	axis := h.AxisDirection()
	return geom.Isometry2{
		Translation: r2.Vec{X: h.Position.X / p.ZStep, Y: -h.Position.Y / p.ZStep},
		Angle:       math.Atan2(-axis.Y, axis.X),
	}
}

// SyncIsometry recomputes Isometry2D from the 3-D pose.
func (h *Helix) SyncIsometry(p dna.Parameters) {
	h.Isometry2D = h.PoseIsometry(p)
}

// Nucleotide2D returns the 2-D position of nucleotide i.
func (h *Helix) Nucleotide2D(i int, forward bool) r2.Vec {
	dy := 0.5
	if forward {
		dy = -0.5
	}
	local := r2.Vec{X: (float64(i) + 0.5) * h.Symmetry.X, Y: 1 + dy*h.Symmetry.Y}
	return h.Isometry2D.Apply(local)
}

// Frame2D returns the 2-D frame at index i: a point on the helix centre line
// and the drawing angle of the helix.
func (h *Helix) Frame2D(p dna.Parameters, i int) (Frame2D, error) {
	if err := h.checkIndex(p, i); err != nil {
		return Frame2D{}, err
	}
	local := r2.Vec{X: (float64(i) + 0.5) * h.Symmetry.X, Y: 1}
	return Frame2D{Position: h.Isometry2D.Apply(local), Angle: h.Isometry2D.Angle}, nil
}

// Translate2D moves the helix by d in the 2-D view and pushes the move into
// the 3-D pose.
func (h *Helix) Translate2D(p dna.Parameters, d r2.Vec) {
	h.Translate(r3.Vec{X: d.X * p.ZStep, Y: -d.Y * p.ZStep})
	h.SyncIsometry(p)
}

// Rotate2D rotates the helix by angle around center in the 2-D view and
// pushes the rotation into the 3-D pose.
func (h *Helix) Rotate2D(p dna.Parameters, angle float64, center r2.Vec) {
	origin := r3.Vec{X: center.X * p.ZStep, Y: -center.Y * p.ZStep, Z: h.Position.Z}
	h.RotateAround(geom.AxisAngle(r3.Vec{Z: 1}, -angle), origin)
	h.SyncIsometry(p)
}
