// Package helix computes nucleotide frames on a double helix.
//
// A helix is a rigid axis (local +X of its orientation) or, when it follows
// a bezier path or an analytic curve, the arc-length parametrised curve
// carried by the helix pose.
// Nucleotide i sits at axial distance i*z_step (backward strand shifted by
// the inclination, or on a curve the forward strand shifted back when the
// inclination is negative) and at phase
//
//	theta(i) = 2πi/bases_per_turn + groove_angle*(forward ? 0 : 1) + roll
//
// around the axis, at radius helix_radius. All frame compositions are rotor
// products.
package helix

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
)

// GridPosition records where a helix stands on a grid.
type GridPosition struct {
	Grid int `json:"grid"`
	X    int `json:"x"`
	Y    int `json:"y"`
	// AxisPos is the helix index whose axis point lies on the grid plane.
	AxisPos int     `json:"axis_pos"`
	Roll    float64 `json:"roll"`
	// Offset is the plane point of a helix on a Free grid. Lattice grids
	// ignore it.
	Offset r2.Vec `json:"offset,omitzero"`
}

// Symmetry mirrors the 2-D drawing of a helix along each axis (±1).
type Symmetry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Range is a half-open interval of nucleotide indices.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether i lies in [Start, End).
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Helix is a double helix placed in space.
type Helix struct {
	Position     r3.Vec         `json:"position"`
	Orientation  geom.Rotor     `json:"orientation"`
	GridPosition *GridPosition  `json:"grid_position,omitempty"`
	Isometry2D   geom.Isometry2 `json:"isometry2d"`
	Symmetry     Symmetry       `json:"symmetry"`
	Roll         float64        `json:"roll"`
	// Locked helices keep their pose during relaxation.
	Locked       bool   `json:"locked_for_simulations,omitempty"`
	InitialIndex int    `json:"initial_nt_index,omitempty"`
	Range        *Range `json:"range,omitempty"`
	// PathID names the bezier path followed by a curved helix. PathOffset
	// places the axis parallel to the path, in the path frame.
	PathID     *int   `json:"path_id,omitempty"`
	PathOffset r2.Vec `json:"path_offset,omitzero"`
	// Descriptor is the analytic curve followed by the helix, in helix
	// local coordinates.
	Descriptor *bezier.Descriptor `json:"curve_descriptor,omitempty"`

	curve *bezier.Cache
}

// New returns a straight helix with the given pose.
func New(position r3.Vec, orientation geom.Rotor) Helix {
	return Helix{
		Position:    position,
		Orientation: orientation.Normalised(),
		Symmetry:    Symmetry{X: 1, Y: 1},
	}
}

// UnmarshalJSON fills the defaults older files leave out.
func (h *Helix) UnmarshalJSON(data []byte) error {
	type plain Helix
	v := plain{Orientation: geom.Identity(), Symmetry: Symmetry{X: 1, Y: 1}}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*h = Helix(v)
	h.Orientation = h.Orientation.Normalised()
	return nil
}

// Curved reports whether the helix follows a bezier path or an analytic
// curve.
func (h *Helix) Curved() bool {
	return h.PathID != nil || h.Descriptor != nil
}

// SetCurve publishes a fitted path geometry (or the error that prevented
// the fit) for this helix.
func (h *Helix) SetCurve(g *bezier.Geometry, err error) {
	if h.curve == nil {
		h.curve = &bezier.Cache{}
	}
	h.curve.Store(g, err)
}

// CurveGeometry returns the fitted path of a curved helix.
func (h *Helix) CurveGeometry() (*bezier.Geometry, error) {
	if h.curve == nil {
		return nil, geomerr.New(geomerr.CodeDegenerateCurve, "curve not fitted")
	}
	return h.curve.Load()
}

// Clone returns a copy that shares no mutable state with h.
func (h Helix) Clone() Helix {
	c := h
	if h.GridPosition != nil {
		gp := *h.GridPosition
		c.GridPosition = &gp
	}
	if h.Range != nil {
		r := *h.Range
		c.Range = &r
	}
	if h.PathID != nil {
		id := *h.PathID
		c.PathID = &id
	}
	if h.Descriptor != nil {
		desc := h.Descriptor.Clone()
		c.Descriptor = &desc
	}
	if h.curve != nil {
		c.curve = &bezier.Cache{}
		c.curve.Store(h.curve.Load())
	}
	return c
}

// Theta returns the phase of nucleotide n (already shifted by the initial
// index) around the axis.
func (h *Helix) Theta(p dna.Parameters, n int, forward bool) float64 {
	theta := float64(n)*p.AnglePerBase() + h.Roll
	if !forward {
		theta += p.GrooveAngle
	}
	return theta
}

// DeclaredRange returns the valid indices of the helix: its explicit range,
// or for a curved helix the indices that fit on the path. Unbounded
// straight helices and unfitted curves report false.
func (h *Helix) DeclaredRange(p dna.Parameters) (Range, bool) {
	if h.Range != nil {
		return *h.Range, true
	}
	if !h.Curved() {
		return Range{}, false
	}
	g, err := h.CurveGeometry()
	if err != nil {
		return Range{}, false
	}
	n := 0
	if usable := g.Length() - math.Abs(p.Inclination); usable >= 0 {
		n = int(math.Floor(usable/p.ZStep)) + 1
	}
	return Range{Start: -h.InitialIndex, End: n - h.InitialIndex}, true
}

// strandShift is the extra axial distance of a strand. The backward strand
// trails the forward one by the inclination. On a curve the trailing strand
// is the shifted one, so both strands start at or after arc length 0.
func (h *Helix) strandShift(p dna.Parameters, forward bool) float64 {
	if !h.Curved() {
		if forward {
			return 0
		}
		return p.Inclination
	}
	switch {
	case forward && p.Inclination < 0:
		return -p.Inclination
	case !forward && p.Inclination > 0:
		return p.Inclination
	}
	return 0
}

func (h *Helix) checkIndex(p dna.Parameters, i int) error {
	if r, ok := h.DeclaredRange(p); ok && !r.Contains(i) {
		return geomerr.New(geomerr.CodeIndexOutOfDeclaredRange,
			"index %d outside [%d, %d)", i, r.Start, r.End)
	}
	return nil
}

// axisFrame returns the axis point and the axis frame of index n in world
// space. shift is an extra axial distance.
func (h *Helix) axisFrame(p dna.Parameters, n int, shift float64) (r3.Vec, geom.Rotor, error) {
	h.Orientation.MustBeUnit()
	s := float64(n)*p.ZStep + shift
	if !h.Curved() {
		axis := r3.Add(h.Position, h.Orientation.Rotate(r3.Vec{X: s}))
		return axis, h.Orientation, nil
	}
	g, err := h.CurveGeometry()
	if err != nil {
		return r3.Vec{}, geom.Rotor{}, err
	}
	point, frame, err := g.At(s)
	if err != nil {
		return r3.Vec{}, geom.Rotor{}, err
	}
	return r3.Add(h.Position, h.Orientation.Rotate(point)), h.Orientation.Mul(frame), nil
}

// AxisPosition returns the axis point level with nucleotide i.
func (h *Helix) AxisPosition(p dna.Parameters, i int) (r3.Vec, error) {
	if err := h.checkIndex(p, i); err != nil {
		return r3.Vec{}, err
	}
	axis, _, err := h.axisFrame(p, i+h.InitialIndex, 0)
	return axis, err
}

// AxisDirection returns the unit direction of a straight axis.
func (h *Helix) AxisDirection() r3.Vec {
	return h.Orientation.Rotate(r3.Vec{X: 1})
}

// Translate moves the helix by v.
func (h *Helix) Translate(v r3.Vec) {
	h.Position = r3.Add(h.Position, v)
}

// RotateAround applies rotation around origin.
func (h *Helix) RotateAround(rotation geom.Rotor, origin r3.Vec) {
	h.Position = r3.Add(origin, rotation.Rotate(r3.Sub(h.Position, origin)))
	h.Orientation = rotation.Mul(h.Orientation).Normalised()
}

// SetRoll sets the roll, wrapped to (-π, π].
func (h *Helix) SetRoll(roll float64) {
	h.Roll = geom.WrapAngle(roll)
	if h.GridPosition != nil {
		h.GridPosition.Roll = h.Roll
	}
}

// AxisSegment returns the straight-line span of the axis between the first
// and last index of r.
func (h *Helix) AxisSegment(p dna.Parameters, r Range) (geom.Segment, error) {
	a, _, err := h.axisFrame(p, r.Start+h.InitialIndex, 0)
	if err != nil {
		return geom.Segment{}, err
	}
	last := r.End - 1
	if last < r.Start {
		last = r.Start
	}
	b, _, err := h.axisFrame(p, last+h.InitialIndex, 0)
	if err != nil {
		return geom.Segment{}, err
	}
	return geom.Segment{A: a, B: b}, nil
}

// IdealNeighbour returns a straight helix parallel to h, one inter-centre
// gap away in the direction of nucleotide (i, forward), rolled so that its
// nucleotide 0 on the same strand faces that nucleotide.
func (h *Helix) IdealNeighbour(p dna.Parameters, i int, forward bool) (Helix, error) {
	if h.Curved() {
		return Helix{}, fmt.Errorf("ideal neighbour of curved helix is undefined")
	}
	f, err := h.Frame(p, i, forward)
	if err != nil {
		return Helix{}, err
	}
	axis, _, err := h.axisFrame(p, i+h.InitialIndex, 0)
	if err != nil {
		return Helix{}, err
	}
	dir := r3.Unit(r3.Sub(f.Position, f.Axis))
	n := New(r3.Add(axis, r3.Scale(p.InterCentreGap(), dir)), h.Orientation)
	n.SetRoll(h.Theta(p, i+h.InitialIndex, forward) + math.Pi - n.Theta(p, 0, forward))
	return n, nil
}
