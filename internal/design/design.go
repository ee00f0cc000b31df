// Package design holds a whole nanostructure: grids, helices, strands and
// bezier paths keyed by integer ids, plus the DNA parameters they share.
//
// Grids and helices refer to each other only through ids. A helix stores
// the id of its grid; a grid is asked for its members with GridHelices.
// Dangling ids are reported at lookup time.
package design

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/version"
)

// ErrInUse is returned when removing an element another one refers to.
var ErrInUse = errors.New("element in use")

// Design is the arena of a nanostructure. The zero value is not usable; call
// New.
type Design struct {
	Version    string
	Parameters dna.Parameters

	Grids   map[int]*grid.Grid
	Helices map[int]*helix.Helix
	Strands map[int]*strand.Strand
	Planes  map[int]bezier.Plane
	Paths   map[int]*bezier.Path

	fit bezier.FitOptions
}

// New returns an empty design using p.
func New(p dna.Parameters) *Design {
	return &Design{
		Version:    version.FormatVersion,
		Parameters: p,
		Grids:      make(map[int]*grid.Grid),
		Helices:    make(map[int]*helix.Helix),
		Strands:    make(map[int]*strand.Strand),
		Planes:     make(map[int]bezier.Plane),
		Paths:      make(map[int]*bezier.Path),
		fit:        bezier.DefaultFitOptions(),
	}
}

// SetFitOptions changes the arc-length fit settings and refits every curve.
func (d *Design) SetFitOptions(opts bezier.FitOptions) {
	d.fit = opts
	d.refitAll()
}

// Helix returns helix id or ErrUnknownHelix.
func (d *Design) Helix(id int) (*helix.Helix, error) {
	h, ok := d.Helices[id]
	if !ok {
		return nil, geomerr.New(geomerr.CodeUnknownHelix, "helix %d", id)
	}
	return h, nil
}

// Grid returns grid id or ErrUnknownGrid.
func (d *Design) Grid(id int) (*grid.Grid, error) {
	g, ok := d.Grids[id]
	if !ok {
		return nil, geomerr.New(geomerr.CodeUnknownGrid, "grid %d", id)
	}
	return g, nil
}

// Strand returns strand id.
func (d *Design) Strand(id int) (*strand.Strand, error) {
	s, ok := d.Strands[id]
	if !ok {
		return nil, fmt.Errorf("strand %d: %w", id, ErrNotFound)
	}
	return s, nil
}

// ErrNotFound is returned for unknown strand, path and plane ids.
var ErrNotFound = errors.New("not found")

// HelixIDs returns the helix ids in increasing order.
func (d *Design) HelixIDs() []int {
	return slices.Sorted(maps.Keys(d.Helices))
}

// StrandIDs returns the strand ids in increasing order.
func (d *Design) StrandIDs() []int {
	return slices.Sorted(maps.Keys(d.Strands))
}

// GridIDs returns the grid ids in increasing order.
func (d *Design) GridIDs() []int {
	return slices.Sorted(maps.Keys(d.Grids))
}

// GridHelices returns the ids of the helices placed on grid id, in
// increasing order.
func (d *Design) GridHelices(id int) []int {
	var out []int
	for _, hid := range d.HelixIDs() {
		if gp := d.Helices[hid].GridPosition; gp != nil && gp.Grid == id {
			out = append(out, hid)
		}
	}
	return out
}

// ComputeFrame returns the 3-D frame of nucleotide (index, forward) on helix
// id.
func (d *Design) ComputeFrame(id, index int, forward bool) (helix.Frame, error) {
	h, err := d.Helix(id)
	if err != nil {
		return helix.Frame{}, err
	}
	if err := d.checkGrid(h); err != nil {
		return helix.Frame{}, err
	}
	return h.Frame(d.Parameters, index, forward)
}

// ComputeFrame2D returns the 2-D frame of index on helix id.
func (d *Design) ComputeFrame2D(id, index int) (helix.Frame2D, error) {
	h, err := d.Helix(id)
	if err != nil {
		return helix.Frame2D{}, err
	}
	if err := d.checkGrid(h); err != nil {
		return helix.Frame2D{}, err
	}
	return h.Frame2D(d.Parameters, index)
}

func (d *Design) checkGrid(h *helix.Helix) error {
	if h.GridPosition == nil {
		return nil
	}
	_, err := d.Grid(h.GridPosition.Grid)
	return err
}

// ValidateStrand checks s against the helices of the design.
func (d *Design) ValidateStrand(s *strand.Strand) error {
	return s.Validate(d, d.Parameters)
}

// Validate checks every strand and every grid reference. It reports the
// first failure in id order.
func (d *Design) Validate() error {
	for _, id := range d.HelixIDs() {
		if err := d.checkGrid(d.Helices[id]); err != nil {
			return fmt.Errorf("helix %d: %w", id, err)
		}
	}
	for _, id := range d.StrandIDs() {
		if err := d.ValidateStrand(d.Strands[id]); err != nil {
			return fmt.Errorf("strand %d: %w", id, err)
		}
	}
	return nil
}

// Clone returns a deep copy sharing no mutable state with d. Fitted curves
// are shared read-only.
func (d *Design) Clone() *Design {
	c := New(d.Parameters)
	c.Version = d.Version
	c.fit = d.fit
	for id, g := range d.Grids {
		cp := *g
		if g.BezierVertex != nil {
			bv := *g.BezierVertex
			cp.BezierVertex = &bv
		}
		c.Grids[id] = &cp
	}
	for id, h := range d.Helices {
		cp := h.Clone()
		c.Helices[id] = &cp
	}
	for id, s := range d.Strands {
		cp := s.Clone()
		c.Strands[id] = &cp
	}
	maps.Copy(c.Planes, d.Planes)
	for id, p := range d.Paths {
		cp := bezier.Path{Cyclic: p.Cyclic, Vertices: slices.Clone(p.Vertices)}
		c.Paths[id] = &cp
	}
	return c
}

func nextID[V any](m map[int]V) int {
	next := 0
	for id := range m {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// refitPath refits every helix following path id.
func (d *Design) refitPath(id int) {
	for _, hid := range d.HelixIDs() {
		h := d.Helices[hid]
		if h.PathID != nil && *h.PathID == id {
			d.refitHelix(hid, h)
		}
	}
}

func (d *Design) refitAll() {
	for _, hid := range d.HelixIDs() {
		if h := d.Helices[hid]; h.Curved() {
			d.refitHelix(hid, h)
		}
	}
}

func (d *Design) refitHelix(hid int, h *helix.Helix) {
	g, err := d.fitCurve(h)
	if err != nil {
		monitoring.Logf("[design] helix %d: curve fit failed: %v", hid, err)
	}
	h.SetCurve(g, err)
}

// fitCurve fits the analytic curve or the bezier path followed by h.
func (d *Design) fitCurve(h *helix.Helix) (*bezier.Geometry, error) {
	if h.Descriptor != nil {
		c, err := h.Descriptor.Curve()
		if err != nil {
			return nil, geomerr.Wrap(geomerr.CodeDegenerateCurve, err, "curve descriptor")
		}
		return bezier.NewGeometry(c, r3.Vec{Y: 1}, h.PathOffset, d.fit)
	}
	pathID := *h.PathID
	path, ok := d.Paths[pathID]
	if !ok {
		return nil, fmt.Errorf("path %d: %w", pathID, ErrNotFound)
	}
	curve, err := path.Instantiate(d.Planes)
	if err != nil {
		return nil, err
	}
	up := d.Planes[path.Vertices[0].Plane].Normal()
	return bezier.NewGeometry(curve, up, h.PathOffset, d.fit)
}
