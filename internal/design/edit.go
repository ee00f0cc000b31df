package design

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
)

// AddGrid stores g under a fresh id.
func (d *Design) AddGrid(g grid.Grid) int {
	id := nextID(d.Grids)
	g.Orientation = g.Orientation.Normalised()
	d.Grids[id] = &g
	return id
}

// RemoveGrid deletes grid id. Grids that still hold helices are kept and
// ErrInUse is returned.
func (d *Design) RemoveGrid(id int) error {
	if _, err := d.Grid(id); err != nil {
		return err
	}
	if members := d.GridHelices(id); len(members) > 0 {
		return fmt.Errorf("grid %d holds helices %v: %w", id, members, ErrInUse)
	}
	delete(d.Grids, id)
	return nil
}

// placement is a pose computed for a grid helix but not yet applied.
type placement struct {
	helix       *helix.Helix
	position    r3.Vec
	orientation geom.Rotor
}

// place computes the pose of a helix standing at gp on g. Index AxisPos of
// the helix lies on the grid plane.
func place(g grid.Grid, p dna.Parameters, gp helix.GridPosition) (r3.Vec, geom.Rotor, error) {
	origin, ok := g.HelixOrigin(p, gp.X, gp.Y, gp.Offset)
	if !ok {
		return r3.Vec{}, geom.Rotor{}, fmt.Errorf("grid %d: cannot place on %v", gp.Grid, g.Type)
	}
	shift := float64(gp.AxisPos) * p.ZStep
	return r3.Sub(origin, r3.Scale(shift, g.Normal())), g.OrientationHelix(), nil
}

// placements computes the poses of the helices of grid id as if the grid
// were g and the parameters p. Nothing is modified.
func (d *Design) placements(id int, g grid.Grid, p dna.Parameters) ([]placement, error) {
	var out []placement
	for _, hid := range d.GridHelices(id) {
		h := d.Helices[hid]
		pos, rot, err := place(g, p, *h.GridPosition)
		if err != nil {
			return nil, fmt.Errorf("helix %d: %w", hid, err)
		}
		out = append(out, placement{helix: h, position: pos, orientation: rot})
	}
	return out, nil
}

func apply(ps []placement, p dna.Parameters) {
	for _, pl := range ps {
		pl.helix.Position = pl.position
		pl.helix.Orientation = pl.orientation
		pl.helix.Roll = pl.helix.GridPosition.Roll
		pl.helix.SyncIsometry(p)
	}
}

// addOnGrid places a new straight helix at gp and stores it.
func (d *Design) addOnGrid(gp helix.GridPosition) (int, error) {
	g, err := d.Grid(gp.Grid)
	if err != nil {
		return 0, err
	}
	h := helix.New(r3.Vec{}, geom.Identity())
	h.GridPosition = &gp
	pos, rot, err := place(*g, d.Parameters, gp)
	if err != nil {
		return 0, err
	}
	apply([]placement{{helix: &h, position: pos, orientation: rot}}, d.Parameters)
	id := nextID(d.Helices)
	d.Helices[id] = &h
	return id, nil
}

// AddHelixOnGrid places a new straight helix at lattice (x, y) of grid
// gridID. Occupied lattice points are rejected. On a Free grid the helix
// starts at the Square lattice point of (x, y) and keeps that offset when
// the parameters change.
func (d *Design) AddHelixOnGrid(gridID, x, y, axisPos int, roll float64) (int, error) {
	g, err := d.Grid(gridID)
	if err != nil {
		return 0, err
	}
	gp := helix.GridPosition{Grid: gridID, X: x, Y: y, AxisPos: axisPos, Roll: roll}
	if g.Type == grid.Free {
		gp.Offset, _ = grid.LatticeOffset(grid.Square, d.Parameters, x, y)
	}
	if err := d.checkFree(gp, g.Type); err != nil {
		return 0, err
	}
	return d.addOnGrid(gp)
}

// AddHelixOnFreeGrid places a new straight helix at plane point offset of
// Free grid gridID. Its lattice coordinates are the nearest Square lattice
// point, kept for display only.
func (d *Design) AddHelixOnFreeGrid(gridID int, offset r2.Vec, axisPos int, roll float64) (int, error) {
	g, err := d.Grid(gridID)
	if err != nil {
		return 0, err
	}
	if g.Type != grid.Free {
		return 0, fmt.Errorf("grid %d is %v, not Free", gridID, g.Type)
	}
	x, y, _ := grid.Interpolate(grid.Square, d.Parameters, offset)
	gp := helix.GridPosition{Grid: gridID, X: x, Y: y, AxisPos: axisPos, Roll: roll, Offset: offset}
	if err := d.checkFree(gp, g.Type); err != nil {
		return 0, err
	}
	return d.addOnGrid(gp)
}

// checkFree rejects gp when another helix already stands there: the same
// lattice point, or the same offset on a Free grid.
func (d *Design) checkFree(gp helix.GridPosition, t grid.Type) error {
	for _, hid := range d.GridHelices(gp.Grid) {
		other := d.Helices[hid].GridPosition
		taken := other.X == gp.X && other.Y == gp.Y
		if t == grid.Free {
			taken = other.Offset == gp.Offset
		}
		if taken {
			return fmt.Errorf("grid %d (%d, %d) holds helix %d: %w", gp.Grid, gp.X, gp.Y, hid, ErrInUse)
		}
	}
	return nil
}

// AddFreeHelix stores a straight helix that belongs to no grid.
func (d *Design) AddFreeHelix(position r3.Vec, orientation geom.Rotor) int {
	h := helix.New(position, orientation)
	h.SyncIsometry(d.Parameters)
	id := nextID(d.Helices)
	d.Helices[id] = &h
	return id
}

// AddPlane stores a bezier support plane.
func (d *Design) AddPlane(p bezier.Plane) int {
	id := nextID(d.Planes)
	p.Orientation = p.Orientation.Normalised()
	d.Planes[id] = p
	return id
}

// AddPath stores a bezier path after checking that it can be instantiated.
func (d *Design) AddPath(p bezier.Path) (int, error) {
	if _, err := p.Instantiate(d.Planes); err != nil {
		return 0, err
	}
	id := nextID(d.Paths)
	d.Paths[id] = &p
	return id, nil
}

// SetPath replaces path id and refits the helices that follow it. The
// previous path is kept if the new one cannot be instantiated.
func (d *Design) SetPath(id int, p bezier.Path) error {
	if _, ok := d.Paths[id]; !ok {
		return fmt.Errorf("path %d: %w", id, ErrNotFound)
	}
	if _, err := p.Instantiate(d.Planes); err != nil {
		return err
	}
	d.Paths[id] = &p
	d.refitPath(id)
	return nil
}

// AddCurvedHelix adds a helix following path pathID at offset in the path
// frame. The fit runs immediately; a degenerate path is reported and no
// helix is added.
func (d *Design) AddCurvedHelix(pathID int, offset r2.Vec) (int, error) {
	h := helix.New(r3.Vec{}, geom.Identity())
	pid := pathID
	h.PathID = &pid
	h.PathOffset = offset
	return d.addCurved(&h)
}

// AddAnalyticHelix adds a helix following the analytic curve desc, placed
// in world space by position and orientation.
func (d *Design) AddAnalyticHelix(desc bezier.Descriptor, position r3.Vec, orientation geom.Rotor) (int, error) {
	h := helix.New(position, orientation)
	desc = desc.Clone()
	h.Descriptor = &desc
	return d.addCurved(&h)
}

func (d *Design) addCurved(h *helix.Helix) (int, error) {
	g, err := d.fitCurve(h)
	if err != nil {
		return 0, err
	}
	h.SetCurve(g, nil)
	h.SyncIsometry(d.Parameters)
	id := nextID(d.Helices)
	d.Helices[id] = h
	return id, nil
}

// RemoveHelix deletes helix id. A helix that a strand domain refers to is
// kept and the error matches both ErrTopologyMismatch and ErrInUse.
func (d *Design) RemoveHelix(id int) error {
	if _, err := d.Helix(id); err != nil {
		return err
	}
	for _, sid := range d.StrandIDs() {
		for i, dom := range d.Strands[sid].Domains {
			if dom.Kind == strand.HelixDomainKind && dom.Helix == id {
				return geomerr.Wrap(geomerr.CodeTopologyMismatch, ErrInUse,
					"helix %d is used by strand %d domain %d", id, sid, i)
			}
		}
	}
	delete(d.Helices, id)
	return nil
}

// AddStrand validates s and stores it under a fresh id.
func (d *Design) AddStrand(s strand.Strand) (int, error) {
	if len(s.Junctions) == 0 {
		s.Junctions = strand.ReadJunctions(s.Domains, s.Cyclic)
	}
	if err := d.ValidateStrand(&s); err != nil {
		return 0, err
	}
	id := nextID(d.Strands)
	d.Strands[id] = &s
	return id, nil
}

// RemoveStrand deletes strand id.
func (d *Design) RemoveStrand(id int) error {
	if _, err := d.Strand(id); err != nil {
		return err
	}
	delete(d.Strands, id)
	return nil
}

// MoveGrid applies rotation around the grid position, then translation, and
// carries the member helices along. Nothing changes if a helix cannot be
// placed.
func (d *Design) MoveGrid(id int, translation r3.Vec, rotation geom.Rotor) error {
	g, err := d.Grid(id)
	if err != nil {
		return err
	}
	moved := *g
	moved.Rotate(rotation, moved.Position)
	moved.Translate(translation)
	ps, err := d.placements(id, moved, d.Parameters)
	if err != nil {
		return err
	}
	*g = moved
	apply(ps, d.Parameters)
	return nil
}

// SetParameters replaces the DNA parameters. Lattice spacing depends on
// them, so every grid helix is placed again. Nothing changes if a helix
// cannot be placed.
func (d *Design) SetParameters(p dna.Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var all []placement
	for _, id := range d.GridIDs() {
		ps, err := d.placements(id, *d.Grids[id], p)
		if err != nil {
			return err
		}
		all = append(all, ps...)
	}
	monitoring.Logf("[design] parameters %v -> %v", d.Parameters.ClosestNamedSet(), p.ClosestNamedSet())
	d.Parameters = p
	apply(all, p)
	for _, id := range d.HelixIDs() {
		d.Helices[id].SyncIsometry(p)
	}
	return nil
}

// detach prepares a helix for a pose edit that its grid cannot express.
func (d *Design) detach(id int) (*helix.Helix, error) {
	h, err := d.Helix(id)
	if err != nil {
		return nil, err
	}
	if h.GridPosition != nil {
		monitoring.Logf("[design] helix %d leaves grid %d", id, h.GridPosition.Grid)
		h.GridPosition = nil
	}
	return h, nil
}

// Translate2D moves helix id in the 2-D view. Grid helices leave their grid.
func (d *Design) Translate2D(id int, delta r2.Vec) error {
	h, err := d.detach(id)
	if err != nil {
		return err
	}
	h.Translate2D(d.Parameters, delta)
	return nil
}

// Rotate2D rotates helix id around center in the 2-D view. Grid helices
// leave their grid.
func (d *Design) Rotate2D(id int, angle float64, center r2.Vec) error {
	h, err := d.detach(id)
	if err != nil {
		return err
	}
	h.Rotate2D(d.Parameters, angle, center)
	return nil
}

// SetHelixRoll changes the roll of helix id.
func (d *Design) SetHelixRoll(id int, roll float64) error {
	h, err := d.Helix(id)
	if err != nil {
		return err
	}
	h.SetRoll(roll)
	return nil
}
