// Package grid maps integer lattice coordinates to helix origins.
//
// A Grid is a planar lattice with a 3-D pose. The plane is spanned by the
// grid's local Z (lattice x) and Y (lattice y) axes; helices standing on the
// grid run along its local X axis, the grid normal.
package grid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
)

// Type selects the lattice layout of a grid.
type Type int

const (
	// Square places helices on a square lattice.
	Square Type = iota
	// Honeycomb places helices on a hexagonal packing with alternating
	// half-pitch row offsets.
	Honeycomb
	// Free does no snapping: lattice coordinates are informational and the
	// helix position comes from its own stored offset.
	Free
)

var typeNames = map[Type]string{
	Square:    "Square",
	Honeycomb: "Honeycomb",
	Free:      "Free",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType parses a grid type name.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown grid type %q", s)
}

// MarshalJSON encodes the type as its name.
func (t Type) MarshalJSON() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown grid type %d", int(t))
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts a bare name ("Square") or the single-key object form
// ({"Square": {...}}) older files use.
func (t *Type) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var name string
	if len(data) > 0 && data[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj) != 1 {
			return fmt.Errorf("grid type object must have exactly one key, got %d", len(obj))
		}
		for k := range obj {
			name = k
		}
	} else if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BezierVertex attaches a grid to a vertex of a bezier path.
type BezierVertex struct {
	Path   int `json:"path_id"`
	Vertex int `json:"vertex_id"`
}

// Grid is a lattice with a 3-D pose.
type Grid struct {
	Position     r3.Vec        `json:"position"`
	Orientation  geom.Rotor    `json:"orientation"`
	Type         Type          `json:"grid_type"`
	Invisible    bool          `json:"invisible,omitempty"`
	BezierVertex *BezierVertex `json:"bezier_vertex,omitempty"`
}

// New returns a visible grid with a normalised orientation.
func New(position r3.Vec, orientation geom.Rotor, t Type) Grid {
	return Grid{Position: position, Orientation: orientation.Normalised(), Type: t}
}

// Normal is the direction of helices standing on the grid.
func (g Grid) Normal() r3.Vec {
	return g.Orientation.Rotate(r3.Vec{X: 1})
}

// planeAxes returns the world directions of lattice x and lattice y.
func (g Grid) planeAxes() (xDir, yDir r3.Vec) {
	return g.Orientation.Rotate(r3.Vec{Z: 1}), g.Orientation.Rotate(r3.Vec{Y: 1})
}

// PlanePoint maps a point of the grid plane to world space.
func (g Grid) PlanePoint(p r2.Vec) r3.Vec {
	xDir, yDir := g.planeAxes()
	return r3.Add(g.Position, r3.Add(r3.Scale(p.X, xDir), r3.Scale(p.Y, yDir)))
}

// PositionHelix returns the world origin of the helix at lattice (x, y). It
// reports false on a Free grid, whose helices carry their own offsets.
func (g Grid) PositionHelix(p dna.Parameters, x, y int) (r3.Vec, bool) {
	off, ok := LatticeOffset(g.Type, p, x, y)
	if !ok {
		return r3.Vec{}, false
	}
	return g.PlanePoint(off), true
}

// HelixOrigin returns the world origin of a member helix. Lattice grids use
// (x, y); a Free grid uses the plane offset stored with the helix.
func (g Grid) HelixOrigin(p dna.Parameters, x, y int, offset r2.Vec) (r3.Vec, bool) {
	if g.Type == Free {
		return g.PlanePoint(offset), true
	}
	return g.PositionHelix(p, x, y)
}

// OrientationHelix is the orientation given to member helices.
func (g Grid) OrientationHelix() geom.Rotor {
	return g.Orientation
}

// RayIntersection returns d such that origin + d*direction lies on the grid
// plane. Directions nearly parallel to the plane report false.
func (g Grid) RayIntersection(origin, direction r3.Vec) (float64, bool) {
	n := g.Normal()
	denom := r3.Dot(direction, n)
	if math.Abs(denom) < 1e-3 {
		return 0, false
	}
	return r3.Dot(r3.Sub(g.Position, origin), n) / denom, true
}

// LineIntersection returns the plane coordinates where the line crosses the
// grid.
func (g Grid) LineIntersection(origin, direction r3.Vec) (r2.Vec, bool) {
	d, ok := g.RayIntersection(origin, direction)
	if !ok {
		return r2.Vec{}, false
	}
	hit := r3.Sub(r3.Add(origin, r3.Scale(d, direction)), g.Position)
	xDir, yDir := g.planeAxes()
	return r2.Vec{X: r3.Dot(hit, xDir), Y: r3.Dot(hit, yDir)}, true
}

// InterpolateHelix returns the lattice coordinates nearest to where an axis
// crosses the grid.
func (g Grid) InterpolateHelix(p dna.Parameters, origin, axis r3.Vec) (x, y int, ok bool) {
	hit, ok := g.LineIntersection(origin, axis)
	if !ok {
		return 0, 0, false
	}
	return Interpolate(g.Type, p, hit)
}

// AngleAxis returns the angle between the grid plane and an axis.
func (g Grid) AngleAxis(axis r3.Vec) float64 {
	return math.Asin(math.Min(1, math.Abs(r3.Dot(r3.Unit(axis), g.Normal()))))
}

// Translate moves the grid by v.
func (g *Grid) Translate(v r3.Vec) {
	g.Position = r3.Add(g.Position, v)
}

// Rotate applies rotation around origin and renormalises the orientation.
func (g *Grid) Rotate(rotation geom.Rotor, origin r3.Vec) {
	g.Position = r3.Add(origin, rotation.Rotate(r3.Sub(g.Position, origin)))
	g.Orientation = rotation.Mul(g.Orientation).Normalised()
}
