package bezier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
)

// defaultTangentNorm scales the chord between a vertex's neighbours into its
// tangent vector when no explicit control point is given.
const defaultTangentNorm = 1.0 / 3.0

// minVertexSeparation is the distance below which two consecutive vertices
// count as coincident.
const minVertexSeparation = 1e-6

// Plane is a support plane on which path vertices are drawn. Like a grid, its
// local X axis is the normal and plane coordinates run along local Z and Y.
type Plane struct {
	Position    r3.Vec     `json:"position"`
	Orientation geom.Rotor `json:"orientation"`
}

// Normal returns the plane normal.
func (p Plane) Normal() r3.Vec {
	return p.Orientation.Rotate(r3.Vec{X: 1})
}

// PlanePoint maps plane coordinates to world space.
func (p Plane) PlanePoint(v r2.Vec) r3.Vec {
	xDir := p.Orientation.Rotate(r3.Vec{Z: 1})
	yDir := p.Orientation.Rotate(r3.Vec{Y: 1})
	return r3.Add(p.Position, r3.Add(r3.Scale(v.X, xDir), r3.Scale(v.Y, yDir)))
}

// Intersection is where a ray meets a plane.
type Intersection struct {
	X, Y  float64
	Depth float64
}

// RayIntersection intersects the ray origin + d*direction with the plane.
// Rays nearly parallel to the plane report false.
func (p Plane) RayIntersection(origin, direction r3.Vec) (Intersection, bool) {
	n := p.Normal()
	denom := r3.Dot(direction, n)
	if math.Abs(denom) < 1e-3 {
		return Intersection{}, false
	}
	d := r3.Dot(r3.Sub(p.Position, origin), n) / denom
	hit := r3.Sub(r3.Add(origin, r3.Scale(d, direction)), p.Position)
	return Intersection{
		X:     r3.Dot(hit, p.Orientation.Rotate(r3.Vec{Z: 1})),
		Y:     r3.Dot(hit, p.Orientation.Rotate(r3.Vec{Y: 1})),
		Depth: d,
	}, true
}

// ClosestRayIntersection returns the plane hit nearest to the ray origin.
// Ties go to the smaller id.
func ClosestRayIntersection(planes map[int]Plane, origin, direction r3.Vec) (int, Intersection, bool) {
	ids := make([]int, 0, len(planes))
	for id := range planes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	bestID, found := 0, false
	var best Intersection
	for _, id := range ids {
		hit, ok := planes[id].RayIntersection(origin, direction)
		if !ok {
			continue
		}
		if !found || hit.Depth < best.Depth {
			bestID, best, found = id, hit, true
		}
	}
	return bestID, best, found
}

// Vertex is a path vertex drawn on a plane. PositionIn and PositionOut
// override the derived incoming and outgoing control points.
type Vertex struct {
	Plane       int     `json:"plane_id"`
	Position    r2.Vec  `json:"position"`
	PositionIn  *r3.Vec `json:"position_in,omitempty"`
	PositionOut *r3.Vec `json:"position_out,omitempty"`
}

// Path is an ordered list of vertices joined by cubic segments.
type Path struct {
	Vertices []Vertex `json:"vertices"`
	Cyclic   bool     `json:"cyclic,omitempty"`
}

// end is a resolved vertex with its tangent vectors.
type end struct {
	position  r3.Vec
	vectorIn  r3.Vec
	vectorOut r3.Vec
}

// Instantiate resolves the path on its planes into a piecewise curve.
//
// Interior tangents default to a third of the chord between the neighbouring
// vertices. End tangents of an open path point at half the way to the
// neighbouring control point. A two-vertex path is a straight segment.
func (p Path) Instantiate(planes map[int]Plane) (*Piecewise, error) {
	n := len(p.Vertices)
	if n < 2 {
		return nil, geomerr.New(geomerr.CodeDegenerateCurve, "path needs at least 2 vertices, got %d", n)
	}
	pos := make([]r3.Vec, n)
	for i, v := range p.Vertices {
		plane, ok := planes[v.Plane]
		if !ok {
			return nil, fmt.Errorf("vertex %d: unknown bezier plane %d", i, v.Plane)
		}
		pos[i] = plane.PlanePoint(v.Position)
	}
	for i := 0; i < n; i++ {
		if i == n-1 && !p.Cyclic {
			break
		}
		j := (i + 1) % n
		if r3.Norm(r3.Sub(pos[j], pos[i])) < minVertexSeparation {
			return nil, geomerr.New(geomerr.CodeDegenerateCurve, "vertices %d and %d coincide", i, j)
		}
	}

	ends := make([]end, n)
	switch {
	case n == 2 && !p.Cyclic:
		vec := r3.Scale(defaultTangentNorm, r3.Sub(pos[1], pos[0]))
		ends[0] = end{position: pos[0], vectorIn: vec, vectorOut: vec}
		ends[1] = end{position: pos[1], vectorIn: vec, vectorOut: vec}
	case p.Cyclic:
		for i := range ends {
			prev, next := pos[(i+n-1)%n], pos[(i+1)%n]
			vec := r3.Scale(defaultTangentNorm, r3.Sub(next, prev))
			ends[i] = end{position: pos[i], vectorIn: vec, vectorOut: vec}
		}
	default:
		for i := 1; i < n-1; i++ {
			vec := r3.Scale(defaultTangentNorm, r3.Sub(pos[i+1], pos[i-1]))
			ends[i] = end{position: pos[i], vectorIn: vec, vectorOut: vec}
		}
		control := r3.Sub(ends[1].position, ends[1].vectorIn)
		first := r3.Scale(0.5, r3.Sub(control, pos[0]))
		ends[0] = end{position: pos[0], vectorIn: first, vectorOut: first}

		control = r3.Add(ends[n-2].position, ends[n-2].vectorOut)
		last := r3.Scale(0.5, r3.Sub(pos[n-1], control))
		ends[n-1] = end{position: pos[n-1], vectorIn: last, vectorOut: last}
	}

	for i, v := range p.Vertices {
		if v.PositionIn != nil {
			ends[i].vectorIn = r3.Sub(ends[i].position, *v.PositionIn)
		}
		if v.PositionOut != nil {
			ends[i].vectorOut = r3.Sub(*v.PositionOut, ends[i].position)
		}
	}

	nbSegments := n - 1
	if p.Cyclic {
		nbSegments = n
	}
	segments := make([]Cubic, nbSegments)
	for i := range segments {
		a, b := ends[i], ends[(i+1)%n]
		segments[i] = NewCubic(
			a.position,
			r3.Add(a.position, a.vectorOut),
			r3.Sub(b.position, b.vectorIn),
			b.position,
		)
	}
	return &Piecewise{segments: segments, cyclic: p.Cyclic}, nil
}
