package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/ensnano-geometry/internal/dna"
)

// Coord is an integer lattice coordinate.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pitch is the square lattice spacing, equal to the centre-to-centre gap of
// two touching helices.
func Pitch(p dna.Parameters) float64 {
	return 2*p.HelixRadius + p.InterHelixGap
}

// honeycombRadius is half the honeycomb neighbour distance.
func honeycombRadius(p dna.Parameters) float64 {
	return p.InterHelixGap/2 + p.HelixRadius
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// lowerRow reports whether (x, y) sits on the shifted half of a honeycomb row.
func lowerRow(x, y int) bool {
	return abs(x)%2 != abs(y)%2
}

// LatticeOffset maps (x, y) to plane coordinates. Free grids report false.
// Lattice y grows downwards on screen, hence the negated plane Y.
func LatticeOffset(t Type, p dna.Parameters, x, y int) (r2.Vec, bool) {
	switch t {
	case Square:
		pitch := Pitch(p)
		return r2.Vec{X: float64(x) * pitch, Y: -float64(y) * pitch}, true
	case Honeycomb:
		r := honeycombRadius(p)
		upper := -3 * r * float64(y)
		v := r2.Vec{X: float64(x) * r * math.Sqrt(3), Y: upper}
		if lowerRow(x, y) {
			v.Y = upper - r
		}
		return v, true
	case Free:
		return r2.Vec{}, false
	default:
		return r2.Vec{}, false
	}
}

// Interpolate returns the lattice point nearest to plane point pt.
func Interpolate(t Type, p dna.Parameters, pt r2.Vec) (x, y int, ok bool) {
	switch t {
	case Square:
		pitch := Pitch(p)
		return int(math.Round(pt.X / pitch)), int(math.Round(-pt.Y / pitch)), true
	case Honeycomb:
		r := honeycombRadius(p)
		gx := int(math.Round(pt.X / (r * math.Sqrt(3))))
		gy := int(math.Floor(pt.Y / (-3 * r)))
		bestX, bestY := gx, gy
		best := math.Inf(1)
		// Rows interleave, so the floor guess can be off by one in y and the
		// rounded guess by one in x.
		for dx := -2; dx <= 2; dx++ {
			for dy := -2; dy <= 2; dy++ {
				cand, _ := LatticeOffset(Honeycomb, p, gx+dx, gy+dy)
				if d := r2.Norm2(r2.Sub(cand, pt)); d < best {
					bestX, bestY, best = gx+dx, gy+dy, d
				}
			}
		}
		return bestX, bestY, true
	case Free:
		return 0, 0, false
	default:
		return 0, 0, false
	}
}

// Neighbours lists the lattice points at exactly one pitch from (x, y).
func Neighbours(t Type, x, y int) []Coord {
	switch t {
	case Square:
		return []Coord{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}}
	case Honeycomb:
		vertical := Coord{x, y - 1}
		if lowerRow(x, y) {
			vertical = Coord{x, y + 1}
		}
		return []Coord{{x + 1, y}, {x - 1, y}, vertical}
	case Free:
		return nil
	default:
		return nil
	}
}
