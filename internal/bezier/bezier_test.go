package bezier

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
)

var flatPlane = map[int]Plane{0: {Orientation: geom.Identity()}}

// wavyPath is an open three-vertex path lying in the world YZ plane.
func wavyPath(t *testing.T) *Piecewise {
	t.Helper()
	p := Path{Vertices: []Vertex{
		{Plane: 0, Position: r2.Vec{X: 0, Y: 0}},
		{Plane: 0, Position: r2.Vec{X: 10, Y: 6}},
		{Plane: 0, Position: r2.Vec{X: 20, Y: 0}},
	}}
	c, err := p.Instantiate(flatPlane)
	require.NoError(t, err)
	return c
}

func bernstein(a, b, c, d r3.Vec, t float64) r3.Vec {
	s := 1 - t
	v := r3.Scale(s*s*s, a)
	v = r3.Add(v, r3.Scale(3*s*s*t, b))
	v = r3.Add(v, r3.Scale(3*s*t*t, c))
	return r3.Add(v, r3.Scale(t*t*t, d))
}

func near(t *testing.T, want, got r3.Vec, tol float64) {
	t.Helper()
	assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), tol, "want %v got %v", want, got)
}

func TestCubicMatchesBernsteinForm(t *testing.T) {
	a, b := r3.Vec{X: 0}, r3.Vec{X: 1, Y: 2}
	c, d := r3.Vec{X: 3, Y: -1, Z: 1}, r3.Vec{X: 4}
	cub := NewCubic(a, b, c, d)
	for _, u := range []float64{0, 0.1, 0.5, 0.77, 1} {
		near(t, bernstein(a, b, c, d, u), cub.Position(u), 1e-12)

		const h = 1e-6
		fd := r3.Scale(1/(2*h), r3.Sub(bernstein(a, b, c, d, u+h), bernstein(a, b, c, d, u-h)))
		near(t, fd, cub.Derivative(u), 1e-6)
	}
	// B''(0) = 6(a - 2b + c)
	want := r3.Scale(6, r3.Add(r3.Sub(a, r3.Scale(2, b)), c))
	near(t, want, cub.Acceleration(0), 1e-12)
}

func TestInstantiateTangents(t *testing.T) {
	c := wavyPath(t)
	require.Equal(t, 2, c.Segments())

	p0 := r3.Vec{}
	p1 := r3.Vec{Y: 6, Z: 10}
	p2 := r3.Vec{Z: 20}
	near(t, p0, c.Position(0), 1e-12)
	near(t, p1, c.Position(1), 1e-12)
	near(t, p2, c.Position(2), 1e-12)

	// The interior tangent is a third of the neighbour chord; the curve
	// derivative is three times the tangent vector.
	near(t, r3.Sub(p2, p0), c.Derivative(1), 1e-12)
}

func TestInstantiateTwoVerticesIsStraight(t *testing.T) {
	p := Path{Vertices: []Vertex{{Position: r2.Vec{}}, {Position: r2.Vec{X: 10}}}}
	c, err := p.Instantiate(flatPlane)
	require.NoError(t, err)

	arc, err := FitArcLength(c, DefaultFitOptions())
	require.NoError(t, err)
	assert.InDelta(t, 10, arc.Total(), 1e-9)

	tt, err := arc.ParamAt(2.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, tt, 1e-9)
}

func TestInstantiateExplicitControlPoints(t *testing.T) {
	out := r3.Vec{Y: 3, Z: 1}
	p := Path{Vertices: []Vertex{
		{Position: r2.Vec{}, PositionOut: &out},
		{Position: r2.Vec{X: 10}},
	}}
	c, err := p.Instantiate(flatPlane)
	require.NoError(t, err)
	near(t, r3.Scale(3, out), c.Derivative(0), 1e-12)
}

func TestInstantiateCyclic(t *testing.T) {
	p := Path{Cyclic: true, Vertices: []Vertex{
		{Position: r2.Vec{X: 0, Y: 0}},
		{Position: r2.Vec{X: 10, Y: 0}},
		{Position: r2.Vec{X: 10, Y: 10}},
		{Position: r2.Vec{X: 0, Y: 10}},
	}}
	c, err := p.Instantiate(flatPlane)
	require.NoError(t, err)
	assert.True(t, c.Cyclic())
	assert.Equal(t, 4, c.Segments())
	near(t, c.Position(0), c.Position(4), 1e-12)
	near(t, c.Derivative(0), c.Derivative(4), 1e-9)
}

func TestInstantiateRejects(t *testing.T) {
	_, err := Path{Vertices: []Vertex{{}}}.Instantiate(flatPlane)
	assert.True(t, errors.Is(err, geomerr.ErrDegenerateCurve))

	_, err = Path{Vertices: []Vertex{{}, {}}}.Instantiate(flatPlane)
	assert.True(t, errors.Is(err, geomerr.ErrDegenerateCurve), "coincident vertices")

	_, err = Path{Vertices: []Vertex{{Plane: 9}, {Plane: 9, Position: r2.Vec{X: 1}}}}.Instantiate(flatPlane)
	assert.Error(t, err)
}

func TestZeroSpeedIsDegenerate(t *testing.T) {
	a := r3.Vec{}
	cusp := NewPiecewise(NewCubic(a, a, r3.Vec{X: 1, Y: 1}, r3.Vec{X: 2}))
	_, err := FitArcLength(cusp, DefaultFitOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, geomerr.ErrDegenerateCurve))
}

func polylineLength(c Curve, steps int) float64 {
	var total float64
	prev := c.Position(0)
	n := float64(c.Segments())
	for k := 1; k <= steps; k++ {
		next := c.Position(n * float64(k) / float64(steps))
		total += r3.Norm(r3.Sub(next, prev))
		prev = next
	}
	return total
}

func TestArcLengthMatchesPolyline(t *testing.T) {
	c := wavyPath(t)
	arc, err := FitArcLength(c, DefaultFitOptions())
	require.NoError(t, err)
	assert.InDelta(t, polylineLength(c, 200000), arc.Total(), 1e-6)
	assert.InDelta(t, 0, arc.Length(0), 1e-12)
	assert.InDelta(t, arc.Total(), arc.Length(2), 1e-9)
}

func TestParamAtInvertsLength(t *testing.T) {
	c := wavyPath(t)
	arc, err := FitArcLength(c, DefaultFitOptions())
	require.NoError(t, err)

	for s := 0.0; s <= arc.Total(); s += 0.37 {
		tt, err := arc.ParamAt(s)
		require.NoError(t, err)
		assert.InDelta(t, s, arc.Length(tt), 1e-8, "s=%v", s)
	}

	_, err = arc.ParamAt(-1)
	assert.True(t, errors.Is(err, geomerr.ErrIndexOutOfDeclaredRange))
	_, err = arc.ParamAt(arc.Total() + 1)
	assert.True(t, geomerr.IsNotFound(err))
}

func TestEvenSpacingAlongCurve(t *testing.T) {
	const rise = 0.332
	g, err := NewGeometry(wavyPath(t), r3.Vec{X: 1}, r2.Vec{}, DefaultFitOptions())
	require.NoError(t, err)

	prev, _, err := g.At(0)
	require.NoError(t, err)
	for i := 1; float64(i)*rise <= g.Length(); i++ {
		p, _, err := g.At(float64(i) * rise)
		require.NoError(t, err)
		assert.InDelta(t, rise, r3.Norm(r3.Sub(p, prev)), 1e-3, "i=%d", i)
		prev = p
	}
}

func TestFramesFollowTangentWithoutTwist(t *testing.T) {
	c := wavyPath(t)
	frames := NewFrameTable(c, r3.Vec{X: 1})

	prevY := frames.Frame(0).Rotate(r3.Vec{Y: 1})
	for k := 1; k <= 200; k++ {
		tt := 2 * float64(k) / 200
		q := frames.Frame(tt)
		require.True(t, q.IsUnit())
		x, y, z := q.Axes()
		near(t, r3.Unit(c.Derivative(tt)), x, 1e-9)
		assert.InDelta(t, 0, r3.Dot(x, y), 1e-9)
		assert.InDelta(t, 0, r3.Dot(y, z), 1e-9)
		// A planar curve has a rotation-minimising frame whose in-plane
		// normal never leaves the plane: the out-of-plane axis stays X.
		assert.InDelta(t, 1, math.Abs(y.X), 1e-6)
		assert.Greater(t, r3.Dot(y, prevY), 0.99)
		prevY = y
	}
}

func TestOffsetCurveKeepsDistance(t *testing.T) {
	c := wavyPath(t)
	frames := NewFrameTable(c, r3.Vec{X: 1})
	off := r2.Vec{X: 1.5, Y: -2}
	o := NewOffset(c, frames, off)

	for k := 0; k <= 20; k++ {
		tt := 2 * float64(k) / 20
		d := r3.Sub(o.Position(tt), c.Position(tt))
		assert.InDelta(t, r2.Norm(off), r3.Norm(d), 1e-9)
		assert.InDelta(t, 0, r3.Dot(d, r3.Unit(c.Derivative(tt))), 1e-9)
	}

	g, err := NewGeometry(c, r3.Vec{X: 1}, off, DefaultFitOptions())
	require.NoError(t, err)
	p, q, err := g.At(g.Length() / 2)
	require.NoError(t, err)
	assert.True(t, geom.IsFinite(p))
	assert.True(t, q.IsUnit())
}

func TestPlaneRayIntersection(t *testing.T) {
	planes := map[int]Plane{
		1: {Position: r3.Vec{X: 5}, Orientation: geom.Identity()},
		2: {Position: r3.Vec{X: 2}, Orientation: geom.Identity()},
		3: {Position: r3.Vec{X: 1}, Orientation: geom.AxisAngle(r3.Vec{Z: 1}, math.Pi/2)},
	}
	id, hit, ok := ClosestRayIntersection(planes, r3.Vec{Y: 1, Z: 3}, r3.Vec{X: 1})
	require.True(t, ok)
	assert.Equal(t, 2, id)
	assert.InDelta(t, 2, hit.Depth, 1e-12)
	assert.InDelta(t, 3, hit.X, 1e-12)
	assert.InDelta(t, 1, hit.Y, 1e-12)

	_, ok = planes[3].RayIntersection(r3.Vec{}, r3.Vec{X: 1})
	assert.False(t, ok)
}

func TestChebyshevReproducesPolynomial(t *testing.T) {
	f := func(x float64) float64 { return 3*x*x*x - x + 2 }
	nodes := chebyshevNodes(-1, 3, 5)
	values := make([]float64, len(nodes))
	for i, x := range nodes {
		values[i] = f(x)
	}
	c := fitChebyshev(values, -1, 3)
	for _, x := range []float64{-1, 0, 0.5, 2.2, 3} {
		assert.InDelta(t, f(x), c.eval(x), 1e-9)
	}
}

func TestFitOptionsFromTuning(t *testing.T) {
	deg := 12
	opts := FitOptionsFromTuning(&config.TuningConfig{ChebyshevDegree: &deg})
	assert.Equal(t, 12, opts.Degree)
	assert.Equal(t, DefaultFitOptions().QuadratureOrder, opts.QuadratureOrder)
}

func TestCachePublishesAtomically(t *testing.T) {
	var cache Cache
	_, err := cache.Load()
	assert.True(t, errors.Is(err, geomerr.ErrDegenerateCurve))

	g1, err := NewGeometry(wavyPath(t), r3.Vec{X: 1}, r2.Vec{}, DefaultFitOptions())
	require.NoError(t, err)
	cache.Store(g1, nil)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				g, err := cache.Load()
				if err == nil {
					_, _, _ = g.At(1)
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		cache.Store(g1, nil)
		cache.Store(nil, geomerr.New(geomerr.CodeDegenerateCurve, "edited"))
	}
	wg.Wait()

	_, err = cache.Load()
	assert.True(t, errors.Is(err, geomerr.ErrDegenerateCurve))
}
