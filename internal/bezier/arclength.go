package bezier

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
)

// FitOptions control the arc-length fit and its inversion.
type FitOptions struct {
	// Degree of the Chebyshev series fitted to each segment.
	Degree int
	// QuadratureOrder is the number of Gauss-Legendre nodes used to
	// integrate the speed at each Chebyshev node.
	QuadratureOrder int
	// Tolerance is the absolute arc-length tolerance of the inversion, in nm.
	Tolerance float64
	// MaxIter bounds the inversion iterations.
	MaxIter int
	// MinSpeed is the speed below which a curve is degenerate.
	MinSpeed float64
}

// DefaultFitOptions returns the options used when nothing is configured.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Degree:          24,
		QuadratureOrder: 16,
		Tolerance:       1e-9,
		MaxIter:         64,
		MinSpeed:        1e-6,
	}
}

// FitOptionsFromTuning builds fit options from the tuning config.
func FitOptionsFromTuning(cfg *config.TuningConfig) FitOptions {
	opts := DefaultFitOptions()
	opts.Degree = cfg.GetChebyshevDegree()
	opts.QuadratureOrder = cfg.GetQuadratureOrder()
	opts.Tolerance = cfg.GetInversionTolerance()
	opts.MaxIter = cfg.GetInversionMaxIter()
	return opts
}

// speedSamplesPerDegree sets how densely the speed is sampled for zeros.
const speedSamplesPerDegree = 4

// ArcLength is the fitted map t -> s from curve parameter to arc length and
// its inverse.
type ArcLength struct {
	curve   Curve
	fits    []chebyshev
	offsets []float64 // arc length at the start of each segment, plus total
	opts    FitOptions
}

// FitArcLength fits L(t) = ∫0^t |C'(u)| du on each segment of c. The value at
// each Chebyshev node is a fixed-order Gauss-Legendre quadrature of the
// speed. Curves with a near-zero speed anywhere fail with
// ErrDegenerateCurve.
func FitArcLength(c Curve, opts FitOptions) (*ArcLength, error) {
	n := c.Segments()
	if n < 1 {
		return nil, geomerr.New(geomerr.CodeDegenerateCurve, "curve has no segment")
	}
	a := &ArcLength{
		curve:   c,
		fits:    make([]chebyshev, n),
		offsets: make([]float64, n+1),
		opts:    opts,
	}
	for i := 0; i < n; i++ {
		seg := float64(i)
		speed := func(u float64) float64 { return r3.Norm(c.Derivative(seg + u)) }

		samples := speedSamplesPerDegree * (opts.Degree + 1)
		for k := 0; k <= samples; k++ {
			u := float64(k) / float64(samples)
			v := speed(u)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < opts.MinSpeed {
				monitoring.Logf("[bezier] segment %d: speed %g at u=%.3f", i, v, u)
				return nil, geomerr.New(geomerr.CodeDegenerateCurve,
					"segment %d has speed %g at t=%.4f", i, v, seg+u)
			}
		}

		nodes := chebyshevNodes(0, 1, opts.Degree)
		values := make([]float64, len(nodes))
		for k, u := range nodes {
			values[k] = quad.Fixed(speed, 0, u, opts.QuadratureOrder, quad.Legendre{}, 0)
		}
		a.fits[i] = fitChebyshev(values, 0, 1)
		a.offsets[i+1] = a.offsets[i] + quad.Fixed(speed, 0, 1, opts.QuadratureOrder, quad.Legendre{}, 0)
	}
	return a, nil
}

// Total returns the length of the whole curve.
func (a *ArcLength) Total() float64 {
	return a.offsets[len(a.offsets)-1]
}

// Length returns the arc length from 0 to t.
func (a *ArcLength) Length(t float64) float64 {
	n := len(a.fits)
	switch {
	case t <= 0:
		return 0
	case t >= float64(n):
		return a.Total()
	}
	i := int(math.Floor(t))
	return a.offsets[i] + a.fits[i].eval(t-float64(i))
}

// ParamAt inverts the fit: it returns t such that Length(t) = s within the
// configured tolerance. Arc lengths outside [0, Total()] fail with
// ErrIndexOutOfDeclaredRange.
func (a *ArcLength) ParamAt(s float64) (float64, error) {
	tol := a.opts.Tolerance
	if math.IsNaN(s) || s < -tol || s > a.Total()+tol {
		return 0, geomerr.New(geomerr.CodeIndexOutOfDeclaredRange,
			"arc length %.4f outside [0, %.4f]", s, a.Total())
	}
	s = math.Max(0, math.Min(a.Total(), s))

	n := len(a.fits)
	i := sort.Search(n, func(k int) bool { return a.offsets[k+1] >= s })
	if i == n {
		i = n - 1
	}
	seg := float64(i)
	target := s - a.offsets[i]
	fit := a.fits[i]

	lo, hi := 0.0, 1.0
	u := target / (a.offsets[i+1] - a.offsets[i])
	for iter := 0; iter < a.opts.MaxIter; iter++ {
		f := fit.eval(u) - target
		if math.Abs(f) <= tol {
			break
		}
		if f > 0 {
			hi = u
		} else {
			lo = u
		}
		next := u - f/r3.Norm(a.curve.Derivative(seg+u))
		if math.IsNaN(next) || next <= lo || next >= hi {
			next = (lo + hi) / 2
		}
		u = next
	}
	return seg + u, nil
}

// Geometry is a fitted curve ready for nucleotide placement.
type Geometry struct {
	curve  Curve
	frames *FrameTable
	arc    *ArcLength
}

// NewGeometry fits the curve parallel to path at offset. The frame at the
// start of the path has its Y axis aligned with up.
func NewGeometry(path Curve, up r3.Vec, offset r2.Vec, opts FitOptions) (*Geometry, error) {
	if _, err := FitArcLength(path, opts); err != nil {
		return nil, err
	}
	frames := NewFrameTable(path, up)
	c := path
	if offset != (r2.Vec{}) {
		c = NewOffset(path, frames, offset)
	}
	arc, err := FitArcLength(c, opts)
	if err != nil {
		return nil, fmt.Errorf("offset curve: %w", err)
	}
	return &Geometry{curve: c, frames: frames, arc: arc}, nil
}

// Length returns the arc length of the fitted curve.
func (g *Geometry) Length() float64 {
	return g.arc.Total()
}

// At returns the point at arc length s and the frame there. The frame maps
// local X onto the tangent.
func (g *Geometry) At(s float64) (r3.Vec, geom.Rotor, error) {
	t, err := g.arc.ParamAt(s)
	if err != nil {
		return r3.Vec{}, geom.Rotor{}, err
	}
	return g.curve.Position(t), g.frames.FrameAlong(t, g.curve.Derivative(t)), nil
}

// Cache publishes a fitted geometry for concurrent readers. Refits replace
// the whole value at once, so a reader sees either the old or the new fit.
type Cache struct {
	p atomic.Pointer[cacheEntry]
}

type cacheEntry struct {
	geometry *Geometry
	err      error
}

// Store publishes a fit result.
func (c *Cache) Store(g *Geometry, err error) {
	c.p.Store(&cacheEntry{geometry: g, err: err})
}

// Load returns the last published result. An empty cache yields
// ErrDegenerateCurve.
func (c *Cache) Load() (*Geometry, error) {
	e := c.p.Load()
	if e == nil {
		return nil, geomerr.New(geomerr.CodeDegenerateCurve, "curve not fitted")
	}
	return e.geometry, e.err
}
