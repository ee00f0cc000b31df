// Package testutil provides shared test utilities and design fixtures.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertVecNear fails the test if got is farther than tol from want.
func AssertVecNear(t testing.TB, want, got r3.Vec, tol float64) {
	t.Helper()
	if d := r3.Norm(r3.Sub(want, got)); d > tol || math.IsNaN(d) {
		t.Errorf("vector = %v, want %v (distance %g > %g)", got, want, d, tol)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// SquareBundle returns a design with n parallel helices in a row on a
// square grid at the origin, and one strand per neighbouring pair: length
// nucleotides forward on helix i, then a cross-over to length nucleotides
// backward on helix i+1.
func SquareBundle(t testing.TB, n, length int) *design.Design {
	t.Helper()
	d := design.New(dna.Default())
	gid := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Square))
	ids := make([]int, n)
	for i := range ids {
		id, err := d.AddHelixOnGrid(gid, i, 0, 0, 0)
		AssertNoError(t, err)
		ids[i] = id
	}
	for i := 0; i+1 < n; i++ {
		s := strand.New([]strand.Domain{
			strand.HelixDomain(ids[i], 0, length, true),
			strand.HelixDomain(ids[i+1], 0, length, false),
		}, false)
		_, err := d.AddStrand(s)
		AssertNoError(t, err)
	}
	return d
}

// WavyDesign returns a design with one curved helix following a three
// vertex path in the plane x = 0.
func WavyDesign(t testing.TB) (*design.Design, int) {
	t.Helper()
	d := design.New(dna.Default())
	plane := d.AddPlane(bezier.Plane{Orientation: geom.Identity()})
	path, err := d.AddPath(bezier.Path{Vertices: []bezier.Vertex{
		{Plane: plane, Position: r2.Vec{X: 0, Y: 0}},
		{Plane: plane, Position: r2.Vec{X: 10, Y: 6}},
		{Plane: plane, Position: r2.Vec{X: 20, Y: 0}},
	}})
	AssertNoError(t, err)
	id, err := d.AddCurvedHelix(path, r2.Vec{})
	AssertNoError(t, err)
	return d, id
}
