package design_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/fsutil"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/testutil"
)

func TestComputeFrameOnSquareGrid(t *testing.T) {
	d := design.New(dna.Default())
	gid := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Square))
	hid, err := d.AddHelixOnGrid(gid, 0, 0, 0, 0)
	require.NoError(t, err)

	f0, err := d.ComputeFrame(hid, 0, true)
	require.NoError(t, err)
	testutil.AssertVecNear(t, r3.Vec{Z: d.Parameters.HelixRadius}, f0.Position, 1e-12)

	f10, err := d.ComputeFrame(hid, 10, true)
	require.NoError(t, err)
	assert.InDelta(t, 10*0.332, f10.Position.X, 1e-12)
	phase := math.Atan2(f10.Normal.Y, f10.Normal.Z)
	assert.InDelta(t, geom.WrapAngle(2*math.Pi*10/10.44), phase, 1e-9)

	again, err := d.ComputeFrame(hid, 10, true)
	require.NoError(t, err)
	assert.Equal(t, f10, again)
}

func TestHelixPlacementOnGrid(t *testing.T) {
	d := design.New(dna.Default())
	rot := geom.AxisAngle(r3.Vec{Y: 1}, math.Pi/2)
	gid := d.AddGrid(grid.New(r3.Vec{X: 1, Y: 2, Z: 3}, rot, grid.Honeycomb))
	hid, err := d.AddHelixOnGrid(gid, 2, -1, 5, 0.3)
	require.NoError(t, err)
	g, _ := d.Grid(gid)

	axis, err := d.Helices[hid].AxisPosition(d.Parameters, 5)
	require.NoError(t, err)
	want, _ := g.PositionHelix(d.Parameters, 2, -1)
	testutil.AssertVecNear(t, want, axis, 1e-12)
	testutil.AssertVecNear(t, g.Normal(), d.Helices[hid].AxisDirection(), 1e-12)
	assert.Equal(t, 0.3, d.Helices[hid].Roll)

	_, err = d.AddHelixOnGrid(gid, 2, -1, 0, 0)
	assert.ErrorIs(t, err, design.ErrInUse)
	_, err = d.AddHelixOnGrid(99, 0, 0, 0, 0)
	assert.ErrorIs(t, err, geomerr.ErrUnknownGrid)

	free := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Free))
	_, err = d.AddHelixOnGrid(free, 0, 0, 0, 0)
	assert.Error(t, err)
}

func TestUnknownIDs(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	_, err := d.ComputeFrame(42, 0, true)
	assert.ErrorIs(t, err, geomerr.ErrUnknownHelix)
	_, err = d.ComputeFrame2D(42, 0)
	assert.ErrorIs(t, err, geomerr.ErrUnknownHelix)

	d.Helices[0].GridPosition.Grid = 7
	_, err = d.ComputeFrame(0, 0, true)
	assert.ErrorIs(t, err, geomerr.ErrUnknownGrid)
	assert.ErrorIs(t, d.Validate(), geomerr.ErrUnknownGrid)
}

func TestRemoveReferencedHelixIsRejected(t *testing.T) {
	d := testutil.SquareBundle(t, 3, 8)
	err := d.RemoveHelix(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, geomerr.ErrTopologyMismatch)
	assert.ErrorIs(t, err, design.ErrInUse)
	assert.Contains(t, d.Helices, 1)

	for _, sid := range d.StrandIDs() {
		require.NoError(t, d.RemoveStrand(sid))
	}
	require.NoError(t, d.RemoveHelix(1))
	assert.NotContains(t, d.Helices, 1)
	assert.ErrorIs(t, d.RemoveHelix(1), geomerr.ErrUnknownHelix)
}

func TestRemoveGrid(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	assert.ErrorIs(t, d.RemoveGrid(0), design.ErrInUse)
	assert.Equal(t, []int{0, 1}, d.GridHelices(0))

	empty := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Square))
	require.NoError(t, d.RemoveGrid(empty))
	assert.ErrorIs(t, d.RemoveGrid(empty), geomerr.ErrUnknownGrid)
}

func TestAddStrandValidates(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	bad := strand.Strand{
		Domains:   []strand.Domain{strand.HelixDomain(0, 0, 4, true)},
		Junctions: []strand.Junction{strand.AdjacentJunction},
	}
	_, err := d.AddStrand(bad)
	assert.ErrorIs(t, err, geomerr.ErrTopologyMismatch)

	_, err = d.AddStrand(strand.Strand{Domains: []strand.Domain{strand.HelixDomain(5, 0, 4, true)}})
	assert.ErrorIs(t, err, geomerr.ErrUnknownHelix)

	id, err := d.AddStrand(strand.Strand{Domains: []strand.Domain{strand.HelixDomain(0, 10, 14, true)}})
	require.NoError(t, err)
	assert.Equal(t, strand.Prime3, d.Strands[id].Junctions[0].Kind)
	assert.NoError(t, d.ValidateStrand(d.Strands[id]))
}

func TestMoveGridCarriesHelices(t *testing.T) {
	d := testutil.SquareBundle(t, 3, 8)
	before := make(map[int]helix.Frame)
	for _, id := range d.HelixIDs() {
		f, err := d.ComputeFrame(id, 4, true)
		require.NoError(t, err)
		before[id] = f
	}
	rot := geom.AxisAngle(r3.Vec{X: 1, Z: 1}, 0.9)
	move := r3.Vec{X: 5, Y: -2}
	require.NoError(t, d.MoveGrid(0, move, rot))

	for _, id := range d.HelixIDs() {
		f, err := d.ComputeFrame(id, 4, true)
		require.NoError(t, err)
		// The grid sits at the origin, so rotating around its position is a
		// rotation around the origin.
		testutil.AssertVecNear(t, r3.Add(rot.Rotate(before[id].Position), move), f.Position, 1e-9)
	}
	assert.True(t, d.Grids[0].Orientation.IsUnit())
}

func TestSetParametersRespacesGrid(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	require.NoError(t, d.SetParameters(dna.OldENSnano))
	a, _ := d.Helices[0].AxisPosition(d.Parameters, 0)
	b, _ := d.Helices[1].AxisPosition(d.Parameters, 0)
	assert.InDelta(t, dna.OldENSnano.InterCentreGap(), r3.Norm(r3.Sub(a, b)), 1e-12)

	bad := dna.Default()
	bad.ZStep = -1
	assert.Error(t, d.SetParameters(bad))
	assert.Equal(t, dna.OldENSnano, d.Parameters)
}

func TestTwoDimensionalEdits(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	before, err := d.ComputeFrame2D(1, 3)
	require.NoError(t, err)
	require.NoError(t, d.Translate2D(1, r2.Vec{X: 4, Y: 1}))
	after, err := d.ComputeFrame2D(1, 3)
	require.NoError(t, err)
	assert.InDelta(t, before.Position.X+4, after.Position.X, 1e-9)
	assert.InDelta(t, before.Position.Y+1, after.Position.Y, 1e-9)
	assert.Nil(t, d.Helices[1].GridPosition)
	assert.Equal(t, []int{0}, d.GridHelices(0))

	require.NoError(t, d.Rotate2D(1, math.Pi/2, after.Position))
	rotated, err := d.ComputeFrame2D(1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0, r2.Norm(r2.Sub(after.Position, rotated.Position)), 1e-9)
	assert.InDelta(t, geom.WrapAngle(after.Angle+math.Pi/2), rotated.Angle, 1e-9)

	assert.ErrorIs(t, d.Translate2D(9, r2.Vec{}), geomerr.ErrUnknownHelix)
}

func TestCloneIsIndependent(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	c := d.Clone()
	c.Helices[0].Translate(r3.Vec{X: 100})
	c.Strands[0].Domains[0].End = 2
	require.NoError(t, c.MoveGrid(0, r3.Vec{Y: 3}, geom.Identity()))

	assert.Equal(t, 8, d.Strands[0].Domains[0].End)
	assert.Equal(t, r3.Vec{}, d.Grids[0].Position)
	f, err := d.ComputeFrame(0, 0, true)
	require.NoError(t, err)
	assert.InDelta(t, 0, f.Axis.X, 1e-12)
}

func TestCurvedHelix(t *testing.T) {
	d, id := testutil.WavyDesign(t)
	h := d.Helices[id]
	r, ok := h.DeclaredRange(d.Parameters)
	require.True(t, ok)

	prev, err := d.ComputeFrame(id, 0, true)
	require.NoError(t, err)
	for i := 1; i < r.End-1; i++ {
		f, err := d.ComputeFrame(id, i, true)
		require.NoError(t, err)
		assert.InDelta(t, d.Parameters.ZStep, r3.Norm(r3.Sub(f.Axis, prev.Axis)), 1e-4)
		prev = f
	}
	_, err = d.ComputeFrame(id, r.End, true)
	assert.ErrorIs(t, err, geomerr.ErrIndexOutOfDeclaredRange)

	// Moving the middle vertex refits the helix.
	p := *d.Paths[*h.PathID]
	p.Vertices = append([]bezier.Vertex(nil), p.Vertices...)
	p.Vertices[1].Position = r2.Vec{X: 10, Y: 12}
	require.NoError(t, d.SetPath(*h.PathID, p))
	r2nd, _ := d.Helices[id].DeclaredRange(d.Parameters)
	assert.Greater(t, r2nd.End, r.End)
}

func TestDegeneratePathIsRejected(t *testing.T) {
	d := design.New(dna.Default())
	plane := d.AddPlane(bezier.Plane{Orientation: geom.Identity()})
	_, err := d.AddPath(bezier.Path{Vertices: []bezier.Vertex{
		{Plane: plane, Position: r2.Vec{X: 1}},
		{Plane: plane, Position: r2.Vec{X: 1}},
	}})
	assert.ErrorIs(t, err, geomerr.ErrDegenerateCurve)

	_, err = d.AddCurvedHelix(12, r2.Vec{})
	assert.True(t, errors.Is(err, design.ErrNotFound))
}

func TestFreeGridKeepsOffsets(t *testing.T) {
	d := design.New(dna.Default())
	gid := d.AddGrid(grid.New(r3.Vec{X: 1}, geom.Identity(), grid.Free))
	off := r2.Vec{X: 0.7, Y: -1.9}
	hid, err := d.AddHelixOnFreeGrid(gid, off, 0, 0)
	require.NoError(t, err)
	testutil.AssertVecNear(t, d.Grids[gid].PlanePoint(off), d.Helices[hid].Position, 1e-12)

	_, err = d.AddHelixOnFreeGrid(gid, off, 0, 0)
	assert.ErrorIs(t, err, design.ErrInUse)

	seeded, err := d.AddHelixOnGrid(gid, 1, 0, 0, 0)
	require.NoError(t, err)
	want, _ := grid.LatticeOffset(grid.Square, d.Parameters, 1, 0)
	assert.Equal(t, want, d.Helices[seeded].GridPosition.Offset)
	_, err = d.AddHelixOnGrid(gid, 1, 0, 0, 0)
	assert.ErrorIs(t, err, design.ErrInUse)

	before := d.Helices[seeded].Position
	require.NoError(t, d.SetParameters(dna.Geary2014RNA))
	testutil.AssertVecNear(t, before, d.Helices[seeded].Position, 1e-12)

	require.NoError(t, d.MoveGrid(gid, r3.Vec{Y: 2}, geom.Identity()))
	testutil.AssertVecNear(t, r3.Add(before, r3.Vec{Y: 2}), d.Helices[seeded].Position, 1e-12)

	sq := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Square))
	_, err = d.AddHelixOnFreeGrid(sq, off, 0, 0)
	assert.Error(t, err)
}

func TestGridEditsAreAllOrNothing(t *testing.T) {
	d := testutil.SquareBundle(t, 2, 8)
	gid := d.Helices[0].GridPosition.Grid
	gridPos := d.Grids[gid].Position
	helixPos := d.Helices[1].Position
	d.Grids[gid].Type = grid.Type(9)

	assert.Error(t, d.MoveGrid(gid, r3.Vec{X: 6}, geom.Identity()))
	assert.Equal(t, gridPos, d.Grids[gid].Position)
	assert.Equal(t, helixPos, d.Helices[1].Position)

	assert.Error(t, d.SetParameters(dna.Geary2014RNA))
	assert.Equal(t, dna.Default(), d.Parameters)
	assert.Equal(t, helixPos, d.Helices[1].Position)
}

func TestAnalyticHelix(t *testing.T) {
	d := design.New(dna.Default())
	desc := bezier.Descriptor{Twist: &bezier.Twist{Omega: 0.2, LengthX: 1, Radius: 4, TMax: 30}}
	id, err := d.AddAnalyticHelix(desc, r3.Vec{Y: 5}, geom.Identity())
	require.NoError(t, err)
	desc.Twist.Radius = 1
	assert.Equal(t, 4.0, d.Helices[id].Descriptor.Twist.Radius)

	r, ok := d.Helices[id].DeclaredRange(d.Parameters)
	require.True(t, ok)
	for _, fwd := range []bool{true, false} {
		prev, err := d.ComputeFrame(id, r.Start, fwd)
		require.NoError(t, err)
		for i := r.Start + 1; i < r.End; i++ {
			f, err := d.ComputeFrame(id, i, fwd)
			require.NoError(t, err)
			assert.InDelta(t, d.Parameters.ZStep, r3.Norm(r3.Sub(f.Axis, prev.Axis)), 1e-3, "i=%d", i)
			prev = f
		}
		_, err = d.ComputeFrame(id, r.End, fwd)
		assert.ErrorIs(t, err, geomerr.ErrIndexOutOfDeclaredRange)
	}

	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, d.Save(fs, "/designs/twist.ens"))
	got, err := design.Load(fs, "/designs/twist.ens")
	require.NoError(t, err)
	assert.Equal(t, d.Helices[id].Descriptor, got.Helices[id].Descriptor)
	for _, i := range []int{r.Start, r.End - 1} {
		want, err := d.ComputeFrame(id, i, true)
		require.NoError(t, err)
		have, err := got.ComputeFrame(id, i, true)
		require.NoError(t, err)
		testutil.AssertVecNear(t, want.Position, have.Position, 1e-12)
	}

	_, err = d.AddAnalyticHelix(bezier.Descriptor{Torus: &bezier.Torus{BigRadius: 1, SmallRadius: 3}}, r3.Vec{}, geom.Identity())
	assert.ErrorIs(t, err, geomerr.ErrDegenerateCurve)
	assert.Len(t, d.Helices, 1)
}
