package relax_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/testutil"
	"github.com/banshee-data/ensnano-geometry/internal/timeutil"
)

// overlapping returns two parallel helices 1.5 nm apart, well inside the
// inter-centre gap, joined by one cross-over.
func overlapping(t *testing.T) *design.Design {
	t.Helper()
	d := design.New(dna.Default())
	a := d.AddFreeHelix(r3.Vec{}, geom.Identity())
	b := d.AddFreeHelix(r3.Vec{Y: 1.5}, geom.Identity())
	_, err := d.AddStrand(strand.New([]strand.Domain{
		strand.HelixDomain(a, 0, 16, true),
		strand.HelixDomain(b, 0, 16, false),
	}, false))
	require.NoError(t, err)
	return d
}

// overlappingGrids is overlapping with each helix on its own square grid.
func overlappingGrids(t *testing.T) *design.Design {
	t.Helper()
	d := design.New(dna.Default())
	ga := d.AddGrid(grid.New(r3.Vec{}, geom.Identity(), grid.Square))
	gb := d.AddGrid(grid.New(r3.Vec{Y: 1.5}, geom.Identity(), grid.Square))
	a, err := d.AddHelixOnGrid(ga, 0, 0, 0, 0)
	require.NoError(t, err)
	b, err := d.AddHelixOnGrid(gb, 0, 0, 0, 0)
	require.NoError(t, err)
	_, err = d.AddStrand(strand.New([]strand.Domain{
		strand.HelixDomain(a, 0, 16, true),
		strand.HelixDomain(b, 0, 16, false),
	}, false))
	require.NoError(t, err)
	return d
}

func testConfig() relax.Config {
	cfg := relax.DefaultConfig()
	cfg.MaxSteps = 200
	cfg.WallClockBudget = 0
	cfg.Workers = 2
	return cfg
}

func TestRelaxLowersStrain(t *testing.T) {
	d := overlapping(t)
	cfg := testConfig()

	res, err := relax.Relax(context.Background(), d, cfg)
	require.NoError(t, err)
	assert.Greater(t, res.InitialStrain, 0.0)
	assert.LessOrEqual(t, res.FinalStrain, res.InitialStrain)
	assert.Less(t, res.FinalStrain, res.InitialStrain)
	assert.Len(t, res.History, res.Steps)

	again, err := relax.Strain(res.Snapshot, cfg)
	require.NoError(t, err)
	assert.InDelta(t, res.FinalStrain, again, 1e-9)

	for _, id := range res.Snapshot.HelixIDs() {
		assert.True(t, res.Snapshot.Helices[id].Orientation.IsUnit())
	}
}

func TestRelaxIsDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Perturbation = 0.05
	cfg.Workers = 1
	first, err := relax.Relax(context.Background(), overlapping(t), cfg)
	require.NoError(t, err)

	cfg.Workers = 4
	second, err := relax.Relax(context.Background(), overlapping(t), cfg)
	require.NoError(t, err)

	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.FinalStrain, second.FinalStrain)
	for _, id := range first.Snapshot.HelixIDs() {
		a, b := first.Snapshot.Helices[id], second.Snapshot.Helices[id]
		assert.Equal(t, a.Position, b.Position)
		assert.Equal(t, a.Orientation, b.Orientation)
	}
}

func TestRelaxLeavesInputUntouched(t *testing.T) {
	d := testutil.SquareBundle(t, 3, 12)
	before := d.Clone()

	res, err := relax.Relax(context.Background(), d, testConfig())
	require.NoError(t, err)
	for _, id := range d.HelixIDs() {
		assert.Equal(t, before.Helices[id].Position, d.Helices[id].Position)
		assert.Equal(t, before.Helices[id].Orientation, d.Helices[id].Orientation)
		assert.Equal(t, before.Helices[id].GridPosition, d.Helices[id].GridPosition)
	}
	if diff := cmp.Diff(before.Strands, d.Strands); diff != "" {
		t.Errorf("input strands changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(d.Strands, res.Snapshot.Strands); diff != "" {
		t.Errorf("snapshot strands differ (-want +got):\n%s", diff)
	}
}

func TestRelaxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := relax.Relax(ctx, overlapping(t), testConfig())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, relax.StopCancelled, res.StopReason)
	assert.False(t, res.Converged)
	assert.Zero(t, res.Steps)
	assert.Equal(t, res.InitialStrain, res.FinalStrain)
	assert.NotNil(t, res.Snapshot)
}

func TestRelaxDiverged(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStrain = 1e-3

	res, err := relax.Relax(context.Background(), overlapping(t), cfg)
	require.ErrorIs(t, err, geomerr.ErrRelaxationDiverged)
	require.NotNil(t, res)
	assert.Equal(t, relax.StopDiverged, res.StopReason)
	assert.False(t, res.Converged)
	assert.NotNil(t, res.Snapshot)
}

func TestRelaxKeepsLockedHelices(t *testing.T) {
	d := overlapping(t)
	d.Helices[0].Locked = true

	res, err := relax.Relax(context.Background(), d, testConfig())
	require.NoError(t, err)
	testutil.AssertVecNear(t, d.Helices[0].Position, res.Snapshot.Helices[0].Position, 1e-12)
	assert.NotEqual(t, d.Helices[1].Position, res.Snapshot.Helices[1].Position)
}

func TestRelaxWallClockBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSteps = 1000
	cfg.Clock = timeutil.NewSteppingClock(time.Unix(0, 0), time.Second)
	cfg.WallClockBudget = 5 * time.Second

	res, err := relax.Relax(context.Background(), overlapping(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, relax.StopWallClock, res.StopReason)
	assert.Equal(t, 4, res.Steps)
}

type countingObserver struct {
	calls    int
	lastStep int
}

func (o *countingObserver) ObserveStep(step int, strain float64, accepted bool) {
	o.calls++
	o.lastStep = step
}

func TestRelaxStepBudgetAndObserver(t *testing.T) {
	obs := &countingObserver{}
	cfg := testConfig()
	cfg.MaxSteps = 3
	cfg.Observer = obs

	res, err := relax.Relax(context.Background(), overlapping(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, relax.StopMaxSteps, res.StopReason)
	assert.Equal(t, 3, res.Steps)
	assert.Len(t, res.History, 3)
	assert.Equal(t, 3, obs.calls)
	assert.Equal(t, 3, obs.lastStep)
}

func TestRelaxGridGranularity(t *testing.T) {
	d := overlappingGrids(t)
	cfg := testConfig()
	cfg.Granularity = relax.Grids

	res, err := relax.Relax(context.Background(), d, cfg)
	require.NoError(t, err)
	assert.Less(t, res.FinalStrain, res.InitialStrain)

	s := res.Snapshot
	for _, id := range s.HelixIDs() {
		h := s.Helices[id]
		require.NotNil(t, h.GridPosition)
		g, err := s.Grid(h.GridPosition.Grid)
		require.NoError(t, err)
		want, ok := g.PositionHelix(s.Parameters, h.GridPosition.X, h.GridPosition.Y)
		require.True(t, ok)
		axis, err := h.AxisPosition(s.Parameters, h.GridPosition.AxisPos)
		require.NoError(t, err)
		testutil.AssertVecNear(t, want, axis, 1e-9)
		assert.True(t, g.Orientation.IsUnit())
	}
}

func TestRelaxRejectsBadInput(t *testing.T) {
	d := overlapping(t)
	d.Strands[0].Junctions[0] = strand.Prime3Junction
	_, err := relax.Relax(context.Background(), d, testConfig())
	assert.ErrorIs(t, err, geomerr.ErrTopologyMismatch)

	cfg := testConfig()
	cfg.Anchors = []strand.Nucl{{Helix: 9, Position: 0, Forward: true}}
	_, err = relax.Relax(context.Background(), overlapping(t), cfg)
	assert.ErrorIs(t, err, geomerr.ErrUnknownHelix)

	cfg = testConfig()
	cfg.StepSize = 0
	_, err = relax.Relax(context.Background(), overlapping(t), cfg)
	assert.Error(t, err)
}

func TestStrainTerms(t *testing.T) {
	d := overlapping(t)
	cfg := testConfig()
	full, err := relax.Strain(d, cfg)
	require.NoError(t, err)

	cfg.VolumeExclusion = false
	noSteric, err := relax.Strain(d, cfg)
	require.NoError(t, err)
	overlap := d.Parameters.InterCentreGap() - 1.5
	assert.InDelta(t, testConfig().StericWeight*overlap*overlap, full-noSteric, 1e-9)

	// Anchors sit on their target at rest.
	cfg.Anchors = []strand.Nucl{{Helix: 0, Position: 3, Forward: true}}
	anchored, err := relax.Strain(d, cfg)
	require.NoError(t, err)
	assert.InDelta(t, noSteric, anchored, 1e-12)
}

func TestConfigFromTuning(t *testing.T) {
	cfg, err := relax.ConfigFromTuning(config.DefaultTuningConfig())
	require.NoError(t, err)
	assert.Equal(t, relax.Helices, cfg.Granularity)
	assert.Equal(t, uint64(1), cfg.Seed)
	assert.Equal(t, 2000, cfg.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.WallClockBudget)
	assert.Equal(t, 20, cfg.Window)
	assert.True(t, cfg.VolumeExclusion)

	bad := "lattice"
	_, err = relax.ConfigFromTuning(&config.TuningConfig{Granularity: &bad})
	assert.Error(t, err)

	g, err := relax.ParseGranularity("grids")
	require.NoError(t, err)
	assert.Equal(t, relax.Grids, g)
	assert.Equal(t, "grids", g.String())
}
