package sweep_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/sweep"
)

func strained(t *testing.T) *design.Design {
	t.Helper()
	d := design.New(dna.Default())
	a := d.AddFreeHelix(r3.Vec{}, geom.Identity())
	b := d.AddFreeHelix(r3.Vec{Y: 1.8}, geom.Identity())
	_, err := d.AddStrand(strand.New([]strand.Domain{
		strand.HelixDomain(a, 0, 12, true),
		strand.HelixDomain(b, 0, 12, false),
	}, false))
	require.NoError(t, err)
	return d
}

func baseConfig() relax.Config {
	cfg := relax.DefaultConfig()
	cfg.MaxSteps = 50
	cfg.WallClockBudget = 0
	cfg.Workers = 1
	return cfg
}

func wait(t *testing.T, r *sweep.Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(30 * time.Second):
		t.Fatal("runner did not finish")
	}
}

func TestSweepSummarises(t *testing.T) {
	req := sweep.Request{
		StericWeights:    []float64{1, 4},
		CrossoverWeights: []float64{0.5},
		Seeds:            []uint64{1, 2, 3},
	}
	var calls int
	results, err := sweep.Sweep(context.Background(), strained(t), baseConfig(), req,
		func(done, total int, _ sweep.ComboResult) {
			calls++
			assert.Equal(t, 2, total)
			assert.Equal(t, calls, done)
		})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, calls)
	for i, w := range []float64{1, 4} {
		r := results[i]
		assert.Equal(t, w, r.StericWeight)
		assert.Equal(t, 0.5, r.CrossoverWeight)
		assert.Equal(t, 3, r.Runs)
		assert.GreaterOrEqual(t, r.StrainStddev, 0.0)
		assert.Positive(t, r.StepsMean)
	}
	best, ok := sweep.Best(results)
	require.True(t, ok)
	assert.LessOrEqual(t, best.StrainMean, results[0].StrainMean)
	assert.LessOrEqual(t, best.StrainMean, results[1].StrainMean)
}

func TestSweepDefaultsToBaseConfig(t *testing.T) {
	base := baseConfig()
	combos := sweep.Request{}.Combos(base)
	require.Len(t, combos, 1)
	assert.Equal(t, base.StericWeight, combos[0].StericWeight)
	assert.Equal(t, base.CrossoverWeight, combos[0].CrossoverWeight)

	_, err := sweep.Sweep(context.Background(), strained(t), base, sweep.Request{StericWeights: []float64{-1}}, nil)
	assert.Error(t, err)

	many := make([]float64, 40)
	err = sweep.Request{StericWeights: many, CrossoverWeights: many}.Validate(base)
	assert.Error(t, err)

	_, ok := sweep.Best(nil)
	assert.False(t, ok)
}

type stepCounter struct{ n atomic.Int64 }

func (c *stepCounter) ObserveStep(int, float64, bool) { c.n.Add(1) }

func TestRunnerRelax(t *testing.T) {
	obs := &stepCounter{}
	r := sweep.NewRunner(obs)
	assert.Equal(t, sweep.StatusIdle, r.State().Status)

	var outcome sweep.Outcome
	r.OnRelaxComplete(func(o sweep.Outcome) { outcome = o })

	d := strained(t)
	require.NoError(t, r.StartRelax(context.Background(), d, baseConfig()))
	wait(t, r)

	s := r.State()
	assert.Equal(t, sweep.StatusComplete, s.Status)
	assert.Equal(t, sweep.KindRelax, s.Kind)
	require.NotNil(t, s.Relax)
	assert.LessOrEqual(t, s.Relax.FinalStrain, s.Relax.InitialStrain)
	assert.NotEmpty(t, s.Relax.StopReason)
	assert.NotNil(t, s.CompletedAt)

	require.NoError(t, outcome.Err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, s.Relax.FinalStrain, outcome.Result.FinalStrain)
	assert.Equal(t, int64(outcome.Result.Steps), obs.n.Load())
}

func TestRunnerStop(t *testing.T) {
	r := sweep.NewRunner(nil)
	cfg := baseConfig()
	cfg.MaxSteps = 1_000_000
	cfg.Perturbation = 0.5
	cfg.Window = 1_000_000

	require.NoError(t, r.StartRelax(context.Background(), strained(t), cfg))
	assert.ErrorIs(t, r.StartRelax(context.Background(), strained(t), cfg), sweep.ErrBusy)
	r.Stop()
	wait(t, r)

	s := r.State()
	assert.Equal(t, sweep.StatusError, s.Status)
	assert.Contains(t, s.Error, "context canceled")
	require.NotNil(t, s.Relax)
	assert.Equal(t, relax.StopCancelled, s.Relax.StopReason)
}

func TestRunnerSweep(t *testing.T) {
	r := sweep.NewRunner(nil)
	req := sweep.Request{CrossoverWeights: []float64{0.5, 1, 2}, Seeds: []uint64{7}}
	require.NoError(t, r.StartSweep(context.Background(), strained(t), baseConfig(), req))
	wait(t, r)

	s := r.State()
	assert.Equal(t, sweep.StatusComplete, s.Status)
	assert.Equal(t, sweep.KindSweep, s.Kind)
	assert.Equal(t, 3, s.TotalCombos)
	assert.Equal(t, 3, s.CompletedCombos)
	assert.Len(t, s.Results, 3)
	require.NotNil(t, s.Request)

	assert.Error(t, r.StartSweep(context.Background(), strained(t), baseConfig(),
		sweep.Request{CrossoverWeights: []float64{-2}}))
}
