package sweep

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
)

// maxCombos bounds the weight combinations of one sweep.
const maxCombos = 1000

// Request names the values to sweep. Empty weight lists keep the base
// configuration's weight; an empty seed list uses the base seed.
type Request struct {
	StericWeights    []float64 `json:"steric_weights,omitempty"`
	CrossoverWeights []float64 `json:"crossover_weights,omitempty"`
	Seeds            []uint64  `json:"seeds,omitempty"`
}

// Combo is one pair of weights.
type Combo struct {
	StericWeight    float64 `json:"steric_weight"`
	CrossoverWeight float64 `json:"crossover_weight"`
}

// ComboResult summarises the runs of one combination over all seeds.
type ComboResult struct {
	Combo
	Runs              int     `json:"runs"`
	StrainMean        float64 `json:"strain_mean"`
	StrainStddev      float64 `json:"strain_stddev"`
	StepsMean         float64 `json:"steps_mean"`
	ConvergedFraction float64 `json:"converged_fraction"`
	Diverged          int     `json:"diverged"`
}

// Combos returns the cartesian product of the requested weights, steric
// weight varying slowest.
func (req Request) Combos(base relax.Config) []Combo {
	sw := req.StericWeights
	if len(sw) == 0 {
		sw = []float64{base.StericWeight}
	}
	xw := req.CrossoverWeights
	if len(xw) == 0 {
		xw = []float64{base.CrossoverWeight}
	}
	out := make([]Combo, 0, len(sw)*len(xw))
	for _, s := range sw {
		for _, x := range xw {
			out = append(out, Combo{StericWeight: s, CrossoverWeight: x})
		}
	}
	return out
}

func (req Request) seeds(base relax.Config) []uint64 {
	if len(req.Seeds) == 0 {
		return []uint64{base.Seed}
	}
	return req.Seeds
}

// Validate checks the request against the size limits.
func (req Request) Validate(base relax.Config) error {
	n := len(req.Combos(base))
	if n > maxCombos {
		return fmt.Errorf("sweep would run %d combinations (max %d)", n, maxCombos)
	}
	for _, w := range append(append([]float64(nil), req.StericWeights...), req.CrossoverWeights...) {
		if w < 0 {
			return fmt.Errorf("weight %g < 0", w)
		}
	}
	return nil
}

// Sweep relaxes d once per combination and seed. progress, if not nil, is
// called after every combination. Diverged runs count towards the summary
// with the strain of their last stable snapshot.
func Sweep(ctx context.Context, d *design.Design, base relax.Config, req Request, progress func(done, total int, r ComboResult)) ([]ComboResult, error) {
	if err := req.Validate(base); err != nil {
		return nil, err
	}
	combos := req.Combos(base)
	seeds := req.seeds(base)
	out := make([]ComboResult, 0, len(combos))
	for i, c := range combos {
		monitoring.Logf("[sweep] Combination %d/%d: steric=%.4g, crossover=%.4g, seeds=%d",
			i+1, len(combos), c.StericWeight, c.CrossoverWeight, len(seeds))
		cr, err := runCombo(ctx, d, base, c, seeds)
		if err != nil {
			return out, fmt.Errorf("combination %d/%d: %w", i+1, len(combos), err)
		}
		out = append(out, cr)
		if progress != nil {
			progress(i+1, len(combos), cr)
		}
	}
	monitoring.Logf("[sweep] Sweep complete: %d combinations evaluated", len(out))
	return out, nil
}

func runCombo(ctx context.Context, d *design.Design, base relax.Config, c Combo, seeds []uint64) (ComboResult, error) {
	cfg := base
	cfg.StericWeight = c.StericWeight
	cfg.CrossoverWeight = c.CrossoverWeight
	// The background observer belongs to single runs.
	cfg.Observer = nil

	strains := make([]float64, 0, len(seeds))
	steps := make([]float64, 0, len(seeds))
	var converged, diverged int
	for _, seed := range seeds {
		cfg.Seed = seed
		res, err := relax.Relax(ctx, d, cfg)
		switch {
		case err == nil:
		case isDiverged(err) && res != nil:
			diverged++
		default:
			return ComboResult{}, err
		}
		strains = append(strains, res.FinalStrain)
		steps = append(steps, float64(res.Steps))
		if res.Converged {
			converged++
		}
	}
	mean, std := stat.MeanStdDev(strains, nil)
	if len(strains) < 2 {
		std = 0
	}
	return ComboResult{
		Combo:             c,
		Runs:              len(seeds),
		StrainMean:        mean,
		StrainStddev:      std,
		StepsMean:         stat.Mean(steps, nil),
		ConvergedFraction: float64(converged) / float64(len(seeds)),
		Diverged:          diverged,
	}, nil
}

// Best returns the combination with the lowest mean strain. Ties keep the
// earlier combination.
func Best(results []ComboResult) (ComboResult, bool) {
	if len(results) == 0 {
		return ComboResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.StrainMean < best.StrainMean {
			best = r
		}
	}
	return best, true
}

func isDiverged(err error) bool {
	return errors.Is(err, geomerr.ErrRelaxationDiverged)
}
