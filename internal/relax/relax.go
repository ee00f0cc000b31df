// Package relax moves helices or whole grids as rigid bodies to lower the
// strain of a design.
//
// The strain has three parts: steric overlap between helix axes closer than
// the inter-centre gap, cross-overs longer than their rest length, and
// springs holding anchored nucleotides in place. A run descends the strain
// gradient with clamped, backtracking steps and kicks the bodies with seeded
// noise when the descent stalls. The input design is never modified; the
// result carries a fresh snapshot.
package relax

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/timeutil"
)

// minScale is the smallest backtracking factor tried before a step counts
// as stalled.
const minScale = 1.0 / 1024

// StopReason says why a run ended.
type StopReason string

const (
	StopConverged StopReason = "converged"
	StopStalled   StopReason = "stalled"
	StopMaxSteps  StopReason = "max_steps"
	StopWallClock StopReason = "wall_clock"
	StopCancelled StopReason = "cancelled"
	StopDiverged  StopReason = "diverged"
	StopFailed    StopReason = "failed"

	// StopKicksExhausted ends a run whose descent stalled Window times in a
	// row after a perturbation without reaching a lower strain.
	StopKicksExhausted StopReason = "kicks_exhausted"
)

// Converged reports whether a run that ended for s reached a minimum. A
// stall counts only when perturbation is disabled.
func (s StopReason) Converged() bool {
	return s == StopConverged || s == StopStalled
}

// Result is the outcome of a run. Snapshot holds the lowest-strain poses
// seen, which is the last stable state when the run diverged.
type Result struct {
	Snapshot      *design.Design
	Converged     bool
	InitialStrain float64
	FinalStrain   float64
	Steps         int
	// History is the strain after every step.
	History    []float64
	StopReason StopReason
}

// Strain returns the strain of d under cfg without moving anything.
func Strain(d *design.Design, cfg Config) (float64, error) {
	m, err := newModel(d.Clone(), cfg)
	if err != nil {
		return 0, err
	}
	s, _, _, err := m.evaluate(m.rest())
	return s, err
}

func (m *model) rest() []pose {
	poses := make([]pose, len(m.bodies))
	for i := range poses {
		poses[i] = rest
	}
	return poses
}

// Relax runs the relaxer on a copy of d.
//
// Cancelling ctx stops the run at the next step boundary; the result then
// holds the best snapshot so far and the error is ctx.Err(). A strain that
// is not finite or exceeds cfg.MaxStrain stops the run with an error
// matching geomerr.ErrRelaxationDiverged, again with the last stable
// snapshot. Strands are validated first and are never changed.
func Relax(ctx context.Context, d *design.Design, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("relax config: %w", err)
	}
	for _, sid := range d.StrandIDs() {
		if err := d.ValidateStrand(d.Strands[sid]); err != nil {
			return nil, fmt.Errorf("strand %d: %w", sid, err)
		}
	}
	m, err := newModel(d.Clone(), cfg)
	if err != nil {
		return nil, err
	}
	r := &runner{
		m:     m,
		cfg:   cfg,
		clock: cfg.clock(),
		noise: distuv.Normal{
			Mu:    0,
			Sigma: cfg.Perturbation,
			Src:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		},
	}
	monitoring.Logf("[relax] %d bodies (%v), %d contacts, seed %d",
		len(m.bodies), cfg.Granularity, len(m.contacts), cfg.Seed)
	return r.run(ctx)
}

type runner struct {
	m     *model
	cfg   Config
	clock timeutil.Clock
	noise distuv.Normal

	res        Result
	best       []pose
	bestStrain float64
}

func (r *runner) run(ctx context.Context) (*Result, error) {
	m := r.m
	poses := m.rest()
	strain, forces, torques, err := m.evaluate(poses)
	if err != nil {
		return nil, err
	}
	r.res.InitialStrain = strain
	r.best, r.bestStrain = poses, strain
	if r.diverged(strain) {
		return r.finish(StopDiverged), geomerr.New(geomerr.CodeRelaxationDiverged,
			"initial strain %g exceeds %g", strain, r.cfg.MaxStrain)
	}

	start := r.clock.Now()
	scale := 1.0
	kicks := 0
	for r.res.Steps < r.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return r.finish(StopCancelled), err
		}
		if r.cfg.WallClockBudget > 0 && r.clock.Now().Sub(start) >= r.cfg.WallClockBudget {
			return r.finish(StopWallClock), nil
		}
		if strain == 0 {
			return r.finish(StopConverged), nil
		}
		r.res.Steps++

		cand := m.step(poses, forces, torques, scale)
		cs, cf, ct, err := m.evaluate(cand)
		if err != nil {
			return r.finish(StopFailed), err
		}
		if r.diverged(cs) {
			return r.finish(StopDiverged), geomerr.New(geomerr.CodeRelaxationDiverged,
				"strain %g at step %d", cs, r.res.Steps)
		}
		accepted := cs <= strain
		if accepted {
			poses, strain, forces, torques = cand, cs, cf, ct
			scale = min(1, 2*scale)
			if strain < r.bestStrain {
				r.best, r.bestStrain = poses, strain
				kicks = 0
			}
		} else {
			scale /= 2
		}
		stalled := scale < minScale && (r.cfg.Perturbation == 0 || kicks >= r.cfg.Window)
		if scale < minScale && !stalled {
			kicks++
			poses = r.kick(poses)
			strain, forces, torques, err = m.evaluate(poses)
			if err != nil {
				return r.finish(StopFailed), err
			}
			if r.diverged(strain) {
				return r.finish(StopDiverged), geomerr.New(geomerr.CodeRelaxationDiverged,
					"strain %g after perturbation at step %d", strain, r.res.Steps)
			}
			if strain < r.bestStrain {
				r.best, r.bestStrain = poses, strain
			}
			scale = 1
		}

		r.res.History = append(r.res.History, strain)
		if r.cfg.Observer != nil {
			r.cfg.Observer.ObserveStep(r.res.Steps, strain, accepted)
		}
		if stalled {
			return r.finish(r.stallReason()), nil
		}
		if r.settled() {
			return r.finish(StopConverged), nil
		}
	}
	return r.finish(StopMaxSteps), nil
}

func (r *runner) stallReason() StopReason {
	if r.cfg.Perturbation == 0 {
		return StopStalled
	}
	return StopKicksExhausted
}

func (r *runner) diverged(strain float64) bool {
	if math.IsNaN(strain) || math.IsInf(strain, 0) {
		return true
	}
	return r.cfg.MaxStrain > 0 && strain > r.cfg.MaxStrain
}

// settled reports whether the strain varied by less than the relative
// tolerance over the last Window steps.
func (r *runner) settled() bool {
	h := r.res.History
	if len(h) < r.cfg.Window {
		return false
	}
	w := h[len(h)-r.cfg.Window:]
	hi, lo := floats.Max(w), floats.Min(w)
	return hi-lo <= r.cfg.Tolerance*hi
}

// kick displaces every free body by seeded Gaussian noise.
func (r *runner) kick(poses []pose) []pose {
	next := make([]pose, len(poses))
	copy(next, poses)
	for i, b := range r.m.bodies {
		if b.fixed {
			continue
		}
		d := r3.Vec{X: r.noise.Rand(), Y: r.noise.Rand(), Z: r.noise.Rand()}
		next[i].T = r3.Add(next[i].T, d)
	}
	return next
}

// finish builds the snapshot from the best poses. In helix granularity a
// moved grid helix leaves its grid, since the lattice can no longer place
// it.
func (r *runner) finish(reason StopReason) *Result {
	m := r.m
	m.apply(r.best)
	for i, b := range m.bodies {
		if b.grid >= 0 || !moved(r.best[i]) {
			continue
		}
		for _, hid := range b.helices {
			if h := m.d.Helices[hid]; h.GridPosition != nil {
				monitoring.Logf("[debug] [relax] helix %d leaves grid %d", hid, h.GridPosition.Grid)
				h.GridPosition = nil
			}
		}
	}
	for _, hid := range m.helixIDs {
		m.d.Helices[hid].SyncIsometry(m.d.Parameters)
	}

	res := r.res
	res.Snapshot = m.d
	res.FinalStrain = r.bestStrain
	res.StopReason = reason
	res.Converged = reason.Converged()
	monitoring.Logf("[relax] %s after %d steps: strain %.6g -> %.6g",
		reason, res.Steps, res.InitialStrain, res.FinalStrain)
	return &res
}
