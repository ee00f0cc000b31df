package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/timeutil"
)

// Status is the state of the background job.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Kind names the job a runner is doing.
type Kind string

const (
	KindRelax Kind = "relax"
	KindSweep Kind = "sweep"
)

// ErrBusy is returned when a job is started while another one runs.
var ErrBusy = errors.New("job already in progress")

// RelaxProgress is the live view of a background relaxation.
type RelaxProgress struct {
	Step          int              `json:"step"`
	Strain        float64          `json:"strain"`
	InitialStrain float64          `json:"initial_strain"`
	FinalStrain   float64          `json:"final_strain"`
	Converged     bool             `json:"converged"`
	StopReason    relax.StopReason `json:"stop_reason,omitempty"`
	History       []float64        `json:"history,omitempty"`
}

// State is a copy of the runner state.
type State struct {
	Status          Status         `json:"status"`
	Kind            Kind           `json:"kind,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Relax           *RelaxProgress `json:"relax,omitempty"`
	Request         *Request       `json:"request,omitempty"`
	TotalCombos     int            `json:"total_combos,omitempty"`
	CompletedCombos int            `json:"completed_combos,omitempty"`
	Results         []ComboResult  `json:"results,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// Outcome is handed to the completion hook when a relaxation ends.
type Outcome struct {
	Result *relax.Result
	Err    error
}

// Runner runs one relaxation or sweep at a time in the background.
type Runner struct {
	mu       sync.RWMutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	clock    timeutil.Clock
	observer relax.Observer
	onRelax  func(Outcome)
}

// NewRunner creates an idle runner. observer, if not nil, sees every step
// of background relaxations.
func NewRunner(observer relax.Observer) *Runner {
	done := make(chan struct{})
	close(done)
	return &Runner{
		state:    State{Status: StatusIdle},
		done:     done,
		clock:    timeutil.RealClock{},
		observer: observer,
	}
}

// OnRelaxComplete registers fn to receive every finished background
// relaxation, including cancelled and diverged ones.
func (r *Runner) OnRelaxComplete(fn func(Outcome)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRelax = fn
}

// State returns a copy of the current state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.state
	s.Results = append([]ComboResult(nil), r.state.Results...)
	if r.state.Relax != nil {
		p := *r.state.Relax
		p.History = append([]float64(nil), r.state.Relax.History...)
		s.Relax = &p
	}
	return s
}

// Done returns a channel closed when the current job, if any, ends.
func (r *Runner) Done() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.done
}

// begin moves the runner to running. The caller owns the returned context.
func (r *Runner) begin(ctx context.Context, kind Kind) (context.Context, chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Status == StatusRunning {
		return nil, nil, ErrBusy
	}
	now := r.clock.Now()
	r.state = State{Status: StatusRunning, Kind: kind, StartedAt: &now}
	jobCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	return jobCtx, r.done, nil
}

func (r *Runner) end(done chan struct{}, err error) {
	r.mu.Lock()
	now := r.clock.Now()
	r.state.CompletedAt = &now
	if err != nil {
		r.state.Status = StatusError
		r.state.Error = err.Error()
	} else {
		r.state.Status = StatusComplete
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	close(done)
}

// StartRelax relaxes a copy of d in the background. The design is cloned
// before StartRelax returns, so the caller may keep editing d.
func (r *Runner) StartRelax(ctx context.Context, d *design.Design, cfg relax.Config) error {
	jobCtx, done, err := r.begin(ctx, KindRelax)
	if err != nil {
		return err
	}
	snapshot := d.Clone()
	r.mu.Lock()
	r.state.Relax = &RelaxProgress{}
	hook := r.onRelax
	r.mu.Unlock()

	cfg.Observer = progressObserver{r: r, next: r.observer}
	go func() {
		res, err := relax.Relax(jobCtx, snapshot, cfg)
		r.mu.Lock()
		if res != nil {
			p := r.state.Relax
			p.InitialStrain = res.InitialStrain
			p.FinalStrain = res.FinalStrain
			p.Converged = res.Converged
			p.StopReason = res.StopReason
			p.History = res.History
		}
		r.mu.Unlock()
		if hook != nil {
			hook(Outcome{Result: res, Err: err})
		}
		if err != nil {
			monitoring.Logf("[sweep] relaxation stopped: %v", err)
		}
		r.end(done, err)
	}()
	return nil
}

// StartSweep runs Sweep over a copy of d in the background.
func (r *Runner) StartSweep(ctx context.Context, d *design.Design, base relax.Config, req Request) error {
	if err := req.Validate(base); err != nil {
		return err
	}
	jobCtx, done, err := r.begin(ctx, KindSweep)
	if err != nil {
		return err
	}
	snapshot := d.Clone()
	r.mu.Lock()
	r.state.Request = &req
	r.state.TotalCombos = len(req.Combos(base))
	r.mu.Unlock()

	go func() {
		_, err := Sweep(jobCtx, snapshot, base, req, func(n, total int, cr ComboResult) {
			r.mu.Lock()
			r.state.CompletedCombos = n
			r.state.Results = append(r.state.Results, cr)
			r.mu.Unlock()
		})
		if err != nil {
			err = fmt.Errorf("sweep stopped: %w", err)
			monitoring.Logf("[sweep] %v", err)
		}
		r.end(done, err)
	}()
	return nil
}

// Stop cancels the running job. It does not wait; use Done.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// progressObserver records the live strain and forwards to next.
type progressObserver struct {
	r    *Runner
	next relax.Observer
}

func (o progressObserver) ObserveStep(step int, strain float64, accepted bool) {
	o.r.mu.Lock()
	if p := o.r.state.Relax; p != nil {
		p.Step = step
		p.Strain = strain
	}
	o.r.mu.Unlock()
	if o.next != nil {
		o.next.ObserveStep(step, strain, accepted)
	}
}
