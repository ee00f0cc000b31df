package relax

import (
	"fmt"
	"runtime"
	"time"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/timeutil"
)

// Granularity chooses what moves as one rigid body.
type Granularity int

const (
	// Helices moves every helix on its own.
	Helices Granularity = iota
	// Grids moves every grid together with its helices. Helices without a
	// grid still move on their own.
	Grids
)

func (g Granularity) String() string {
	switch g {
	case Helices:
		return "helices"
	case Grids:
		return "grids"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// ParseGranularity reads "helices" or "grids".
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "helices", "helix":
		return Helices, nil
	case "grids", "grid":
		return Grids, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

// Observer receives every iteration of a run. Implementations must be safe
// to call from the relaxing goroutine and must not block.
type Observer interface {
	ObserveStep(step int, strain float64, accepted bool)
}

// Config controls a relaxation run.
type Config struct {
	Granularity Granularity
	// Seed drives the stall perturbation. Equal seeds give equal runs.
	Seed uint64

	// MaxSteps bounds the iterations. WallClockBudget, if positive, bounds
	// the elapsed time measured by Clock.
	MaxSteps        int
	WallClockBudget time.Duration
	Clock           timeutil.Clock

	// StepSize converts force into displacement. MaxTranslation (nm) and
	// MaxRotation (rad) clamp a single step.
	StepSize       float64
	MaxTranslation float64
	MaxRotation    float64

	StericWeight        float64
	CrossoverWeight     float64
	CrossoverRestLength float64
	VolumeExclusion     bool

	// Anchors pin nucleotides to their starting position with a spring of
	// stiffness AnchorStiffness.
	Anchors         []strand.Nucl
	AnchorStiffness float64

	// The run converges when the strain drops by less than Tolerance
	// (relative) over Window accepted steps.
	Window    int
	Tolerance float64
	// MaxStrain aborts the run with ErrRelaxationDiverged.
	MaxStrain float64
	// Perturbation is the standard deviation (nm) of the random kick given
	// to every body when the descent stalls. Zero disables it.
	Perturbation float64

	// Workers bounds the force goroutines. Zero means GOMAXPROCS.
	Workers int

	Observer Observer
}

// DefaultConfig returns the configuration used when nothing is tuned.
func DefaultConfig() Config {
	cfg, _ := ConfigFromTuning(config.EmptyTuningConfig())
	return cfg
}

// ConfigFromTuning builds a relaxer configuration from the tuning config.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	g, err := ParseGranularity(cfg.GetGranularity())
	if err != nil {
		return Config{}, err
	}
	return Config{
		Granularity:         g,
		Seed:                cfg.GetSeed(),
		MaxSteps:            cfg.GetMaxSteps(),
		WallClockBudget:     cfg.GetWallClockBudget(),
		Clock:               timeutil.RealClock{},
		StepSize:            cfg.GetStepSize(),
		MaxTranslation:      cfg.GetMaxTranslation(),
		MaxRotation:         cfg.GetMaxRotation(),
		StericWeight:        cfg.GetStericWeight(),
		CrossoverWeight:     cfg.GetCrossoverWeight(),
		CrossoverRestLength: cfg.GetCrossoverRestLength(),
		VolumeExclusion:     cfg.GetVolumeExclusion(),
		AnchorStiffness:     cfg.GetAnchorStiffness(),
		Window:              cfg.GetConvergenceWindow(),
		Tolerance:           cfg.GetTolerance(),
		MaxStrain:           cfg.GetMaxStrain(),
		Perturbation:        cfg.GetPerturbation(),
		Workers:             cfg.GetWorkers(),
	}, nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) clock() timeutil.Clock {
	if c.Clock == nil {
		return timeutil.RealClock{}
	}
	return c.Clock
}

func (c Config) validate() error {
	switch {
	case c.MaxSteps < 0:
		return fmt.Errorf("max steps %d < 0", c.MaxSteps)
	case c.StepSize <= 0:
		return fmt.Errorf("step size %g <= 0", c.StepSize)
	case c.MaxTranslation <= 0 || c.MaxRotation <= 0:
		return fmt.Errorf("step clamps must be positive")
	case c.StericWeight < 0 || c.CrossoverWeight < 0 || c.AnchorStiffness < 0:
		return fmt.Errorf("weights must not be negative")
	case c.Window < 1:
		return fmt.Errorf("window %d < 1", c.Window)
	case c.Perturbation < 0:
		return fmt.Errorf("perturbation %g < 0", c.Perturbation)
	}
	return nil
}
