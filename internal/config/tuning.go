package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the geometry engine.
// Every field is optional: the Get* methods supply the default for any field
// left unset, so partial JSON or TOML files are safe.
type TuningConfig struct {
	// DNA parameters. ParameterSet selects a named set; the scalar fields
	// override individual values of that set.
	ParameterSet   *string  `json:"parameter_set,omitempty" toml:"parameter_set"`
	ZStep          *float64 `json:"z_step,omitempty" toml:"z_step"`
	HelixRadius    *float64 `json:"helix_radius,omitempty" toml:"helix_radius"`
	BasesPerTurn   *float64 `json:"bases_per_turn,omitempty" toml:"bases_per_turn"`
	GrooveAngleDeg *float64 `json:"groove_angle_deg,omitempty" toml:"groove_angle_deg"`
	InterHelixGap  *float64 `json:"inter_helix_gap,omitempty" toml:"inter_helix_gap"`
	Inclination    *float64 `json:"inclination,omitempty" toml:"inclination"`

	// Relaxer params
	Granularity         *string  `json:"granularity,omitempty" toml:"granularity"` // "helices" or "grids"
	Seed                *uint64  `json:"seed,omitempty" toml:"seed"`
	MaxSteps            *int     `json:"max_steps,omitempty" toml:"max_steps"`
	WallClockBudget     *string  `json:"wall_clock_budget,omitempty" toml:"wall_clock_budget"` // duration string like "30s"
	StepSize            *float64 `json:"step_size,omitempty" toml:"step_size"`
	MaxTranslation      *float64 `json:"max_translation,omitempty" toml:"max_translation"`
	MaxRotation         *float64 `json:"max_rotation,omitempty" toml:"max_rotation"`
	StericWeight        *float64 `json:"steric_weight,omitempty" toml:"steric_weight"`
	CrossoverWeight     *float64 `json:"crossover_weight,omitempty" toml:"crossover_weight"`
	CrossoverRestLength *float64 `json:"crossover_rest_length,omitempty" toml:"crossover_rest_length"`
	AnchorStiffness     *float64 `json:"anchor_stiffness,omitempty" toml:"anchor_stiffness"`
	VolumeExclusion     *bool    `json:"volume_exclusion,omitempty" toml:"volume_exclusion"`
	ConvergenceWindow   *int     `json:"convergence_window,omitempty" toml:"convergence_window"`
	Tolerance           *float64 `json:"tolerance,omitempty" toml:"tolerance"`
	MaxStrain           *float64 `json:"max_strain,omitempty" toml:"max_strain"`
	Perturbation        *float64 `json:"perturbation,omitempty" toml:"perturbation"`
	Workers             *int     `json:"workers,omitempty" toml:"workers"`

	// Curve fit params
	ChebyshevDegree    *int     `json:"chebyshev_degree,omitempty" toml:"chebyshev_degree"`
	QuadratureOrder    *int     `json:"quadrature_order,omitempty" toml:"quadrature_order"`
	InversionTolerance *float64 `json:"inversion_tolerance,omitempty" toml:"inversion_tolerance"`
	InversionMaxIter   *int     `json:"inversion_max_iter,omitempty" toml:"inversion_max_iter"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the Get* defaults. It mirrors config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		ParameterSet:        ptrString(c.GetParameterSet()),
		Granularity:         ptrString(c.GetGranularity()),
		Seed:                ptrUint64(c.GetSeed()),
		MaxSteps:            ptrInt(c.GetMaxSteps()),
		WallClockBudget:     ptrString(c.GetWallClockBudget().String()),
		StepSize:            ptrFloat64(c.GetStepSize()),
		MaxTranslation:      ptrFloat64(c.GetMaxTranslation()),
		MaxRotation:         ptrFloat64(c.GetMaxRotation()),
		StericWeight:        ptrFloat64(c.GetStericWeight()),
		CrossoverWeight:     ptrFloat64(c.GetCrossoverWeight()),
		CrossoverRestLength: ptrFloat64(c.GetCrossoverRestLength()),
		AnchorStiffness:     ptrFloat64(c.GetAnchorStiffness()),
		VolumeExclusion:     ptrBool(c.GetVolumeExclusion()),
		ConvergenceWindow:   ptrInt(c.GetConvergenceWindow()),
		Tolerance:           ptrFloat64(c.GetTolerance()),
		MaxStrain:           ptrFloat64(c.GetMaxStrain()),
		Perturbation:        ptrFloat64(c.GetPerturbation()),
		Workers:             ptrInt(c.GetWorkers()),
		ChebyshevDegree:     ptrInt(c.GetChebyshevDegree()),
		QuadratureOrder:     ptrInt(c.GetQuadratureOrder()),
		InversionTolerance:  ptrFloat64(c.GetInversionTolerance()),
		InversionMaxIter:    ptrInt(c.GetInversionMaxIter()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or TOML file.
// The file is validated to ensure it has a .json or .toml extension and is
// under the max file size. Fields omitted from the file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseTuningConfig(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTuningConfig decodes config bytes in the format named by ext
// (".json" or ".toml") and validates the result.
func ParseTuningConfig(data []byte, ext string) (*TuningConfig, error) {
	// Parse into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the file.
	cfg := EmptyTuningConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"z_step", c.ZStep},
		{"helix_radius", c.HelixRadius},
		{"bases_per_turn", c.BasesPerTurn},
		{"inter_helix_gap", c.InterHelixGap},
		{"step_size", c.StepSize},
		{"max_translation", c.MaxTranslation},
		{"max_rotation", c.MaxRotation},
		{"crossover_rest_length", c.CrossoverRestLength},
		{"max_strain", c.MaxStrain},
		{"inversion_tolerance", c.InversionTolerance},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"steric_weight", c.StericWeight},
		{"crossover_weight", c.CrossoverWeight},
		{"anchor_stiffness", c.AnchorStiffness},
		{"tolerance", c.Tolerance},
		{"perturbation", c.Perturbation},
	}
	for _, p := range nonNegative {
		if p.v != nil && *p.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", p.name, *p.v)
		}
	}

	if c.Granularity != nil {
		switch *c.Granularity {
		case "helices", "grids":
		default:
			return fmt.Errorf("granularity must be \"helices\" or \"grids\", got %q", *c.Granularity)
		}
	}

	// Validate WallClockBudget can be parsed if set
	if c.WallClockBudget != nil && *c.WallClockBudget != "" {
		if _, err := time.ParseDuration(*c.WallClockBudget); err != nil {
			return fmt.Errorf("invalid wall_clock_budget '%s': %w", *c.WallClockBudget, err)
		}
	}

	if c.MaxSteps != nil && *c.MaxSteps < 1 {
		return fmt.Errorf("max_steps must be at least 1, got %d", *c.MaxSteps)
	}
	if c.ConvergenceWindow != nil && *c.ConvergenceWindow < 2 {
		return fmt.Errorf("convergence_window must be at least 2, got %d", *c.ConvergenceWindow)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.ChebyshevDegree != nil && (*c.ChebyshevDegree < 2 || *c.ChebyshevDegree > 64) {
		return fmt.Errorf("chebyshev_degree must be between 2 and 64, got %d", *c.ChebyshevDegree)
	}
	if c.QuadratureOrder != nil && *c.QuadratureOrder < 2 {
		return fmt.Errorf("quadrature_order must be at least 2, got %d", *c.QuadratureOrder)
	}
	if c.InversionMaxIter != nil && *c.InversionMaxIter < 1 {
		return fmt.Errorf("inversion_max_iter must be at least 1, got %d", *c.InversionMaxIter)
	}

	return nil
}

// GetParameterSet returns the parameter_set value or the default.
func (c *TuningConfig) GetParameterSet() string {
	if c.ParameterSet == nil || *c.ParameterSet == "" {
		return "GEARY_2014_DNA"
	}
	return *c.ParameterSet
}

// GetGranularity returns the granularity value or the default.
func (c *TuningConfig) GetGranularity() string {
	if c.Granularity == nil || *c.Granularity == "" {
		return "helices"
	}
	return *c.Granularity
}

// GetSeed returns the seed value or the default.
func (c *TuningConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetMaxSteps returns the max_steps value or the default.
func (c *TuningConfig) GetMaxSteps() int {
	if c.MaxSteps == nil {
		return 2000
	}
	return *c.MaxSteps
}

// GetWallClockBudget parses and returns the WallClockBudget as a time.Duration.
// Zero means no wall-clock limit.
func (c *TuningConfig) GetWallClockBudget() time.Duration {
	if c.WallClockBudget == nil || *c.WallClockBudget == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.WallClockBudget)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetStepSize returns the step_size value or the default.
func (c *TuningConfig) GetStepSize() float64 {
	if c.StepSize == nil {
		return 0.05
	}
	return *c.StepSize
}

// GetMaxTranslation returns the max_translation value (nm per step) or the default.
func (c *TuningConfig) GetMaxTranslation() float64 {
	if c.MaxTranslation == nil {
		return 0.25
	}
	return *c.MaxTranslation
}

// GetMaxRotation returns the max_rotation value (radians per step) or the default.
func (c *TuningConfig) GetMaxRotation() float64 {
	if c.MaxRotation == nil {
		return 0.05
	}
	return *c.MaxRotation
}

// GetStericWeight returns the steric_weight value or the default.
func (c *TuningConfig) GetStericWeight() float64 {
	if c.StericWeight == nil {
		return 2.0
	}
	return *c.StericWeight
}

// GetCrossoverWeight returns the crossover_weight value or the default.
func (c *TuningConfig) GetCrossoverWeight() float64 {
	if c.CrossoverWeight == nil {
		return 1.0
	}
	return *c.CrossoverWeight
}

// GetCrossoverRestLength returns the crossover_rest_length value (nm) or the default.
func (c *TuningConfig) GetCrossoverRestLength() float64 {
	if c.CrossoverRestLength == nil {
		return 0.7
	}
	return *c.CrossoverRestLength
}

// GetAnchorStiffness returns the anchor_stiffness value or the default.
func (c *TuningConfig) GetAnchorStiffness() float64 {
	if c.AnchorStiffness == nil {
		return 1000.0
	}
	return *c.AnchorStiffness
}

// GetVolumeExclusion returns the volume_exclusion value or the default.
func (c *TuningConfig) GetVolumeExclusion() bool {
	if c.VolumeExclusion == nil {
		return true
	}
	return *c.VolumeExclusion
}

// GetConvergenceWindow returns the convergence_window value or the default.
func (c *TuningConfig) GetConvergenceWindow() int {
	if c.ConvergenceWindow == nil {
		return 20
	}
	return *c.ConvergenceWindow
}

// GetTolerance returns the tolerance value or the default.
func (c *TuningConfig) GetTolerance() float64 {
	if c.Tolerance == nil {
		return 1e-6
	}
	return *c.Tolerance
}

// GetMaxStrain returns the max_strain value or the default.
func (c *TuningConfig) GetMaxStrain() float64 {
	if c.MaxStrain == nil {
		return 1e9
	}
	return *c.MaxStrain
}

// GetPerturbation returns the perturbation value (nm) or the default.
func (c *TuningConfig) GetPerturbation() float64 {
	if c.Perturbation == nil {
		return 0.01
	}
	return *c.Perturbation
}

// GetWorkers returns the workers value or the default. Zero means one worker
// per available CPU.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetChebyshevDegree returns the chebyshev_degree value or the default.
func (c *TuningConfig) GetChebyshevDegree() int {
	if c.ChebyshevDegree == nil {
		return 24
	}
	return *c.ChebyshevDegree
}

// GetQuadratureOrder returns the quadrature_order value or the default.
func (c *TuningConfig) GetQuadratureOrder() int {
	if c.QuadratureOrder == nil {
		return 16
	}
	return *c.QuadratureOrder
}

// GetInversionTolerance returns the inversion_tolerance value (nm) or the default.
func (c *TuningConfig) GetInversionTolerance() float64 {
	if c.InversionTolerance == nil {
		return 1e-9
	}
	return *c.InversionTolerance
}

// GetInversionMaxIter returns the inversion_max_iter value or the default.
func (c *TuningConfig) GetInversionMaxIter() int {
	if c.InversionMaxIter == nil {
		return 64
	}
	return *c.InversionMaxIter
}
