package dna

import (
	"math"
	"testing"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedSetsValidate(t *testing.T) {
	for _, n := range NamedSets {
		assert.NoError(t, n.Value.Validate(), n.Name)
	}
}

func TestInterCentreGapIsSharedAcrossSets(t *testing.T) {
	// Every named set keeps the 2.65 nm lattice pitch.
	for _, p := range []Parameters{Geary2014DNA, Geary2014RNA, OldENSnano} {
		assert.InDelta(t, 2.65, p.InterCentreGap(), 1e-12)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Parameters)
	}{
		{"zero rise", func(p *Parameters) { p.ZStep = 0 }},
		{"negative radius", func(p *Parameters) { p.HelixRadius = -1 }},
		{"nan helicity", func(p *Parameters) { p.BasesPerTurn = math.NaN() }},
		{"zero gap", func(p *Parameters) { p.InterHelixGap = 0 }},
		{"groove out of range", func(p *Parameters) { p.GrooveAngle = 7 }},
		{"inclination out of range", func(p *Parameters) { p.Inclination = -4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mod(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNegativeInclinationIsValid(t *testing.T) {
	assert.NoError(t, Geary2014RNA.Validate())
}

func TestExpectedCrossoverLength(t *testing.T) {
	p := Default()
	beta := 2 * math.Pi / p.BasesPerTurn
	// Chord between two consecutive nucleotides on the same strand.
	chord := 2 * p.HelixRadius * math.Sin(beta/2)
	want := math.Hypot(chord, p.ZStep)
	assert.InDelta(t, want, p.ExpectedCrossoverLength(), 1e-12)
}

func TestClosestNamedSet(t *testing.T) {
	p := OldENSnano
	p.ZStep += 0.001
	assert.Equal(t, "OLD_ENSNANO", p.ClosestNamedSet())
	assert.Equal(t, "GEARY_2014_RNA", Geary2014RNA.ClosestNamedSet())
}

func TestLookupCaseInsensitive(t *testing.T) {
	p, ok := Lookup("geary_2014_rna")
	require.True(t, ok)
	assert.Equal(t, Geary2014RNA, p)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestParametersFromTuning(t *testing.T) {
	z := 0.34
	deg := 180.0
	name := "OLD_ENSNANO"
	cfg := &config.TuningConfig{ParameterSet: &name, ZStep: &z, GrooveAngleDeg: &deg}

	p, err := ParametersFromTuning(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.34, p.ZStep)
	assert.InDelta(t, math.Pi, p.GrooveAngle, 1e-12)
	assert.Equal(t, OldENSnano.HelixRadius, p.HelixRadius)

	bad := "MYSTERY"
	_, err = ParametersFromTuning(&config.TuningConfig{ParameterSet: &bad})
	assert.Error(t, err)
}

func TestDefaultIsGeary(t *testing.T) {
	p, err := ParametersFromTuning(config.EmptyTuningConfig())
	require.NoError(t, err)
	assert.Equal(t, Geary2014DNA, p)
}
