// Package units provides shared constants and conversion for length units.
// Geometry is computed in nanometres.
package units

import (
	"fmt"
	"slices"
	"strings"
)

// Unit constants
const (
	NM       = "nm"
	Angstrom = "angstrom"
	// OxDNA is the simulation length unit of oxDNA, 0.8518 nm.
	OxDNA = "oxdna"
)

const oxDNALength = 0.8518

// ValidUnits contains all valid unit values
var ValidUnits = []string{NM, Angstrom, OxDNA}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	return slices.Contains(ValidUnits, unit)
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// Parse validates a unit name, ignoring case. Empty means nanometres.
func Parse(s string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(s))
	if u == "" {
		return NM, nil
	}
	if !IsValid(u) {
		return "", fmt.Errorf("invalid unit %q: must be one of %s", s, GetValidUnitsString())
	}
	return u, nil
}

// Scale returns the factor converting nanometres to unit.
func Scale(unit string) float64 {
	switch unit {
	case Angstrom:
		return 10
	case OxDNA:
		return 1 / oxDNALength
	default:
		return 1 // nm, and unknown units
	}
}

// ConvertLength converts a length in nanometres to unit.
func ConvertLength(nm float64, unit string) float64 {
	return nm * Scale(unit)
}
