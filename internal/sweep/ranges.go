// Package sweep runs relaxations in the background and sweeps the strain
// weights and seeds of the relaxer.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues bounds the values a single range may expand to.
const maxValues = 10000

// RangeSpec is a "min:max:step" range of float values.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRangeSpec parses "min:max:step".
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RangeSpec{}, fmt.Errorf("invalid range value %q: %w", p, err)
		}
		v[i] = f
	}
	if v[2] <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", v[2])
	}
	return RangeSpec{Min: v[0], Max: v[1], Step: v[2]}, nil
}

// Values expands the range, max included. Values are rounded to 1e-6 so
// accumulated steps do not drift past max.
func (r RangeSpec) Values() []float64 {
	if r.Step <= 0 || r.Min > r.Max {
		return nil
	}
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	if n > maxValues {
		return nil
	}
	out := make([]float64, 0, n)
	for i := range n {
		out = append(out, math.Round((r.Min+float64(i)*r.Step)*1e6)/1e6)
	}
	return out
}

// ParseFloatList parses "a,b,c" or a "min:max:step" range.
func ParseFloatList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.Contains(s, ":") {
		r, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		vals := r.Values()
		if len(vals) == 0 {
			return nil, fmt.Errorf("range %q is empty or too large", s)
		}
		return vals, nil
	}
	var out []float64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseSeedList parses "1,2,3" or an inclusive "first-last" seed range.
func ParseSeedList(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if first, last, ok := strings.Cut(s, "-"); ok {
		a, err := strconv.ParseUint(strings.TrimSpace(first), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", first, err)
		}
		b, err := strconv.ParseUint(strings.TrimSpace(last), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", last, err)
		}
		if b < a || b-a >= maxValues {
			return nil, fmt.Errorf("invalid seed range %q", s)
		}
		out := make([]uint64, 0, b-a+1)
		for v := a; v <= b; v++ {
			out = append(out, v)
		}
		return out, nil
	}
	var out []uint64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
