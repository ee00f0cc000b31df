package sweep

import (
	"reflect"
	"testing"
)

func TestParseRangeSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  RangeSpec
		expectErr bool
	}{
		{"valid_range", "1.0:5.0:0.5", RangeSpec{Min: 1.0, Max: 5.0, Step: 0.5}, false},
		{"with_spaces", " 1 : 5 : 0.5 ", RangeSpec{Min: 1, Max: 5, Step: 0.5}, false},
		{"negative_values", "-5:5:1", RangeSpec{Min: -5, Max: 5, Step: 1}, false},
		{"missing_parts", "1.0:5.0", RangeSpec{}, true},
		{"too_many_parts", "1:5:0.5:2", RangeSpec{}, true},
		{"invalid_min", "abc:5.0:0.5", RangeSpec{}, true},
		{"zero_step", "1.0:5.0:0", RangeSpec{}, true},
		{"negative_step", "1.0:5.0:-0.5", RangeSpec{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseRangeSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("ParseRangeSpec(%q) error = nil, want error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRangeSpec(%q) error = %v", tc.input, err)
			}
			if result != tc.expected {
				t.Errorf("ParseRangeSpec(%q) = %+v, want %+v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestRangeValues(t *testing.T) {
	testCases := []struct {
		name string
		r    RangeSpec
		want []float64
	}{
		{"inclusive", RangeSpec{Min: 0.5, Max: 2, Step: 0.5}, []float64{0.5, 1, 1.5, 2}},
		{"no_drift", RangeSpec{Min: 0.1, Max: 0.3, Step: 0.1}, []float64{0.1, 0.2, 0.3}},
		{"single", RangeSpec{Min: 1, Max: 1, Step: 1}, []float64{1}},
		{"inverted", RangeSpec{Min: 2, Max: 1, Step: 1}, nil},
		{"too_many", RangeSpec{Min: 0, Max: 1, Step: 1e-6}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.Values(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Values() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseFloatList(t *testing.T) {
	got, err := ParseFloatList("1, 2.5,4")
	if err != nil {
		t.Fatalf("ParseFloatList() error = %v", err)
	}
	if want := []float64{1, 2.5, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFloatList() = %v, want %v", got, want)
	}

	got, err = ParseFloatList("1:2:0.5")
	if err != nil {
		t.Fatalf("ParseFloatList(range) error = %v", err)
	}
	if want := []float64{1, 1.5, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFloatList(range) = %v, want %v", got, want)
	}

	if got, err := ParseFloatList(""); got != nil || err != nil {
		t.Errorf("ParseFloatList(\"\") = %v, %v, want nil, nil", got, err)
	}
	for _, bad := range []string{"1,x", "3:1:1", "1:2"} {
		if _, err := ParseFloatList(bad); err == nil {
			t.Errorf("ParseFloatList(%q) error = nil, want error", bad)
		}
	}
}

func TestParseSeedList(t *testing.T) {
	testCases := []struct {
		input     string
		want      []uint64
		expectErr bool
	}{
		{"1,2,3", []uint64{1, 2, 3}, false},
		{"4-7", []uint64{4, 5, 6, 7}, false},
		{" 9 ", []uint64{9}, false},
		{"", nil, false},
		{"7-4", nil, true},
		{"a,b", nil, true},
		{"0-99999", nil, true},
	}
	for _, tc := range testCases {
		got, err := ParseSeedList(tc.input)
		if tc.expectErr {
			if err == nil {
				t.Errorf("ParseSeedList(%q) error = nil, want error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSeedList(%q) error = %v", tc.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseSeedList(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
