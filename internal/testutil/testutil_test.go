package testutil

import (
	"errors"
	"net/http"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestAssertionsPassOnMatch(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
	AssertVecNear(t, r3.Vec{X: 1}, r3.Vec{X: 1 + 1e-12}, 1e-9)
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodPost, "/api/relax")
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if req.URL.Path != "/api/relax" {
		t.Errorf("path = %s, want /api/relax", req.URL.Path)
	}
	if NewTestRecorder().Code != http.StatusOK {
		t.Error("recorder should default to 200")
	}
}

func TestSquareBundle(t *testing.T) {
	d := SquareBundle(t, 4, 16)
	if got := len(d.Helices); got != 4 {
		t.Fatalf("helices = %d, want 4", got)
	}
	if got := len(d.Strands); got != 3 {
		t.Fatalf("strands = %d, want 3", got)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestWavyDesign(t *testing.T) {
	d, id := WavyDesign(t)
	if _, err := d.ComputeFrame(id, 10, true); err != nil {
		t.Fatalf("ComputeFrame() = %v", err)
	}
}
