package series

import (
	"errors"
	"math"
	"testing"

	"aalr/domain/core"
)

// TestNewValidSeries tests construction with well-formed input
func TestNewValidSeries(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{5, 6, 7, 8}

	s, err := New(x, y)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Len() != 4 {
		t.Errorf("Expected length 4, got %d", s.Len())
	}
	lo, hi := s.Domain()
	if lo != 0 || hi != 3 {
		t.Errorf("Expected domain [0, 3], got [%g, %g]", lo, hi)
	}
}

// TestNewRejectsInvalidInput tests every fail-fast validation class
func TestNewRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		y    []float64
	}{
		{"length mismatch", []float64{0, 1}, []float64{0}},
		{"empty", []float64{}, []float64{}},
		{"NaN x", []float64{0, math.NaN(), 2}, []float64{0, 1, 2}},
		{"NaN y", []float64{0, 1, 2}, []float64{0, math.NaN(), 2}},
		{"Inf y", []float64{0, 1, 2}, []float64{0, math.Inf(1), 2}},
		{"non-increasing x", []float64{0, 2, 2}, []float64{0, 1, 2}},
		{"decreasing x", []float64{0, 2, 1}, []float64{0, 1, 2}},
	}

	for _, test := range tests {
		_, err := New(test.x, test.y)
		if err == nil {
			t.Errorf("%s: expected error, got none", test.name)
			continue
		}
		if !errors.Is(err, core.ErrInvalidSeries) {
			t.Errorf("%s: expected ErrInvalidSeries, got %v", test.name, err)
		}
	}
}

// TestSeriesImmutability tests that accessors return copies
func TestSeriesImmutability(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{10, 11, 12}
	s := MustNew(x, y)

	// Mutating the originals must not affect the series
	x[0] = 99
	y[0] = 99
	if s.XAt(0) != 0 || s.YAt(0) != 10 {
		t.Error("Series shares storage with constructor input")
	}

	// Mutating accessor results must not affect the series
	xs := s.X()
	xs[1] = 99
	if s.XAt(1) != 1 {
		t.Error("Series shares storage with accessor result")
	}
}

// TestActiveSubset tests extraction of the active points
func TestActiveSubset(t *testing.T) {
	s := MustNew([]float64{0, 1, 2, 3, 4}, []float64{10, 11, 12, 13, 14})
	m := FromBools([]bool{true, false, true, false, true})

	x, y, err := s.ActiveSubset(m)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	wantX := []float64{0, 2, 4}
	wantY := []float64{10, 12, 14}
	if len(x) != 3 || len(y) != 3 {
		t.Fatalf("Expected 3 active points, got %d/%d", len(x), len(y))
	}
	for i := range wantX {
		if x[i] != wantX[i] || y[i] != wantY[i] {
			t.Errorf("Active point %d: got (%g, %g), want (%g, %g)", i, x[i], y[i], wantX[i], wantY[i])
		}
	}

	// Mismatched mask length errors
	if _, _, err := s.ActiveSubset(NewAllActive(3)); err == nil {
		t.Error("Expected error for mismatched mask length")
	}
}

// TestFingerprintMatchesContent tests fingerprint equality semantics
func TestFingerprintMatchesContent(t *testing.T) {
	a := MustNew([]float64{0, 1, 2}, []float64{5, 6, 7})
	b := MustNew([]float64{0, 1, 2}, []float64{5, 6, 7})
	c := MustNew([]float64{0, 1, 2}, []float64{5, 6, 8})

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Identical series must share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Different series must not share a fingerprint")
	}
}
