package series

import (
	"math"

	"aalr/domain/core"
)

// ============================================================================
// SAMPLE SET (Canonical input type)
// ============================================================================

// Series is an ordered sequence of (x, y) samples with strictly increasing x.
// It is immutable once constructed: the constructor copies its inputs and the
// accessors return copies.
type Series struct {
	x []float64
	y []float64
}

// New validates and constructs a Series. It fails fast on every invalid-input
// class: mismatched lengths, empty input, non-finite values, and x values
// that are not strictly increasing.
func New(x, y []float64) (*Series, error) {
	if len(x) != len(y) {
		return nil, core.NewSeriesErrorf("length mismatch: len(x)=%d len(y)=%d", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, core.NewSeriesError("empty input")
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewSeriesErrorf("non-finite x at index %d", i)
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewSeriesErrorf("non-finite y at index %d", i)
		}
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, core.NewSeriesErrorf("x not strictly increasing at index %d (%g <= %g)", i, x[i], x[i-1])
		}
	}
	s := &Series{
		x: append([]float64(nil), x...),
		y: append([]float64(nil), y...),
	}
	return s, nil
}

// MustNew constructs a Series and panics on invalid input. For tests and
// literals known to be valid.
func MustNew(x, y []float64) *Series {
	s, err := New(x, y)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of samples
func (s *Series) Len() int {
	return len(s.x)
}

// X returns a copy of the x values
func (s *Series) X() []float64 {
	return append([]float64(nil), s.x...)
}

// Y returns a copy of the y values
func (s *Series) Y() []float64 {
	return append([]float64(nil), s.y...)
}

// XAt returns the x value at index i
func (s *Series) XAt(i int) float64 {
	return s.x[i]
}

// YAt returns the y value at index i
func (s *Series) YAt(i int) float64 {
	return s.y[i]
}

// Domain returns the closed x interval [min, max] covered by the samples
func (s *Series) Domain() (lo, hi float64) {
	return s.x[0], s.x[len(s.x)-1]
}

// ActiveSubset returns copies of the x and y values at indices the mask marks
// active. The mask length must equal the series length.
func (s *Series) ActiveSubset(m Mask) (x, y []float64, err error) {
	if m.Len() != s.Len() {
		return nil, nil, core.NewSeriesErrorf("mask length %d does not match series length %d", m.Len(), s.Len())
	}
	n := m.CountActive()
	x = make([]float64, 0, n)
	y = make([]float64, 0, n)
	for i, active := range m.bits {
		if active {
			x = append(x, s.x[i])
			y = append(y, s.y[i])
		}
	}
	return x, y, nil
}

// Fingerprint hashes the exact numeric content of the series
func (s *Series) Fingerprint() core.DatasetFingerprint {
	return core.ComputeDatasetFingerprint(s.x, s.y)
}
