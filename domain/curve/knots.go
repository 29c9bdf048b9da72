package curve

import (
	"math"

	"aalr/domain/core"
)

// DefaultKnotCount is the stride policy's target number of interior knots
const DefaultKnotCount = 23

// DefaultDegree is the spline degree used throughout unless overridden
const DefaultDegree = 3

// KnotSpec selects the interior knots for a fit. Either an explicit list of
// positions or a count-driven stride over the sample grid.
//
// With Interior nil, the stride policy places knots at every N-th sample
// position, N = sampleCount / Count, starting at index max(N/2, 1). When the
// series has fewer samples than Count the interior knot set is empty and the
// fit degenerates to a single polynomial segment.
type KnotSpec struct {
	// Interior lists explicit interior knot positions, strictly increasing
	// and strictly inside the data domain. A non-nil empty slice means no
	// interior knots. Nil selects the stride policy.
	Interior []float64

	// Count is the stride policy's target knot count. Ignored when Interior
	// is non-nil.
	Count int
}

// DefaultKnotSpec returns the count-driven policy with the default target
func DefaultKnotSpec() KnotSpec {
	return KnotSpec{Count: DefaultKnotCount}
}

// ExplicitKnots returns a spec pinning the interior knots to the given
// positions. The slice is copied.
func ExplicitKnots(interior []float64) KnotSpec {
	if interior == nil {
		interior = []float64{}
	}
	return KnotSpec{Interior: append([]float64(nil), interior...)}
}

// Resolve produces the interior knot positions for a series with the given
// strictly increasing x values.
func (ks KnotSpec) Resolve(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, core.NewKnotError("cannot place knots on an empty series")
	}
	if ks.Interior != nil {
		return validateInterior(ks.Interior, x[0], x[len(x)-1])
	}
	if ks.Count <= 0 {
		return nil, core.NewKnotError("knot count must be positive")
	}
	return strideKnots(x, ks.Count), nil
}

// strideKnots places a knot at every stride-th sample, skipping positions
// that would coincide with the domain endpoints.
func strideKnots(x []float64, count int) []float64 {
	n := len(x)
	stride := n / count
	if stride < 1 {
		return []float64{}
	}
	start := stride / 2
	if start < 1 {
		start = 1
	}
	knots := make([]float64, 0, n/stride+1)
	for i := start; i < n-1; i += stride {
		knots = append(knots, x[i])
	}
	return knots
}

func validateInterior(interior []float64, lo, hi float64) ([]float64, error) {
	out := make([]float64, 0, len(interior))
	prev := math.Inf(-1)
	for i, k := range interior {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return nil, core.NewKnotError("non-finite knot position")
		}
		if k <= lo || k >= hi {
			return nil, core.NewKnotError("interior knot outside the open data domain")
		}
		if k <= prev {
			return nil, core.NewKnotError("interior knots must be strictly increasing")
		}
		prev = k
		out = append(out, interior[i])
	}
	return out, nil
}
