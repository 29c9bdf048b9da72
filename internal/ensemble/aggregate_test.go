package ensemble

import (
	"context"
	"sync"
	"testing"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/series"
	"aalr/internal/refine"
	"aalr/internal/testkit"
)

func grid(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func maskExcluding(n int, excluded ...int) series.Mask {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = true
	}
	for _, idx := range excluded {
		bits[idx] = false
	}
	return series.FromBools(bits)
}

func TestCureKnotsDropsKnotsInsideExcludedSpans(t *testing.T) {
	s := series.MustNew(grid(10), make([]float64, 10))
	knots := []float64{2, 3, 3.5, 4.9, 5, 7}

	// Indices 3..5 are excluded, so the span runs from x=3 to x=5 and only
	// knots strictly between them are cut.
	cured, err := CureKnots(knots, s, maskExcluding(10, 3, 4, 5))
	if err != nil {
		t.Fatalf("cure: %v", err)
	}

	want := []float64{2, 3, 5, 7}
	if len(cured) != len(want) {
		t.Fatalf("cured = %v, want %v", cured, want)
	}
	for i := range want {
		if cured[i] != want[i] {
			t.Fatalf("cured = %v, want %v", cured, want)
		}
	}
}

func TestCureKnotsKeepsEverythingForSinglePointSpans(t *testing.T) {
	s := series.MustNew(grid(10), make([]float64, 10))
	knots := []float64{3.5, 4, 4.5}

	cured, err := CureKnots(knots, s, maskExcluding(10, 4))
	if err != nil {
		t.Fatalf("cure: %v", err)
	}
	if len(cured) != 3 {
		t.Errorf("single-point span should have zero width, cured = %v", cured)
	}
}

func TestCureKnotsAllActiveCopies(t *testing.T) {
	s := series.MustNew(grid(5), make([]float64, 5))
	knots := []float64{1.5, 2.5}

	cured, err := CureKnots(knots, s, series.NewAllActive(5))
	if err != nil {
		t.Fatalf("cure: %v", err)
	}
	if len(cured) != 2 {
		t.Fatalf("cured = %v, want all knots kept", cured)
	}

	cured[0] = -1
	if knots[0] != 1.5 {
		t.Errorf("cure must not alias the input knots")
	}
}

func TestCureKnotsRejectsMismatchedMask(t *testing.T) {
	s := series.MustNew(grid(5), make([]float64, 5))
	if _, err := CureKnots(nil, s, series.NewAllActive(4)); !core.IsInvalidInputError(err) {
		t.Fatalf("err = %v, want invalid-input", err)
	}
}

func allInlierSeries(t *testing.T, n int) *series.Series {
	t.Helper()
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = 1
		if i%2 == 1 {
			ys[i] = -1
		}
	}
	s, err := series.New(grid(n), ys)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return s
}

func TestAggregateWithoutInteriorKnotsReturnsBase(t *testing.T) {
	fitter := testkit.NewFakeFitter()
	agg := New(refine.New(fitter))

	// Ten samples with the default knot spec resolve to no interior knots.
	res, err := agg.Aggregate(context.Background(), allInlierSeries(t, 10), Options{})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if res.Members != 0 {
		t.Errorf("Members = %d, want 0", res.Members)
	}
	if res.Outcome != res.Base {
		t.Errorf("expected the base outcome to be returned unchanged")
	}
	if fitter.Calls() != 1 {
		t.Errorf("fitter called %d times, want 1", fitter.Calls())
	}
}

func TestAggregateRefinesMembersAndFinal(t *testing.T) {
	fitter := testkit.NewFakeFitter()
	agg := New(refine.New(fitter))

	opts := Options{
		Refine: refine.Options{Knots: curve.ExplicitKnots([]float64{3, 5, 7})},
	}
	res, err := agg.Aggregate(context.Background(), allInlierSeries(t, 10), opts)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if res.Members != 2*DefaultDuplicates {
		t.Errorf("Members = %d, want %d", res.Members, 2*DefaultDuplicates)
	}
	// Base + six members + final fit, each converging in one iteration.
	if fitter.Calls() != 8 {
		t.Errorf("fitter called %d times, want 8", fitter.Calls())
	}
	if !res.Outcome.Converged {
		t.Errorf("final refinement did not converge: %q", res.Outcome.Message)
	}
	if res.Outcome.Mask.CountActive() != 10 {
		t.Errorf("excluded = %v, want none", res.Outcome.Mask.ExcludedIndices())
	}
	if len(res.CuredKnots) != 3 {
		t.Errorf("CuredKnots = %v, want all three to survive", res.CuredKnots)
	}
}

// knotKeyedFitter picks the served curve from the interior knots alone, so
// its behavior is deterministic no matter how the member goroutines are
// scheduled.
type knotKeyedFitter struct {
	mu       sync.Mutex
	counts   []int
	curveFor func(interiorKnots []float64) func(float64) float64
}

func (f *knotKeyedFitter) Fit(ctx context.Context, x, y []float64, interiorKnots []float64, degree int) (curve.Spline, error) {
	f.mu.Lock()
	f.counts = append(f.counts, len(x))
	f.mu.Unlock()
	return &keyedSpline{
		fn:     f.curveFor(interiorKnots),
		degree: degree,
		knots:  append([]float64(nil), interiorKnots...),
	}, nil
}

func (f *knotKeyedFitter) activeCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.counts...)
}

type keyedSpline struct {
	fn     func(float64) float64
	degree int
	knots  []float64
}

func (s *keyedSpline) Evaluate(x float64) float64 { return s.fn(x) }
func (s *keyedSpline) EvaluateAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.fn(x)
	}
	return out
}
func (s *keyedSpline) Degree() int              { return s.degree }
func (s *keyedSpline) InteriorKnots() []float64 { return s.knots }
func (s *keyedSpline) Coefficients() []float64  { return nil }

func TestAggregateIntersectsMemberMasks(t *testing.T) {
	// The base and final fits (knot at 5) serve the zero curve and keep every
	// point. The left-shifted member (knot near 0) misses index 7 by 50, so
	// that member alone excludes it, and the intersection must carry the
	// exclusion into the final warm start.
	fitter := &knotKeyedFitter{
		curveFor: func(knots []float64) func(float64) float64 {
			if len(knots) == 1 && knots[0] < 1 {
				return func(x float64) float64 {
					if x == 7 {
						return 50
					}
					return 0
				}
			}
			return func(float64) float64 { return 0 }
		},
	}
	agg := New(refine.New(fitter))

	opts := Options{
		Duplicates: 1,
		Refine:     refine.Options{Knots: curve.ExplicitKnots([]float64{5})},
	}
	res, err := agg.Aggregate(context.Background(), allInlierSeries(t, 20), opts)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if res.Members != 2 {
		t.Errorf("Members = %d, want 2", res.Members)
	}
	if res.Base.Mask.CountActive() != 20 {
		t.Errorf("base excluded %v, want none", res.Base.Mask.ExcludedIndices())
	}
	if len(res.CuredKnots) != 1 || res.CuredKnots[0] != 5 {
		t.Errorf("CuredKnots = %v, want [5]", res.CuredKnots)
	}

	// Base 1 fit, left member 2, right member 1, final 2. The final refine
	// runs after every member finishes, so its first fit sees the 19-point
	// intersected mask and only then readmits the point the shifted knots
	// had broken.
	counts := fitter.activeCounts()
	if len(counts) != 6 {
		t.Fatalf("fit sizes = %v, want 6 fits", counts)
	}
	if counts[0] != 20 {
		t.Errorf("base fit saw %d points, want 20", counts[0])
	}
	if counts[4] != 19 || counts[5] != 20 {
		t.Errorf("final fits saw %v, want [19 20]", counts[4:])
	}
	if !res.Outcome.Converged {
		t.Errorf("final refinement did not converge: %q", res.Outcome.Message)
	}
}

func TestAggregateRejectsBadOptions(t *testing.T) {
	agg := New(refine.New(testkit.NewFakeFitter()))
	s := allInlierSeries(t, 10)

	tests := []struct {
		name string
		opts Options
	}{
		{"negative duplicates", Options{Duplicates: -1}},
		{"proximity factor too large", Options{ProximityFactor: 1.5}},
		{"negative proximity factor", Options{ProximityFactor: -0.2}},
		{"negative concurrency", Options{MaxConcurrent: -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.Aggregate(context.Background(), s, tt.opts)
			if !core.IsInvalidInputError(err) {
				t.Errorf("err = %v, want invalid-options", err)
			}
		})
	}
}
