package testkit

import (
	"context"
	"fmt"
	"sync"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/ports"
)

// TestKit provides shared fixtures for engine and service tests
type TestKit struct {
	ledger *InMemoryRunLedger
}

// NewTestKit creates a test kit with an empty in-memory ledger
func NewTestKit() *TestKit {
	return &TestKit{ledger: NewInMemoryRunLedger()}
}

// Ledger returns the shared in-memory run ledger
func (t *TestKit) Ledger() *InMemoryRunLedger {
	return t.ledger
}

// Fitter returns a fake fitter that serves the scripted curves in order
func (t *TestKit) Fitter(curves ...func(float64) float64) *FakeFitter {
	return NewFakeFitter(curves...)
}

// FakeFitter implements ports.SplineFitter without solving anything: call n
// is answered with Curves[(n-1) % len], so one curve repeats forever and a
// pair alternates. With no curves scripted it returns the zero function.
type FakeFitter struct {
	mu     sync.Mutex
	curves []func(float64) float64
	counts []int
}

// NewFakeFitter creates a fake fitter serving the given curves
func NewFakeFitter(curves ...func(float64) float64) *FakeFitter {
	if len(curves) == 0 {
		curves = []func(float64) float64{func(float64) float64 { return 0 }}
	}
	return &FakeFitter{curves: curves}
}

// Fit records the call and returns the next scripted curve as a spline
func (f *FakeFitter) Fit(ctx context.Context, x, y []float64, interiorKnots []float64, degree int) (curve.Spline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("x and y length mismatch: %d vs %d", len(x), len(y))
	}

	f.mu.Lock()
	fn := f.curves[len(f.counts)%len(f.curves)]
	f.counts = append(f.counts, len(x))
	f.mu.Unlock()

	return &scriptedSpline{
		fn:     fn,
		degree: degree,
		knots:  append([]float64(nil), interiorKnots...),
	}, nil
}

// Calls returns how many fits were requested
func (f *FakeFitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.counts)
}

// ActiveCounts returns the active point count passed to each fit, in order
func (f *FakeFitter) ActiveCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.counts...)
}

var _ ports.SplineFitter = (*FakeFitter)(nil)

// scriptedSpline adapts a plain function to the curve.Spline interface
type scriptedSpline struct {
	fn     func(float64) float64
	degree int
	knots  []float64
}

func (s *scriptedSpline) Evaluate(x float64) float64 {
	return s.fn(x)
}

func (s *scriptedSpline) EvaluateAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.fn(x)
	}
	return out
}

func (s *scriptedSpline) Degree() int { return s.degree }

func (s *scriptedSpline) InteriorKnots() []float64 {
	return append([]float64(nil), s.knots...)
}

func (s *scriptedSpline) Coefficients() []float64 { return nil }

// InMemoryRunLedger implements ports.RunLedger with map storage. Runs list
// newest first, matching the database-backed ledger.
type InMemoryRunLedger struct {
	mu    sync.RWMutex
	runs  map[core.RunID]curve.RunArtifact
	order []core.RunID
}

// NewInMemoryRunLedger creates an empty in-memory ledger
func NewInMemoryRunLedger() *InMemoryRunLedger {
	return &InMemoryRunLedger{runs: make(map[core.RunID]curve.RunArtifact)}
}

func (l *InMemoryRunLedger) StoreRun(ctx context.Context, artifact curve.RunArtifact) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.runs[artifact.RunID]; !exists {
		l.order = append(l.order, artifact.RunID)
	}
	l.runs[artifact.RunID] = artifact
	return nil
}

func (l *InMemoryRunLedger) GetRun(ctx context.Context, runID core.RunID) (*curve.RunArtifact, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	artifact, exists := l.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	return &artifact, nil
}

func (l *InMemoryRunLedger) ListRuns(ctx context.Context, filters ports.RunFilters) ([]curve.RunArtifact, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []curve.RunArtifact
	skipped := 0
	for i := len(l.order) - 1; i >= 0; i-- {
		artifact := l.runs[l.order[i]]
		if filters.Converged != nil && artifact.Converged != *filters.Converged {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		results = append(results, artifact)
		if filters.Limit > 0 && len(results) >= filters.Limit {
			break
		}
	}
	return results, nil
}

// Count returns the number of stored runs
func (l *InMemoryRunLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.runs)
}

var _ ports.RunLedger = (*InMemoryRunLedger)(nil)
