package testkit

import (
	"context"
	"testing"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/ports"
)

func TestSeriesGeneratorDeterminism(t *testing.T) {
	cfg := DefaultSeriesConfig()
	cfg.Count = 50

	a, err := NewSeriesGenerator(cfg).Linear()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := NewSeriesGenerator(cfg).Linear()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if a.Len() != 50 {
		t.Fatalf("expected 50 samples, got %d", a.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if a.YAt(i) != b.YAt(i) {
			t.Fatalf("same seed produced different values at %d: %v vs %v", i, a.YAt(i), b.YAt(i))
		}
	}
}

func TestLinearWithOutliersBumpsRequestedIndices(t *testing.T) {
	cfg := DefaultSeriesConfig()
	cfg.Count = 30
	cfg.NoiseScale = 0

	clean, err := NewSeriesGenerator(cfg).Linear()
	if err != nil {
		t.Fatalf("generate clean: %v", err)
	}
	dirty, err := NewSeriesGenerator(cfg).LinearWithOutliers([]int{5, 20}, 100)
	if err != nil {
		t.Fatalf("generate dirty: %v", err)
	}

	if got := dirty.YAt(5) - clean.YAt(5); got != 100 {
		t.Errorf("index 5 bump = %v, want 100", got)
	}
	if got := dirty.YAt(20) - clean.YAt(20); got != -100 {
		t.Errorf("index 20 bump = %v, want -100", got)
	}
	if dirty.YAt(10) != clean.YAt(10) {
		t.Errorf("index 10 should be untouched")
	}
}

func TestFakeFitterCyclesScriptedCurves(t *testing.T) {
	fitter := NewFakeFitter(
		func(float64) float64 { return 1 },
		func(float64) float64 { return 2 },
	)

	ctx := context.Background()
	x := []float64{0, 1, 2}
	y := []float64{0, 0, 0}

	for call, want := range []float64{1, 2, 1} {
		model, err := fitter.Fit(ctx, x, y, nil, 3)
		if err != nil {
			t.Fatalf("fit %d: %v", call, err)
		}
		if got := model.Evaluate(0.5); got != want {
			t.Errorf("call %d evaluated to %v, want %v", call+1, got, want)
		}
	}
	if fitter.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", fitter.Calls())
	}
	if counts := fitter.ActiveCounts(); len(counts) != 3 || counts[0] != 3 {
		t.Errorf("ActiveCounts() = %v", counts)
	}
}

func TestInMemoryRunLedgerRoundTrip(t *testing.T) {
	ledger := NewInMemoryRunLedger()
	ctx := context.Background()

	first := curve.RunArtifact{RunID: core.NewRunID(), Converged: true, Iterations: 2}
	second := curve.RunArtifact{RunID: core.NewRunID(), Converged: false, Iterations: 50}
	if err := ledger.StoreRun(ctx, first); err != nil {
		t.Fatalf("store first: %v", err)
	}
	if err := ledger.StoreRun(ctx, second); err != nil {
		t.Fatalf("store second: %v", err)
	}

	got, err := ledger.GetRun(ctx, first.RunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Iterations != 2 {
		t.Errorf("got iterations %d, want 2", got.Iterations)
	}

	if _, err := ledger.GetRun(ctx, core.NewRunID()); !core.IsNotFoundError(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	converged := true
	runs, err := ledger.ListRuns(ctx, ports.RunFilters{Converged: &converged})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != first.RunID {
		t.Errorf("converged filter returned %d runs", len(runs))
	}

	// Listing is newest first, so offset 1 skips the second run.
	runs, err = ledger.ListRuns(ctx, ports.RunFilters{Offset: 1})
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != first.RunID {
		t.Errorf("offset paging returned wrong runs")
	}
}
