package app

import (
	"context"
	"fmt"
	"time"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/series"
	"aalr/internal"
	"aalr/internal/ensemble"
	"aalr/internal/errors"
	"aalr/internal/refine"
	"aalr/ports"
)

// FitService orchestrates the fit pipeline: load a series, refine it,
// optionally harden the result with the knot-shift ensemble, and record the
// run in the ledger.
type FitService struct {
	reader     ports.SeriesReader
	refiner    *refine.Refiner
	aggregator *ensemble.Aggregator
	ledger     ports.RunLedger
	log        *internal.Logger
}

// FitRequest defines one fit run. Exactly one of Series and Location must be
// set; Location is loaded through the SeriesReader port.
type FitRequest struct {
	Series   *series.Series
	Location string

	Refine refine.Options

	// Ensemble enables knot-shift aggregation. Its Duplicates,
	// ProximityFactor and MaxConcurrent fields are read; the embedded
	// refine options are taken from Refine above.
	Ensemble *ensemble.Options

	// Persist stores the run artifact in the ledger.
	Persist bool
}

// FitResult contains the refinement outcome and the run artifact built from it
type FitResult struct {
	RunID     core.RunID
	Outcome   *refine.Outcome
	Ensemble  *ensemble.Result
	Artifact  curve.RunArtifact
	Persisted bool
	RuntimeMs int64
}

// NewFitService creates a fit service. The reader and ledger may be nil;
// requests that need them fail with an invalid-options error.
func NewFitService(reader ports.SeriesReader, refiner *refine.Refiner, aggregator *ensemble.Aggregator, ledger ports.RunLedger) *FitService {
	return &FitService{
		reader:     reader,
		refiner:    refiner,
		aggregator: aggregator,
		ledger:     ledger,
		log:        internal.DefaultLogger,
	}
}

// Fit runs the pipeline for one request
func (s *FitService) Fit(ctx context.Context, req FitRequest) (*FitResult, error) {
	startTime := time.Now()

	src, err := s.resolveSeries(ctx, req)
	if err != nil {
		return nil, err
	}

	// Refine, through the ensemble when requested
	var outcome *refine.Outcome
	var ensembleResult *ensemble.Result
	if req.Ensemble != nil {
		if s.aggregator == nil {
			return nil, core.NewOptionsErrorf("ensemble aggregation is not configured")
		}
		opts := *req.Ensemble
		opts.Refine = req.Refine
		ensembleResult, err = s.aggregator.Aggregate(ctx, src, opts)
		if err != nil {
			return nil, fmt.Errorf("ensemble aggregation failed: %w", err)
		}
		outcome = ensembleResult.Outcome
	} else {
		outcome, err = s.refiner.Refine(ctx, src, req.Refine)
		if err != nil {
			return nil, fmt.Errorf("refinement failed: %w", err)
		}
	}

	artifact := newRunArtifact(src, outcome)

	persisted := false
	if req.Persist {
		if s.ledger == nil {
			return nil, core.NewOptionsErrorf("run persistence requested but no ledger is configured")
		}
		if err := s.ledger.StoreRun(ctx, artifact); err != nil {
			return nil, fmt.Errorf("failed to store run artifact: %w", err)
		}
		persisted = true
	}

	s.log.Info("fit run %s: converged=%t iterations=%d excluded=%d",
		artifact.RunID, outcome.Converged, outcome.Iterations, len(artifact.ExcludedIndices))

	return &FitResult{
		RunID:     artifact.RunID,
		Outcome:   outcome,
		Ensemble:  ensembleResult,
		Artifact:  artifact,
		Persisted: persisted,
		RuntimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}

// GetRun loads a stored run artifact by ID
func (s *FitService) GetRun(ctx context.Context, runID core.RunID) (*curve.RunArtifact, error) {
	if s.ledger == nil {
		return nil, core.NewOptionsErrorf("no run ledger is configured")
	}
	return s.ledger.GetRun(ctx, runID)
}

// ListRuns lists stored run artifacts, newest first
func (s *FitService) ListRuns(ctx context.Context, filters ports.RunFilters) ([]curve.RunArtifact, error) {
	if s.ledger == nil {
		return nil, core.NewOptionsErrorf("no run ledger is configured")
	}
	return s.ledger.ListRuns(ctx, filters)
}

func (s *FitService) resolveSeries(ctx context.Context, req FitRequest) (*series.Series, error) {
	switch {
	case req.Series != nil && req.Location != "":
		return nil, core.NewOptionsErrorf("fit request sets both a series and a location")
	case req.Series != nil:
		return req.Series, nil
	case req.Location != "":
		if s.reader == nil {
			return nil, core.NewOptionsErrorf("no series reader is configured")
		}
		src, err := s.reader.Read(ctx, req.Location)
		if err != nil {
			return nil, errors.ReadError(fmt.Sprintf("failed to read series from %s", req.Location), err)
		}
		return src, nil
	default:
		return nil, core.NewOptionsErrorf("fit request needs a series or a location")
	}
}

// newRunArtifact snapshots a refinement outcome into the persisted record
func newRunArtifact(src *series.Series, out *refine.Outcome) curve.RunArtifact {
	return curve.RunArtifact{
		RunID:           core.NewRunID(),
		Fingerprint:     src.Fingerprint(),
		SampleCount:     src.Len(),
		Degree:          out.Spline.Degree(),
		InteriorKnots:   out.Spline.InteriorKnots(),
		Coefficients:    out.Spline.Coefficients(),
		Mask:            out.Mask,
		ExcludedIndices: out.Mask.ExcludedIndices(),
		Converged:       out.Converged,
		Iterations:      out.Iterations,
		FinalDistance:   out.FinalDistance,
		Dispersion:      out.Dispersion,
		CreatedAt:       core.Now(),
	}
}
