// Package refine implements the iterative robust fitting loop: fit the
// active points, score every residual, rebuild the mask from the outlier
// policy, and repeat until the mask reaches a fixed point or the iteration
// cap is hit.
package refine

import (
	"context"
	"fmt"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/robust"
	"aalr/domain/series"
	"aalr/internal"
	"aalr/ports"
)

// Status messages surfaced on Outcome
const (
	MessageConverged = "Converged"
	MessageMaxIter   = "Maximum iteration limit exceeded"
)

// DefaultMaxIterations caps the refinement loop unless overridden
const DefaultMaxIterations = 50

// Options configures one refinement run. The zero value selects the
// defaults: stride knots, cubic degree, MAD with the asymmetric band,
// 50 iterations, exact fixed-point convergence.
type Options struct {
	// Knots selects the interior knots (resolved once, against the full
	// series, before the first iteration)
	Knots curve.KnotSpec

	// Degree is the spline degree (default cubic)
	Degree int

	// Policy classifies residuals into the fresh mask each iteration
	Policy robust.Policy

	// MaxIterations caps the loop. Negative values are invalid; zero means
	// the default.
	MaxIterations int

	// ConvergenceTolerance is the Hamming distance at or below which the
	// recomputed mask counts as stable. Zero demands an exact fixed point.
	ConvergenceTolerance int

	// InitialMask warm-starts the loop. Nil means all-active.
	InitialMask *series.Mask
}

// withDefaults fills unset fields
func (o Options) withDefaults() Options {
	if o.Knots.Interior == nil && o.Knots.Count == 0 {
		o.Knots = curve.DefaultKnotSpec()
	}
	if o.Degree == 0 {
		o.Degree = curve.DefaultDegree
	}
	if o.Policy.Dispersion == nil || o.Policy.Band == nil {
		o.Policy = robust.DefaultPolicy()
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Outcome is the result of a refinement run. Spline and Mask are always a
// consistent pair: the model was fitted on exactly the points the mask marks
// active.
type Outcome struct {
	Spline curve.Spline
	Mask   series.Mask

	Converged  bool
	Iterations int

	// FinalDistance is the Hamming distance between the last recomputed
	// mask and the fitted mask when the loop stopped
	FinalDistance int

	// Dispersion is the last dispersion value the policy measured
	Dispersion float64

	// Residuals holds y - predicted over the full series for the returned
	// model
	Residuals []float64

	Message string
}

// Refiner runs the iterative robust fit against a spline collaborator
type Refiner struct {
	fitter ports.SplineFitter
	log    *internal.Logger
}

// New creates a Refiner around the given spline collaborator
func New(fitter ports.SplineFitter) *Refiner {
	return &Refiner{fitter: fitter, log: internal.DefaultLogger}
}

// Refine runs the loop on the series and returns the final model and mask.
//
// Every iteration fits only the active points, evaluates the model over the
// full series, and recomputes the mask fresh from the residuals, so points
// excluded earlier re-enter when their residuals recover. The loop stops as
// soon as the recomputed mask is within ConvergenceTolerance of the fitted
// one. Hitting the cap is not an error: the Outcome carries Converged=false
// and the last fitted model.
func (r *Refiner) Refine(ctx context.Context, s *series.Series, opts Options) (*Outcome, error) {
	if s == nil {
		return nil, core.NewSeriesError("nil series")
	}
	opts = opts.withDefaults()
	if opts.MaxIterations < 1 {
		return nil, core.NewOptionsErrorf("max iterations must be positive, got %d", opts.MaxIterations)
	}
	if opts.ConvergenceTolerance < 0 {
		return nil, core.NewOptionsErrorf("convergence tolerance must be non-negative, got %d", opts.ConvergenceTolerance)
	}

	xs := s.X()
	ys := s.Y()

	knots, err := opts.Knots.Resolve(xs)
	if err != nil {
		return nil, err
	}
	freeParams := curve.FreeParams(len(knots), opts.Degree)

	mask := series.NewAllActive(s.Len())
	if opts.InitialMask != nil {
		if opts.InitialMask.Len() != s.Len() {
			return nil, core.NewOptionsErrorf(
				"initial mask length %d does not match series length %d", opts.InitialMask.Len(), s.Len())
		}
		mask = opts.InitialMask.Clone()
	}

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if active := mask.CountActive(); active < freeParams {
			return nil, core.NewInsufficientPointsError(active, freeParams)
		}

		xa, ya, err := s.ActiveSubset(mask)
		if err != nil {
			return nil, err
		}
		model, err := r.fitter.Fit(ctx, xa, ya, knots, opts.Degree)
		if err != nil {
			return nil, fmt.Errorf("fit at iteration %d: %w", iter, err)
		}

		preds := model.EvaluateAll(xs)
		residuals := make([]float64, len(ys))
		for i := range ys {
			residuals[i] = ys[i] - preds[i]
		}

		newMask, disp, err := opts.Policy.Classify(residuals, mask)
		if err != nil {
			return nil, fmt.Errorf("classify at iteration %d: %w", iter, err)
		}
		dist, err := newMask.Hamming(mask)
		if err != nil {
			return nil, err
		}
		r.log.Debug("[Refiner] iteration %d: active=%d dispersion=%g distance=%d",
			iter, mask.CountActive(), disp, dist)

		if dist <= opts.ConvergenceTolerance {
			return &Outcome{
				Spline:        model,
				Mask:          mask,
				Converged:     true,
				Iterations:    iter,
				FinalDistance: dist,
				Dispersion:    disp,
				Residuals:     residuals,
				Message:       MessageConverged,
			}, nil
		}
		if iter == opts.MaxIterations {
			return &Outcome{
				Spline:        model,
				Mask:          mask,
				Converged:     false,
				Iterations:    iter,
				FinalDistance: dist,
				Dispersion:    disp,
				Residuals:     residuals,
				Message:       MessageMaxIter,
			}, nil
		}
		mask = newMask
	}

	// MaxIterations >= 1 means the loop always returns from inside
	return nil, fmt.Errorf("refinement loop exited without a result")
}
