package ensemble

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/series"
	"aalr/internal"
	"aalr/internal/refine"
)

const (
	// DefaultDuplicates is the number of shifted copies per side
	DefaultDuplicates = 3

	// DefaultProximityFactor keeps the outermost shifted knot off the
	// domain boundary: the largest shift covers (1 - factor) of the gap
	// between the first knot and the boundary.
	DefaultProximityFactor = 0.001

	// DefaultMaxConcurrent bounds how many members refine at once
	DefaultMaxConcurrent = 4
)

// Options configures an aggregate run. Refine applies to the base fit, every
// member fit, and the final cured fit; member fits override its knots and
// always start all-active.
type Options struct {
	Duplicates      int
	ProximityFactor float64
	MaxConcurrent   int

	Refine refine.Options
}

func (o Options) withDefaults() Options {
	if o.Duplicates == 0 {
		o.Duplicates = DefaultDuplicates
	}
	if o.ProximityFactor == 0 {
		o.ProximityFactor = DefaultProximityFactor
	}
	if o.MaxConcurrent == 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	return o
}

// Result is the outcome of an aggregate run
type Result struct {
	// Outcome is the final refinement on the cured knots, warm-started
	// from the intersected mask
	Outcome *refine.Outcome

	// Base is the unshifted refinement the members were derived from
	Base *refine.Outcome

	// Members is the number of shifted copies that were refined
	Members int

	// CuredKnots holds the interior knots that survived the cure
	CuredKnots []float64
}

// Aggregator runs the shifted-knot ensemble on top of a Refiner
type Aggregator struct {
	refiner *refine.Refiner
	log     *internal.Logger
}

// New creates an Aggregator around the given refiner
func New(refiner *refine.Refiner) *Aggregator {
	return &Aggregator{refiner: refiner, log: internal.DefaultLogger}
}

// Aggregate refines the series once per shifted knot set and intersects the
// masks: a point stays active only when every member keeps it. The combined
// mask then seeds a final refinement on the cured knots.
//
// With no interior knots there is nothing to shift and the base outcome is
// returned as the result.
func (a *Aggregator) Aggregate(ctx context.Context, s *series.Series, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if opts.Duplicates < 1 {
		return nil, core.NewOptionsErrorf("duplicates must be positive, got %d", opts.Duplicates)
	}
	if opts.ProximityFactor <= 0 || opts.ProximityFactor >= 1 {
		return nil, core.NewOptionsErrorf("proximity factor must be in (0, 1), got %g", opts.ProximityFactor)
	}
	if opts.MaxConcurrent < 1 {
		return nil, core.NewOptionsErrorf("max concurrent must be positive, got %d", opts.MaxConcurrent)
	}

	base, err := a.refiner.Refine(ctx, s, opts.Refine)
	if err != nil {
		return nil, fmt.Errorf("base refinement: %w", err)
	}

	baseKnots := base.Spline.InteriorKnots()
	if len(baseKnots) == 0 {
		a.log.Debug("[Aggregator] no interior knots to shift, returning base outcome")
		return &Result{Outcome: base, Base: base, Members: 0, CuredKnots: baseKnots}, nil
	}

	lo, hi := s.Domain()
	d := opts.Duplicates
	q := (1 - opts.ProximityFactor) / float64(d)
	scaleLeft := (baseKnots[0] - lo) * q
	scaleRight := (hi - baseKnots[len(baseKnots)-1]) * q

	shifts := make([]float64, 0, 2*d)
	for i := -d; i < 0; i++ {
		shifts = append(shifts, float64(i)*scaleLeft)
	}
	for i := 1; i <= d; i++ {
		shifts = append(shifts, float64(i)*scaleRight)
	}

	a.log.Debug("[Aggregator] refining %d members (scale left %g, right %g)",
		len(shifts), scaleLeft, scaleRight)

	masks := make([]series.Mask, len(shifts))
	errs := make([]error, len(shifts))
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrent))
	var wg sync.WaitGroup

	for i, shift := range shifts {
		wg.Add(1)
		go func(idx int, shift float64) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				errs[idx] = fmt.Errorf("member %d: acquiring slot: %w", idx, err)
				return
			}
			defer sem.Release(1)

			shifted := make([]float64, len(baseKnots))
			for k, knot := range baseKnots {
				shifted[k] = knot + shift
			}

			memberOpts := opts.Refine
			memberOpts.Knots = curve.ExplicitKnots(shifted)
			memberOpts.InitialMask = nil

			out, err := a.refiner.Refine(ctx, s, memberOpts)
			if err != nil {
				errs[idx] = fmt.Errorf("member %d (shift %g): %w", idx, shift, err)
				return
			}
			masks[idx] = out.Mask
		}(i, shift)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	combined := base.Mask.Clone()
	for _, m := range masks {
		combined, err = combined.And(m)
		if err != nil {
			return nil, err
		}
	}

	cured, err := CureKnots(baseKnots, s, combined)
	if err != nil {
		return nil, err
	}
	a.log.Debug("[Aggregator] combined mask keeps %d/%d points, %d/%d knots survive the cure",
		combined.CountActive(), combined.Len(), len(cured), len(baseKnots))

	finalOpts := opts.Refine
	finalOpts.Knots = curve.ExplicitKnots(cured)
	finalOpts.InitialMask = &combined

	outcome, err := a.refiner.Refine(ctx, s, finalOpts)
	if err != nil {
		return nil, fmt.Errorf("final refinement on cured knots: %w", err)
	}

	return &Result{
		Outcome:    outcome,
		Base:       base,
		Members:    len(shifts),
		CuredKnots: cured,
	}, nil
}
