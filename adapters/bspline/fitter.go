package bspline

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/ports"
)

// MaxDegree bounds the accepted spline degree. Cubic is the production
// default; the wider range exists for tests and experiments.
const MaxDegree = 5

// Fitter solves the least-squares B-spline problem. Stateless and safe for
// concurrent use.
type Fitter struct{}

var _ ports.SplineFitter = (*Fitter)(nil)

// New creates a Fitter
func New() *Fitter {
	return &Fitter{}
}

// Fit builds the clamped basis over [x[0], x[last]], assembles the design
// matrix for the given points, and solves for the coefficients by QR.
//
// Interior knots must be strictly increasing and strictly inside the open
// data domain, and there must be at least as many points as basis functions.
func (f *Fitter) Fit(ctx context.Context, x, y []float64, interiorKnots []float64, degree int) (curve.Spline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, core.NewSeriesErrorf("length mismatch: len(x)=%d len(y)=%d", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, core.NewSeriesError("empty input")
	}
	if degree < 1 || degree > MaxDegree {
		return nil, core.NewKnotError(fmt.Sprintf("degree %d outside [1, %d]", degree, MaxDegree))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, core.NewSeriesErrorf("x not strictly increasing at index %d", i)
		}
	}
	lo, hi := x[0], x[len(x)-1]
	for i, k := range interiorKnots {
		if k <= lo || k >= hi {
			return nil, core.NewKnotError(fmt.Sprintf("knot %g outside the open fit domain (%g, %g)", k, lo, hi))
		}
		if i > 0 && k <= interiorKnots[i-1] {
			return nil, core.NewKnotError("interior knots must be strictly increasing")
		}
	}

	nBasis := curve.FreeParams(len(interiorKnots), degree)
	if len(x) < nBasis {
		return nil, core.NewInsufficientPointsError(len(x), nBasis)
	}

	t := knotVector(interiorKnots, degree, lo, hi)

	// Design matrix: each row holds the degree+1 non-zero basis values for
	// its point, all other entries zero.
	design := mat.NewDense(len(x), nBasis, nil)
	for i, xi := range x {
		span := findSpan(t, nBasis, degree, xi)
		vals := basisFuncs(t, span, degree, xi)
		for r, v := range vals {
			design.Set(i, span-degree+r, v)
		}
	}

	var qr mat.QR
	qr.Factorize(design)
	rhs := mat.NewDense(len(y), 1, append([]float64(nil), y...))
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, rhs); err != nil {
		// Rank deficiency here means some basis function has no support
		// among the given points (Schoenberg-Whitney violation).
		return nil, fmt.Errorf("%w: %v", core.ErrSingularFit, err)
	}

	coeffs := make([]float64, nBasis)
	for j := range coeffs {
		coeffs[j] = sol.At(j, 0)
	}

	return &Spline{
		degree:   degree,
		knots:    t,
		interior: append([]float64(nil), interiorKnots...),
		coeffs:   coeffs,
		lo:       lo,
		hi:       hi,
	}, nil
}
