// Package bspline implements the least-squares spline collaborator on a
// clamped B-spline basis: Cox-de Boor recursion for the basis values, a
// dense design matrix over the active points, and a QR solve for the
// coefficients.
package bspline

import (
	"gonum.org/v1/gonum/floats"

	"aalr/domain/curve"
)

// knotVector builds the clamped knot vector for the given interior knots:
// degree+1 copies of each domain endpoint around the interior positions.
func knotVector(interior []float64, degree int, lo, hi float64) []float64 {
	t := make([]float64, 0, len(interior)+2*(degree+1))
	for i := 0; i <= degree; i++ {
		t = append(t, lo)
	}
	t = append(t, interior...)
	for i := 0; i <= degree; i++ {
		t = append(t, hi)
	}
	return t
}

// findSpan locates the knot span index i with t[i] <= x < t[i+1], clamped to
// the non-empty spans [degree, nBasis-1].
func findSpan(t []float64, nBasis, degree int, x float64) int {
	if x >= t[nBasis] {
		return nBasis - 1
	}
	if x <= t[degree] {
		return degree
	}
	lo, hi := degree, nBasis
	mid := (lo + hi) / 2
	for x < t[mid] || x >= t[mid+1] {
		if x < t[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// basisFuncs evaluates the degree+1 basis functions that are non-zero on the
// given span at x, in order N[span-degree] .. N[span]. Cox-de Boor recursion
// in the triangular form that never divides by a zero-width span.
func basisFuncs(t []float64, span, degree int, x float64) []float64 {
	n := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	n[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = x - t[span+1-j]
		right[j] = t[span+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		n[j] = saved
	}
	return n
}

// Spline is the fitted model returned by the Fitter. Evaluation outside the
// fitted domain clamps to the boundary values (constant extrapolation).
type Spline struct {
	degree   int
	knots    []float64 // full clamped knot vector
	interior []float64
	coeffs   []float64
	lo, hi   float64
}

var _ curve.Spline = (*Spline)(nil)

// Evaluate returns the predicted value at x
func (s *Spline) Evaluate(x float64) float64 {
	if x < s.lo {
		x = s.lo
	} else if x > s.hi {
		x = s.hi
	}
	nBasis := len(s.coeffs)
	span := findSpan(s.knots, nBasis, s.degree, x)
	n := basisFuncs(s.knots, span, s.degree, x)
	return floats.Dot(n, s.coeffs[span-s.degree:span+1])
}

// EvaluateAll returns predicted values for every x in xs
func (s *Spline) EvaluateAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.Evaluate(x)
	}
	return out
}

// Degree returns the polynomial degree of the pieces
func (s *Spline) Degree() int {
	return s.degree
}

// InteriorKnots returns a copy of the interior knot positions
func (s *Spline) InteriorKnots() []float64 {
	return append([]float64(nil), s.interior...)
}

// Coefficients returns a copy of the basis coefficients
func (s *Spline) Coefficients() []float64 {
	return append([]float64(nil), s.coeffs...)
}

// Domain returns the x interval the spline was fitted on
func (s *Spline) Domain() (lo, hi float64) {
	return s.lo, s.hi
}
