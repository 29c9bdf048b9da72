// Package curve holds the spline model value types shared by the fitting
// engine and its adapters. The model itself is opaque: callers evaluate it
// through the Spline interface and never see the basis representation.
package curve

// Spline is a fitted piecewise-polynomial model, evaluable at arbitrary x.
// Implementations clamp evaluation outside the fitted domain to the boundary
// values (constant extrapolation).
type Spline interface {
	// Evaluate returns the predicted value at x
	Evaluate(x float64) float64

	// EvaluateAll returns predicted values for every x in xs
	EvaluateAll(xs []float64) []float64

	// Degree returns the polynomial degree of the pieces
	Degree() int

	// InteriorKnots returns a copy of the interior knot positions
	InteriorKnots() []float64

	// Coefficients returns a copy of the basis coefficients
	Coefficients() []float64
}

// FreeParams returns the number of free parameters (basis functions) of a
// spline with the given interior knots and degree. A fit needs at least this
// many active points.
func FreeParams(interiorKnots int, degree int) int {
	return interiorKnots + degree + 1
}
