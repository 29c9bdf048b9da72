package ports

import (
	"context"

	"aalr/domain/curve"
)

// SplineFitter is the external least-squares spline collaborator. The engine
// treats it as a black box: Fit solves the LSQ problem for the active points
// against the supplied interior knots and degree, and the returned model is
// evaluated through curve.Spline.
//
// Implementations must reject calls with fewer points than
// curve.FreeParams(len(interiorKnots), degree) free parameters.
type SplineFitter interface {
	Fit(ctx context.Context, x, y []float64, interiorKnots []float64, degree int) (curve.Spline, error)
}
