// Package ensemble hardens a single refinement by refining shifted-knot
// copies of the model and intersecting their masks. A point survives only
// if every member keeps it, which stops one unlucky knot placement from
// absorbing an anomaly into the fit.
package ensemble

import (
	"aalr/domain/core"
	"aalr/domain/series"
)

// CureKnots drops every interior knot that falls strictly inside an
// excluded span of the mask. A knot between excluded points has no active
// data on at least one side, which makes the next fit ill-conditioned.
// Spans of a single excluded point have zero width and never drop a knot.
func CureKnots(knots []float64, s *series.Series, mask series.Mask) ([]float64, error) {
	if s == nil {
		return nil, core.NewSeriesError("nil series")
	}
	if mask.Len() != s.Len() {
		return nil, core.NewOptionsErrorf(
			"mask length %d does not match series length %d", mask.Len(), s.Len())
	}

	runs := mask.ExcludedRuns()
	if len(runs) == 0 {
		return append([]float64(nil), knots...), nil
	}

	kept := make([]float64, 0, len(knots))
	for _, knot := range knots {
		inside := false
		for _, run := range runs {
			lo := s.XAt(run.Lo)
			hi := s.XAt(run.Hi - 1)
			if lo < knot && knot < hi {
				inside = true
				break
			}
		}
		if !inside {
			kept = append(kept, knot)
		}
	}
	return kept, nil
}
