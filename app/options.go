package app

import (
	"aalr/domain/curve"
	"aalr/domain/robust"
	"aalr/internal/config"
	"aalr/internal/ensemble"
	"aalr/internal/refine"
)

// RefineOptionsFromConfig translates the environment fit section into
// refinement options. The knot spec uses the count-driven stride policy;
// callers wanting explicit knots override Knots on the result.
func RefineOptionsFromConfig(cfg config.FitConfig) (refine.Options, error) {
	disp, err := robust.DispersionByName(cfg.Dispersion)
	if err != nil {
		return refine.Options{}, err
	}
	return refine.Options{
		Knots:  curve.KnotSpec{Count: cfg.KnotCount},
		Degree: cfg.Degree,
		Policy: robust.Policy{
			Dispersion: disp,
			Band:       robust.AsymmetricBand{Lower: cfg.LowerMultiple, Upper: cfg.UpperMultiple},
		},
		MaxIterations: cfg.MaxIterations,
	}, nil
}

// EnsembleOptionsFromConfig translates the environment ensemble section. The
// embedded refine options are filled in per request by the service.
func EnsembleOptionsFromConfig(cfg config.EnsembleConfig) ensemble.Options {
	return ensemble.Options{
		Duplicates:      cfg.Duplicates,
		ProximityFactor: cfg.ProximityFactor,
		MaxConcurrent:   cfg.MaxConcurrent,
	}
}
