// Package robust holds the configurable outlier policy: a dispersion
// statistic over the active residuals paired with a tolerance band that
// classifies every residual into active or anomalous.
package robust

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"aalr/domain/core"
	"aalr/domain/series"
)

// ============================================================================
// DISPERSION STATISTICS
// ============================================================================

// Dispersion measures the spread of a residual sample
type Dispersion interface {
	Name() string
	Measure(residuals []float64) (float64, error)
}

// MAD is the median of the absolute residuals. The historical default: with
// residuals centered near zero it is a robust scale estimate that one wild
// point cannot inflate.
type MAD struct{}

func (MAD) Name() string { return "mad" }

func (MAD) Measure(residuals []float64) (float64, error) {
	if len(residuals) == 0 {
		return 0, fmt.Errorf("cannot measure dispersion of an empty sample")
	}
	abs := make([]float64, len(residuals))
	for i, r := range residuals {
		abs[i] = math.Abs(r)
	}
	m, err := stats.Median(abs)
	if err != nil {
		return 0, fmt.Errorf("median failed: %w", err)
	}
	return m, nil
}

// StdDev is the standard deviation of the residuals
type StdDev struct{}

func (StdDev) Name() string { return "stddev" }

func (StdDev) Measure(residuals []float64) (float64, error) {
	if len(residuals) == 0 {
		return 0, fmt.Errorf("cannot measure dispersion of an empty sample")
	}
	sd, err := stats.StandardDeviation(residuals)
	if err != nil {
		return 0, fmt.Errorf("standard deviation failed: %w", err)
	}
	return sd, nil
}

// DispersionByName resolves a configuration name to its statistic. The empty
// name selects the MAD default.
func DispersionByName(name string) (Dispersion, error) {
	switch name {
	case "", "mad":
		return MAD{}, nil
	case "stddev":
		return StdDev{}, nil
	default:
		return nil, core.NewOptionsErrorf("unknown dispersion statistic %q", name)
	}
}

// ============================================================================
// TOLERANCE BANDS
// ============================================================================

// Band decides whether a residual lies within tolerance, given the current
// dispersion. Implementations evaluate in multiplied form
// (bound·dispersion compared against the residual), so a zero dispersion is
// well-defined: only exact-fit residuals stay inside.
type Band interface {
	Name() string
	Contains(residual, dispersion float64) bool
}

// AsymmetricBand keeps residuals r with Lower·disp <= r <= Upper·disp.
// Lower is a negative multiple, Upper a positive one. The historical default
// (-10, +4) tolerates dips far more than spikes. An infinite bound disables
// that side of the cut.
type AsymmetricBand struct {
	Lower float64
	Upper float64
}

func (b AsymmetricBand) Name() string {
	return fmt.Sprintf("asymmetric[%g,%g]", b.Lower, b.Upper)
}

func (b AsymmetricBand) Contains(residual, dispersion float64) bool {
	if !math.IsInf(b.Upper, 1) && residual > b.Upper*dispersion {
		return false
	}
	if !math.IsInf(b.Lower, -1) && residual < b.Lower*dispersion {
		return false
	}
	return true
}

// SymmetricBand keeps residuals with |r| <= K·disp
type SymmetricBand struct {
	K float64
}

func (b SymmetricBand) Name() string {
	return fmt.Sprintf("symmetric[%g]", b.K)
}

func (b SymmetricBand) Contains(residual, dispersion float64) bool {
	if math.IsInf(b.K, 1) {
		return true
	}
	return math.Abs(residual) <= b.K*dispersion
}

// BandForFalsePositiveRate calibrates a symmetric band from a target
// false-positive rate alpha under a normal residual model: K is the two-sided
// normal quantile for alpha. Meant for use with the StdDev dispersion.
func BandForFalsePositiveRate(alpha float64) (SymmetricBand, error) {
	if alpha <= 0 || alpha >= 1 {
		return SymmetricBand{}, fmt.Errorf("false-positive rate must be in (0, 1), got %g", alpha)
	}
	return SymmetricBand{K: distuv.UnitNormal.Quantile(1 - alpha/2)}, nil
}

// ============================================================================
// POLICY
// ============================================================================

// DefaultLowerMultiple and DefaultUpperMultiple are the historical
// asymmetric cut bounds.
const (
	DefaultLowerMultiple = -10
	DefaultUpperMultiple = 4
)

// Policy pairs a dispersion statistic with a tolerance band
type Policy struct {
	Dispersion Dispersion
	Band       Band
}

// DefaultPolicy returns the MAD dispersion with the asymmetric (-10, +4) band
func DefaultPolicy() Policy {
	return Policy{
		Dispersion: MAD{},
		Band:       AsymmetricBand{Lower: DefaultLowerMultiple, Upper: DefaultUpperMultiple},
	}
}

// Classify computes the dispersion over the residuals the active mask selects,
// then rebuilds the mask fresh from every residual: a point is active iff its
// residual lies inside the band. Previously excluded points re-enter when
// their residuals have come back within tolerance.
func (p Policy) Classify(residuals []float64, active series.Mask) (series.Mask, float64, error) {
	if active.Len() != len(residuals) {
		return series.Mask{}, 0, core.NewSeriesErrorf(
			"mask length %d does not match residual count %d", active.Len(), len(residuals))
	}
	activeResiduals := make([]float64, 0, active.CountActive())
	for i, r := range residuals {
		if active.Active(i) {
			activeResiduals = append(activeResiduals, r)
		}
	}
	if len(activeResiduals) == 0 {
		return series.Mask{}, 0, core.NewInsufficientPointsError(0, 1)
	}
	disp, err := p.Dispersion.Measure(activeResiduals)
	if err != nil {
		return series.Mask{}, 0, err
	}
	bits := make([]bool, len(residuals))
	for i, r := range residuals {
		bits[i] = p.Band.Contains(r, disp)
	}
	return series.FromBools(bits), disp, nil
}
