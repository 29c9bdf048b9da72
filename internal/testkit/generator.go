package testkit

import (
	"math"
	"math/rand"

	"aalr/domain/series"
)

// SeriesGeneratorConfig configures the synthetic series generator
type SeriesGeneratorConfig struct {
	Count      int     `json:"count"`
	Start      float64 `json:"start"`
	Step       float64 `json:"step"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	NoiseScale float64 `json:"noise_scale"`
	Seed       int64   `json:"seed"`
}

// DefaultSeriesConfig returns sensible defaults for synthetic series
func DefaultSeriesConfig() SeriesGeneratorConfig {
	return SeriesGeneratorConfig{
		Count:      200,
		Start:      0,
		Step:       1,
		Slope:      0.5,
		Intercept:  2,
		NoiseScale: 0.1,
		Seed:       42,
	}
}

// SeriesGenerator generates deterministic synthetic sample series
type SeriesGenerator struct {
	config SeriesGeneratorConfig
	rng    *rand.Rand
}

// NewSeriesGenerator creates a generator seeded from the config
func NewSeriesGenerator(config SeriesGeneratorConfig) *SeriesGenerator {
	return &SeriesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

func (g *SeriesGenerator) xs() []float64 {
	xs := make([]float64, g.config.Count)
	for i := range xs {
		xs[i] = g.config.Start + float64(i)*g.config.Step
	}
	return xs
}

func (g *SeriesGenerator) noise() float64 {
	if g.config.NoiseScale == 0 {
		return 0
	}
	return g.rng.NormFloat64() * g.config.NoiseScale
}

// Linear generates y = intercept + slope*x plus Gaussian noise
func (g *SeriesGenerator) Linear() (*series.Series, error) {
	xs := g.xs()
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = g.config.Intercept + g.config.Slope*x + g.noise()
	}
	return series.New(xs, ys)
}

// Sine generates y = intercept + amplitude*sin(2*pi*x/period) plus noise
func (g *SeriesGenerator) Sine(amplitude, period float64) (*series.Series, error) {
	xs := g.xs()
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = g.config.Intercept + amplitude*math.Sin(2*math.Pi*x/period) + g.noise()
	}
	return series.New(xs, ys)
}

// LinearWithOutliers generates a linear series and bumps the given indices
// by magnitude. Alternating indices get the bump negated so the outliers
// land on both sides of the trend.
func (g *SeriesGenerator) LinearWithOutliers(indices []int, magnitude float64) (*series.Series, error) {
	xs := g.xs()
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = g.config.Intercept + g.config.Slope*x + g.noise()
	}
	for k, idx := range indices {
		if idx < 0 || idx >= len(ys) {
			continue
		}
		bump := magnitude
		if k%2 == 1 {
			bump = -magnitude
		}
		ys[idx] += bump
	}
	return series.New(xs, ys)
}
