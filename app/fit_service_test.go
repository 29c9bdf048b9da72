package app

import (
	"context"
	"fmt"
	"testing"

	"aalr/domain/core"
	"aalr/domain/curve"
	"aalr/domain/robust"
	"aalr/domain/series"
	"aalr/internal/config"
	"aalr/internal/ensemble"
	apperrors "aalr/internal/errors"
	"aalr/internal/refine"
	"aalr/internal/testkit"
	"aalr/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSeriesReader struct {
	mock.Mock
}

func (m *MockSeriesReader) Read(ctx context.Context, location string) (*series.Series, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*series.Series), args.Error(1)
}

// inlierSeries alternates small residuals around the fake fitter's zero
// curve; the default band keeps every point, so refinement converges on the
// first iteration.
func inlierSeries(t *testing.T) *series.Series {
	t.Helper()
	s, err := series.New(
		[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		[]float64{1, -1, 2, -2, 1.5, -1.5, 0.5, -0.5, 1, -1},
	)
	assert.NoError(t, err)
	return s
}

// spikedSeries is inlierSeries with one residual far above the upper cut
func spikedSeries(t *testing.T) *series.Series {
	t.Helper()
	s, err := series.New(
		[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		[]float64{1, -1, 2, -2, 1.5, 50, 0.5, -0.5, 1, -1},
	)
	assert.NoError(t, err)
	return s
}

func TestFitServiceRefinesAndPersists(t *testing.T) {
	kit := testkit.NewTestKit()
	fitter := kit.Fitter()
	ledger := kit.Ledger()
	service := NewFitService(nil, refine.New(fitter), nil, ledger)

	result, err := service.Fit(context.Background(), FitRequest{
		Series:  spikedSeries(t),
		Persist: true,
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, result.Persisted)
	assert.True(t, result.Outcome.Converged)
	assert.Equal(t, 2, result.Outcome.Iterations)
	assert.Equal(t, []int{5}, result.Artifact.ExcludedIndices)
	assert.Equal(t, 10, result.Artifact.SampleCount)
	assert.Equal(t, 1, ledger.Count())

	stored, err := service.GetRun(context.Background(), result.RunID)
	assert.NoError(t, err)
	assert.Equal(t, result.Artifact.Fingerprint, stored.Fingerprint)
	assert.Equal(t, result.Artifact.Iterations, stored.Iterations)
}

func TestFitServiceReadsThroughReaderPort(t *testing.T) {
	reader := &MockSeriesReader{}
	reader.On("Read", mock.Anything, "samples.csv").Return(inlierSeries(t), nil)

	kit := testkit.NewTestKit()
	service := NewFitService(reader, refine.New(kit.Fitter()), nil, nil)

	result, err := service.Fit(context.Background(), FitRequest{Location: "samples.csv"})

	assert.NoError(t, err)
	assert.True(t, result.Outcome.Converged)
	assert.Equal(t, 1, result.Outcome.Iterations)
	assert.False(t, result.Persisted)
	reader.AssertExpectations(t)
}

func TestFitServiceWrapsReaderFailure(t *testing.T) {
	reader := &MockSeriesReader{}
	reader.On("Read", mock.Anything, "broken.csv").Return(nil, fmt.Errorf("corrupt stream"))

	kit := testkit.NewTestKit()
	service := NewFitService(reader, refine.New(kit.Fitter()), nil, nil)

	result, err := service.Fit(context.Background(), FitRequest{Location: "broken.csv"})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.CodeReadError, apperrors.GetCode(err))
}

func TestFitServiceRunsEnsembleWhenRequested(t *testing.T) {
	kit := testkit.NewTestKit()
	fitter := kit.Fitter()
	refiner := refine.New(fitter)
	service := NewFitService(nil, refiner, ensemble.New(refiner), nil)

	result, err := service.Fit(context.Background(), FitRequest{
		Series:   inlierSeries(t),
		Refine:   refine.Options{Knots: curve.ExplicitKnots([]float64{3, 7})},
		Ensemble: &ensemble.Options{},
	})

	assert.NoError(t, err)
	assert.NotNil(t, result.Ensemble)
	assert.Equal(t, 2*ensemble.DefaultDuplicates, result.Ensemble.Members)
	// Base fit, six member fits, final fit on the cured knots.
	assert.Equal(t, 8, fitter.Calls())
	assert.True(t, result.Outcome.Converged)
	assert.Equal(t, []float64{3, 7}, result.Artifact.InteriorKnots)
}

func TestFitServiceRejectsAmbiguousSource(t *testing.T) {
	kit := testkit.NewTestKit()
	service := NewFitService(&MockSeriesReader{}, refine.New(kit.Fitter()), nil, nil)

	_, err := service.Fit(context.Background(), FitRequest{
		Series:   inlierSeries(t),
		Location: "samples.csv",
	})
	assert.True(t, core.IsInvalidInputError(err))

	_, err = service.Fit(context.Background(), FitRequest{})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestFitServiceRequiresLedgerForPersist(t *testing.T) {
	kit := testkit.NewTestKit()
	service := NewFitService(nil, refine.New(kit.Fitter()), nil, nil)

	_, err := service.Fit(context.Background(), FitRequest{
		Series:  inlierSeries(t),
		Persist: true,
	})
	assert.True(t, core.IsInvalidInputError(err))

	_, err = service.ListRuns(context.Background(), ports.RunFilters{})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestRefineOptionsFromConfig(t *testing.T) {
	opts, err := RefineOptionsFromConfig(config.FitConfig{
		MaxIterations: 25,
		KnotCount:     12,
		Degree:        3,
		LowerMultiple: -8,
		UpperMultiple: 3,
		Dispersion:    "stddev",
	})

	assert.NoError(t, err)
	assert.Equal(t, 25, opts.MaxIterations)
	assert.Equal(t, 12, opts.Knots.Count)
	assert.Equal(t, robust.StdDev{}, opts.Policy.Dispersion)
	assert.Equal(t, robust.AsymmetricBand{Lower: -8, Upper: 3}, opts.Policy.Band)

	_, err = RefineOptionsFromConfig(config.FitConfig{Dispersion: "trimmed"})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestEnsembleOptionsFromConfig(t *testing.T) {
	opts := EnsembleOptionsFromConfig(config.EnsembleConfig{
		Duplicates:      5,
		ProximityFactor: 0.01,
		MaxConcurrent:   2,
	})

	assert.Equal(t, 5, opts.Duplicates)
	assert.Equal(t, 0.01, opts.ProximityFactor)
	assert.Equal(t, 2, opts.MaxConcurrent)
}
