package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"aalr/adapters/bspline"
	"aalr/adapters/dataset"
	"aalr/app"
	"aalr/domain/curve"
	"aalr/domain/robust"
	"aalr/domain/series"
	"aalr/internal/ensemble"
	"aalr/internal/refine"
	"aalr/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aalr-cli",
		Short: "Robust spline fitting for sampled series",
	}

	rootCmd.AddCommand(
		newFitCmd(),
		newSynthCmd(),
		newKnotsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFitCmd() *cobra.Command {
	var (
		knotCount     int
		degree        int
		maxIterations int
		tolerance     int
		lower         float64
		upper         float64
		dispersion    string
		useEnsemble   bool
		duplicates    int
		proximity     float64
		outputFile    string
	)

	cmd := &cobra.Command{
		Use:   "fit [data-file]",
		Short: "Run the iterative robust fit on a CSV or Excel file",
		Long: `Fit a smoothing spline to the samples in a file, iteratively excluding
anomalous points until the active mask stops changing.

Example: aalr-cli fit lightcurve.csv --knots 23 --ensemble --output run.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			disp, err := robust.DispersionByName(dispersion)
			if err != nil {
				return err
			}
			opts := refine.Options{
				Knots:  curve.KnotSpec{Count: knotCount},
				Degree: degree,
				Policy: robust.Policy{
					Dispersion: disp,
					Band:       robust.AsymmetricBand{Lower: lower, Upper: upper},
				},
				MaxIterations:        maxIterations,
				ConvergenceTolerance: tolerance,
			}
			var ens *ensemble.Options
			if useEnsemble {
				ens = &ensemble.Options{Duplicates: duplicates, ProximityFactor: proximity}
			}
			return runFit(cmd.Context(), args[0], opts, ens, outputFile)
		},
	}

	cmd.Flags().IntVar(&knotCount, "knots", curve.DefaultKnotCount, "Target interior knot count for the stride policy")
	cmd.Flags().IntVar(&degree, "degree", curve.DefaultDegree, "Spline degree")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", refine.DefaultMaxIterations, "Refinement iteration cap")
	cmd.Flags().IntVar(&tolerance, "tolerance", 0, "Mask distance accepted as converged")
	cmd.Flags().Float64Var(&lower, "lower", robust.DefaultLowerMultiple, "Lower band multiple of the dispersion (negative)")
	cmd.Flags().Float64Var(&upper, "upper", robust.DefaultUpperMultiple, "Upper band multiple of the dispersion")
	cmd.Flags().StringVar(&dispersion, "dispersion", "mad", "Dispersion statistic: mad or stddev")
	cmd.Flags().BoolVar(&useEnsemble, "ensemble", false, "Harden the fit by aggregating shifted-knot members")
	cmd.Flags().IntVar(&duplicates, "duplicates", ensemble.DefaultDuplicates, "Shifted member count per direction (with --ensemble)")
	cmd.Flags().Float64Var(&proximity, "proximity", ensemble.DefaultProximityFactor, "Gap factor keeping shifted knots off the domain edge (with --ensemble)")
	cmd.Flags().StringVar(&outputFile, "output", "", "Write the run artifact JSON to a file")

	return cmd
}

func runFit(ctx context.Context, dataFile string, opts refine.Options, ens *ensemble.Options, outputFile string) error {
	fmt.Printf("🔧 Fitting samples from %s...\n", dataFile)

	refiner := refine.New(bspline.New())
	fits := app.NewFitService(dataset.NewReader(), refiner, ensemble.New(refiner), nil)

	result, err := fits.Fit(ctx, app.FitRequest{
		Location: dataFile,
		Refine:   opts,
		Ensemble: ens,
	})
	if err != nil {
		return fmt.Errorf("fit failed: %w", err)
	}

	artifact := result.Artifact
	active := artifact.SampleCount - len(artifact.ExcludedIndices)

	fmt.Printf("\n=== FIT RESULTS ===\n")
	fmt.Printf("Run ID: %s\n", artifact.RunID)
	fmt.Printf("Samples: %d\n", artifact.SampleCount)
	fmt.Printf("Converged: %t (%s)\n", artifact.Converged, result.Outcome.Message)
	fmt.Printf("Iterations: %d\n", artifact.Iterations)
	fmt.Printf("Dispersion: %g\n", artifact.Dispersion)
	fmt.Printf("Active Points: %d/%d\n", active, artifact.SampleCount)
	if len(artifact.ExcludedIndices) > 0 {
		fmt.Printf("Excluded Indices: %v\n", artifact.ExcludedIndices)
	}
	fmt.Printf("Interior Knots: %d\n", len(artifact.InteriorKnots))
	fmt.Printf("Runtime: %dms\n", result.RuntimeMs)

	if result.Ensemble != nil {
		base := result.Ensemble.Base
		fmt.Printf("\n=== ENSEMBLE ===\n")
		fmt.Printf("Members Refined: %d\n", result.Ensemble.Members)
		fmt.Printf("Knots After Cure: %d\n", len(result.Ensemble.CuredKnots))
		fmt.Printf("Base Excluded: %d, Final Excluded: %d\n",
			base.Mask.Len()-base.Mask.CountActive(), len(artifact.ExcludedIndices))
	}

	if outputFile != "" {
		jsonData, err := json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode artifact: %w", err)
		}
		if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputFile, err)
		}
		fmt.Printf("\n💾 Run artifact saved to: %s\n", outputFile)
	}

	if artifact.Converged {
		fmt.Printf("\n✅ MASK STABLE\n")
	} else {
		fmt.Printf("\n⚠️  ITERATION CAP REACHED WITHOUT A STABLE MASK\n")
	}
	return nil
}

func newSynthCmd() *cobra.Command {
	var (
		count     int
		shape     string
		slope     float64
		intercept float64
		amplitude float64
		period    float64
		noise     float64
		seed      int64
		outliers  string
		magnitude float64
	)

	defaults := testkit.DefaultSeriesConfig()

	cmd := &cobra.Command{
		Use:   "synth [output-file]",
		Short: "Write a synthetic sample series as CSV",
		Long: `Generate a deterministic noisy series for demos and smoke tests,
optionally spiking chosen indices so the fit has outliers to reject.

Example: aalr-cli synth demo.csv --count 200 --outliers 40,90,150 --magnitude 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := parseIndices(outliers)
			if err != nil {
				return err
			}
			cfg := testkit.SeriesGeneratorConfig{
				Count:      count,
				Step:       1,
				Slope:      slope,
				Intercept:  intercept,
				NoiseScale: noise,
				Seed:       seed,
			}
			return runSynth(args[0], cfg, shape, amplitude, period, indices, magnitude)
		},
	}

	cmd.Flags().IntVar(&count, "count", defaults.Count, "Number of samples")
	cmd.Flags().StringVar(&shape, "shape", "linear", "Trend shape: linear or sine")
	cmd.Flags().Float64Var(&slope, "slope", defaults.Slope, "Trend slope (linear shape)")
	cmd.Flags().Float64Var(&intercept, "intercept", defaults.Intercept, "Trend intercept")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 5, "Wave amplitude (sine shape)")
	cmd.Flags().Float64Var(&period, "period", 50, "Wave period (sine shape)")
	cmd.Flags().Float64Var(&noise, "noise", defaults.NoiseScale, "Gaussian noise scale")
	cmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Random seed")
	cmd.Flags().StringVar(&outliers, "outliers", "", "Comma-separated sample indices to spike")
	cmd.Flags().Float64Var(&magnitude, "magnitude", 25, "Spike magnitude, alternating sign across indices")

	return cmd
}

func runSynth(outputFile string, cfg testkit.SeriesGeneratorConfig, shape string, amplitude, period float64, outliers []int, magnitude float64) error {
	gen := testkit.NewSeriesGenerator(cfg)

	var src *series.Series
	var err error
	switch shape {
	case "linear":
		if len(outliers) > 0 {
			src, err = gen.LinearWithOutliers(outliers, magnitude)
		} else {
			src, err = gen.Linear()
		}
	case "sine":
		if len(outliers) > 0 {
			return fmt.Errorf("outlier injection only supports the linear shape")
		}
		src, err = gen.Sine(amplitude, period)
	default:
		return fmt.Errorf("unknown shape %q, use linear or sine", shape)
	}
	if err != nil {
		return fmt.Errorf("failed to generate series: %w", err)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputFile, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"x", "y"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < src.Len(); i++ {
		record := []string{
			strconv.FormatFloat(src.XAt(i), 'g', -1, 64),
			strconv.FormatFloat(src.YAt(i), 'g', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", outputFile, err)
	}

	fmt.Printf("💾 Wrote %d samples to %s", src.Len(), outputFile)
	if len(outliers) > 0 {
		fmt.Printf(" with spikes at %v", outliers)
	}
	fmt.Println()
	return nil
}

func parseIndices(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid outlier index %q", part)
		}
		indices = append(indices, n)
	}
	return indices, nil
}

func newKnotsCmd() *cobra.Command {
	var (
		knotCount int
		degree    int
	)

	cmd := &cobra.Command{
		Use:   "knots [data-file]",
		Short: "Show where the stride policy places interior knots for a file",
		Long: `Resolve the count-driven knot policy against a sample file without
fitting anything, useful for sizing a fit before running it.

Example: aalr-cli knots lightcurve.csv --knots 23`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKnots(cmd.Context(), args[0], knotCount, degree)
		},
	}

	cmd.Flags().IntVar(&knotCount, "knots", curve.DefaultKnotCount, "Target interior knot count")
	cmd.Flags().IntVar(&degree, "degree", curve.DefaultDegree, "Spline degree for the free-parameter count")

	return cmd
}

func runKnots(ctx context.Context, dataFile string, knotCount, degree int) error {
	src, err := dataset.NewReader().Read(ctx, dataFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dataFile, err)
	}

	knots, err := curve.KnotSpec{Count: knotCount}.Resolve(src.X())
	if err != nil {
		return fmt.Errorf("failed to resolve knots: %w", err)
	}

	lo, hi := src.Domain()
	fmt.Printf("=== KNOT PLACEMENT ===\n")
	fmt.Printf("Samples: %d over [%g, %g]\n", src.Len(), lo, hi)
	fmt.Printf("Target Count: %d\n", knotCount)
	fmt.Printf("Interior Knots: %d\n", len(knots))
	fmt.Printf("Free Parameters: %d\n", curve.FreeParams(len(knots), degree))

	if len(knots) == 0 {
		fmt.Println("Fewer samples than the target count, the fit degenerates to a single segment.")
		return nil
	}
	for i, k := range knots {
		fmt.Printf("%3d. %g\n", i+1, k)
	}
	return nil
}
