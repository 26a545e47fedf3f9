// Package main is a command line front end that runs one ranking against the
// built-in sample catalog or a catalog file and prints the results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/config"
	"github.com/onnwee/skyrank/internal/pipeline"
	"github.com/onnwee/skyrank/internal/ranking"
	"github.com/onnwee/skyrank/internal/weather"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	lat, lon    float64
	at          string
	seed        int64
	topN        int
	catalogPath string
	calibration string
	weatherURL  string
	noWeather   bool
	noTrend     bool
	noMatrix    bool
	noLearned   bool
	noFusion    bool
	asJSON      bool
	progress    bool
	verbose     bool
}

// usageError marks bad flags or arguments, which exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	sample := catalog.SampleObserver(time.Time{})
	o := &options{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank tonight's visible stars, planets and moons for one observer",
		Long: `Run the full ranking pipeline once and print a table per category.

The pipeline scores every object above the horizon, applies the trend,
matrix and learned boosters, and fuses their rankings with a seeded genetic
search. Equal seeds give equal rankings.

Examples:
  # Sample catalog and observer, tonight, with the live forecast
  rank

  # A fixed time and seed without network access
  rank --time 2024-03-01T21:00:00Z --seed 7 --no-weather

  # Your own catalog, printed as JSON
  rank --catalog catalog.yaml --json
`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError{err}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.execute(cmd.Context(), stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.Float64Var(&o.lat, "lat", sample.Latitude, "observer latitude in degrees")
	f.Float64Var(&o.lon, "lon", sample.Longitude, "observer longitude in degrees, east positive")
	f.StringVarP(&o.at, "time", "t", "", "observation time (RFC 3339); defaults to now")
	f.Int64VarP(&o.seed, "seed", "s", config.DefaultSeed, "random seed")
	f.IntVarP(&o.topN, "top", "n", 0, "objects per category; 0 uses the policy default")
	f.StringVarP(&o.catalogPath, "catalog", "c", "", "YAML or JSON catalog file; defaults to the built-in sample")
	f.StringVar(&o.calibration, "calibration", "", "scoring policy calibration file (JSON)")
	f.StringVar(&o.weatherURL, "weather-url", config.DefaultWeatherBaseURL, "forecast API base URL")
	f.BoolVar(&o.noWeather, "no-weather", false, "skip the forecast and use the neutral visibility chance")
	f.BoolVar(&o.noTrend, "no-trend", false, "disable the trend layer")
	f.BoolVar(&o.noMatrix, "no-matrix", false, "disable the matrix preference layer")
	f.BoolVar(&o.noLearned, "no-learned", false, "disable the learned preference layer")
	f.BoolVar(&o.noFusion, "no-fusion", false, "disable rank fusion")
	f.BoolVar(&o.asJSON, "json", false, "print the full result as JSON")
	f.BoolVar(&o.progress, "progress", false, "report fusion progress on stderr")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "verbose logging on stderr")
	return cmd
}

// run returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "error:", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprint(stderr, cmd.UsageString())
		return 2
	}
	return 1
}

func (o *options) execute(ctx context.Context, stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	req, err := o.request(ctx)
	if err != nil {
		return err
	}
	if o.progress {
		req.Progress = func(c catalog.Category, gen int, best float64) {
			if (gen+1)%10 == 0 {
				fmt.Fprintf(stderr, "fusion %-6s generation %4d  best fitness %.4f\n", c, gen+1, best)
			}
		}
	}

	policy, err := ranking.LoadCalibration(o.calibration)
	if err != nil {
		return err
	}

	var assessor *weather.Assessor
	if !o.noWeather {
		assessor = &weather.Assessor{
			Provider: weather.NewOpenMeteoClient(o.weatherURL, &http.Client{Timeout: config.DefaultWeatherTimeout}),
			Timeout:  config.DefaultWeatherTimeout,
			Logger:   logger,
		}
	}

	p := pipeline.New(pipeline.Config{Policy: policy, Weather: assessor, Logger: logger})
	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(stdout, res, o.topN, policy.TopN)
	return nil
}

// request builds the pipeline request from the flags and the sample
// observer preferences.
func (o *options) request(ctx context.Context) (pipeline.Request, error) {
	at := time.Now().UTC()
	if o.at != "" {
		t, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid --time: %w", err)
		}
		at = t.UTC()
	}

	var source catalog.Source = catalog.StaticSource{}
	if o.catalogPath != "" {
		source = catalog.FileSource{Path: o.catalogPath}
	}
	cat, err := source.Load(ctx)
	if err != nil {
		return pipeline.Request{}, err
	}
	if cat.Empty() {
		return pipeline.Request{}, fmt.Errorf("%s catalog: %w", source.Name(), catalog.ErrEmptyCatalog)
	}

	observer := catalog.SampleObserver(at)
	observer.Latitude, observer.Longitude = o.lat, o.lon
	if err := observer.Validate(); err != nil {
		return pipeline.Request{}, err
	}

	return pipeline.Request{
		Catalog:      cat,
		Observer:     observer,
		Interactions: catalog.SampleInteractions(),
		Matrix:       catalog.SampleMatrixPreferences(),
		Learned:      catalog.SampleLearnedPreferences(),
		Layers: pipeline.Layers{
			Trend:   !o.noTrend,
			Matrix:  !o.noMatrix,
			Learned: !o.noLearned,
			Fusion:  !o.noFusion,
		},
		TopN: o.topN,
		Seed: o.seed,
	}, nil
}

func printResult(w io.Writer, res *pipeline.Result, topN, policyTopN int) {
	if topN <= 0 {
		topN = policyTopN
	}
	fmt.Fprintf(w, "Observed %s  seed %d  visibility chance %.0f%% (%s)\n\n",
		res.ObservedAt.Format(time.RFC3339), res.Seed, res.Weather.Chance, res.Weather.Reason)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range res.Categories {
		fmt.Fprintf(tw, "%s (%d visible)\n", c.Category, c.Visible)
		if len(c.Views) == 0 {
			fmt.Fprintln(tw, "  nothing above the horizon")
			fmt.Fprintln(tw)
			continue
		}
		fmt.Fprintln(tw, "  #\tname\tscore\tmatch\talt\taz\tboost")
		for i, v := range c.Views {
			fmt.Fprintf(tw, "  %d\t%s\t%.2f\t%.0f%%\t%.1f\t%.1f\t%s\n",
				i+1, v.Name, v.Score, v.MatchPercentage, v.Altitude, v.Azimuth, v.BoostDescription)
		}
		if c.Weights != nil {
			wt := c.Weights.Weights
			fmt.Fprintf(tw, "  fused (weights %.2f/%.2f/%.2f/%.2f, fitness %.4f)\n", wt[0], wt[1], wt[2], wt[3], c.Weights.Fitness)
			for i, f := range c.Fused {
				if i >= topN {
					break
				}
				fmt.Fprintf(tw, "  %d\t%s\t%.2f\t\t\t\t\n", f.FinalRank+1, f.Name, f.Estimate)
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	fmt.Fprintln(w, "Tonight's top picks")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, v := range res.Combined {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%.2f\n", i+1, v.Name, v.Category, v.Score)
	}
	tw.Flush()
}
