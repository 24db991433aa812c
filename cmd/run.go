package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/census-geocode/internal/batch"
	"github.com/sells-group/census-geocode/internal/cache"
	"github.com/sells-group/census-geocode/internal/config"
	"github.com/sells-group/census-geocode/internal/loader"
	"github.com/sells-group/census-geocode/internal/metrics"
	"github.com/sells-group/census-geocode/internal/output"
	"github.com/sells-group/census-geocode/pkg/geocode"
)

var (
	runInput              string
	runOutput             string
	runColumn             string
	runEncoding           string
	runSheet              string
	runBackoffMinutes     int
	runProgressInterval   int
	runCheckpointInterval int
	runExpectedState      string
	runMetricsAddr        string
	runSkipSelfTest       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Geocode every address in the input table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.With(zap.String("run_id", uuid.NewString()))
		return runGeocode(ctx, cfg, log, runSkipSelfTest)
	},
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		c.InputPath = runInput
	}
	if flags.Changed("output") {
		c.OutputPath = runOutput
	}
	if flags.Changed("column") {
		c.AddressColumnName = runColumn
	}
	if flags.Changed("encoding") {
		c.InputEncoding = runEncoding
	}
	if flags.Changed("sheet") {
		c.InputSheet = runSheet
	}
	if flags.Changed("backoff-minutes") {
		c.BackoffMinutes = runBackoffMinutes
	}
	if flags.Changed("progress-interval") {
		c.ProgressLogInterval = runProgressInterval
	}
	if flags.Changed("checkpoint-interval") {
		c.CheckpointInterval = runCheckpointInterval
	}
	if flags.Changed("expected-state") {
		c.ExpectedStateCode = runExpectedState
	}
	if flags.Changed("metrics-addr") {
		c.Metrics.Addr = runMetricsAddr
	}
}

// runGeocode loads the input, checks connectivity, and runs the batch. The
// metrics server, when configured, shares an errgroup with the batch and is
// stopped once the batch returns.
func runGeocode(ctx context.Context, c *config.Config, log *zap.Logger, skipSelfTest bool) error {
	addresses, err := loader.LoadAddresses(c.InputPath, c.AddressColumnName,
		loader.WithEncoding(c.InputEncoding),
		loader.WithSheet(c.InputSheet),
	)
	if err != nil {
		return err
	}
	log.Info("loaded addresses",
		zap.String("input", c.InputPath),
		zap.String("column", c.AddressColumnName),
		zap.Int("count", len(addresses)),
	)

	client := newGeocodeClient(c, log)

	if !skipSelfTest {
		if err := geocode.SelfTest(ctx, client, geocode.SelfTestOptions{
			Address:       c.SelfTest.Address,
			ExpectedTract: c.SelfTest.ExpectedTract,
			Logger:        log,
		}); err != nil {
			return err
		}
	}

	resultCache, err := cache.New(ctx, c.Cache)
	if err != nil {
		return err
	}
	if resultCache != nil {
		defer resultCache.Close() //nolint:errcheck
		log.Info("result cache enabled", zap.String("driver", c.Cache.Driver))
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	runner, err := batch.New(client, output.NewWriter(output.FormatFromPath(c.OutputPath)), batch.Options{
		OutputPath:         c.OutputPath,
		Backoff:            c.Backoff(),
		ProgressInterval:   c.ProgressLogInterval,
		CheckpointInterval: c.CheckpointInterval,
		ExpectedStateCode:  c.ExpectedStateCode,
	},
		batch.WithCache(resultCache),
		batch.WithMetrics(m),
		batch.WithLogger(log),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	if c.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(runCtx, c.Metrics.Addr, reg, log)
		})
	}

	g.Go(func() error {
		defer stopMetrics()
		_, _, err := runner.Run(runCtx, addresses)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}
		return nil
	})

	return g.Wait()
}

func newGeocodeClient(c *config.Config, log *zap.Logger) geocode.Client {
	return geocode.NewClient(
		geocode.WithHTTPClient(&http.Client{Timeout: c.Census.Timeout()}),
		geocode.WithBaseURL(c.Census.BaseURL),
		geocode.WithBenchmark(c.Census.Benchmark),
		geocode.WithVintage(c.Census.Vintage),
		geocode.WithRateLimit(c.Census.RateLimit),
		geocode.WithLogger(log),
	)
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input CSV or XLSX file (overrides input_path)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output file; extension picks csv, xlsx, or geojson (overrides output_path)")
	runCmd.Flags().StringVar(&runColumn, "column", "Address", "name of the address column")
	runCmd.Flags().StringVar(&runEncoding, "encoding", "", "input text encoding, e.g. windows-1252 (default: utf-8)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	runCmd.Flags().IntVar(&runBackoffMinutes, "backoff-minutes", 30, "sleep after a rate-limited response")
	runCmd.Flags().IntVar(&runProgressInterval, "progress-interval", 1000, "log progress every N results")
	runCmd.Flags().IntVar(&runCheckpointInterval, "checkpoint-interval", 10000, "write <output>_bak every N results")
	runCmd.Flags().StringVar(&runExpectedState, "expected-state", "36", "warn when a result's state FIPS code differs")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	runCmd.Flags().BoolVar(&runSkipSelfTest, "skip-selftest", false, "skip the connectivity self-test")
	rootCmd.AddCommand(runCmd)
}
