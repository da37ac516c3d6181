package main

// Package main is the entry point for the anomalyscan command.
//
// anomalyscan loads metric series from a YAML or JSON file, runs the
// detector ensemble over them and prints the ranked anomalies as JSON.
//
// Flow:
//   1. Load and validate configuration (file, ANOMALY_* environment, defaults)
//   2. Build the zap logger from the logging section
//   3. Decode the input series file
//   4. Run the ensemble under a signal-aware context
//   5. Apply the presentation filter and write the result to stdout
//   6. With -watch, repeat 4 and 5 for every valid config file revision
//
// Exit status is 1 for configuration, input or validation errors and 130
// when interrupted.

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/raold/second-brain-sub006/internal/analytics"
	"github.com/raold/second-brain-sub006/internal/analytics/anomaly"
	"github.com/raold/second-brain-sub006/internal/config"
	"github.com/raold/second-brain-sub006/internal/logging"
	"github.com/raold/second-brain-sub006/internal/seriesfile"
)

type options struct {
	configPath  string
	inputPath   string
	sensitivity float64
	minSeverity float64
	metrics     string
	types       string
	since       time.Duration
	metricsOut  string
	watch       bool
}

// report is the JSON document written to stdout.
type report struct {
	Count     int               `json:"count"`
	Anomalies []anomaly.Anomaly `json:"anomalies"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "anomalyscan: %v\n", err)
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("anomalyscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&opts.inputPath, "input", "", "path to YAML/JSON series file (required)")
	fs.Float64Var(&opts.sensitivity, "sensitivity", 0, "confidence multiplier in (0, 2]; 0 uses the configured value")
	fs.Float64Var(&opts.minSeverity, "min-severity", 0, "drop anomalies below this severity")
	fs.StringVar(&opts.metrics, "metric", "", "comma-separated metric types to report")
	fs.StringVar(&opts.types, "type", "", "comma-separated anomaly types to report")
	fs.DurationVar(&opts.since, "since", 0, "only report anomalies newer than this long ago")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "write prometheus metrics in text format to this file")
	fs.BoolVar(&opts.watch, "watch", false, "rescan whenever the config file changes until interrupted")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.inputPath == "" {
		fs.Usage()
		return nil, errors.New("-input is required")
	}
	if opts.watch && opts.configPath == "" {
		return nil, errors.New("-watch requires -config")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	// Load configuration
	mgr, err := config.NewConfigManager(opts.configPath)
	if err != nil {
		return err
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := *mgr.Get(ctx)
	opts.applyOverrides(&cfg)
	if err := cfg.Check(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if _, err := buildFilter(opts, time.Now()); err != nil {
		return err
	}

	series, err := seriesfile.Load(opts.inputPath)
	if err != nil {
		return err
	}
	logger.Info("series loaded",
		zap.String("input", opts.inputPath),
		zap.Int("metrics", len(series)),
	)

	var updates <-chan config.Config
	if opts.watch {
		updates = mgr.Watch(ctx)
	}

	if err := scan(ctx, &cfg, series, opts, logger, stdout); err != nil {
		return err
	}
	if updates == nil {
		return nil
	}

	// Watch mode: rescan the same input on every valid config revision. The
	// logger keeps the settings it was started with.
	for {
		select {
		case <-ctx.Done():
			return nil
		case next := <-updates:
			opts.applyOverrides(&next)
			if err := next.Check(); err != nil {
				logger.Warn("ignoring configuration revision", zap.Error(err))
				continue
			}
			logger.Info("configuration reloaded", zap.Float64("sensitivity", next.Ensemble.Sensitivity))
			if err := scan(ctx, &next, series, opts, logger, stdout); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// applyOverrides writes flag values that take precedence over cfg.
func (o *options) applyOverrides(cfg *config.Config) {
	if o.sensitivity != 0 {
		cfg.Ensemble.Sensitivity = o.sensitivity
	}
}

// scan runs one detection pass and writes its report.
func scan(ctx context.Context, cfg *config.Config, series map[analytics.MetricType]*analytics.MetricSeries,
	opts *options, logger *zap.Logger, stdout io.Writer) error {
	filter, err := buildFilter(opts, time.Now())
	if err != nil {
		return err
	}

	ensemble := anomaly.NewEnsemble(cfg.AnomalyConfig(), logger)
	found, err := ensemble.Detect(ctx, series)
	if err != nil {
		return fmt.Errorf("detection aborted: %w", err)
	}
	found = filter.Apply(found)

	logger.Info("detection finished",
		zap.Int("anomalies", len(found)),
		zap.Float64("sensitivity", cfg.Ensemble.Sensitivity),
	)

	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, prometheus.DefaultGatherer); err != nil {
			logger.Warn("failed to write metrics", zap.String("path", opts.metricsOut), zap.Error(err))
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report{Count: len(found), Anomalies: found})
}

func buildFilter(opts *options, now time.Time) (anomaly.Filter, error) {
	filter := anomaly.Filter{MinSeverity: opts.minSeverity}

	for _, s := range splitList(opts.metrics) {
		mt, err := analytics.ParseMetricType(s)
		if err != nil {
			return anomaly.Filter{}, err
		}
		filter.MetricTypes = append(filter.MetricTypes, mt)
	}
	for _, s := range splitList(opts.types) {
		typ, err := anomaly.ParseAnomalyType(s)
		if err != nil {
			return anomaly.Filter{}, err
		}
		filter.AnomalyTypes = append(filter.AnomalyTypes, typ)
	}
	if opts.since > 0 {
		filter.Since = now.Add(-opts.since)
	}
	return filter, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
