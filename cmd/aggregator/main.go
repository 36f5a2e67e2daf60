package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"instragg/internal/aggregation"
	"instragg/internal/config"
	"instragg/internal/exporter"
	"instragg/internal/infrastructure"
	"instragg/internal/loader"
	"instragg/internal/metrics"
	transporthttp "instragg/internal/transport/http"
	"instragg/pkg/contracts"
)

func main() {
	input := flag.String("input", "-", "input file (.csv/.txt/.xlsx), or - for stdin")
	configPath := flag.String("config", "", "optional YAML config file")
	out := flag.String("out", "-", "output file, or - for stdout")
	format := flag.String("format", "", "output format: csv or json (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "diagnostics listen address, e.g. :9090 (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureRunID(context.Background())

	if err := run(ctx, cfg, logger, *input, *out); err != nil {
		logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, input, out string) error {
	start := time.Now()

	boundary, err := cfg.Aggregation.Boundary()
	if err != nil {
		return fmt.Errorf("parse current date boundary: %w", err)
	}
	year, month := cfg.Aggregation.FilterMonth()

	collector := metrics.New()
	engine := aggregation.NewEngine(aggregation.Params{
		WindowSize:          cfg.Aggregation.WindowSize,
		Boundary:            boundary,
		CapacityHint:        cfg.Aggregation.CapacityHint,
		MeanInstrument:      cfg.Aggregation.MeanInstrument,
		MonthMeanInstrument: cfg.Aggregation.MonthMeanInstrument,
		MonthMeanYear:       year,
		MonthMeanMonth:      month,
		VarianceInstrument:  cfg.Aggregation.VarianceInstrument,
	}, logger, collector)

	if cfg.Metrics.Addr != "" {
		diag := transporthttp.NewDiagHandler(engine.Stats, logger)
		srv := transporthttp.Serve(cfg.Metrics.Addr, transporthttp.NewRouter(diag, collector.Registry()), logger)
		defer srv.Close()
		logger.InfoContext(ctx, "diagnostics listener started", slog.String("addr", cfg.Metrics.Addr))
	}

	logger.InfoContext(ctx, "starting aggregation run",
		slog.String("input", input),
		slog.String("boundary", cfg.Aggregation.CurrentDate),
		slog.Int("window_size", cfg.Aggregation.WindowSize))

	ld := loader.New(logger)
	if input == "-" {
		err = ld.Stream(ctx, os.Stdin, engine)
	} else {
		err = ld.LoadFile(ctx, input, engine)
	}
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	results, err := engine.Finalize(ctx)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	collector.SetRunDuration(time.Since(start).Seconds())

	dest, closeDest, err := openOutput(out)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	switch cfg.Output.Format {
	case "json":
		err = exporter.WriteJSON(dest, results)
	default:
		err = exporter.WriteCSV(dest, results, exporter.WriteOptions{BOMPrefix: cfg.Output.BOM})
	}
	if err != nil {
		closeDest()
		return fmt.Errorf("write results: %w", err)
	}
	// A failed close on a file output means truncated results.
	if err := closeDest(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	stats := engine.Stats()
	logger.InfoContext(ctx, "aggregation run complete",
		slog.Int64("lines_read", stats.LinesRead),
		slog.Int64("accepted", stats.Accepted),
		slog.Int64("rejected", stats.Rejected()),
		slog.Int("instruments", stats.Instruments),
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

// openOutput resolves "-" to stdout and otherwise creates the file.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
