package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cnawatch/cnawatch/internal/compute"
	"github.com/cnawatch/cnawatch/internal/config"
	"github.com/cnawatch/cnawatch/internal/ingest"
	"github.com/cnawatch/cnawatch/internal/metrics"
	"github.com/cnawatch/cnawatch/internal/notify"
	"github.com/cnawatch/cnawatch/internal/registry"
	"github.com/cnawatch/cnawatch/internal/report"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	recordsDir := flag.String("records", "", "records root, overrides the config file")
	outputPath := flag.String("out", "", "report destination, overrides the config file")
	watchMode := flag.Bool("watch", false, "stay resident, re-running on config changes and on watch.interval")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("cnawatch starting", "config", *configPath)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *recordsDir, *outputPath)

	if lvl := parseLevel(cfg.LogLevel); lvl != slog.LevelInfo {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	}
	slog.Info("config loaded",
		"records_dir", cfg.RecordsDir,
		"output_path", cfg.OutputPath,
		"monitoring_window_days", cfg.MonitoringWindowDays,
		"baseline_months", cfg.BaselineMonths,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*watchMode {
		if err := runOnce(ctx, cfg); err != nil {
			slog.Error("analysis failed", "err", err)
			os.Exit(1)
		}
		return
	}

	// Watch mode: this goroutine owns the runs; the config watcher and the
	// ticker only hand it work, so runs never overlap.
	reload := make(chan *config.Config, 1)
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			applyOverrides(updated, *recordsDir, *outputPath)
			select {
			case reload <- updated:
			default:
			}
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	if err := runOnce(ctx, cfg); err != nil {
		slog.Error("analysis failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("cnawatch shutting down")
			return
		case updated := <-reload:
			cfg = updated
			ticker.Reset(cfg.Watch.Interval)
			if err := runOnce(ctx, cfg); err != nil {
				slog.Error("analysis failed", "err", err)
			}
		case <-ticker.C:
			if err := runOnce(ctx, cfg); err != nil {
				slog.Error("analysis failed", "err", err)
			}
		}
	}
}

// runOnce executes one full analysis: fetch the organization list, ingest
// the record corpus, classify, write the report, then publish the metrics
// snapshot and webhook notifications. Every run recomputes from the full
// corpus and overwrites the report wholesale.
func runOnce(ctx context.Context, cfg *config.Config) error {
	started := time.Now().UTC()

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()
	client := &http.Client{Timeout: cfg.FetchTimeout}
	reg, err := registry.Fetch(fetchCtx, client, cfg.CNAListURL)
	if err != nil {
		slog.Warn("organization list unavailable, continuing with short names only", "err", err)
		reg = registry.Empty()
	} else {
		slog.Info("organization list loaded", "entries", reg.Len())
	}

	records, stats, err := ingest.ReadTree(cfg.RecordsDir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no usable records under %s", cfg.RecordsDir)
	}

	w := compute.Partition(started, cfg.MonitoringWindowDays, cfg.BaselineMonths, cfg.RecentWindowDays)
	slog.Info("analyzing activity",
		"monitoring_start", w.MonitoringStart.Format("2006-01-02"),
		"baseline_start", w.BaselineStart.Format("2006-01-02"),
		"records", len(records),
	)

	act := compute.Aggregate(records, w)
	rep := report.Assemble(w, act, reg)
	slog.Info("classification complete",
		"total", rep.Metadata.TotalCNAs,
		"growth", rep.Metadata.Growth,
		"normal", rep.Metadata.Normal,
		"declining", rep.Metadata.Declining,
		"inactive", rep.Metadata.Inactive,
		"anomalies", rep.Metadata.TotalAnomalies,
	)

	if err := report.Write(cfg.OutputPath, rep); err != nil {
		return err
	}
	slog.Info("report written", "path", cfg.OutputPath)

	if cfg.MetricsPath != "" {
		if err := metrics.WriteTextfile(cfg.MetricsPath, rep, stats, started); err != nil {
			slog.Error("metrics snapshot failed", "err", err)
		}
	}

	notify.New(cfg.Notify).Send(rep)
	return nil
}

// loadConfig reads the config file, falling back to pure defaults when no
// file exists at the default path. An explicitly given path must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) && path == config.DefaultPath {
		slog.Info("no config file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return cfg, err
}

// applyOverrides lets the records/out flags win over the config file.
func applyOverrides(cfg *config.Config, recordsDir, outputPath string) {
	if recordsDir != "" {
		cfg.RecordsDir = recordsDir
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
}

// parseLevel maps the config log_level string to a slog level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
