package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sessionlab/rollcall/internal/api"
	"github.com/sessionlab/rollcall/internal/config"
	"github.com/sessionlab/rollcall/internal/events"
	"github.com/sessionlab/rollcall/internal/pipeline"
	"github.com/sessionlab/rollcall/internal/report"
	"github.com/sessionlab/rollcall/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("rollcall starting", "export_dir", cfg.ExportDir, "output_dir", cfg.OutputDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database (optional — without it the run only writes files)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without persistence")
	}

	// NATS (optional — without it no events are published)
	var bus *events.Client
	if cfg.NatsURL != "" {
		var err error
		bus, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without events")
	}

	runner := pipeline.New(cfg, db, bus, slog.Default())
	res, err := runner.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Print(report.FormatSummary(res.Summary))

	if !cfg.Serve {
		return
	}

	// HTTP API serving the completed run
	srv := api.NewServer(cfg.Port)
	srv.SetResults(res.Summary, res.Participants, res.Anomalies)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("rollcall ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("rollcall stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
