package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting kharcha-worker")

	cfg := cli.LoadAndValidateWorkerConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.RequireAMQP = true

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	factory := backend.NewFactory(logger.Slog())
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	mirror, err := factory.CreateMirror(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	m := metrics.New()
	w := worker.NewMirrorWorker(result.Slot, cfg.StorageKey, mirror,
		worker.WithMetrics(m),
		worker.WithLogger(logger))

	if cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving worker metrics", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// Catch up on anything changed while the worker was down.
	logger.Info("Performing startup mirror")
	if err := w.Sync(ctx); err != nil {
		logger.Error("Startup mirror failed", "error", err)
	}

	err = result.AMQP.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully", "last_revision", w.LastRevision())
}
