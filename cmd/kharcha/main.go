package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/core"
	apphttp "kharcha/internal/http"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/services"
	"kharcha/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	ids, strategy, err := core.DetectIDGenerator(core.IDStrategy(cfg.IDStrategy))
	if err != nil {
		logger.Error("No usable ID generator", "error", err, "strategy", cfg.IDStrategy)
		os.Exit(1)
	}

	st, err := store.Open(ctx, result.Slot, cfg.StorageKey,
		store.WithIDGenerator(ids),
		store.WithLogger(logger.WithComponent(log.ComponentStorage).Slog()))
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	m.SetLedgerSize(st.Len())

	opts := []services.Option{
		services.WithMetrics(m),
		services.WithLogger(logger.WithComponent(log.ComponentLedger)),
	}
	// A nil *amqp.Client must not end up inside the Publisher interface.
	if result.AMQP != nil {
		opts = append(opts, services.WithPublisher(result.AMQP))
	}
	ledger := services.NewLedgerService(st, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, ledger,
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apphttp.WithMetrics(m),
		apphttp.WithReadiness(result.Ready),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		logger.Info("Starting kharcha server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"id_strategy", strategy,
			"notifications", result.AMQP != nil,
			"transactions", st.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	<-done
	logger.Info("Server stopped gracefully")
}
