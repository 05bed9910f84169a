package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/services"
	"kharcha/internal/store"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		// keep the terminal readable unless asked otherwise
		level = "warn"
	}
	logger := cli.SetupLogger(log.ComponentCLI, level)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		return 1
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger.Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	ids, _, err := core.DetectIDGenerator(core.IDStrategy(cfg.IDStrategy))
	if err != nil {
		logger.Error("No usable ID generator", "error", err)
		return 1
	}
	st, err := store.Open(ctx, result.Slot, cfg.StorageKey,
		store.WithIDGenerator(ids),
		store.WithLogger(logger.Slog()))
	if err != nil {
		logger.Error("Failed to open ledger", "error", err)
		return 1
	}

	opts := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentLedger))}
	if result.AMQP != nil {
		opts = append(opts, services.WithPublisher(result.AMQP))
	}
	a := &app{
		ledger: services.NewLedgerService(st, opts...),
		out:    os.Stdout,
		now:    time.Now,
	}

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return 1
	}
	return 0
}
