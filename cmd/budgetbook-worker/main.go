package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/amqp"
	"budgetbook/internal/cli"
	"budgetbook/internal/config"
	applog "budgetbook/internal/log"
	"budgetbook/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr)
	}

	cfg := cli.LoadAndValidateConfig(logger.Logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// run consumes the change feed into the journal until a shutdown signal.
func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger.Logger)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.JournalFile), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(cfg.JournalFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	workerLogger := logger.WithComponent(applog.ComponentWorker)
	journal := worker.NewJournal(f, workerLogger.Logger)

	consumer := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	defer func() {
		if err := consumer.Close(); err != nil {
			workerLogger.Warn("AMQP close failed", applog.FieldError, err)
		}
	}()

	logger.Info("Starting budgetbook-worker",
		applog.FieldOperation, applog.OpStartup,
		"journal", cfg.JournalFile,
		"queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := consumer.Consume(gctx, journal.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err = g.Wait()

	logger.Info("Journal totals", applog.FieldOperation, applog.OpShutdown, "counts", journal.Counts())
	return err
}
