package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/amqp"
	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	"budgetbook/internal/config"
	apphttp "budgetbook/internal/http"
	"budgetbook/internal/ledger"
	applog "budgetbook/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Development convenience; production sets the environment directly.
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr)
	}

	cfg := cli.LoadAndValidateConfig(logger.Logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run wires the store, ledger, publisher and HTTP server and blocks until a
// shutdown signal or a server failure. Deferred cleanups always run.
func run(cfg *config.Config, logger *applog.Logger) error {
	lowBalance, err := cfg.LowBalance()
	if err != nil {
		return fmt.Errorf("invalid low balance threshold: %w", err)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger.Logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	storageLogger := logger.WithComponent(applog.ComponentStorage)
	res, err := backend.NewFactory(storageLogger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				storageLogger.Error("Storage cleanup failed", applog.FieldError, err)
			}
		}()
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Logger),
		ledger.WithLowThreshold(lowBalance),
	}

	if cfg.AMQPEnabled() {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP)
		publisher := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		// Not fatal: Publish redials on its own schedule.
		if err := publisher.Connect(ctx); err != nil {
			amqpLogger.Warn("AMQP broker unreachable at startup, will retry on publish", applog.FieldError, err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				amqpLogger.Warn("AMQP close failed", applog.FieldError, err)
			}
		}()
		opts = append(opts, ledger.WithNotifier(publisher))
	}

	led, err := ledger.Open(ctx, res.Store, opts...)
	if err != nil {
		return err
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CurrencySymbol:     cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, led, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetbook server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
