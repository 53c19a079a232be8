package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/allisson/eventhub/internal/app"
	"github.com/allisson/eventhub/internal/config"
)

// RunServer starts the HTTP API, the metrics server and, when enabled, the scheduler.
// Blocks until SIGINT/SIGTERM or a fatal component error. Shutdown is delegated to the
// container, which stops the listeners first and then drains in-flight deliveries.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))
	defer closeContainer(container, logger)

	if _, err := container.Telemetry(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The scheduler is built before the router so publish requests can hand
	// immediate events straight to it.
	var runners []runner
	if cfg.SchedulerEnabled {
		scheduler, err := container.Scheduler()
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		runners = append(runners, runner{name: "scheduler", start: scheduler.Start})
	}

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	runners = append(runners, runner{name: "api server", start: server.Start})

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		runners = append(runners, runner{name: "metrics server", start: metricsServer.Start})
	}

	return runUntilDone(ctx, logger, runners)
}

// RunWorker runs the scheduler without the public API. The metrics server is still
// started when metrics are enabled.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))
	defer closeContainer(container, logger)

	if _, err := container.Telemetry(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	runners := []runner{{name: "scheduler", start: scheduler.Start}}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		runners = append(runners, runner{name: "metrics server", start: metricsServer.Start})
	}

	return runUntilDone(ctx, logger, runners)
}

type runner struct {
	name  string
	start func(ctx context.Context) error
}

// runUntilDone starts every runner and waits for the context to end or for the
// first runner to fail. A runner returning context.Canceled is a normal stop.
func runUntilDone(ctx context.Context, logger *slog.Logger, runners []runner) error {
	errCh := make(chan error, len(runners))
	for _, r := range runners {
		go func() {
			if err := r.start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("%s error: %w", r.name, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		logger.Error("component error, initiating shutdown", slog.Any("error", err))
		return err
	}
}
