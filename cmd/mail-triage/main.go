package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/di"
	"github.com/mikey/mail-triage/internal/orchestrator"
	"github.com/mikey/mail-triage/internal/tokens"
)

var (
	runOnce         = flag.Bool("once", false, "Run all agents once and exit")
	historicalStart = flag.String("historical-start", "", "Start date (YYYY-MM-DD) for a historical label-only pass")
	historicalEnd   = flag.String("historical-end", "", "End date (YYYY-MM-DD) for a historical label-only pass")
)

func main() {
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	orch *orchestrator.Orchestrator,
	service *core.TriageService,
	tokenManager *tokens.Manager,
	backend core.InferenceClient,
	traceStore core.TraceStore,
) error {
	defer logger.Sync()
	defer closeResources(logger, backend, traceStore, tokenManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	for kind, state := range tokenManager.Status() {
		logger.Info("resource token",
			zap.String("kind", string(kind)),
			zap.String("state", state))
	}

	if *historicalStart != "" || *historicalEnd != "" {
		return runHistorical(ctx, service, logger)
	}

	if *runOnce {
		logger.Info("running in single-run mode")
		orch.RunOnce(ctx)
		logger.Info("single run complete")
		return nil
	}

	logger.Info("running in continuous mode")
	done := make(chan struct{})
	go func() {
		orch.Run(ctx)
		close(done)
	}()

	<-ctx.Done()

	drain, err := cfg.GetDuration("server.graceful_shutdown_timeout")
	if err != nil || drain <= 0 {
		drain = 10 * time.Second
	}
	select {
	case <-done:
	case <-time.After(drain):
		logger.Warn("in-flight run did not stop within the shutdown timeout",
			zap.Duration("timeout", drain))
	}
	return nil
}

// runHistorical performs a label-only pass over a date range instead of
// the normal schedule
func runHistorical(ctx context.Context, service *core.TriageService, logger *zap.Logger) error {
	if *historicalStart == "" || *historicalEnd == "" {
		return fmt.Errorf("both -historical-start and -historical-end are required")
	}
	start, err := time.Parse("2006-01-02", *historicalStart)
	if err != nil {
		return fmt.Errorf("invalid -historical-start: %w", err)
	}
	end, err := time.Parse("2006-01-02", *historicalEnd)
	if err != nil {
		return fmt.Errorf("invalid -historical-end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("-historical-end must not be before -historical-start")
	}

	logger.Info("starting historical pass",
		zap.String("start", *historicalStart),
		zap.String("end", *historicalEnd))

	_, err = service.RunHistorical(ctx, start, end)
	return err
}

func closeResources(logger *zap.Logger, backend core.InferenceClient, traceStore core.TraceStore, tokenManager *tokens.Manager) {
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close inference client", zap.Error(err))
		}
	}
	if traceStore != nil {
		if err := traceStore.Close(); err != nil {
			logger.Error("failed to close trace store", zap.Error(err))
		}
	}
	tokenManager.ReleaseAll()
	logger.Info("shutdown complete")
}
