package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/detector"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/di"
	"github.com/mikey/mail-triage/internal/tokens"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
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
	flags *di.CLIFlags,
	cfg *config.Config,
	det *detector.CliDetector,
	backend core.InferenceClient,
	logger *zap.Logger,
) error {
	defer logger.Sync()

	if flags.ShowLocks {
		return showLocks(cfg, logger)
	}

	// Read message from file or stdin
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file %s: %w", flags.InputFile, err)
		}
		defer file.Close()
		reader = file
		logger.Info("reading message from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("reading message from stdin")
	}

	msg, err := detector.ReadMessage(bufio.NewReader(reader))
	if err != nil {
		return err
	}

	if _, err := det.ProcessMessage(context.Background(), msg); err != nil {
		return err
	}

	// Close any resources that need closing
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close inference client", zap.Error(err))
		}
	}
	return nil
}

// showLocks prints the state of every resource token and exits
func showLocks(cfg *config.Config, logger *zap.Logger) error {
	tokensCfg, err := cfg.GetTokens()
	if err != nil {
		return err
	}
	manager, err := tokens.NewManager(tokensCfg.Dir, tokensCfg.Holder, logger)
	if err != nil {
		return err
	}

	status := manager.Status()
	fmt.Printf("\n=== Resource Tokens ===\n")
	for _, kind := range tokens.Kinds() {
		fmt.Printf("%s: %s\n", kind, status[kind])
	}
	return nil
}
