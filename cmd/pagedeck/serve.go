package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pagedeck/pagedeck"
	"github.com/pagedeck/pagedeck/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the PageDeck preview server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the site and watch the deploy",
	Long: `Start the PageDeck preview server.

The server will:
  - Load configuration from the specified YAML file
  - Scan and audit the site directory
  - Serve the site the way the hosting provider would, plus a dashboard
    at /_deck/
  - Check the deployed URLs when a deploy section is configured

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pagedeck serve -c pagedeck.yaml
  pagedeck serve --config /etc/pagedeck/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "pagedeck.yaml", "path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"site_dir", cfg.Site.Dir,
		"targets", len(cfg.Deploy.Targets),
		"grids", len(cfg.Deploy.Grids),
	)

	// scan once up front so derived targets can pin the current hashes;
	// the deck rescans on its own when watching
	inv, err := pagedeck.ScanSite(cmd.Context(), cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan site: %w", err)
	}

	targets, err := config.BuildTargets(cfg, inv)
	if err != nil {
		return fmt.Errorf("failed to build targets: %w", err)
	}

	opts := append(config.BuildOptions(cfg, targets), pagedeck.WithLogger(logger))
	deck, err := pagedeck.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- deck.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
