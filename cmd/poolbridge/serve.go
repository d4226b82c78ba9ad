package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/poolbridge"
	"github.com/jpalmerr/poolbridge/config"
	"github.com/jpalmerr/poolbridge/mqtt"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts polling and serving.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll targets and serve the dashboard",
	Long: `Start Pool Bridge.

The bridge will:
  - Load configuration from the specified YAML file
  - Contact every target once; targets that cannot be reached are skipped
  - Poll the remaining targets on their own interval
  - Serve the dashboard and API on the configured port
  - Publish to MQTT if the mqtt section is enabled

The bridge runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  poolbridge serve -c config.yaml
  poolbridge serve --config /etc/poolbridge/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("config loaded",
		"targets", len(cfg.Targets),
		"fields", len(cfg.Fields),
		"mqtt", cfg.MQTT.Enabled,
	)

	opts, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build bridge options: %w", err)
	}
	opts = append(opts, poolbridge.WithLogger(logger))

	if mc, ok := config.MQTT(cfg); ok {
		pub, err := mqtt.Connect(mc, logger.With("component", "mqtt"))
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("MQTT close failed", "error", err)
			}
		}()
		opts = append(opts, poolbridge.WithPublisher(pub))
	}

	b, err := poolbridge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start bridge - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bridge error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("bridge error: %w", err)
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
