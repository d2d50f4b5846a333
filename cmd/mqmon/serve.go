package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/mqmon"
	"github.com/jpalmerr/mqmon/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use at the --log-level level.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", raw, err)
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})), nil
}

// serveCmd starts the monitor.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitor",
	Long: `Start the mqmon server.

The server will:
  - Load configuration from the YAML file, if one is given
  - Accept readings on POST /ingest (and the MQTT topic, if configured)
  - Serve the chart on GET / and the samples on GET /data

Listen address: --port/--host flags win over the config file. With no port
configured anywhere, the PORT environment variable is used and the server
binds 0.0.0.0; otherwise it listens on 127.0.0.1:5000.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  mqmon serve
  mqmon serve -c /etc/mqmon/config.yaml --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config and PORT)")
	serveCmd.Flags().String("host", "", "interface to bind (overrides config)")
}

// loadServeConfig reads the optional config file and applies flag overrides.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("--port must be between 1 and 65535, got %d", port)
		}
		cfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}

	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := config.Options(cfg, os.LookupEnv, logger)
	if err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	mon, err := mqmon.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	logger.Info("starting server",
		"host", mon.Host(),
		"port", mon.Port(),
		"mqtt", cfg.MQTT != nil,
		"ingest_rate_limit", cfg.IngestRateLimit,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- mon.Start(ctx)
	}()

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
