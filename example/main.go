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
)

const alertThreshold = 0.7

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	mon, err := mqmon.New(
		mqmon.WithPort(5000),
		mqmon.WithTitle("MQ-2 Demo"),
		mqmon.WithLogger(logger),
		mqmon.WithSampleCallback(func(s mqmon.Sample) {
			if s.Value > alertThreshold {
				logger.Warn("gas level high", "mq_raw", s.Value, "time", s.Time)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   mqmon Demo                                          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:5000 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A simulated sensor posts one reading per second     ║")
	fmt.Println("  ║   Readings above 0.7 are logged as warnings           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start the device once the monitor has had a moment to bind (see mock_device.go)
	go func() {
		time.Sleep(100 * time.Millisecond)
		StartMockDevice(ctx, "http://127.0.0.1:5000/ingest", logger)
	}()

	if err := mon.Start(ctx); err != nil {
		slog.Error("mqmon error", "error", err)
		os.Exit(1)
	}
}
