package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/mqmon/internal/device"
	"github.com/spf13/cobra"
)

// simulateCmd pushes synthetic readings to a running monitor.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Push synthetic sensor readings to a monitor",
	Long: `Act as the sensor: POST a bounded random walk in [0, 1] to a monitor's
ingest endpoint at a fixed interval.

Runs until interrupted, or until --count readings have been sent.

Example:
  mqmon simulate
  mqmon simulate --url http://pi.lan:5000/ingest --interval 250ms --count 100`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().String("url", "http://127.0.0.1:5000/ingest", "ingest endpoint of the monitor")
	simulateCmd.Flags().Duration("interval", device.DefaultInterval, "time between readings")
	simulateCmd.Flags().Int("count", 0, "stop after this many readings (0 = run until interrupted)")
	simulateCmd.Flags().Bool("stamp-time", false, "send a client-side HH:MM:SS label with each reading")
	simulateCmd.Flags().Uint64("seed", 0, "random seed for a reproducible walk (0 = random)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	target, _ := cmd.Flags().GetString("url")
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("--url must be an http(s) URL, got %q", target)
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	count, _ := cmd.Flags().GetInt("count")
	stamp, _ := cmd.Flags().GetBool("stamp-time")
	seed, _ := cmd.Flags().GetUint64("seed")

	sim, err := device.NewSimulator(device.SimulatorConfig{
		URL:       target,
		Interval:  interval,
		Count:     count,
		StampTime: stamp,
		Seed:      seed,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("simulating sensor", "url", target, "interval", interval.String(), "count", count)

	sim.Start(ctx)
	defer sim.Stop()

	var sent, failed int
	for r := range sim.Results() {
		switch {
		case r.Error != nil:
			failed++
		case r.StatusCode != http.StatusOK:
			failed++
			logger.Warn("reading rejected",
				"seq", r.Seq,
				"status", r.StatusCode,
				"request_id", r.RequestID,
			)
		default:
			sent++
		}
	}

	logger.Info("simulation finished", "sent", sent, "failed", failed)
	return nil
}
