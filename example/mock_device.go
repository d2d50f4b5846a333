package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jpalmerr/mqmon/internal/device"
)

// StartMockDevice pushes a drifting reading to ingestURL once a second
// until ctx is cancelled. Call this in a goroutine once the monitor is up.
func StartMockDevice(ctx context.Context, ingestURL string, logger *slog.Logger) {
	sim, err := device.NewSimulator(device.SimulatorConfig{URL: ingestURL}, logger)
	if err != nil {
		slog.Error("mock device error", "error", err)
		return
	}

	sim.Start(ctx)
	defer sim.Stop()

	for r := range sim.Results() {
		if r.Error == nil && r.StatusCode != http.StatusOK {
			slog.Warn("reading rejected", "seq", r.Seq, "status", r.StatusCode)
		}
	}
}
