// Standalone MQTT broker with a built-in fake sensor, for trying the MQTT
// ingest path without hardware.
//
// Usage:
//
//	go run ./example/cmd/mockbroker
//
// Then in another terminal:
//
//	go run ./cmd/mqmon serve -c example/config.yaml
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/mqmon/internal/device"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

const (
	addr  = ":1883"
	topic = "mqmon/ingest"
)

func main() {
	fmt.Println("Mock MQTT broker starting on " + addr)
	fmt.Println("Publishing one reading per second to " + topic)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	broker := mochi.New(&mochi.Options{InlineClient: true})
	if err := broker.AddHook(new(auth.AllowHook), nil); err != nil {
		slog.Error("broker error", "error", err)
		os.Exit(1)
	}
	if err := broker.AddListener(listeners.NewTCP(listeners.Config{Type: "tcp", ID: "mock", Address: addr})); err != nil {
		slog.Error("broker error", "error", err)
		os.Exit(1)
	}
	if err := broker.Serve(); err != nil {
		slog.Error("broker error", "error", err)
		os.Exit(1)
	}
	defer func() { _ = broker.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	walk := device.NewWalk(0, 0)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, _ := json.Marshal(device.Payload{Value: walk.Next()})
			if err := broker.Publish(topic, payload, false, 0); err != nil {
				slog.Error("publish failed", "error", err)
			}
		}
	}
}
