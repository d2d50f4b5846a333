// Package mqmon provides a live monitor for an MQ-series gas sensor.
//
// A device posts raw readings to the monitor, which keeps the most recent
// 3600 of them in memory and serves a chart page that redraws once a second.
//
// # Quick Start
//
//	mon, _ := mqmon.New(mqmon.WithHost("0.0.0.0"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	mon.Start(ctx) // blocks until context is cancelled
//
// The device then sends readings:
//
//	curl -X POST http://monitor:5000/ingest -d '{"mq_raw": 0.42}'
//
// # HTTP API
//
//   - GET /: Chart page
//   - GET /data: Retained samples as [{"time": "12:00:01", "mq_raw": 0.42}, ...], oldest first
//   - POST /ingest: Appends {"mq_raw": <number>, "time": <optional string>}
//   - GET /api/stream: Server-Sent Events with each new sample
//   - GET /healthz: Liveness and current window size
//   - GET /metrics: Prometheus metrics
//
// # Architecture
//
// Monitor consists of several internal packages (under internal/):
//
//   - internal/store: Bounded sample buffer with pub/sub for live updates
//   - internal/ingest: Payload decoding and the shared write path
//   - internal/server: HTTP server with JSON API and Server-Sent Events
//   - internal/mqtt: Optional MQTT subscriber feeding the write path
//   - internal/metrics: Prometheus instrumentation
//   - internal/device: Push client and reading simulator
//   - dashboard: Embedded chart page
//
// The internal packages are not part of the public API and may change
// without notice.
package mqmon
