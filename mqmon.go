package mqmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/jpalmerr/mqmon/dashboard"
	"github.com/jpalmerr/mqmon/internal/ingest"
	"github.com/jpalmerr/mqmon/internal/metrics"
	"github.com/jpalmerr/mqmon/internal/mqtt"
	"github.com/jpalmerr/mqmon/internal/server"
	"github.com/jpalmerr/mqmon/internal/store"
)

const (
	// DefaultPort is used when no port is configured.
	DefaultPort = 5000

	// DefaultHost binds loopback only.
	DefaultHost = "127.0.0.1"

	// Capacity is the number of samples retained in the live window.
	Capacity = store.MaxCapacity
)

// Monitor is the main orchestrator for sample ingestion and dashboard serving.
//
// Monitor owns the sample buffer, accepts readings over HTTP (and optionally
// MQTT), and serves the chart page and its JSON feed. It is created using
// [New] with functional options and started with [Monitor.Start].
//
// The typical lifecycle is:
//
//	mon, err := mqmon.New(mqmon.WithPort(5000))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	mon.Start(ctx) // blocks until context cancelled
type Monitor struct {
	host   string
	port   int
	logger *slog.Logger

	buffer     *store.SampleBuffer
	metrics    *metrics.Metrics
	server     *server.Server
	subscriber *mqtt.Subscriber

	mu      sync.Mutex
	started bool
}

// New creates a new [Monitor] with the given options.
//
// Defaults:
//   - Host: 127.0.0.1
//   - Port: 5000
//   - Title: "MQ Live Monitor"
//   - No CORS headers, no ingest rate limit, no MQTT
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monConfig{
		host: DefaultHost,
		port: DefaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	buf := store.NewSampleBuffer()
	m := metrics.New(buf)

	ingestOpts := []ingest.Option{ingest.WithRateLimit(cfg.rateLimit)}
	for _, cb := range cfg.sampleCallbacks {
		ingestOpts = append(ingestOpts, ingest.WithCallback(publicCallback(cb)))
	}
	in := ingest.New(buf, m, logger, ingestOpts...)

	mon := &Monitor{
		host:    cfg.host,
		port:    cfg.port,
		logger:  logger,
		buffer:  buf,
		metrics: m,
		server: server.NewServer(buf, in, m, server.Config{
			Host:           cfg.host,
			Port:           cfg.port,
			Title:          cfg.title,
			Assets:         dashboard.Assets,
			AllowedOrigins: cfg.allowedOrigins,
		}, logger),
	}

	if cfg.mqtt != nil {
		sub, err := mqtt.NewSubscriber(mqtt.Config{
			Broker:    cfg.mqtt.Broker,
			Topic:     cfg.mqtt.Topic,
			ClientID:  cfg.mqtt.ClientID,
			Username:  cfg.mqtt.Username,
			Password:  cfg.mqtt.Password,
			QoS:       cfg.mqtt.QoS,
			ValuePath: cfg.mqtt.ValuePath,
			TimePath:  cfg.mqtt.TimePath,
		}, in, logger)
		if err != nil {
			return nil, err
		}
		mon.subscriber = sub
	}

	return mon, nil
}

// Start serves the dashboard and accepts readings until ctx is cancelled.
//
// Start is a blocking call. During execution:
//
//   - The HTTP server listens on the configured host and port
//   - POST /ingest appends readings to the live window
//   - If MQTT is configured, readings published to the topic are ingested too
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to bind or if Start has already been called.
func (mon *Monitor) Start(ctx context.Context) error {
	mon.mu.Lock()
	if mon.started {
		mon.mu.Unlock()
		return errors.New("monitor already started")
	}
	mon.started = true
	mon.mu.Unlock()

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	if err := mon.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	mon.logger.Info("mqmon starting", "capacity", mon.buffer.Capacity())
	mon.logger.Info("dashboard available", "url", "http://"+mon.server.Addr().String())

	var wg sync.WaitGroup
	if mon.subscriber != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mon.subscriber.Run(ctx); err != nil {
				mon.logger.Error("mqtt subscriber stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	mon.logger.Info("mqmon stopped")
	return nil
}

// Handler returns the monitor's HTTP handler for mounting in an existing
// server. Readings posted through it land in the same window [Monitor.Start]
// serves.
func (mon *Monitor) Handler() http.Handler {
	return mon.server.Handler()
}

// Snapshot returns a copy of the retained samples, oldest first.
func (mon *Monitor) Snapshot() []Sample {
	samples := mon.buffer.Snapshot()
	out := make([]Sample, len(samples))
	for i, s := range samples {
		out[i] = Sample(s)
	}
	return out
}

// Port returns the configured HTTP port. Zero means a free port is chosen
// at start; see [Monitor.Addr].
func (mon *Monitor) Port() int {
	return mon.port
}

// Host returns the configured bind host.
func (mon *Monitor) Host() string {
	return mon.host
}

// Addr returns the bound listener address, or nil before [Monitor.Start].
func (mon *Monitor) Addr() net.Addr {
	return mon.server.Addr()
}

// publicCallback adapts a public sample callback to the internal sample type.
// Panic recovery is handled by the ingestor.
func publicCallback(cb func(Sample)) func(store.Sample) {
	return func(s store.Sample) {
		cb(Sample(s))
	}
}
