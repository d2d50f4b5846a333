package mqmon

import (
	"errors"
	"log/slog"
	"strings"
)

// monConfig holds mutable state during Monitor construction.
type monConfig struct {
	title           string
	host            string
	port            int
	logger          *slog.Logger
	allowedOrigins  []string
	rateLimit       float64
	mqtt            *MQTTConfig
	sampleCallbacks []func(Sample)
}

// MQTTConfig enables ingestion from an MQTT topic alongside POST /ingest.
type MQTTConfig struct {
	// Broker is tcp://host:port, mqtt://host:port or host[:port]. Required.
	Broker string

	// Topic defaults to "mqmon/ingest".
	Topic string

	// ClientID defaults to "mqmon-<uuid>".
	ClientID string

	// Username and Password are sent only when non-empty.
	Username string
	Password string

	// QoS is the subscription QoS, 0 or 1.
	QoS byte

	// ValuePath is the dotted path to the reading in each message, e.g.
	// "ANALOG.A0", or "$" when the device publishes a bare number.
	// Defaults to "mq_raw".
	ValuePath string

	// TimePath is the dotted path to the display label. Defaults to "time"
	// when ValuePath is unset; otherwise readings are stamped on arrival.
	TimePath string
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Options return an error if validation fails.
type Option func(*monConfig) error

// WithPort sets the HTTP port for the dashboard server.
//
// Defaults to 5000 if not specified. Zero picks a free port at start.
//
// Returns an error if the port is outside the range 0-65535.
func WithPort(port int) Option {
	return func(cfg *monConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHost sets the interface to bind. Use "0.0.0.0" to accept connections
// from the device on other machines. Defaults to 127.0.0.1.
func WithHost(host string) Option {
	return func(cfg *monConfig) error {
		cfg.host = host
		return nil
	}
}

// WithTitle sets the page title and heading. Defaults to "MQ Live Monitor".
func WithTitle(title string) Option {
	return func(cfg *monConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithAllowedOrigins enables CORS for the given origins, e.g. a separately
// hosted chart page. "*" allows any origin. Without this option no CORS
// headers are sent.
func WithAllowedOrigins(origins ...string) Option {
	return func(cfg *monConfig) error {
		for _, o := range origins {
			if strings.TrimSpace(o) == "" {
				return errors.New("allowed origin cannot be empty")
			}
		}
		cfg.allowedOrigins = append(cfg.allowedOrigins, origins...)
		return nil
	}
}

// WithIngestRateLimit caps accepted readings per second across HTTP and
// MQTT. Readings over the limit are rejected with 429. Zero disables the
// limit, which is the default.
func WithIngestRateLimit(perSecond float64) Option {
	return func(cfg *monConfig) error {
		if perSecond < 0 {
			return errors.New("ingest rate limit cannot be negative")
		}
		cfg.rateLimit = perSecond
		return nil
	}
}

// WithMQTT subscribes to an MQTT topic and ingests every message as if it
// had been posted to /ingest.
//
// Returns an error if no broker is given.
func WithMQTT(c MQTTConfig) Option {
	return func(cfg *monConfig) error {
		if c.Broker == "" {
			return errors.New("mqtt broker is required")
		}
		cfg.mqtt = &c
		return nil
	}
}

// WithSampleCallback registers a function to be called for every accepted
// reading, after it has been stored.
//
// Multiple callbacks run in registration order. Callbacks run synchronously
// on the ingest path and must not block; panics are recovered and logged.
//
// Example:
//
//	mon, err := mqmon.New(
//	    mqmon.WithSampleCallback(func(s mqmon.Sample) {
//	        if s.Value > 0.8 {
//	            log.Printf("ALERT: gas reading %.2f at %s", s.Value, s.Time)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSampleCallback(cb func(Sample)) Option {
	return func(cfg *monConfig) error {
		if cb == nil {
			return nil
		}
		cfg.sampleCallbacks = append(cfg.sampleCallbacks, cb)
		return nil
	}
}
