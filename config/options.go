package config

import (
	"log/slog"

	"github.com/jpalmerr/mqmon"
)

// Options converts parsed configuration into SDK options.
//
// The listen address is resolved with [Config.Listen] using lookupEnv.
// logger is passed through to the monitor.
func Options(cfg *Config, lookupEnv func(string) (string, bool), logger *slog.Logger) ([]mqmon.Option, error) {
	host, port, err := cfg.Listen(lookupEnv)
	if err != nil {
		return nil, err
	}

	opts := []mqmon.Option{
		mqmon.WithHost(host),
		mqmon.WithPort(port),
		mqmon.WithLogger(logger),
		mqmon.WithIngestRateLimit(cfg.IngestRateLimit),
	}

	if cfg.Title != "" {
		opts = append(opts, mqmon.WithTitle(cfg.Title))
	}

	if len(cfg.AllowedOrigins) > 0 {
		opts = append(opts, mqmon.WithAllowedOrigins(cfg.AllowedOrigins...))
	}

	if cfg.MQTT != nil {
		opts = append(opts, mqmon.WithMQTT(mqmon.MQTTConfig{
			Broker:    cfg.MQTT.Broker,
			Topic:     cfg.MQTT.Topic,
			ClientID:  cfg.MQTT.ClientID,
			Username:  cfg.MQTT.Username,
			Password:  cfg.MQTT.Password,
			QoS:       byte(cfg.MQTT.QoS),
			ValuePath: cfg.MQTT.ValuePath,
			TimePath:  cfg.MQTT.TimePath,
		}))
	}

	return opts, nil
}
