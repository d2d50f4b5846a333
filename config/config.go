// Package config provides YAML configuration parsing for mqmon.
//
// This package enables running the monitor as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Kitchen MQ-2
//	host: 0.0.0.0
//	port: 5000
//	ingest_rate_limit: 20
//
//	mqtt:
//	  broker: tcp://localhost:1883
//	  topic: home/kitchen/mq2
//	  username: ${MQTT_USER:-}
//	  password: ${MQTT_PASS:-}
//	  value_path: ANALOG.A0
//	  time_path: Time
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpalmerr/mqmon/internal/ingest"
	"gopkg.in/yaml.v3"
)

const (
	// PortEnv is the platform-supplied port variable consulted when no port
	// is configured.
	PortEnv = "PORT"

	defaultPort = 5000
	defaultHost = "127.0.0.1"
	publicHost  = "0.0.0.0"
)

// Config is the root configuration structure for mqmon.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "MQ Live Monitor" if not set.
	Title string `yaml:"title"`

	// Host is the interface to bind. See [Config.Listen] for defaults.
	Host string `yaml:"host"`

	// Port is the HTTP server port. Zero means not configured.
	Port int `yaml:"port"`

	// AllowedOrigins enables CORS for these origins. "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// IngestRateLimit caps accepted readings per second. Zero is unlimited.
	IngestRateLimit float64 `yaml:"ingest_rate_limit"`

	// MQTT enables ingestion from a broker topic when present.
	MQTT *MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig defines the optional MQTT subscription.
type MQTTConfig struct {
	// Broker is tcp://host:port, mqtt://host:port or host[:port].
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Broker string `yaml:"broker"`

	// Topic is the topic filter, wildcards allowed. Defaults to "mqmon/ingest".
	Topic string `yaml:"topic"`

	// ClientID defaults to a random "mqmon-<uuid>".
	ClientID string `yaml:"client_id"`

	// Username and Password support environment variable substitution.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// QoS is the subscription QoS, 0 or 1.
	QoS int `yaml:"qos"`

	// ValuePath is the dotted path to the reading in each message, or "$"
	// for a bare number. Defaults to "mq_raw".
	ValuePath string `yaml:"value_path"`

	// TimePath is the dotted path to the display label.
	TimePath string `yaml:"time_path"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in host, allowed_origins and every
// mqtt string field. Port is left unset when absent so [Config.Listen] can
// fall back to the PORT environment variable.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Listen resolves the address to bind.
//
// An explicitly configured port wins and binds [Config.Host], or 127.0.0.1
// when no host is set. Otherwise the PORT environment variable, looked up
// via lookupEnv, is used and the host defaults to 0.0.0.0 so the platform's
// router can reach it. Otherwise the monitor listens on 127.0.0.1:5000.
func (c *Config) Listen(lookupEnv func(string) (string, bool)) (host string, port int, err error) {
	host = c.Host

	switch {
	case c.Port != 0:
		port = c.Port
		if host == "" {
			host = defaultHost
		}

	default:
		raw, ok := lookupEnv(PortEnv)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			port = defaultPort
			if host == "" {
				host = defaultHost
			}
			break
		}

		port, err = strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return "", 0, fmt.Errorf("%s must be a port between 1 and 65535, got %q", PortEnv, raw)
		}
		if host == "" {
			host = publicHost
		}
	}

	return host, port, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	host, err := expandEnvVars(c.Host)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	c.Host = host

	if c.IngestRateLimit < 0 {
		return fmt.Errorf("ingest_rate_limit cannot be negative, got %v", c.IngestRateLimit)
	}

	for i, o := range c.AllowedOrigins {
		expanded, err := expandEnvVars(o)
		if err != nil {
			return fmt.Errorf("allowed_origins[%d]: %w", i, err)
		}
		if err := validateOrigin(expanded); err != nil {
			return fmt.Errorf("allowed_origins[%d]: %w", i, err)
		}
		c.AllowedOrigins[i] = expanded
	}

	if c.MQTT != nil {
		if err := c.MQTT.expandAndValidate(); err != nil {
			return err
		}
	}

	return nil
}

func (m *MQTTConfig) expandAndValidate() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"broker", &m.Broker},
		{"topic", &m.Topic},
		{"client_id", &m.ClientID},
		{"username", &m.Username},
		{"password", &m.Password},
		{"value_path", &m.ValuePath},
		{"time_path", &m.TimePath},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("mqtt.%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}

	if m.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is configured")
	}
	if m.QoS != 0 && m.QoS != 1 {
		return fmt.Errorf("mqtt.qos must be 0 or 1, got %d", m.QoS)
	}
	if m.ValuePath != "" || m.TimePath != "" {
		if _, err := ingest.NewDecoder(m.ValuePath, m.TimePath); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}

// validateOrigin accepts "*" or a scheme://host[:port] origin.
func validateOrigin(o string) error {
	if o == "*" {
		return nil
	}
	u, err := url.Parse(o)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", o, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin scheme must be http or https, got %q", o)
	}
	if u.Host == "" || (u.Path != "" && u.Path != "/") {
		return fmt.Errorf("origin must be scheme://host[:port], got %q", o)
	}
	return nil
}
