package config

import (
	"strings"
	"testing"
)

// env builds a lookupEnv func from a fixed map.
func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParse_EmptyConfig(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 0 {
		t.Errorf("Port = %d, want 0 (unset)", cfg.Port)
	}
	if cfg.MQTT != nil {
		t.Errorf("MQTT = %+v, want nil", cfg.MQTT)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Kitchen MQ-2
host: 0.0.0.0
port: 8081
allowed_origins:
  - https://grafana.example.com
  - "*"
ingest_rate_limit: 20
mqtt:
  broker: tcp://broker.local:1883
  topic: home/+/mq2
  client_id: kitchen
  username: user
  password: pass
  qos: 1
  value_path: ANALOG.A0
  time_path: Time
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Kitchen MQ-2" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Kitchen MQ-2")
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
	}
	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://grafana.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.IngestRateLimit != 20 {
		t.Errorf("IngestRateLimit = %v, want 20", cfg.IngestRateLimit)
	}

	m := cfg.MQTT
	if m == nil {
		t.Fatal("MQTT = nil, want config")
	}
	if m.Broker != "tcp://broker.local:1883" || m.Topic != "home/+/mq2" || m.ClientID != "kitchen" {
		t.Errorf("MQTT = %+v", m)
	}
	if m.Username != "user" || m.Password != "pass" || m.QoS != 1 {
		t.Errorf("MQTT credentials/qos = %+v", m)
	}
	if m.ValuePath != "ANALOG.A0" || m.TimePath != "Time" {
		t.Errorf("MQTT payload layout = %q/%q", m.ValuePath, m.TimePath)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	// t.Setenv auto-restores after test
	t.Setenv("TEST_MQTT_HOST", "broker.test")
	t.Setenv("TEST_MQTT_PASS", "secret123")
	t.Setenv("TEST_ORIGIN", "https://charts.test")

	yaml := `
allowed_origins: ["${TEST_ORIGIN}"]
mqtt:
  broker: tcp://${TEST_MQTT_HOST}:1883
  password: ${TEST_MQTT_PASS}
  username: ${UNSET_MQTT_USER:-}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.MQTT.Broker != "tcp://broker.test:1883" {
		t.Errorf("Broker = %q, want tcp://broker.test:1883", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Password != "secret123" {
		t.Errorf("Password = %q, want secret123", cfg.MQTT.Password)
	}
	if cfg.MQTT.Username != "" {
		t.Errorf("Username = %q, want empty default", cfg.MQTT.Username)
	}
	if cfg.AllowedOrigins[0] != "https://charts.test" {
		t.Errorf("AllowedOrigins[0] = %q", cfg.AllowedOrigins[0])
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
host: ${UNSET_MQMON_HOST:-0.0.0.0}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	// MISSING_VAR is expected to not exist in the environment
	yaml := `
mqtt:
  broker: tcp://${MISSING_VAR}:1883
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "MISSING_VAR") || !strings.Contains(err.Error(), "mqtt.broker") {
		t.Errorf("error should name the field and MISSING_VAR: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{"negative port", "port: -1", "port must be between"},
		{"port too large", "port: 70000", "port must be between"},
		{"negative rate", "ingest_rate_limit: -5", "ingest_rate_limit"},
		{"origin without scheme", "allowed_origins: [grafana.example.com]", "allowed_origins[0]"},
		{"origin with path", "allowed_origins: [\"https://a.example.com/x\"]", "scheme://host"},
		{"origin ftp", "allowed_origins: [\"ftp://a.example.com\"]", "http or https"},
		{"mqtt without broker", "mqtt:\n  topic: a/b", "mqtt.broker is required"},
		{"mqtt qos 2", "mqtt:\n  broker: localhost\n  qos: 2", "mqtt.qos"},
		{"mqtt bad value path", "mqtt:\n  broker: localhost\n  value_path: ANALOG.", "value path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	yaml := `
this is not: valid: yaml: at all
  - broken
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/mqmon.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %v", err)
	}
}

func TestConfig_Listen(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		env      map[string]string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{
			name:     "defaults",
			wantHost: "127.0.0.1",
			wantPort: 5000,
		},
		{
			name:     "PORT from platform binds all interfaces",
			env:      map[string]string{"PORT": "8080"},
			wantHost: "0.0.0.0",
			wantPort: 8080,
		},
		{
			name:     "PORT with explicit host",
			cfg:      Config{Host: "10.0.0.2"},
			env:      map[string]string{"PORT": "8080"},
			wantHost: "10.0.0.2",
			wantPort: 8080,
		},
		{
			name:     "explicit port wins over PORT",
			cfg:      Config{Port: 9000},
			env:      map[string]string{"PORT": "8080"},
			wantHost: "127.0.0.1",
			wantPort: 9000,
		},
		{
			name:     "explicit host and port",
			cfg:      Config{Host: "0.0.0.0", Port: 9000},
			wantHost: "0.0.0.0",
			wantPort: 9000,
		},
		{
			name:     "blank PORT ignored",
			env:      map[string]string{"PORT": " "},
			wantHost: "127.0.0.1",
			wantPort: 5000,
		},
		{
			name:    "non-numeric PORT",
			env:     map[string]string{"PORT": "http"},
			wantErr: true,
		},
		{
			name:    "PORT out of range",
			env:     map[string]string{"PORT": "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := tt.cfg.Listen(env(tt.env))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Listen() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Listen() error = %v", err)
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("Listen() = %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
