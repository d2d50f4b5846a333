package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jpalmerr/mqmon/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an mqmon configuration file without starting the server.

This command parses the YAML, expands environment variables, validates all
fields and resolves the listen address the server would use. It's useful for
CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  mqmon validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	host, port, err := cfg.Listen(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rateLimit := "unlimited"
	if cfg.IngestRateLimit > 0 {
		rateLimit = fmt.Sprintf("%g/s", cfg.IngestRateLimit)
	}

	origins := "none"
	if len(cfg.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.AllowedOrigins, ", ")
	}

	mqttSummary := "disabled"
	if cfg.MQTT != nil {
		topic := cfg.MQTT.Topic
		if topic == "" {
			topic = "mqmon/ingest"
		}
		mqttSummary = fmt.Sprintf("%s (topic %s)", cfg.MQTT.Broker, topic)
		if cfg.MQTT.ValuePath != "" {
			mqttSummary += fmt.Sprintf(", value at %s", cfg.MQTT.ValuePath)
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Listen:       %s:%d\n", host, port)
	fmt.Printf("  Rate limit:   %s\n", rateLimit)
	fmt.Printf("  CORS origins: %s\n", origins)
	fmt.Printf("  MQTT:         %s\n", mqttSummary)

	return nil
}
