// Package main is the entry point for the mqmon CLI.
//
// The monitor can be run either as a library (SDK) or as a standalone binary
// with optional YAML configuration. This CLI provides the standalone binary.
//
// Usage:
//
//	mqmon serve [-c config.yaml]          # Start the monitor
//	mqmon validate -c config.yaml         # Validate configuration
//	mqmon simulate --url http://host/ingest # Push synthetic readings
//	mqmon version                         # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "mqmon",
	Short: "A live chart for an MQ gas sensor",
	Long: `mqmon is a live monitor for an MQ-series gas sensor.

A device posts raw readings to /ingest; the monitor keeps the latest 3600
in memory and serves a chart that refreshes every second.

Quick start:
  1. Run: mqmon serve
  2. Point the device at http://<host>:5000/ingest
     (body: {"mq_raw": 0.42})
  3. Open http://localhost:5000 in your browser

No device yet? Run "mqmon simulate" in a second terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this mqmon binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mqmon %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
}
