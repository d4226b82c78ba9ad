// Package main is the entry point for the poolbridge CLI.
//
// Pool Bridge can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	poolbridge serve -c config.yaml       # Poll targets, serve the dashboard, publish to MQTT
//	poolbridge validate -c config.yaml    # Validate configuration
//	poolbridge check 192.168.1.52:11000   # Test one controller the way setup does
//	poolbridge read 192.168.1.52:11000    # Fetch once and print every reading
//	poolbridge fields                     # List the standard fields
//	poolbridge version                    # Show version info
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
var rootCmd = &cobra.Command{
	Use:   "poolbridge",
	Short: "Bridge pool controllers to a dashboard and MQTT",
	Long: `Pool Bridge polls the JSON status document of one or more pool controllers
and exposes every reading on a live web dashboard and, optionally, to
Home Assistant over MQTT discovery.

Quick start:
  1. Check the controller answers: poolbridge check 192.168.1.52:11000
  2. Create a config file (poolbridge.yaml)
  3. Run: poolbridge serve -c poolbridge.yaml
  4. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 30s
  targets:
    - name: Back Garden
      host: 192.168.1.52:11000`,
}

// Execute runs the root command.
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
	Long:  `Print the version, commit hash, and build date of this poolbridge binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("poolbridge %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
