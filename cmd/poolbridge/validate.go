package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/poolbridge/config"
)

// validateCmd validates a config file without starting the bridge.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a Pool Bridge configuration file without starting the bridge.

This command parses the YAML, expands environment variables, and validates
all targets and fields. No controller is contacted; use "check" for that.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  poolbridge validate -c config.yaml`,
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

	targets, err := config.BuildTargets(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	fields, err := config.BuildFields(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fieldSource := "standard"
	if len(cfg.Fields) > 0 {
		fieldSource = "custom"
	}
	mqttStatus := "disabled"
	if cfg.MQTT.Enabled {
		mqttStatus = cfg.MQTT.Broker
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Targets:       %d\n", len(targets))
	for _, t := range targets {
		fmt.Printf("    - %s (%s, every %s)\n", t.Name(), t.URL(), t.PollInterval())
	}
	fmt.Printf("  Fields:        %d %s\n", len(fields), fieldSource)
	fmt.Printf("  MQTT:          %s\n", mqttStatus)

	return nil
}
