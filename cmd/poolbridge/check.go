package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/poolbridge"
)

// checkCmd runs the same test fetch a new target goes through.
var checkCmd = &cobra.Command{
	Use:   "check <host>",
	Short: "Test whether a pool controller can be added",
	Long: `Fetch the status document of one controller once and report whether it
could be added as a target.

Failures are reported with a setup code:
  cannot_connect - non-200 answer, connection failure or timeout
  unknown        - anything else, e.g. a body that is not a JSON object

Example:
  poolbridge check 192.168.1.52:11000
  poolbridge check pool.local --path /api/v1/pool/info --timeout 5s`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addTargetFlags(checkCmd)
}

// addTargetFlags registers the flags shared by commands that contact one host.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("path", poolbridge.DefaultPath, "status document path")
	cmd.Flags().Duration("timeout", 10*time.Second, "overall time limit")
}

// targetFromFlags builds a target for args[0] and a context bounded by --timeout.
func targetFromFlags(cmd *cobra.Command, args []string) (poolbridge.TargetConfig, context.Context, context.CancelFunc, error) {
	path, _ := cmd.Flags().GetString("path")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	target, err := poolbridge.NewTargetConfig(args[0], poolbridge.WithPath(path))
	if err != nil {
		return poolbridge.TargetConfig{}, nil, nil, fmt.Errorf("invalid target: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return target, ctx, cancel, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	target, ctx, cancel, err := targetFromFlags(cmd, args)
	if err != nil {
		return err
	}
	defer cancel()

	logger := newLogger(cmd.ErrOrStderr(), silentLog)
	if err := poolbridge.ValidateTarget(ctx, target, poolbridge.WithCoordinatorLogger(logger)); err != nil {
		return fmt.Errorf("check failed (%s): %w", poolbridge.SetupErrorCode(err), err)
	}

	fmt.Printf("OK: %s answered with a valid status document\n", target.URL())
	return nil
}
