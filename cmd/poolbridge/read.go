package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/poolbridge"
	"github.com/jpalmerr/poolbridge/config"
)

// silentLog keeps one-shot commands quiet unless something goes wrong.
var silentLog = config.LogConfig{Level: "error", Format: "text"}

// readCmd fetches once and prints every reading.
var readCmd = &cobra.Command{
	Use:   "read <host>",
	Short: "Fetch a controller once and print its readings",
	Long: `Fetch the status document of one controller once and print every field
evaluated against it. Fields whose path is absent are shown as unknown.

Example:
  poolbridge read 192.168.1.52:11000
  poolbridge read pool.local --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	addTargetFlags(readCmd)
	readCmd.Flags().Bool("json", false, "print readings as a JSON object")
}

func runRead(cmd *cobra.Command, args []string) error {
	target, ctx, cancel, err := targetFromFlags(cmd, args)
	if err != nil {
		return err
	}
	defer cancel()

	c := poolbridge.NewCoordinator(target,
		poolbridge.WithCoordinatorLogger(newLogger(cmd.ErrOrStderr(), silentLog)))
	defer c.Close()

	if err := c.FirstRefresh(ctx); err != nil {
		return fmt.Errorf("read failed (%s): %w", poolbridge.SetupErrorCode(err), err)
	}

	readings := poolbridge.NewReadings(c, poolbridge.PoolFields())

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		out := make(map[string]any, len(readings))
		for _, r := range readings {
			rv := r.Evaluate()
			if rv.Present {
				out[rv.Field.Key()] = rv.Value.Interface()
			} else {
				out[rv.Field.Key()] = nil
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tUNIT")
	for _, r := range readings {
		rv := r.Evaluate()
		value := "unknown"
		if rv.Present {
			value = rv.Value.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", rv.Field.Key(), value, rv.Field.Unit())
	}
	return w.Flush()
}
