package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/poolbridge"
	"github.com/jpalmerr/poolbridge/config"
)

// fieldsCmd lists the fields that would be published.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields extracted from each target",
	Long: `List every field with its key, path and unit.

Without a config file the standard pool controller fields are listed.

Example:
  poolbridge fields
  poolbridge fields -c config.yaml`,
	RunE: runFields,
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runFields(cmd *cobra.Command, args []string) error {
	fields := poolbridge.PoolFields()

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if fields, err = config.BuildFields(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tPATH\tUNIT\tATTRIBUTES")
	for _, f := range fields {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.Key(), f.Name(), f.Path(), f.Unit(), strings.Join(f.AttributeNames(), ","))
	}
	return w.Flush()
}
