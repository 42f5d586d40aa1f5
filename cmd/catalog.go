package main

import (
	"errors"
	"fmt"

	"home_dispatch/internal/catalog"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the device catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the device catalog file",
	Long: `Check parses and validates the catalog without activating it: unique ids,
required fields, known template placeholders and existing icon files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := newStore(cfg, log).Check()
		if err != nil {
			var loadErr *catalog.LoadError
			if errors.As(err, &loadErr) {
				for _, p := range loadErr.Problems {
					cmd.PrintErrln("  -", p)
				}
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d devices OK\n", cfg.Catalog.Path, cat.Len())
		for _, d := range cat.ListDevices() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s (%d actions)\n", d.ID, d.Name, len(d.Actions))
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
}
