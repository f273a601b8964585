package main

import (
	"fmt"

	"Vigil/internal/config"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <monitors.yaml>",
	Short: "Check a definitions file without starting anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := config.LoadDefinitions(args[0])
		if err != nil {
			return err
		}
		if err := defs.Validate(); err != nil {
			return fmt.Errorf("invalid definitions: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "monitors:      %d\n", len(defs.Monitors))
		fmt.Fprintf(out, "maintenance:   %d\n", len(defs.Maintenance))
		fmt.Fprintf(out, "notifications: %d\n", len(defs.Notifications))
		return nil
	},
}
