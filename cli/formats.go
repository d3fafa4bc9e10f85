package main

import (
	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/metadata-scrub/core/dispatch"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported formats and what strip removes from each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printer.PrintFormats(dispatch.Default().Formats())
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
