package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/batch"
	"github.com/ankit-chaubey/metadata-scrub/core/dispatch"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <paths...>",
	Aliases: []string{"view"},
	Short:   "Show the metadata a file still carries",
	Long: `Inspect lists the embedded metadata found in each file, grouped by
where it lives (EXIF, ID3, PDF Info, core properties and so on). Run it
after strip to confirm a file is clean.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	paths, err := batch.Expand(args, recursive)
	if err != nil {
		return err
	}

	table := dispatch.Default()
	failed := 0
	for _, p := range paths {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		id, err := core.DetectFormat(p)
		if err != nil {
			core.PrintError(fmt.Sprintf("%s: %v", p, err))
			failed++
			continue
		}
		h, ok := table.Handler(id)
		if !ok {
			printer.PrintInfo(fmt.Sprintf("%s: %v", p, core.ErrUnsupportedFormat))
			continue
		}

		m, err := h.View(p)
		if err != nil {
			if errors.Is(err, core.ErrUnsupportedFormat) {
				printer.PrintInfo(fmt.Sprintf("%s: %v", p, err))
				continue
			}
			core.PrintError(fmt.Sprintf("%s: %v", p, err))
			failed++
			continue
		}
		if err := printer.PrintMetadata(m); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w%d file(s) could not be read", errQuiet, failed)
	}
	return nil
}
