package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/metadata-scrub/core/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or the files of one run",
	Long: `History reads the run ledger written when history is enabled
(--history or history.enabled in scrub.yaml). Without arguments it lists
recent runs; with a run ID, or an unambiguous prefix of one, it lists that
run's files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
		printer.PrintInfo("No history recorded yet. Enable it with --history or history.enabled.")
		return nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		files, err := store.Files(ctx, args[0])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			target := f.Path
			if f.OutPath != "" {
				target += " → " + f.OutPath
			}
			rows = append(rows, []string{f.Status, f.Format, target, f.Error})
		}
		return printer.PrintTable([]string{"STATUS", "FORMAT", "FILE", "ERROR"}, rows, files)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		if r.DryRun {
			id += " (dry)"
		}
		rows = append(rows, []string{
			id,
			r.Started.Local().Format("2006-01-02 15:04:05"),
			r.Elapsed.Round(time.Millisecond).String(),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Cleaned),
			strconv.Itoa(r.Failed),
			fmt.Sprintf("%d/%d", r.Unsupported, r.Skipped),
		})
	}
	return printer.PrintTable([]string{"RUN", "STARTED", "TOOK", "FILES", "CLEANED", "FAILED", "UNSUP/SKIP"}, rows, runs)
}
