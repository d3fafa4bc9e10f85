package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/batch"
	"github.com/ankit-chaubey/metadata-scrub/core/dispatch"
	"github.com/ankit-chaubey/metadata-scrub/core/history"
)

var stripCmd = &cobra.Command{
	Use:   "strip [paths...]",
	Short: "Remove metadata from files",
	Long: `Strip rewrites each file without its embedded metadata. Files are
changed in place unless --out-dir is given. A file that cannot be cleaned
is left exactly as it was.

Exit status is non-zero when any file failed, or with --strict when any
file had an unsupported format.`,
	Example: `  scrub strip photo.jpg report.pdf
  scrub strip -r ~/Pictures --out-dir ./clean
  scrub strip "*.docx" --dry-run`,
	RunE: runStrip,
}

func init() {
	addStripFlags(stripCmd)
	rootCmd.AddCommand(stripCmd)
}

func addStripFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("workers", "j", 0, "parallel workers (default: number of CPUs)")
	f.StringP("out-dir", "d", "", "write cleaned copies here instead of in place")
	f.String("backup", "", "keep the original as <file><suffix> before replacing it")
	f.Int("jpeg-quality", core.DefaultJPEGQuality, "JPEG re-encode quality (1-100)")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.BoolP("dry-run", "n", false, "report what would be cleaned without writing")
	f.Bool("strict", false, "treat unsupported files as failures")
	f.Bool("history", false, "record this run in the history database")
}

func runStrip(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	recursive, _ := cmd.Flags().GetBool("recursive")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	strict, _ := cmd.Flags().GetBool("strict")

	paths, err := batch.Expand(args, recursive)
	if err != nil {
		return err
	}
	logger.Debug("expanded selection", "args", len(args), "files", len(paths))

	runner := &batch.Runner{
		Resolver:  dispatch.Default(),
		Logger:    logger,
		Workers:   cfg.Workers,
		Options:   stripOptions(),
		OutputDir: cfg.OutDir,
		DryRun:    dryRun,
		Progress: func(_, _ int, r core.Result) {
			printer.PrintResult(r)
		},
	}
	ctx := cmd.Context()
	sum := runner.Run(ctx, paths)
	if err := printer.PrintSummary(sum); err != nil {
		return err
	}

	if cfg.History.Enabled && !dryRun {
		recordRun(ctx, sum)
	}

	if failed := sum.Count(core.StatusFailed); failed > 0 {
		return fmt.Errorf("%w%d file(s) failed", errQuiet, failed)
	}
	if unsupported := sum.Count(core.StatusUnsupported); strict && unsupported > 0 {
		return fmt.Errorf("%w%d unsupported file(s)", errQuiet, unsupported)
	}
	return ctx.Err()
}

func stripOptions() core.StripOptions {
	return core.StripOptions{
		JPEGQuality: cfg.JPEGQuality,
		Write:       core.WriteOptions{BackupSuffix: cfg.BackupSuffix},
	}
}

// recordRun stores sum in the history ledger. A ledger problem never
// changes the outcome of the run itself.
func recordRun(ctx context.Context, sum *core.Summary) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history unavailable", "path", cfg.History.Path, "err", err)
		return
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(ctx), sum); err != nil {
		logger.Warn("record history", "err", err)
		return
	}
	logger.Debug("run recorded", "run", sum.RunID)
}
