package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/metadata-scrub/core/dispatch"
	"github.com/ankit-chaubey/metadata-scrub/core/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Strip files as they are added to directories",
	Long: `Watch monitors directories and strips every supported file that is
created or modified in them, in place, once it has stopped changing for the
settle time. With no arguments the current directory is watched.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolP("recursive", "r", false, "also watch subdirectories")
	f.Duration("settle", watch.DefaultSettle, "quiet time before a changed file is stripped")
	f.Int("jpeg-quality", 95, "JPEG re-encode quality (1-100)")
	f.String("backup", "", "keep the original as <file><suffix> before replacing it")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	if cmd.Flags().Changed("recursive") {
		cfg.Watch.Recursive, _ = cmd.Flags().GetBool("recursive")
	}

	w, err := watch.New(watch.Config{
		Resolver:  dispatch.Default(),
		Logger:    logger,
		Options:   stripOptions(),
		Settle:    cfg.Watch.Settle,
		Cooldown:  cfg.Watch.Cooldown,
		Recursive: cfg.Watch.Recursive,
		OnResult:  printer.PrintResult,
	}, dirs...)
	if err != nil {
		return err
	}
	defer w.Close()

	printer.PrintInfo(fmt.Sprintf("Watching %s (Ctrl+C to stop)", strings.Join(dirs, ", ")))
	return w.Run(cmd.Context())
}
