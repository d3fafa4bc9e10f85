// Command scrub strips embedded metadata from images, audio, video,
// documents and archives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by setup before any command runs.
var (
	cfg     config.Config
	logger  *log.Logger
	printer *core.Printer
)

// errQuiet marks failures that were already reported to the user.
var errQuiet = errors.New("")

var rootCmd = &cobra.Command{
	Use:   "scrub [paths...]",
	Short: "Strip embedded metadata from media and document files",
	Long: `scrub removes author names, timestamps, GPS tags, document properties
and similar embedded metadata from images, audio, video, office documents,
PDFs and ZIP archives.

Running scrub with paths is the same as "scrub strip". Directories and glob
patterns are expanded; files are processed in parallel and a failure in one
file never stops the others.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runStrip,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./scrub.yaml or ~/.config/scrub/scrub.yaml)")
	pf.StringP("output", "o", "text", "output format: text, json or yaml")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.BoolP("verbose", "v", false, "show formats and timings")
	pf.String("history-db", "", "history database path")

	addStripFlags(rootCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scrub")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scrub"))
		}
	}

	viper.SetEnvPrefix("SCRUB")
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"output":       "output",
	"log-level":    "log_level",
	"history-db":   "history.path",
	"workers":      "workers",
	"jpeg-quality": "jpeg_quality",
	"backup":       "backup_suffix",
	"out-dir":      "out_dir",
	"history":      "history.enabled",
	"settle":       "watch.settle",
}

// setup binds the running command's flags, reads the config file and
// builds the shared logger and printer.
func setup(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = viper.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger = core.NewLogger(os.Stderr, cfg.LogLevel)
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	printer = core.NewPrinter(cfg.Output, verbose)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errQuiet) {
			core.PrintError(err.Error())
		}
		stop()
		os.Exit(1)
	}
}
