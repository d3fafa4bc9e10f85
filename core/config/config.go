// Package config decodes the scrub configuration from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the CLI reads from file, environment or flags.
type Config struct {
	Workers      int           `mapstructure:"workers"`
	JPEGQuality  int           `mapstructure:"jpeg_quality"`
	BackupSuffix string        `mapstructure:"backup_suffix"`
	OutDir       string        `mapstructure:"out_dir"`
	LogLevel     string        `mapstructure:"log_level"`
	Output       string        `mapstructure:"output"`
	History      HistoryConfig `mapstructure:"history"`
	Watch        WatchConfig   `mapstructure:"watch"`
}

// HistoryConfig controls the run ledger.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Settle    time.Duration `mapstructure:"settle"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
	Recursive bool          `mapstructure:"recursive"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0) // runtime.NumCPU()
	v.SetDefault("jpeg_quality", 95)
	v.SetDefault("backup_suffix", "")
	v.SetDefault("out_dir", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("output", "text")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("watch.settle", "2s")
	v.SetDefault("watch.cooldown", "5s")
	v.SetDefault("watch.recursive", false)
}

// DefaultHistoryPath is $XDG_STATE_HOME/scrub/history.db, falling back to
// ~/.local/state.
func DefaultHistoryPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "scrub", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "scrub-history.db"
	}
	return filepath.Join(home, ".local", "state", "scrub", "history.db")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return cfg, fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	switch cfg.Output {
	case "text", "json", "yaml":
	default:
		return cfg, fmt.Errorf("output must be text, json or yaml, got %q", cfg.Output)
	}
	return cfg, nil
}
