package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Base(DefaultHistoryPath()), filepath.Base(cfg.History.Path))
	assert.Equal(t, 2*time.Second, cfg.Watch.Settle)
	assert.Equal(t, 5*time.Second, cfg.Watch.Cooldown)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scrub.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
workers: 3
jpeg_quality: 80
backup_suffix: .orig
history:
  enabled: true
  path: /tmp/h.db
watch:
  settle: 500ms
  recursive: true
`), 0o644))
	t.Setenv("SCRUB_OUTPUT", "json")

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(file)
	v.SetEnvPrefix("SCRUB")
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.Equal(t, ".orig", cfg.BackupSuffix)
	assert.Equal(t, "json", cfg.Output)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/tmp/h.db", cfg.History.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Settle)
	assert.True(t, cfg.Watch.Recursive)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]map[string]any{
		"quality too high": {"jpeg_quality": 101},
		"quality zero":     {"jpeg_quality": 0},
		"bad output":       {"output": "xml"},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			for k, val := range overrides {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestDefaultHistoryPathXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	assert.Equal(t, filepath.Join("/var/state", "scrub", "history.db"), DefaultHistoryPath())
}
