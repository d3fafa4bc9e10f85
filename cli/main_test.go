package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args against fresh viper state and default
// flag values, so each case sees only its own flags and environment.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))

	viper.Reset()
	for _, cmd := range []*cobra.Command{rootCmd, stripCmd} {
		for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				require.NoError(t, f.Value.Set(f.DefValue), f.Name)
				f.Changed = false
			})
		}
	}
	t.Cleanup(viper.Reset)

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func commentedZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.SetComment("packed by alice"))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestStripReportsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "notes.svg", []byte("just some text"))

	err := execute(t, "strip", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, errQuiet)
	assert.Contains(t, err.Error(), "1 file(s) failed")

	data, err := os.ReadFile(bad)
	require.NoError(t, err)
	assert.Equal(t, "just some text", string(data))
}

func TestStripStrictUnsupported(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", []byte("plain"))

	require.NoError(t, execute(t, "strip", txt))

	err := execute(t, "strip", "--strict", txt)
	require.Error(t, err)
	assert.ErrorIs(t, err, errQuiet)
	assert.Contains(t, err.Error(), "1 unsupported file(s)")
}

func TestStripDryRunLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	orig := commentedZip(t)
	p := writeFile(t, dir, "bundle.zip", orig)

	require.NoError(t, execute(t, p, "--dry-run"))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, orig, data)

	require.NoError(t, execute(t, p))
	data, err = os.ReadFile(p)
	require.NoError(t, err)
	assert.NotEqual(t, orig, data)
}

func TestFlagsAndEnvReachConfig(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", []byte("plain"))

	require.NoError(t, execute(t, "strip", "--jpeg-quality", "55", txt))
	assert.Equal(t, 55, cfg.JPEGQuality)
	assert.Equal(t, 55, stripOptions().JPEGQuality)

	t.Setenv("SCRUB_WORKERS", "3")
	require.NoError(t, execute(t, "strip", txt))
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 95, cfg.JPEGQuality)

	err := execute(t, "strip", "--jpeg-quality", "0", txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jpeg_quality")
}
