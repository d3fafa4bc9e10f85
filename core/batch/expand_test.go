package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.jpg")
	b := touch(t, dir, "b.png")
	nested := touch(t, dir, "sub", "c.pdf")
	touch(t, dir, ".hidden.jpg")
	touch(t, dir, ".scrub-123.tmp")
	touch(t, dir, ".git", "config")

	t.Run("flat directory", func(t *testing.T) {
		got, err := Expand([]string{dir}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})

	t.Run("recursive directory", func(t *testing.T) {
		got, err := Expand([]string{dir}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{a, b, nested}, got)
	})

	t.Run("glob and duplicates", func(t *testing.T) {
		got, err := Expand([]string{filepath.Join(dir, "a.*"), a, dir}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})

	t.Run("missing path passes through", func(t *testing.T) {
		missing := filepath.Join(dir, "nope.jpg")
		got, err := Expand([]string{missing}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{missing}, got)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Expand([]string{filepath.Join(dir, "[")}, false)
		assert.Error(t, err)
	})
}
