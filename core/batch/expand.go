package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// Expand turns user selections into a file list. Globs are expanded,
// directories contribute their files (recursively when asked), and plain
// paths pass through unchanged so a missing file is reported by the run
// rather than dropped. Hidden entries and in-flight temp files found while
// walking a directory are skipped. Order is preserved and duplicates
// removed.
func Expand(paths []string, recursive bool) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		key := filepath.Clean(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}

	for _, arg := range paths {
		matches := []string{arg}
		if strings.ContainsAny(arg, "*?[") {
			m, err := filepath.Glob(arg)
			if err != nil {
				return nil, err
			}
			if len(m) > 0 {
				matches = m
			}
		}

		for _, p := range matches {
			info, err := os.Stat(p)
			if err != nil || !info.IsDir() {
				add(p)
				continue
			}
			files, err := walkDir(p, recursive)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		}
	}
	return out, nil
}

func walkDir(root string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if skipEntry(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".") || core.IsTempFile(name)
}
