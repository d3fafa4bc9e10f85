package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempPattern is the name pattern of in-flight output files. Directory
// walkers and the watcher skip anything matching it.
const TempPattern = ".scrub-*.tmp"

// WriteOptions controls how WriteFileAtomic replaces its destination.
type WriteOptions struct {
	// BackupSuffix, when set, keeps the previous destination as
	// dst+BackupSuffix before the rename.
	BackupSuffix string
}

// IsTempFile reports whether name looks like a WriteFileAtomic temp file.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".scrub-") && strings.HasSuffix(base, ".tmp")
}

// WriteFileAtomic writes the output produced by fn to dst. The data goes to a
// temp file in dst's directory which is synced and renamed over dst, so dst
// either keeps its old content or holds the complete new content.
func WriteFileAtomic(dst string, fn func(w io.Writer) error, opts WriteOptions) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(dst); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), TempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fn(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if opts.BackupSuffix != "" {
		if _, err := os.Stat(dst); err == nil {
			if err := copyFile(dst, dst+opts.BackupSuffix); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
		}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename temp to output: %w", err)
	}
	success = true
	return nil
}

// WriteBytesAtomic is WriteFileAtomic for an in-memory result.
func WriteBytesAtomic(dst string, data []byte, opts WriteOptions) error {
	return WriteFileAtomic(dst, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}, opts)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ResolveOutPath returns dst if non-empty, otherwise src (in-place).
func ResolveOutPath(src, dst string) string {
	if dst == "" {
		return src
	}
	return dst
}
