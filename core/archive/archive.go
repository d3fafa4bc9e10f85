// Package archive handles ZIP archives and provides the repacking routine
// the ZIP-based document formats share.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// Handler implements core.Handler for ZIP archives.
type Handler struct{}

// New returns a ZIP Handler.
func New() *Handler { return &Handler{} }

func (h *Handler) Info() core.FormatInfo {
	return core.FormatInfo{
		ID:         core.FmtZIP,
		Name:       "ZIP",
		Extensions: []string{".zip"},
		MediaType:  "archive",
		MIMETypes:  []string{"application/zip"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Entries re-deflated; comments, extra fields and timestamps dropped.",
	}
}

// Epoch is the modification time every repacked entry carries:
// 1980-01-01 00:00:00, the earliest MS-DOS timestamp.
var Epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	dosEpochDate = 1<<5 | 1 // (1980-1980)<<9 | month<<5 | day
	dosEpochTime = 0
)

// flagEncrypted is general purpose bit 0.
const flagEncrypted = 0x1

// Rewrite returns the replacement content for an entry. Returning keep ==
// false drops the entry.
type Rewrite func(name string, data []byte) (out []byte, keep bool, err error)

// Options controls Repack.
type Options struct {
	// KeepMethod preserves each entry's compression method. Otherwise every
	// file is deflated. Formats such as ODF need their stored mimetype entry
	// to stay stored.
	KeepMethod bool
	// Rewrite, if set, is applied to every file entry.
	Rewrite Rewrite
}

// Repack copies every entry of r to w with a fresh header: no comment, no
// extra fields, no host attributes and a fixed modification time. Entry
// order is preserved.
func Repack(w io.Writer, r *zip.Reader, opts Options) error {
	zw := zip.NewWriter(w)
	for _, f := range r.File {
		if f.Flags&flagEncrypted != 0 {
			return fmt.Errorf("%w: zip entry %s", core.ErrEncrypted, f.Name)
		}

		fh := &zip.FileHeader{
			Name:   f.Name,
			Method: zip.Deflate,
		}
		// Modified stays zero so the writer emits no extended-timestamp
		// extra field.
		fh.ModifiedDate = dosEpochDate
		fh.ModifiedTime = dosEpochTime

		if strings.HasSuffix(f.Name, "/") {
			fh.Method = zip.Store
			if _, err := zw.CreateHeader(fh); err != nil {
				return fmt.Errorf("write dir %s: %w", f.Name, err)
			}
			continue
		}
		if opts.KeepMethod {
			fh.Method = f.Method
		}

		data, err := readEntry(f)
		if err != nil {
			return err
		}
		if opts.Rewrite != nil {
			out, keep, err := opts.Rewrite(f.Name, data)
			if err != nil {
				return fmt.Errorf("rewrite %s: %w", f.Name, err)
			}
			if !keep {
				continue
			}
			data = out
		}

		ew, err := zw.CreateHeader(fh)
		if err != nil {
			return fmt.Errorf("write entry %s: %w", f.Name, err)
		}
		if _, err := ew.Write(data); err != nil {
			return fmt.Errorf("write entry %s: %w", f.Name, err)
		}
	}
	// Close writes the central directory without an archive comment.
	return zw.Close()
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %s: %v", core.ErrCorruptFile, f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read entry %s: %v", core.ErrCorruptFile, f.Name, err)
	}
	return data, nil
}

// RepackFile repacks the archive at src into dst atomically.
func RepackFile(src, dst string, opts Options, wopts core.WriteOptions) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: open zip: %v", core.ErrCorruptFile, err)
		}
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	// Everything is read before the rename, so in-place repacking is safe.
	var buf bytes.Buffer
	if err := Repack(&buf, &r.Reader, opts); err != nil {
		return err
	}
	return core.WriteBytesAtomic(dst, buf.Bytes(), wopts)
}

// ──────────────────────────────────────────────────────────────────────────────
// View / Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: "ZIP"}

	r, err := zip.OpenReader(path)
	if err != nil {
		return m, fmt.Errorf("%w: open zip: %v", core.ErrCorruptFile, err)
	}
	defer r.Close()

	m.Add("ZIP", "ArchiveComment", r.Comment)

	var newest time.Time
	extras := 0
	for _, f := range r.File {
		m.Add("ZIP Entry Comment", f.Name, f.Comment)
		if len(f.Extra) > 0 {
			extras++
		}
		// Entries already normalized to Epoch carry no timestamp worth showing.
		mod := f.Modified
		if mod.After(Epoch) {
			m.Add("ZIP Entry Time", f.Name, mod.UTC().Format(time.RFC3339))
		}
		if mod.After(newest) {
			newest = mod
		}
	}
	if newest.After(Epoch) {
		m.Add("ZIP", "NewestEntryTime", newest.Format(time.RFC3339))
	}
	if extras > 0 {
		m.Add("ZIP", "EntriesWithExtraFields", fmt.Sprintf("%d", extras))
	}
	return m, nil
}

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	return RepackFile(path, core.ResolveOutPath(path, outPath), Options{}, opts.Write)
}
