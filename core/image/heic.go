package image

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/rwcarlsen/goexif/exif"
)

// ─── HEIC / HEIF ─────────────────────────────────────────────────────────────

var (
	heicExifHeader = []byte("Exif\x00\x00")
	xmpOpen        = []byte("<x:xmpmeta")
	xmpClose       = []byte("</x:xmpmeta>")
)

// viewHEIC reports the major brand and the EXIF and XMP items of an HEIF
// file. Items are found by their payload signature instead of through the
// iloc table; an "Exif\0\0" run only counts when a TIFF header follows it.
func viewHEIC(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return m, fmt.Errorf("%w: no ftyp box", core.ErrCorruptFile)
	}
	m.Add("HEIC", "Brand", strings.TrimSpace(string(data[8:12])))

	for off := 0; ; {
		i := bytes.Index(data[off:], heicExifHeader)
		if i < 0 {
			break
		}
		i += off
		tiff := data[i+len(heicExifHeader):]
		if bytes.HasPrefix(tiff, []byte("II*\x00")) || bytes.HasPrefix(tiff, []byte("MM\x00*")) {
			if x, err := exif.Decode(bytes.NewReader(data[i:])); err == nil {
				x.Walk(exifWalker{m: m})
			}
			break
		}
		off = i + 1
	}

	if start := bytes.Index(data, xmpOpen); start >= 0 {
		if end := bytes.Index(data[start:], xmpClose); end > 0 {
			core.ParseXMP(data[start:start+end+len(xmpClose)], m, "XMP")
		}
	}
	return m, nil
}
