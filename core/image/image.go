// Package image handles metadata for image formats:
// JPEG/JPG, PNG, GIF, WebP, TIFF, BMP, SVG, and HEIC (view only)
package image

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ──────────────────────────────────────────────────────────────────────────────
// Handler
// ──────────────────────────────────────────────────────────────────────────────

// Handler implements core.Handler for all image formats.
type Handler struct {
	format core.FormatID
}

// New returns a Handler for the given format.
func New(fmt core.FormatID) *Handler { return &Handler{format: fmt} }

// Formats lists the format IDs this package handles.
func Formats() []core.FormatID {
	return []core.FormatID{core.FmtJPEG, core.FmtPNG, core.FmtGIF, core.FmtWebP, core.FmtTIFF, core.FmtBMP, core.FmtSVG, core.FmtHEIC}
}

func (h *Handler) Info() core.FormatInfo {
	info := formatInfo[h.format]
	info.ID = h.format
	return info
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtJPEG: {
		Name:       "JPEG",
		Extensions: []string{".jpg", ".jpeg"},
		MediaType:  "image",
		MIMETypes:  []string{"image/jpeg"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Pixels re-encoded; EXIF, XMP, IPTC, ICC and comments dropped.",
	},
	core.FmtPNG: {
		Name:       "PNG",
		Extensions: []string{".png"},
		MediaType:  "image",
		MIMETypes:  []string{"image/png"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Pixels re-encoded; text, eXIf, tIME and colour chunks dropped.",
	},
	core.FmtGIF: {
		Name:       "GIF",
		Extensions: []string{".gif"},
		MediaType:  "image",
		MIMETypes:  []string{"image/gif"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "All frames re-encoded; comment and XMP extensions dropped.",
	},
	core.FmtWebP: {
		Name:       "WebP",
		Extensions: []string{".webp"},
		MediaType:  "image",
		MIMETypes:  []string{"image/webp"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "EXIF and XMP chunks removed from the RIFF container.",
	},
	core.FmtTIFF: {
		Name:       "TIFF",
		Extensions: []string{".tiff", ".tif"},
		MediaType:  "image",
		MIMETypes:  []string{"image/tiff"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Pixels re-encoded; all non-structural IFD tags dropped.",
	},
	core.FmtBMP: {
		Name:       "BMP",
		Extensions: []string{".bmp"},
		MediaType:  "image",
		MIMETypes:  []string{"image/bmp"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Pixels re-encoded.",
	},
	core.FmtSVG: {
		Name:       "SVG",
		Extensions: []string{".svg"},
		MediaType:  "image",
		MIMETypes:  []string{"image/svg+xml"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "<metadata> blocks, comments and editor attributes removed.",
	},
	core.FmtHEIC: {
		Name:       "HEIC",
		Extensions: []string{".heic", ".heif"},
		MediaType:  "image",
		MIMETypes:  []string{"image/heic", "image/heif"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Brand, EXIF and XMP items read.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path}
	ext := strings.ToLower(filepath.Ext(path))

	switch h.format {
	case core.FmtJPEG:
		m.Format = "JPEG"
		return viewJPEG(path, m)
	case core.FmtPNG:
		m.Format = "PNG"
		return viewPNG(path, m)
	case core.FmtGIF:
		m.Format = "GIF"
		return viewGIF(path, m)
	case core.FmtWebP:
		m.Format = "WebP"
		return viewWebP(path, m)
	case core.FmtTIFF:
		m.Format = "TIFF"
		return viewTIFF(path, m)
	case core.FmtBMP:
		// BMP has no metadata structures beyond the pixel header.
		m.Format = "BMP"
		return m, nil
	case core.FmtSVG:
		m.Format = "SVG"
		return viewSVG(path, m)
	case core.FmtHEIC:
		m.Format = "HEIC"
		return viewHEIC(path, m)
	default:
		m.Format = strings.ToUpper(strings.TrimPrefix(ext, "."))
		return m, fmt.Errorf("%w: image format %s", core.ErrUnsupportedFormat, ext)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	out := core.ResolveOutPath(path, outPath)
	switch h.format {
	case core.FmtJPEG, core.FmtPNG, core.FmtTIFF, core.FmtBMP:
		return stripRaster(path, out, h.format, opts)
	case core.FmtGIF:
		return stripGIF(path, out, opts)
	case core.FmtWebP:
		return stripWebP(path, out, opts)
	case core.FmtSVG:
		return stripSVG(path, out, opts)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, h.format)
	}
}
