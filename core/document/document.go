// Package document handles metadata for document formats:
// PDF, DOCX, XLSX, PPTX, ODT/ODS/ODP, RTF, and EPUB (view only)
package document

import (
	"fmt"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// Handler implements core.Handler for document formats.
type Handler struct {
	format core.FormatID
}

// New returns a document Handler for the given format.
func New(fmt core.FormatID) *Handler { return &Handler{format: fmt} }

// Formats lists the format IDs this package handles.
func Formats() []core.FormatID {
	return []core.FormatID{core.FmtPDF, core.FmtDOCX, core.FmtXLSX, core.FmtPPTX, core.FmtODT, core.FmtRTF, core.FmtEPUB}
}

func (h *Handler) Info() core.FormatInfo {
	info := formatInfo[h.format]
	info.ID = h.format
	return info
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtPDF: {
		Name:       "PDF",
		Extensions: []string{".pdf"},
		MediaType:  "document",
		MIMETypes:  []string{"application/pdf"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Rewritten without document-info entries or the XMP stream.",
	},
	core.FmtDOCX: {
		Name:       "Word (DOCX)",
		Extensions: []string{".docx", ".docm"},
		MediaType:  "document",
		MIMETypes:  []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Core, app and custom properties cleared.",
	},
	core.FmtXLSX: {
		Name:       "Excel (XLSX)",
		Extensions: []string{".xlsx", ".xlsm"},
		MediaType:  "document",
		MIMETypes:  []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Core, app and custom properties cleared.",
	},
	core.FmtPPTX: {
		Name:       "PowerPoint (PPTX)",
		Extensions: []string{".pptx", ".pptm"},
		MediaType:  "document",
		MIMETypes:  []string{"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Core, app and custom properties cleared.",
	},
	core.FmtODT: {
		Name:       "OpenDocument",
		Extensions: []string{".odt", ".ods", ".odp"},
		MediaType:  "document",
		MIMETypes:  []string{"application/vnd.oasis.opendocument.text"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "meta.xml replaced with an empty office:meta.",
	},
	core.FmtRTF: {
		Name:       "RTF",
		Extensions: []string{".rtf"},
		MediaType:  "document",
		MIMETypes:  []string{"application/rtf"},
		CanView:    true,
		CanStrip:   true,
		Notes:      `{\info} group and generator stamp removed.`,
	},
	core.FmtEPUB: {
		Name:       "EPUB",
		Extensions: []string{".epub"},
		MediaType:  "document",
		MIMETypes:  []string{"application/epub+zip"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Package document Dublin Core and meta entries read.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}

	switch h.format {
	case core.FmtPDF:
		return viewPDF(path, m)
	case core.FmtDOCX, core.FmtXLSX, core.FmtPPTX:
		return viewOPC(path, m)
	case core.FmtODT:
		return viewODF(path, m)
	case core.FmtRTF:
		return viewRTF(path, m)
	case core.FmtEPUB:
		return viewEPUB(path, m)
	default:
		return m, fmt.Errorf("%w: document format %s", core.ErrUnsupportedFormat, h.format)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	out := core.ResolveOutPath(path, outPath)
	switch h.format {
	case core.FmtPDF:
		return stripPDF(path, out, opts)
	case core.FmtDOCX, core.FmtXLSX, core.FmtPPTX:
		return stripOPC(path, out, opts)
	case core.FmtODT:
		return stripODF(path, out, opts)
	case core.FmtRTF:
		return stripRTF(path, out, opts)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, h.format)
	}
}
