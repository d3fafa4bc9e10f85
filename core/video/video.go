// Package video handles metadata for ISO base media files (MP4, M4V, MOV
// and M4A) and reads, without rewriting, Matroska/WebM, AVI, ASF/WMV and FLV
package video

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// Handler implements core.Handler for the video containers.
type Handler struct {
	format core.FormatID
}

// New returns a video Handler for the given format.
func New(fmt core.FormatID) *Handler { return &Handler{format: fmt} }

// Formats lists the format IDs this package handles.
func Formats() []core.FormatID {
	return []core.FormatID{core.FmtMP4, core.FmtMOV, core.FmtM4A, core.FmtMKV, core.FmtWebM, core.FmtAVI, core.FmtWMV, core.FmtFLV}
}

func (h *Handler) Info() core.FormatInfo {
	info := formatInfo[h.format]
	info.ID = h.format
	return info
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP4: {
		Name:       "MP4",
		Extensions: []string{".mp4", ".m4v"},
		MediaType:  "video",
		MIMETypes:  []string{"video/mp4"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "udta, meta and XMP boxes blanked in place; header timestamps zeroed.",
	},
	core.FmtMOV: {
		Name:       "QuickTime",
		Extensions: []string{".mov", ".qt"},
		MediaType:  "video",
		MIMETypes:  []string{"video/quicktime"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "udta, meta and XMP boxes blanked in place; header timestamps zeroed.",
	},
	core.FmtM4A: {
		Name:       "M4A",
		Extensions: []string{".m4a", ".m4b"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mp4"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "iTunes ilst tags blanked in place; header timestamps zeroed.",
	},
	core.FmtMKV: {
		Name:       "Matroska",
		Extensions: []string{".mkv", ".mka"},
		MediaType:  "video",
		MIMETypes:  []string{"video/x-matroska"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Segment Info, Tags and Attachments read.",
	},
	core.FmtWebM: {
		Name:       "WebM",
		Extensions: []string{".webm"},
		MediaType:  "video",
		MIMETypes:  []string{"video/webm"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Segment Info and Tags read.",
	},
	core.FmtAVI: {
		Name:       "AVI",
		Extensions: []string{".avi"},
		MediaType:  "video",
		MIMETypes:  []string{"video/x-msvideo"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "RIFF INFO list and IDIT date read.",
	},
	core.FmtWMV: {
		Name:       "ASF/WMV",
		Extensions: []string{".wmv", ".wma", ".asf"},
		MediaType:  "video",
		MIMETypes:  []string{"video/x-ms-wmv"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Content and extended content description objects read.",
	},
	core.FmtFLV: {
		Name:       "FLV",
		Extensions: []string{".flv"},
		MediaType:  "video",
		MIMETypes:  []string{"video/x-flv"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "onMetaData script tag read.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}
	switch h.format {
	case core.FmtMP4, core.FmtMOV, core.FmtM4A:
		return viewBMFF(path, m)
	case core.FmtMKV, core.FmtWebM:
		return viewMatroska(path, m)
	case core.FmtAVI:
		return viewAVI(path, m)
	case core.FmtWMV:
		return viewASF(path, m)
	case core.FmtFLV:
		return viewFLV(path, m)
	default:
		return m, fmt.Errorf("%w: video format %s", core.ErrUnsupportedFormat, h.format)
	}
}

func viewBMFF(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := walkBoxes(data, 0, len(data), m, 0); err != nil {
		return m, err
	}
	return m, nil
}

// iTunes metadata atom names → human-readable
var itunesAtomNames = map[string]string{
	"\xa9nam": "Title",
	"\xa9ART": "Artist",
	"\xa9alb": "Album",
	"\xa9day": "Year",
	"\xa9gen": "Genre",
	"\xa9cmt": "Comment",
	"\xa9lyr": "Lyrics",
	"\xa9too": "EncodingTool",
	"\xa9wrt": "Composer",
	"\xa9xyz": "GPSLocation",
	"\xa9mak": "Make",
	"\xa9mod": "Model",
	"\xa9swr": "Software",
	"aART":    "AlbumArtist",
	"cprt":    "Copyright",
	"desc":    "Description",
	"ldes":    "LongDescription",
	"tvsh":    "TVShowName",
	"purl":    "PodcastURL",
	"catg":    "Category",
	"keyw":    "Keywords",
	"covr":    "CoverArt",
}

// macEpoch is the zero point of ISO-BMFF header timestamps.
var macEpoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

func walkBoxes(data []byte, start, end int, m *core.Metadata, depth int) error {
	if depth > 8 {
		return nil
	}
	boxes, err := parseBoxes(data, start, end)
	if err != nil {
		return err
	}
	for _, b := range boxes {
		p := b.payload(data)
		switch b.typ {
		case "moov", "trak", "mdia", "udta":
			if err := walkBoxes(data, b.body, b.end, m, depth+1); err != nil {
				return err
			}
		case "meta":
			// meta is a full box: 4-byte version/flags before its children
			// (QuickTime writes it without them)
			off := b.body + 4
			if len(p) >= 8 && string(p[4:8]) == "hdlr" {
				off = b.body
			}
			if off <= b.end {
				_ = walkBoxes(data, off, b.end, m, depth+1)
			}
		case "ilst":
			parseILST(data, b, m)
		case "mvhd":
			addCreationTime(p, "Movie", m)
		case "tkhd":
			addCreationTime(p, "Track", m)
		case "uuid":
			if isXMPBox(data, b) {
				m.Add("XMP", "Packet", fmt.Sprintf("%d bytes", len(p)-16))
			}
		default:
			// QuickTime user data text atom: 16-bit length, 16-bit language, text
			if name, ok := itunesAtomNames[b.typ]; ok && strings.HasPrefix(b.typ, "\xa9") && len(p) >= 4 {
				l := int(binary.BigEndian.Uint16(p[0:2]))
				if 4+l <= len(p) {
					m.Add("QuickTime User Data", name, string(p[4:4+l]))
				}
			}
		}
	}
	return nil
}

func addCreationTime(p []byte, what string, m *core.Metadata) {
	if len(p) < 12 {
		return
	}
	var created uint64
	if p[0] == 1 {
		if len(p) < 20 {
			return
		}
		created = binary.BigEndian.Uint64(p[4:12])
	} else {
		created = uint64(binary.BigEndian.Uint32(p[4:8]))
	}
	if created == 0 {
		return
	}
	m.Add("Container", what+"CreationTime", macEpoch.Add(time.Duration(created)*time.Second).Format(time.RFC3339))
}

func parseILST(data []byte, ilst box, m *core.Metadata) {
	items, err := parseBoxes(data, ilst.body, ilst.end)
	if err != nil {
		return
	}
	for _, item := range items {
		if item.typ == "----" {
			if key, val := parseFreeformAtom(item.payload(data)); key != "" {
				m.Add("iTunes Custom", key, val)
			}
			continue
		}
		val := extractiTunesData(item.payload(data))
		name := itunesAtomNames[item.typ]
		if name == "" {
			name = item.typ
		}
		m.Add("iTunes Metadata", name, val)
	}
}

func extractiTunesData(data []byte) string {
	// data atom: 4 size + 4 "data" + 1 version + 3 flags + 4 locale + value
	if len(data) < 16 || string(data[4:8]) != "data" {
		return ""
	}
	switch data[11] { // type indicator
	case 13, 14:
		return fmt.Sprintf("image, %d bytes", len(data)-16)
	case 0, 21:
		if n := len(data) - 16; n > 0 && n <= 8 {
			var v uint64
			for _, c := range data[16:] {
				v = v<<8 | uint64(c)
			}
			return fmt.Sprintf("%d", v)
		}
	}
	return strings.TrimRight(string(data[16:]), "\x00")
}

func parseFreeformAtom(data []byte) (key, val string) {
	// Walk mean / name / data sub-atoms
	i := 0
	var domain, name, value string
	for i+8 < len(data) {
		size := int(binary.BigEndian.Uint32(data[i : i+4]))
		typ := string(data[i+4 : i+8])
		if size < 12 || i+size > len(data) {
			break
		}
		payload := data[i+12 : i+size]
		switch typ {
		case "mean":
			domain = string(payload)
		case "name":
			name = string(payload)
		case "data":
			if len(payload) >= 4 {
				value = string(payload[4:])
			}
		}
		i += size
	}
	if name != "" && value != "" {
		if domain != "" {
			key = domain + ":" + name
		} else {
			key = name
		}
		val = value
	}
	return
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	switch h.format {
	case core.FmtMP4, core.FmtMOV, core.FmtM4A:
		return stripBMFF(path, core.ResolveOutPath(path, outPath), opts)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, h.format)
	}
}

func stripBMFF(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 8 {
		return fmt.Errorf("%w: file too short for an ISO-BMFF container", core.ErrCorruptFile)
	}
	if _, err := scrubBoxes(data, 0, len(data), 0); err != nil {
		return err
	}
	return core.WriteBytesAtomic(outPath, data, opts.Write)
}
