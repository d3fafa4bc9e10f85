// Package audio handles metadata for audio formats:
// MP3 (ID3v1/v2), FLAC (Vorbis comments, pictures), WAV (RIFF INFO, ID3, BWF),
// and the view-only Ogg Vorbis, Opus and AIFF
package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/dhowden/tag"
)

// Handler implements core.Handler for audio formats.
type Handler struct {
	format core.FormatID
}

// New returns an audio Handler for the given format.
func New(fmt core.FormatID) *Handler { return &Handler{format: fmt} }

// Formats lists the format IDs this package handles.
func Formats() []core.FormatID {
	return []core.FormatID{core.FmtMP3, core.FmtFLAC, core.FmtWAV, core.FmtOGG, core.FmtOpus, core.FmtAIFF}
}

func (h *Handler) Info() core.FormatInfo {
	info := formatInfo[h.format]
	info.ID = h.format
	return info
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP3: {
		Name:       "MP3",
		Extensions: []string{".mp3"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/mpeg"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "ID3v2 tag and trailing ID3v1 block removed.",
	},
	core.FmtFLAC: {
		Name:       "FLAC",
		Extensions: []string{".flac"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/flac"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "Vorbis comments emptied; PICTURE and APPLICATION blocks dropped.",
	},
	core.FmtWAV: {
		Name:       "WAV",
		Extensions: []string{".wav", ".wave"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/wav"},
		CanView:    true,
		CanStrip:   true,
		Notes:      "LIST, id3, bext and iXML chunks removed.",
	},
	core.FmtOGG: {
		Name:       "Ogg Vorbis",
		Extensions: []string{".ogg", ".oga"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/ogg"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "Vorbis comment header read.",
	},
	core.FmtOpus: {
		Name:       "Opus",
		Extensions: []string{".opus"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/opus"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "OpusTags comment header read.",
	},
	core.FmtAIFF: {
		Name:       "AIFF",
		Extensions: []string{".aif", ".aiff", ".aifc"},
		MediaType:  "audio",
		MIMETypes:  []string{"audio/aiff"},
		CanView:    true,
		CanStrip:   false,
		Notes:      "NAME, AUTH, (c), ANNO and ID3 chunks read.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// View
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}

	switch h.format {
	case core.FmtMP3, core.FmtFLAC:
		return viewWithDhowden(path, m)
	case core.FmtWAV:
		return viewWAV(path, m)
	case core.FmtOGG, core.FmtOpus:
		return viewOGG(path, m)
	case core.FmtAIFF:
		return viewAIFF(path, m)
	default:
		return m, fmt.Errorf("%w: audio format %s", core.ErrUnsupportedFormat, h.format)
	}
}

// viewWithDhowden uses the dhowden/tag library to read audio metadata.
func viewWithDhowden(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	t, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("read tags: %w", err)
	}

	cat := string(t.Format())
	if cat == "" {
		cat = "Audio Tags"
	}
	addFromTag(t, m, cat)
	return m, nil
}

func addFromTag(t tag.Metadata, m *core.Metadata, cat string) {
	m.Add(cat, "Title", t.Title())
	m.Add(cat, "Artist", t.Artist())
	m.Add(cat, "Album", t.Album())
	m.Add(cat, "AlbumArtist", t.AlbumArtist())
	m.Add(cat, "Composer", t.Composer())
	m.Add(cat, "Genre", t.Genre())
	m.Add(cat, "Comment", t.Comment())
	m.Add(cat, "Lyrics", t.Lyrics())
	if t.Year() != 0 {
		m.Add(cat, "Year", fmt.Sprintf("%d", t.Year()))
	}
	if track, total := t.Track(); track != 0 {
		s := fmt.Sprintf("%d", track)
		if total != 0 {
			s = fmt.Sprintf("%d/%d", track, total)
		}
		m.Add(cat, "TrackNumber", s)
	}
	if disc, total := t.Disc(); disc != 0 {
		s := fmt.Sprintf("%d", disc)
		if total != 0 {
			s = fmt.Sprintf("%d/%d", disc, total)
		}
		m.Add(cat, "DiscNumber", s)
	}
	if p := t.Picture(); p != nil {
		m.Add(cat, "Picture", fmt.Sprintf("%s, %d bytes", p.MIMEType, len(p.Data)))
	}

	for k, v := range t.Raw() {
		// Skip keys already displayed
		switch strings.ToLower(k) {
		case "title", "artist", "album", "albumartist", "composer",
			"genre", "comment", "year", "date", "track", "tracknumber",
			"disc", "discnumber", "lyrics", "picture", "metadata_block_picture", "vendor":
			continue
		}
		var s string
		switch vt := v.(type) {
		case nil:
			continue
		case string:
			s = vt
		case []string:
			s = strings.Join(vt, "; ")
		case int:
			s = fmt.Sprintf("%d", vt)
		case *tag.Picture:
			continue
		default:
			b, _ := json.Marshal(v)
			s = string(b)
		}
		if len(s) < 512 {
			m.Add(cat+" (raw)", k, s)
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Strip
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) Strip(path string, outPath string, opts core.StripOptions) error {
	out := core.ResolveOutPath(path, outPath)
	switch h.format {
	case core.FmtMP3:
		return stripMP3(path, out, opts)
	case core.FmtFLAC:
		return stripFLAC(path, out, opts)
	case core.FmtWAV:
		return stripWAV(path, out, opts)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, h.format)
	}
}
