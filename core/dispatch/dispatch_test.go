package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewOnly struct{}

func (viewOnly) View(string) (*core.Metadata, error)           { return &core.Metadata{}, nil }
func (viewOnly) Strip(string, string, core.StripOptions) error { return nil }
func (viewOnly) Info() core.FormatInfo {
	return core.FormatInfo{ID: core.FmtBMP, Name: "BMP", CanView: true}
}

func TestResolveByExtension(t *testing.T) {
	table := Default()
	tests := []struct {
		path string
		want core.FormatID
	}{
		{"holiday.JPG", core.FmtJPEG},
		{"scan.tif", core.FmtTIFF},
		{"song.mp3", core.FmtMP3},
		{"book.m4b", core.FmtM4A},
		{"clip.mov", core.FmtMOV},
		{"report.docm", core.FmtDOCX},
		{"sheet.ods", core.FmtODT},
		{"bundle.zip", core.FmtZIP},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			// Known extensions never touch the disk.
			h, id, err := table.Resolve(filepath.Join(t.TempDir(), tc.path))
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
			assert.Equal(t, tc.want, h.Info().ID)
		})
	}
}

func TestResolveByMagic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "download")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	h, id, err := Default().Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, core.FmtPDF, id)
	assert.Equal(t, "PDF", h.Info().Name)
}

func TestResolveUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("just text"), 0o644))

	_, id, err := Default().Resolve(p)
	require.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.Equal(t, core.FmtUnknown, id)
	assert.Contains(t, err.Error(), ".txt")
}

func TestResolveMissingFile(t *testing.T) {
	_, _, err := Default().Resolve(filepath.Join(t.TempDir(), "gone.bin"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestResolveViewOnly(t *testing.T) {
	table := &Table{}
	table.Register(core.FmtBMP, viewOnly{})

	_, _, err := table.Resolve("old.bmp")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestFormatsSorted(t *testing.T) {
	infos := Default().Formats()
	require.Len(t, infos, 30)

	for i := 1; i < len(infos); i++ {
		prev, cur := infos[i-1], infos[i]
		if prev.MediaType == cur.MediaType {
			assert.LessOrEqual(t, prev.Name, cur.Name)
		} else {
			assert.Less(t, prev.MediaType, cur.MediaType)
		}
	}
	assert.Equal(t, "archive", infos[0].MediaType)
	viewOnlyIDs := map[core.FormatID]bool{
		core.FmtHEIC: true, core.FmtOGG: true, core.FmtOpus: true, core.FmtAIFF: true,
		core.FmtMKV: true, core.FmtWebM: true, core.FmtAVI: true, core.FmtWMV: true,
		core.FmtFLV: true, core.FmtEPUB: true,
	}
	for _, info := range infos {
		assert.NotEmpty(t, info.ID, info.Name)
		assert.True(t, info.CanView, info.Name)
		assert.Equal(t, !viewOnlyIDs[info.ID], info.CanStrip, info.Name)
	}
}

func TestDefaultViewOnlyFormats(t *testing.T) {
	table := Default()
	tests := []struct {
		path string
		want core.FormatID
	}{
		{"photo.heic", core.FmtHEIC},
		{"track.ogg", core.FmtOGG},
		{"voice.opus", core.FmtOpus},
		{"take.aiff", core.FmtAIFF},
		{"film.mkv", core.FmtMKV},
		{"clip.webm", core.FmtWebM},
		{"old.avi", core.FmtAVI},
		{"talk.wmv", core.FmtWMV},
		{"stream.flv", core.FmtFLV},
		{"novel.epub", core.FmtEPUB},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			_, id, err := table.Resolve(filepath.Join(t.TempDir(), tc.path))
			require.ErrorIs(t, err, core.ErrUnsupportedFormat)
			assert.Contains(t, err.Error(), "view-only")
			assert.Equal(t, tc.want, id)

			h, ok := table.Handler(tc.want)
			require.True(t, ok)
			assert.True(t, h.Info().CanView)
			assert.False(t, h.Info().CanStrip)
		})
	}
}
