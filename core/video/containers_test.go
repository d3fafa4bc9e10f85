package video

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// ─── Matroska ────────────────────────────────────────────────────────────────

func ebmlIDBytes(id uint32) []byte {
	b := binary.BigEndian.AppendUint32(nil, id)
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

// ebmlEl encodes an element with an 8-byte size field.
func ebmlEl(id uint32, children ...[]byte) []byte {
	body := bytes.Join(children, nil)
	size := binary.BigEndian.AppendUint64(nil, uint64(len(body)))
	size[0] = 0x01
	return append(append(ebmlIDBytes(id), size...), body...)
}

func ebmlStr(id uint32, s string) []byte { return ebmlEl(id, []byte(s)) }

func simpleTag(name, value string, nested ...[]byte) []byte {
	return ebmlEl(ebmlSimpleTag, append([][]byte{ebmlStr(ebmlTagName, name), ebmlStr(ebmlTagString, value)}, nested...)...)
}

const ebmlCluster = 0x1F43B675

func buildMKV() []byte {
	date := binary.BigEndian.AppendUint64(nil, uint64(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Sub(matroskaEpoch)))
	segment := bytes.Join([][]byte{
		ebmlEl(ebmlInfo,
			ebmlStr(ebmlTitle, "Family trip"),
			ebmlStr(ebmlWritingApp, "HandBrake 1.7"),
			ebmlEl(ebmlDateUTC, date),
		),
		ebmlEl(ebmlCluster, []byte("frame-data")),
		ebmlEl(ebmlTags, ebmlEl(ebmlTag,
			simpleTag("ARTIST", "Jane Roe", simpleTag("SORT_WITH", "Roe, Jane")),
		)),
		ebmlEl(ebmlAttachments, ebmlEl(ebmlAttachedFile,
			ebmlStr(ebmlFileName, "cover.jpg"),
			ebmlStr(ebmlFileMimeType, "image/jpeg"),
			ebmlEl(ebmlFileData, make([]byte, 100)),
		)),
		// A live-written cluster of unknown size ends the walk.
		ebmlIDBytes(ebmlCluster), {0xFF}, []byte("frames"),
		ebmlEl(ebmlTags, ebmlEl(ebmlTag, simpleTag("HIDDEN", "x"))),
	}, nil)

	unknownSize := []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	return bytes.Join([][]byte{
		ebmlEl(ebmlHeader, ebmlStr(0x4282, "matroska")),
		ebmlIDBytes(ebmlSegment), unknownSize, segment,
	}, nil)
}

func TestViewMatroska(t *testing.T) {
	p := writeFile(t, "trip.mkv", buildMKV())
	h := New(core.FmtMKV)

	m, err := h.View(p)
	require.NoError(t, err)
	assert.Equal(t, "Matroska", m.Format)
	assert.Contains(t, m.Fields, core.MetaField{Key: "Title", Value: "Family trip", Category: "Matroska Info"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "WritingApp", Value: "HandBrake 1.7", Category: "Matroska Info"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "DateUTC", Value: "2024-03-01T12:00:00Z", Category: "Matroska Info"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "ARTIST", Value: "Jane Roe", Category: "Matroska Tags"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "SORT_WITH", Value: "Roe, Jane", Category: "Matroska Tags"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "cover.jpg", Value: "image/jpeg, 100 bytes", Category: "Matroska Attachments"})
	for _, f := range m.Fields {
		assert.NotEqual(t, "HIDDEN", f.Key)
	}

	assert.False(t, h.Info().CanStrip)
	assert.ErrorIs(t, h.Strip(p, "", core.StripOptions{}), core.ErrUnsupportedFormat)
}

func TestViewMatroskaCorrupt(t *testing.T) {
	p := writeFile(t, "bad.webm", []byte("RIFF not ebml"))
	_, err := New(core.FmtWebM).View(p)
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestReadVINT(t *testing.T) {
	tests := []struct {
		in      []byte
		keep    bool
		val     uint64
		n       int
		unknown bool
	}{
		{[]byte{0x81}, false, 1, 1, false},
		{[]byte{0x40, 0x02}, false, 2, 2, false},
		{[]byte{0xFF}, false, 0x7F, 1, true},
		{[]byte{0x1A, 0x45, 0xDF, 0xA3}, true, ebmlHeader, 4, false},
		{[]byte{0x00}, false, 0, 0, false},
		{[]byte{0x20, 0x01}, false, 0, 0, false},
	}
	for _, tt := range tests {
		val, n, unknown := readVINT(tt.in, 0, tt.keep)
		assert.Equal(t, tt.val, val, "%x", tt.in)
		assert.Equal(t, tt.n, n, "%x", tt.in)
		assert.Equal(t, tt.unknown, unknown, "%x", tt.in)
	}
}

// ─── AVI ─────────────────────────────────────────────────────────────────────

func riff(id string, body []byte) []byte {
	b := make([]byte, 8, 9+len(body))
	copy(b, id)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(body)))
	b = append(b, body...)
	if len(body)%2 != 0 {
		b = append(b, 0)
	}
	return b
}

func riffList(kind string, chunks ...[]byte) []byte {
	return riff("LIST", append([]byte(kind), bytes.Join(chunks, nil)...))
}

func TestViewAVI(t *testing.T) {
	body := bytes.Join([][]byte{
		[]byte("AVI "),
		riffList("hdrl",
			riff("avih", make([]byte, 56)),
			riffList("strl", riff("strh", make([]byte, 56)), riff("strn", []byte("Camera 1\x00"))),
			riff("IDIT", []byte("MON MAR 01 12:00:00 2024\n\x00")),
		),
		riffList("INFO", riff("INAM", []byte("Holiday\x00")), riff("ISFT", []byte("Lavf60.3.100\x00"))),
		riffList("movi", riff("00dc", []byte("frame"))),
	}, nil)
	data := append([]byte("RIFF\x00\x00\x00\x00"), body...)
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(body)))

	p := writeFile(t, "holiday.avi", data)
	m, err := New(core.FmtAVI).View(p)
	require.NoError(t, err)
	assert.Contains(t, m.Fields, core.MetaField{Key: "Title", Value: "Holiday", Category: "AVI INFO"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "Software", Value: "Lavf60.3.100", Category: "AVI INFO"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "DateTimeOriginal", Value: "MON MAR 01 12:00:00 2024", Category: "AVI"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "StreamName", Value: "Camera 1", Category: "AVI"})

	_, err = New(core.FmtAVI).View(writeFile(t, "fake.avi", []byte("RIFF\x04\x00\x00\x00WAVE")))
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

// ─── ASF ─────────────────────────────────────────────────────────────────────

func utf16z(s string) []byte {
	var b []byte
	for _, u := range append(utf16.Encode([]rune(s)), 0) {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

func asfObject(guid []byte, body []byte) []byte {
	b := append([]byte{}, guid...)
	b = binary.LittleEndian.AppendUint64(b, uint64(24+len(body)))
	return append(b, body...)
}

func TestViewASF(t *testing.T) {
	var cd []byte
	strs := [][]byte{utf16z("Board meeting"), utf16z("Jane Roe"), nil, nil, nil}
	for _, s := range strs {
		cd = binary.LittleEndian.AppendUint16(cd, uint16(len(s)))
	}
	cd = append(cd, bytes.Join(strs, nil)...)

	ext := binary.LittleEndian.AppendUint16(nil, 2)
	for _, e := range []struct {
		name string
		typ  uint16
		val  []byte
	}{
		{"WM/ToolName", 0, utf16z("Windows Movie Maker")},
		{"WM/Year", 3, binary.LittleEndian.AppendUint32(nil, 2024)},
	} {
		n := utf16z(e.name)
		ext = binary.LittleEndian.AppendUint16(ext, uint16(len(n)))
		ext = append(ext, n...)
		ext = binary.LittleEndian.AppendUint16(ext, e.typ)
		ext = binary.LittleEndian.AppendUint16(ext, uint16(len(e.val)))
		ext = append(ext, e.val...)
	}

	children := append(asfObject(asfContentDescription, cd), asfObject(asfExtendedContentDescription, ext)...)
	header := append(binary.LittleEndian.AppendUint32(nil, 2), 1, 2)
	header = append(header, children...)
	data := append(asfObject(asfHeaderObject, header), []byte("data object follows")...)

	p := writeFile(t, "meeting.wmv", data)
	m, err := New(core.FmtWMV).View(p)
	require.NoError(t, err)
	assert.Contains(t, m.Fields, core.MetaField{Key: "Title", Value: "Board meeting", Category: "ASF"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "Author", Value: "Jane Roe", Category: "ASF"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "WM/ToolName", Value: "Windows Movie Maker", Category: "ASF Extended"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "WM/Year", Value: "2024", Category: "ASF Extended"})
	assert.Len(t, m.Fields, 4, "empty strings are not reported")
}

// ─── FLV ─────────────────────────────────────────────────────────────────────

func amfString(s string) []byte {
	return append(binary.BigEndian.AppendUint16(nil, uint16(len(s))), s...)
}

func amfNumber(f float64) []byte {
	return binary.BigEndian.AppendUint64([]byte{0x00}, math.Float64bits(f))
}

func TestViewFLV(t *testing.T) {
	script := bytes.Join([][]byte{
		{0x02}, amfString("onMetaData"),
		{0x08, 0, 0, 0, 4},
		amfString("duration"), amfNumber(12.5),
		amfString("encoder"), {0x02}, amfString("Lavf60"),
		amfString("metadata"), {0x03}, amfString("author"), {0x02}, amfString("Jane"), {0, 0, 0x09},
		amfString("keyframes"), {0x0A, 0, 0, 0, 2}, amfNumber(0), amfNumber(2),
		{0, 0, 0x09},
	}, nil)

	tag := []byte{flvTagScript, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	tag[1], tag[2], tag[3] = byte(len(script)>>16), byte(len(script)>>8), byte(len(script))
	data := bytes.Join([][]byte{
		[]byte("FLV\x01\x05\x00\x00\x00\x09"),
		{0, 0, 0, 0},
		tag, script,
		{0, 0, 0, 0},
	}, nil)

	p := writeFile(t, "stream.flv", data)
	m, err := New(core.FmtFLV).View(p)
	require.NoError(t, err)
	assert.Equal(t, []core.MetaField{
		{Key: "duration", Value: "12.5", Category: "FLV Metadata"},
		{Key: "encoder", Value: "Lavf60", Category: "FLV Metadata"},
		{Key: "keyframes", Value: "2 entries", Category: "FLV Metadata"},
		{Key: "metadata.author", Value: "Jane", Category: "FLV Metadata"},
	}, m.Fields)
}
