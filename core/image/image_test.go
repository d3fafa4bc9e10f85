package image

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	stdimage "image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 40), 128, 255})
		}
	}
	return img
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// exifSegment builds an APP1 Exif segment with a single ASCII Make tag.
func exifSegment(make string) []byte {
	value := append([]byte(make), 0)
	var tiff bytes.Buffer
	tiff.WriteString("II*\x00")
	binary.Write(&tiff, binary.LittleEndian, uint32(8))      // IFD0 offset
	binary.Write(&tiff, binary.LittleEndian, uint16(1))      // entry count
	binary.Write(&tiff, binary.LittleEndian, uint16(0x010F)) // Make
	binary.Write(&tiff, binary.LittleEndian, uint16(2))      // ASCII
	binary.Write(&tiff, binary.LittleEndian, uint32(len(value)))
	binary.Write(&tiff, binary.LittleEndian, uint32(8+2+12+4)) // value offset
	binary.Write(&tiff, binary.LittleEndian, uint32(0))        // next IFD
	tiff.Write(value)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

func comSegment(text string) []byte {
	seg := []byte{0xFF, 0xFE, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(text)+2))
	return append(seg, text...)
}

func buildJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 90}))
	raw := buf.Bytes()
	// Splice metadata right after SOI.
	out := append([]byte{}, raw[:2]...)
	out = append(out, exifSegment("SecretCam")...)
	out = append(out, comSegment("shot by jane")...)
	return append(out, raw[2:]...)
}

func pngChunkBytes(typ string, data []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(typ)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func buildPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	raw := buf.Bytes()
	// IHDR ends at 8 (signature) + 8 (header) + 13 (data) + 4 (crc).
	ihdrEnd := 8 + 8 + 13 + 4
	out := append([]byte{}, raw[:ihdrEnd]...)
	out = append(out, pngChunkBytes("tEXt", []byte("Author\x00Jane Roe"))...)
	out = append(out, pngChunkBytes("tIME", []byte{0x07, 0xE8, 3, 1, 12, 30, 0})...)
	return append(out, raw[ihdrEnd:]...)
}

func TestStripJPEG(t *testing.T) {
	p := writeFile(t, "photo.jpg", buildJPEG(t))
	h := New(core.FmtJPEG)

	before, err := h.View(p)
	require.NoError(t, err)
	assert.Contains(t, before.Fields, core.MetaField{Key: "Make", Value: "SecretCam", Category: "EXIF"})
	assert.Contains(t, before.Fields, core.MetaField{Key: "Comment", Value: "shot by jane", Category: "JPEG Comment"})

	require.NoError(t, h.Strip(p, "", core.StripOptions{JPEGQuality: 80}))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "SecretCam")
	assert.NotContains(t, string(data), "shot by jane")

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, stdimage.Rect(0, 0, 8, 6), img.Bounds())

	after, err := h.View(p)
	require.NoError(t, err)
	assert.True(t, after.Clean(), "fields left: %v", after.Fields)
}

func TestStripPNG(t *testing.T) {
	p := writeFile(t, "shot.png", buildPNG(t))
	h := New(core.FmtPNG)

	before, err := h.View(p)
	require.NoError(t, err)
	assert.Contains(t, before.Fields, core.MetaField{Key: "Author", Value: "Jane Roe", Category: "PNG tEXt"})
	assert.Contains(t, before.Fields, core.MetaField{Key: "LastModified", Value: "2024-03-01 12:30:00", Category: "PNG tIME"})

	out := filepath.Join(filepath.Dir(p), "clean.png")
	require.NoError(t, h.Strip(p, out, core.StripOptions{}))

	after, err := h.View(out)
	require.NoError(t, err)
	assert.True(t, after.Clean(), "fields left: %v", after.Fields)

	// Pixels survive the round trip exactly.
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	want := testImage()
	r1, g1, b1, _ := want.At(3, 2).RGBA()
	r2, g2, b2, _ := img.At(3, 2).RGBA()
	assert.Equal(t, []uint32{r1, g1, b1}, []uint32{r2, g2, b2})
}

func TestStripGIFDropsComments(t *testing.T) {
	frame := stdimage.NewPaletted(stdimage.Rect(0, 0, 4, 4), palette.Plan9)
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, &gif.GIF{Image: []*stdimage.Paletted{frame, frame}, Delay: []int{10, 10}}))
	raw := buf.Bytes()

	comment := []byte{0x21, 0xFE, 11}
	comment = append(comment, "made by bob"...)
	comment = append(comment, 0x00)
	data := append(append(append([]byte{}, raw[:len(raw)-1]...), comment...), 0x3B)

	p := writeFile(t, "anim.gif", data)
	h := New(core.FmtGIF)

	before, err := h.View(p)
	require.NoError(t, err)
	assert.Contains(t, before.Fields, core.MetaField{Key: "Comment_1", Value: "made by bob", Category: "GIF Comment"})

	require.NoError(t, h.Strip(p, "", core.StripOptions{}))

	after, err := h.View(p)
	require.NoError(t, err)
	assert.True(t, after.Clean())

	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, g.Image, 2, "animation frames are kept")
}

func riffChunk(id string, data []byte) []byte {
	var b bytes.Buffer
	writeRIFFChunk(&b, id, data)
	return b.Bytes()
}

func TestStripWebPBytes(t *testing.T) {
	vp8x := make([]byte, 10)
	vp8x[0] = vp8xFlagEXIF | vp8xFlagXMP | 0x10 // alpha flag stays
	body := bytes.Join([][]byte{
		riffChunk("VP8X", vp8x),
		riffChunk("VP8L", []byte{0x2F, 0x01, 0x02}),
		riffChunk("EXIF", []byte("Exif\x00\x00II*\x00")),
		riffChunk("XMP ", []byte("<x:xmpmeta/>")),
	}, nil)
	data := append([]byte("RIFF\x00\x00\x00\x00WEBP"), body...)
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(body)+4))

	out, err := stripWebPBytes(data)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "EXIF")
	assert.NotContains(t, string(out), "xmpmeta")
	assert.Equal(t, uint32(len(out)-8), binary.LittleEndian.Uint32(out[4:8]))

	wantFlags := make([]byte, 10)
	wantFlags[0] = 0x10
	want := append([]byte("RIFF\x00\x00\x00\x00WEBP"), riffChunk("VP8X", wantFlags)...)
	want = append(want, riffChunk("VP8L", []byte{0x2F, 0x01, 0x02})...)
	binary.LittleEndian.PutUint32(want[4:8], uint32(len(want)-8))
	assert.Equal(t, want, out)
}

func TestStripWebPBytesCorrupt(t *testing.T) {
	tests := map[string][]byte{
		"not riff":  []byte("GIF89a......"),
		"truncated": append([]byte("RIFF\x20\x00\x00\x00WEBP"), "VP8L\xFF\x00\x00\x00ab"...),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := stripWebPBytes(data)
			assert.ErrorIs(t, err, core.ErrCorruptFile)
		})
	}
}

func TestStripSVG(t *testing.T) {
	in := `<?xml version="1.0"?>
<!-- Created with Inkscape by jane -->
<svg xmlns="http://www.w3.org/2000/svg" sodipodi:docname="/home/jane/logo.svg" inkscape:version="1.3" width="10" height="10">
<metadata id="m1"><rdf:RDF><cc:Work><dc:creator>Jane Roe</dc:creator></cc:Work></rdf:RDF></metadata>
<rect width="10" height="10"/>
</svg>`
	p := writeFile(t, "logo.svg", []byte(in))
	h := New(core.FmtSVG)

	before, err := h.View(p)
	require.NoError(t, err)
	assert.False(t, before.Clean())

	require.NoError(t, h.Strip(p, "", core.StripOptions{}))
	got, err := os.ReadFile(p)
	require.NoError(t, err)

	for _, gone := range []string{"Jane Roe", "Inkscape by jane", "/home/jane", "inkscape:version"} {
		assert.NotContains(t, string(got), gone)
	}
	assert.Contains(t, string(got), `<rect width="10" height="10"/>`)

	after, err := h.View(p)
	require.NoError(t, err)
	assert.True(t, after.Clean(), "fields left: %v", after.Fields)
}

func TestStripSVGRejectsNonSVG(t *testing.T) {
	tests := map[string][]byte{
		"zero bytes": {},
		"plain text": []byte("just some notes, not a drawing"),
		"html":       []byte("<!DOCTYPE html><html><body><svg/></body></html>"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, "fake.svg", data)
			h := New(core.FmtSVG)

			err := h.Strip(p, "", core.StripOptions{})
			require.ErrorIs(t, err, core.ErrCorruptFile)

			_, err = h.View(p)
			assert.ErrorIs(t, err, core.ErrCorruptFile)

			got, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.Equal(t, data, got, "input must be left untouched")
		})
	}
}

func TestViewSVGTitleAndDesc(t *testing.T) {
	in := `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
<title>Quarterly chart</title>
<desc>
  Drawn for the ACME board
</desc>
<g><title>inner group</title></g>
</svg>`
	p := writeFile(t, "chart.svg", []byte(in))

	m, err := New(core.FmtSVG).View(p)
	require.NoError(t, err)
	assert.Contains(t, m.Fields, core.MetaField{Key: "Title", Value: "Quarterly chart", Category: "SVG Text"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "Description", Value: "Drawn for the ACME board", Category: "SVG Text"})
	assert.NotContains(t, m.Fields, core.MetaField{Key: "Title", Value: "inner group", Category: "SVG Text"})
}

func TestViewPNGRejectsOversizedChunk(t *testing.T) {
	tests := map[string]uint32{
		"above format limit": 0xFFFFFFF0,
		"above file size":    4096,
	}
	for name, length := range tests {
		t.Run(name, func(t *testing.T) {
			data := append([]byte{}, pngSignature...)
			hdr := make([]byte, 8)
			binary.BigEndian.PutUint32(hdr[0:4], length)
			copy(hdr[4:], "tEXt")
			data = append(data, hdr...)
			data = append(data, "Author\x00Jane"...)

			p := writeFile(t, "huge.png", data)
			_, err := New(core.FmtPNG).View(p)
			assert.ErrorIs(t, err, core.ErrCorruptFile)
		})
	}
}

func isoBox(typ string, body []byte) []byte {
	b := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(b, uint32(8+len(body)))
	copy(b[4:], typ)
	return append(b, body...)
}

func TestViewHEIC(t *testing.T) {
	// The infe entry names the Exif item type; only the mdat copy is followed
	// by a TIFF header.
	infe := append([]byte{2, 0, 0, 0, 0, 1, 0, 0}, "Exif\x00\x00\x00\x00"...)
	mdat := append([]byte{0, 0, 0, 0}, exifSegment("SecretCam")[4:]...)
	mdat = append(mdat, `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF><rdf:Description><xmp:CreatorTool>iOS 17</xmp:CreatorTool></rdf:Description></rdf:RDF></x:xmpmeta>`...)
	data := bytes.Join([][]byte{
		isoBox("ftyp", []byte("heic\x00\x00\x00\x00mif1heic")),
		isoBox("meta", isoBox("infe", infe)),
		isoBox("mdat", mdat),
	}, nil)
	p := writeFile(t, "IMG_0001.HEIC", data)
	h := New(core.FmtHEIC)

	m, err := h.View(p)
	require.NoError(t, err)
	assert.Contains(t, m.Fields, core.MetaField{Key: "Brand", Value: "heic", Category: "HEIC"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "Make", Value: "SecretCam", Category: "EXIF"})
	assert.Contains(t, m.Fields, core.MetaField{Key: "xmp:CreatorTool", Value: "iOS 17", Category: "XMP"})

	assert.False(t, h.Info().CanStrip)
	assert.ErrorIs(t, h.Strip(p, "", core.StripOptions{}), core.ErrUnsupportedFormat)
}

func TestViewHEICNotISOBMFF(t *testing.T) {
	p := writeFile(t, "fake.heic", []byte("definitely not an image"))
	_, err := New(core.FmtHEIC).View(p)
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestStripCorruptRasterLeavesFile(t *testing.T) {
	data := []byte("\xFF\xD8\xFF garbage")
	p := writeFile(t, "broken.jpg", data)

	err := New(core.FmtJPEG).Strip(p, "", core.StripOptions{})
	require.ErrorIs(t, err, core.ErrCorruptFile)

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(p), core.TempPattern))
	assert.Empty(t, matches, "temp files must be cleaned up")
}
