package image

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ─── JPEG ────────────────────────────────────────────────────────────────────

func viewJPEG(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	if x, err := exif.Decode(f); err == nil {
		x.Walk(exifWalker{m: m})
	}

	// XMP: APP1 with the Adobe namespace
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if xmpData := extractJPEGSegment(f, 0xE1, []byte("http://ns.adobe.com/xap/1.0/\x00")); len(xmpData) > 0 {
			core.ParseXMP(xmpData, m, "XMP")
		}
	}

	// IPTC: APP13
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if iptcData := extractJPEGSegment(f, 0xED, []byte("Photoshop 3.0\x00")); len(iptcData) > 0 {
			parseIPTCInto(iptcData, m)
		}
	}

	// COM
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if com := extractJPEGSegment(f, 0xFE, nil); len(com) > 0 {
			m.Add("JPEG Comment", "Comment", string(com))
		}
	}

	return m, nil
}

type exifWalker struct {
	m *core.Metadata
}

func (w exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val := tag.String()
	// Remove surrounding quotes from string values
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	w.m.Add("EXIF", string(name), val)
	return nil
}

// extractJPEGSegment finds a JPEG APP segment by marker byte and optional prefix.
// Returns the segment data (after the prefix), or nil.
func extractJPEGSegment(r io.Reader, marker byte, prefix []byte) []byte {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil
	}
	if buf[0] != 0xFF || buf[1] != 0xD8 {
		return nil
	}
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil
		}
		if buf[0] != 0xFF {
			return nil
		}
		segMarker := buf[1]
		// Stop at SOS (start of scan)
		if segMarker == 0xDA {
			return nil
		}
		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf)) - 2
		if segLen < 0 {
			return nil
		}
		data := make([]byte, segLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil
		}
		if segMarker == marker && bytes.HasPrefix(data, prefix) {
			return data[len(prefix):]
		}
	}
}

// ─── IPTC ────────────────────────────────────────────────────────────────────

var iptcFieldNames = map[byte]string{
	0x05: "ObjectName",
	0x0F: "Category",
	0x19: "Keywords",
	0x1E: "DateCreated",
	0x37: "DigitalCreationDate",
	0x3C: "Byline",
	0x46: "City",
	0x4E: "Province",
	0x55: "Country",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "CopyrightNotice",
	0x76: "Contact",
	0x78: "Caption",
	0x7A: "CaptionWriter",
}

func parseIPTCInto(data []byte, m *core.Metadata) {
	// Walk "8BIM" Photoshop resource blocks to find the IPTC resource (0x0404)
	i := 0
	for i+8 < len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			break
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if resType == 0x0404 && blockLen >= 0 && i+blockLen <= len(data) {
			parseIPTCBlock(data[i:i+blockLen], m)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}
}

func parseIPTCBlock(data []byte, m *core.Metadata) {
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		dataset := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			break
		}
		if name, ok := iptcFieldNames[dataset]; ok {
			m.Add("IPTC", name, string(data[i:i+length]))
		}
		i += length
	}
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

type pngChunk struct {
	typ  string
	data []byte
}

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// pngMaxChunk is the largest chunk length the PNG format allows.
const pngMaxChunk = 1<<31 - 1

// readPNGChunks splits a PNG file into its chunks. A chunk whose declared
// length exceeds the format limit or the bytes left in the file is
// reported as corrupt rather than allocated.
func readPNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: not a valid PNG", core.ErrCorruptFile)
	}

	var chunks []pngChunk
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := uint64(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		pos += 8
		if length > pngMaxChunk || length+4 > uint64(len(data)-pos) {
			return chunks, fmt.Errorf("%w: PNG chunk %q length %d exceeds file", core.ErrCorruptFile, typ, length)
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[pos : pos+int(length)]})
		pos += int(length) + 4 // data + CRC
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

func viewPNG(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}

	chunks, err := readPNGChunks(data)
	if err != nil {
		return m, err
	}

	for _, c := range chunks {
		switch c.typ {
		case "tEXt":
			// keyword\0value
			if null := bytes.IndexByte(c.data, 0); null > 0 {
				m.Add("PNG tEXt", string(c.data[:null]), string(c.data[null+1:]))
			}
		case "zTXt":
			// keyword\0method compressed-text
			if null := bytes.IndexByte(c.data, 0); null > 0 && null+2 <= len(c.data) {
				m.Add("PNG zTXt", string(c.data[:null]), inflate(c.data[null+2:]))
			}
		case "iTXt":
			// keyword\0flag method language\0translated\0text
			null := bytes.IndexByte(c.data, 0)
			if null <= 0 || null+3 > len(c.data) {
				continue
			}
			key := string(c.data[:null])
			compressed := c.data[null+1] == 1
			rest := c.data[null+3:]
			for i := 0; i < 2 && rest != nil; i++ {
				n := bytes.IndexByte(rest, 0)
				if n < 0 {
					rest = nil
					break
				}
				rest = rest[n+1:]
			}
			val := string(rest)
			if compressed {
				val = inflate(rest)
			}
			m.Add("PNG iTXt", key, val)
		case "eXIf":
			if x, err := exif.Decode(bytes.NewReader(c.data)); err == nil {
				x.Walk(exifWalker{m: m})
			}
		case "tIME":
			if len(c.data) == 7 {
				year := binary.BigEndian.Uint16(c.data[0:2])
				m.Add("PNG tIME", "LastModified",
					fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, c.data[2], c.data[3], c.data[4], c.data[5], c.data[6]))
			}
		case "iCCP":
			if null := bytes.IndexByte(c.data, 0); null > 0 {
				m.Add("PNG iCCP", "ICCProfile", string(c.data[:null]))
			}
		}
	}
	return m, nil
}

func inflate(b []byte) string {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	defer zr.Close()
	out, _ := io.ReadAll(io.LimitReader(zr, 1<<16))
	return string(out)
}

// ─── GIF ─────────────────────────────────────────────────────────────────────

func viewGIF(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 13 {
		return m, fmt.Errorf("%w: GIF too short", core.ErrCorruptFile)
	}

	i := 13 // header (6) + logical screen descriptor (7)
	if data[10]&0x80 != 0 {
		i += 3 * (1 << (int(data[10]&0x07) + 1))
	}

	commentCount := 0
	for i < len(data) {
		switch data[i] {
		case 0x3B: // trailer
			return m, nil
		case 0x21: // extension
			if i+1 >= len(data) {
				return m, nil
			}
			label := data[i+1]
			payload, next := readGIFSubBlocks(data, i+2)
			switch label {
			case 0xFE:
				commentCount++
				m.Add("GIF Comment", fmt.Sprintf("Comment_%d", commentCount), string(payload))
			case 0xFF:
				if len(payload) >= 11 && string(payload[:11]) == "XMP DataXMP" {
					core.ParseXMP(payload[11:], m, "XMP")
				}
			}
			i = next
		case 0x2C: // image descriptor
			if i+10 > len(data) {
				return m, nil
			}
			packed := data[i+9]
			i += 10
			if packed&0x80 != 0 {
				i += 3 * (1 << (int(packed&0x07) + 1))
			}
			i++ // LZW minimum code size
			_, i = readGIFSubBlocks(data, i)
		default:
			return m, nil
		}
	}
	return m, nil
}

// readGIFSubBlocks concatenates data sub-blocks starting at i and returns
// the offset after the block terminator.
func readGIFSubBlocks(data []byte, i int) ([]byte, int) {
	var out []byte
	for i < len(data) {
		size := int(data[i])
		i++
		if size == 0 {
			break
		}
		if i+size > len(data) {
			return out, len(data)
		}
		out = append(out, data[i:i+size]...)
		i += size
	}
	return out, i
}

// ─── WebP ────────────────────────────────────────────────────────────────────

func viewWebP(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 12 {
		return m, fmt.Errorf("%w: WebP too short", core.ErrCorruptFile)
	}

	offset := 12 // skip RIFF header
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			break
		}
		chunkData := data[offset : offset+chunkSize]

		switch chunkID {
		case "EXIF":
			if x, err := exif.Decode(bytes.NewReader(chunkData)); err == nil {
				x.Walk(exifWalker{m: m})
			} else {
				m.Add("WebP", "EXIF", fmt.Sprintf("%d bytes", chunkSize))
			}
		case "XMP ":
			if utf8.Valid(chunkData) {
				core.ParseXMP(chunkData, m, "XMP")
			}
		}

		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++ // padding
		}
	}
	return m, nil
}

// ─── TIFF ────────────────────────────────────────────────────────────────────

// tiffStructural lists IFD tags that describe the pixel layout rather than
// the picture's origin.
var tiffStructural = map[exif.FieldName]bool{
	exif.ImageWidth:                true,
	exif.ImageLength:               true,
	exif.BitsPerSample:             true,
	exif.Compression:               true,
	exif.PhotometricInterpretation: true,
	exif.SamplesPerPixel:           true,
	exif.PlanarConfiguration:       true,
	exif.XResolution:               true,
	exif.YResolution:               true,
	exif.ResolutionUnit:            true,
	"StripOffsets":                 true,
	"RowsPerStrip":                 true,
	"StripByteCounts":              true,
	"ExtraSamples":                 true,
	"SampleFormat":                 true,
	"Predictor":                    true,
}

type tiffWalker struct {
	m *core.Metadata
}

func (w tiffWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tiffStructural[name] {
		return nil
	}
	return exifWalker(w).Walk(name, tag)
}

func viewTIFF(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// A bare TIFF with only structural tags has no EXIF sub-IFD;
		// goexif reports that as an error.
		return m, nil
	}
	x.Walk(tiffWalker{m: m})
	return m, nil
}

// ─── SVG ─────────────────────────────────────────────────────────────────────

var svgMetadataBlockRe = regexp.MustCompile(`(?is)<metadata\b[^>]*>(.*?)</metadata\s*>`)

func viewSVG(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := checkSVGRoot(data); err != nil {
		return m, err
	}

	for _, match := range svgMetadataBlockRe.FindAllSubmatch(data, -1) {
		before := len(m.Fields)
		core.ParseXMP(match[1], m, "XMP")
		if len(m.Fields) == before && len(bytes.TrimSpace(match[1])) > 0 {
			m.Add("SVG", "metadata", strings.TrimSpace(string(match[1])))
		}
	}
	viewSVGText(data, m)
	for _, c := range svgCommentRe.FindAll(data, -1) {
		m.Add("SVG", "Comment", strings.TrimSpace(string(c[4:len(c)-3])))
	}
	for _, a := range svgEditorRe.FindAll(data, -1) {
		kv := strings.SplitN(strings.TrimSpace(string(a)), "=", 2)
		if len(kv) == 2 {
			m.Add("SVG Editor", kv[0], strings.Trim(kv[1], `"`))
		}
	}
	return m, nil
}

// viewSVGText reports the document-level <title> and <desc>, the direct
// children of the root element. Strip leaves them in place since they are
// part of the rendered, accessible content.
func viewSVGText(data []byte, m *core.Metadata) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	depth := 0
	var field string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				switch t.Name.Local {
				case "title":
					field = "Title"
				case "desc":
					field = "Description"
				}
				text.Reset()
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && field != "" {
				m.Add("SVG Text", field, strings.TrimSpace(text.String()))
				field = ""
			}
			depth--
		}
	}
}
