package image

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"image/gif"
	"io"
	"os"
	"regexp"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/disintegration/imaging"
)

// ─── JPEG / PNG / TIFF / BMP ─────────────────────────────────────────────────

var imagingFormats = map[core.FormatID]imaging.Format{
	core.FmtJPEG: imaging.JPEG,
	core.FmtPNG:  imaging.PNG,
	core.FmtTIFF: imaging.TIFF,
	core.FmtBMP:  imaging.BMP,
}

// stripRaster decodes the pixel data and writes a fresh file of the same
// format. The encoders write no ancillary data, so every metadata structure
// the source carried is gone. EXIF orientation is applied to the pixels
// first since the tag itself does not survive.
func stripRaster(path, outPath string, id core.FormatID, opts core.StripOptions) error {
	format, ok := imagingFormats[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, id)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", core.ErrCorruptFile, id, err)
	}

	return core.WriteFileAtomic(outPath, func(w io.Writer) error {
		if err := imaging.Encode(w, img, format, imaging.JPEGQuality(opts.Quality())); err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		return nil
	}, opts.Write)
}

// ─── GIF ─────────────────────────────────────────────────────────────────────

// stripGIF re-encodes every frame. The decoder skips comment and
// application extensions, and the encoder only writes the NETSCAPE loop
// extension back, so animation survives while text metadata does not.
func stripGIF(path, outPath string, opts core.StripOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return fmt.Errorf("%w: decode gif: %v", core.ErrCorruptFile, err)
	}

	return core.WriteFileAtomic(outPath, func(w io.Writer) error {
		return gif.EncodeAll(w, g)
	}, opts.Write)
}

// ─── WebP ────────────────────────────────────────────────────────────────────

// VP8X feature flags that announce metadata chunks.
const (
	vp8xFlagEXIF = 0x08
	vp8xFlagXMP  = 0x04
)

func stripWebP(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := stripWebPBytes(data)
	if err != nil {
		return err
	}
	return core.WriteBytesAtomic(outPath, out, opts.Write)
}

// stripWebPBytes rebuilds the RIFF container without EXIF and XMP chunks.
func stripWebPBytes(data []byte) ([]byte, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return nil, fmt.Errorf("%w: not a WebP file", core.ErrCorruptFile)
	}

	var body bytes.Buffer
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if chunkSize < 0 || offset+chunkSize > len(data) {
			return nil, fmt.Errorf("%w: WebP chunk %q truncated", core.ErrCorruptFile, chunkID)
		}
		chunkData := data[offset : offset+chunkSize]

		switch chunkID {
		case "EXIF", "XMP ":
			// dropped
		case "VP8X":
			flags := append([]byte{}, chunkData...)
			if len(flags) > 0 {
				flags[0] &^= vp8xFlagEXIF | vp8xFlagXMP
			}
			writeRIFFChunk(&body, chunkID, flags)
		default:
			writeRIFFChunk(&body, chunkID, chunkData)
		}

		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++ // padding
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	totalSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(totalSize, uint32(body.Len()+4))
	out.Write(totalSize)
	out.WriteString("WEBP")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeRIFFChunk(w *bytes.Buffer, id string, data []byte) {
	w.WriteString(id)
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(data)))
	w.Write(sizeBuf)
	w.Write(data)
	if len(data)%2 != 0 {
		w.WriteByte(0)
	}
}

// ─── SVG ─────────────────────────────────────────────────────────────────────

var (
	svgMetadataRe = regexp.MustCompile(`(?is)<metadata\b[^>]*/>|<metadata\b[^>]*>.*?</metadata\s*>`)
	svgCommentRe  = regexp.MustCompile(`(?s)<!--.*?-->`)
	svgEditorRe   = regexp.MustCompile(`\s(?:sodipodi:docname|inkscape:export-filename|inkscape:export-xdpi|inkscape:export-ydpi|inkscape:version)="[^"]*"`)
)

func stripSVG(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := stripSVGBytes(data)
	if err != nil {
		return err
	}
	return core.WriteBytesAtomic(outPath, out, opts.Write)
}

func stripSVGBytes(data []byte) ([]byte, error) {
	if err := checkSVGRoot(data); err != nil {
		return nil, err
	}
	data = svgMetadataRe.ReplaceAll(data, nil)
	data = svgCommentRe.ReplaceAll(data, nil)
	return svgEditorRe.ReplaceAll(data, nil), nil
}

// checkSVGRoot fails with core.ErrCorruptFile unless the first element of
// data is an <svg> root.
func checkSVGRoot(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: no <svg> root element", core.ErrCorruptFile)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "svg" {
				return fmt.Errorf("%w: root element is <%s>, not <svg>", core.ErrCorruptFile, se.Name.Local)
			}
			return nil
		}
	}
}
