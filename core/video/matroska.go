package video

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── Matroska / WebM ─────────────────────────────────────────────────────────

// EBML element IDs, marker bits included.
const (
	ebmlHeader        = 0x1A45DFA3
	ebmlSegment       = 0x18538067
	ebmlInfo          = 0x1549A966
	ebmlTitle         = 0x7BA9
	ebmlMuxingApp     = 0x4D80
	ebmlWritingApp    = 0x5741
	ebmlDateUTC       = 0x4461
	ebmlTags          = 0x1254C367
	ebmlTag           = 0x7373
	ebmlSimpleTag     = 0x67C8
	ebmlTagName       = 0x45A3
	ebmlTagString     = 0x4487
	ebmlAttachments   = 0x1941A469
	ebmlAttachedFile  = 0x61A7
	ebmlFileName      = 0x466E
	ebmlFileMimeType  = 0x4660
	ebmlFileData      = 0x465C
	ebmlMaxMetaBuffer = 64 << 20
)

// matroskaEpoch is the zero point of the DateUTC element.
var matroskaEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

type ebmlElement struct {
	id   uint32
	data []byte
}

// readVINT decodes the EBML variable-length integer at data[pos]. Element
// IDs keep their length marker; sizes do not. unknown reports a size whose
// value bits are all set.
func readVINT(data []byte, pos int, keepMarker bool) (val uint64, n int, unknown bool) {
	if pos >= len(data) || data[pos] == 0 {
		return 0, 0, false
	}
	b := data[pos]
	n = bits.LeadingZeros8(b) + 1
	if pos+n > len(data) {
		return 0, 0, false
	}
	mask := byte(0xFF >> n)
	val = uint64(b & mask)
	if keepMarker {
		val = uint64(b)
	}
	unknown = b&mask == mask
	for _, c := range data[pos+1 : pos+n] {
		val = val<<8 | uint64(c)
		unknown = unknown && c == 0xFF
	}
	return val, n, unknown
}

// ebmlChildren splits a master element's body into its children. A child
// that claims more bytes than remain is cut at the end of data.
func ebmlChildren(data []byte) []ebmlElement {
	var out []ebmlElement
	for i := 0; i < len(data); {
		id, n, _ := readVINT(data, i, true)
		if n == 0 || n > 4 {
			break
		}
		i += n
		size, n, unknown := readVINT(data, i, false)
		if n == 0 {
			break
		}
		i += n
		end := len(data)
		if !unknown && size <= uint64(len(data)-i) {
			end = i + int(size)
		}
		out = append(out, ebmlElement{id: uint32(id), data: data[i:end]})
		i = end
	}
	return out
}

// readEBMLElementHeader reads the ID and size of the element at off. size
// is -1 for an element of unknown size.
func readEBMLElementHeader(r io.ReaderAt, off int64) (id uint32, size int64, hdrLen int, err error) {
	buf := make([]byte, 12)
	n, err := r.ReadAt(buf, off)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, 0, err
	}
	buf = buf[:n]
	v, idLen, _ := readVINT(buf, 0, true)
	if idLen == 0 || idLen > 4 {
		return 0, 0, 0, fmt.Errorf("%w: bad EBML element ID at %d", core.ErrCorruptFile, off)
	}
	s, sizeLen, unknown := readVINT(buf, idLen, false)
	if sizeLen == 0 {
		return 0, 0, 0, fmt.Errorf("%w: bad EBML element size at %d", core.ErrCorruptFile, off)
	}
	size = int64(s)
	if unknown {
		size = -1
	}
	return uint32(v), size, idLen + sizeLen, nil
}

// viewMatroska reads the first Segment's Info, Tags and Attachments. Only
// those elements are loaded; clusters are skipped by seeking past them, and
// the walk ends at the first cluster of unknown size.
func viewMatroska(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return m, err
	}
	fileSize := st.Size()

	id, size, hl, err := readEBMLElementHeader(f, 0)
	if err != nil || id != ebmlHeader || size < 0 {
		return m, fmt.Errorf("%w: missing EBML header", core.ErrCorruptFile)
	}

	for off := int64(hl) + size; off < fileSize; {
		id, size, hl, err := readEBMLElementHeader(f, off)
		if err != nil {
			return m, err
		}
		body := off + int64(hl)
		if id == ebmlSegment {
			end := fileSize
			if size >= 0 && body+size < fileSize {
				end = body + size
			}
			return m, walkSegment(f, body, end, m)
		}
		if size < 0 {
			break
		}
		off = body + size
	}
	return m, nil
}

func walkSegment(r io.ReaderAt, off, end int64, m *core.Metadata) error {
	for off < end {
		id, size, hl, err := readEBMLElementHeader(r, off)
		if err != nil {
			return err
		}
		if size < 0 {
			return nil
		}
		body := off + int64(hl)
		switch id {
		case ebmlInfo, ebmlTags, ebmlAttachments:
			if size > ebmlMaxMetaBuffer || body+size > end {
				return fmt.Errorf("%w: EBML element %#x of %d bytes", core.ErrCorruptFile, id, size)
			}
			buf := make([]byte, size)
			if _, err := r.ReadAt(buf, body); err != nil {
				return fmt.Errorf("%w: read EBML element %#x: %v", core.ErrCorruptFile, id, err)
			}
			switch id {
			case ebmlInfo:
				parseMatroskaInfo(buf, m)
			case ebmlTags:
				for _, tag := range ebmlChildren(buf) {
					if tag.id == ebmlTag {
						parseSimpleTags(tag.data, m)
					}
				}
			case ebmlAttachments:
				parseAttachments(buf, m)
			}
		}
		off = body + size
	}
	return nil
}

func parseMatroskaInfo(data []byte, m *core.Metadata) {
	const cat = "Matroska Info"
	for _, e := range ebmlChildren(data) {
		switch e.id {
		case ebmlTitle:
			m.Add(cat, "Title", string(e.data))
		case ebmlMuxingApp:
			m.Add(cat, "MuxingApp", string(e.data))
		case ebmlWritingApp:
			m.Add(cat, "WritingApp", string(e.data))
		case ebmlDateUTC:
			if len(e.data) == 8 {
				ns := int64(binary.BigEndian.Uint64(e.data))
				m.Add(cat, "DateUTC", matroskaEpoch.Add(time.Duration(ns)).Format(time.RFC3339))
			}
		}
	}
}

// parseSimpleTags adds the name/value pairs of every SimpleTag in data,
// including SimpleTags nested inside another.
func parseSimpleTags(data []byte, m *core.Metadata) {
	for _, st := range ebmlChildren(data) {
		if st.id != ebmlSimpleTag {
			continue
		}
		var name, value string
		for _, e := range ebmlChildren(st.data) {
			switch e.id {
			case ebmlTagName:
				name = string(e.data)
			case ebmlTagString:
				value = string(e.data)
			}
		}
		if name != "" {
			m.Add("Matroska Tags", name, value)
		}
		parseSimpleTags(st.data, m)
	}
}

func parseAttachments(data []byte, m *core.Metadata) {
	for _, af := range ebmlChildren(data) {
		if af.id != ebmlAttachedFile {
			continue
		}
		name, mime, n := "attachment", "", 0
		for _, e := range ebmlChildren(af.data) {
			switch e.id {
			case ebmlFileName:
				name = string(e.data)
			case ebmlFileMimeType:
				mime = string(e.data)
			case ebmlFileData:
				n = len(e.data)
			}
		}
		m.Add("Matroska Attachments", name, fmt.Sprintf("%s, %d bytes", mime, n))
	}
}
