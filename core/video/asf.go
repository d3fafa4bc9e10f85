package video

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"unicode/utf16"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── ASF / WMV ───────────────────────────────────────────────────────────────

// ASF object GUIDs in their on-disk byte order.
var (
	asfHeaderObject = []byte{
		0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
		0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
	}
	asfContentDescription = []byte{
		0x33, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11,
		0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C,
	}
	asfExtendedContentDescription = []byte{
		0x40, 0xA4, 0xD0, 0xD2, 0x07, 0xE3, 0xD2, 0x11,
		0x97, 0xF0, 0x00, 0xA0, 0xC9, 0x5E, 0xA8, 0x50,
	}
)

// asfMaxHeader bounds the header object loaded into memory.
const asfMaxHeader = 16 << 20

// viewASF reads the content description objects inside the ASF header
// object, which always comes first in the file.
func viewASF(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	hdr := make([]byte, 30)
	if _, err := f.ReadAt(hdr, 0); err != nil || !bytes.Equal(hdr[:16], asfHeaderObject) {
		return m, fmt.Errorf("%w: no ASF header object", core.ErrCorruptFile)
	}
	size := binary.LittleEndian.Uint64(hdr[16:24])
	if size < 30 || size > asfMaxHeader {
		return m, fmt.Errorf("%w: ASF header object of %d bytes", core.ErrCorruptFile, size)
	}
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil {
		return m, fmt.Errorf("%w: ASF header truncated: %v", core.ErrCorruptFile, err)
	}

	// 16-byte GUID, 8-byte size, 4-byte object count, 2 reserved bytes.
	for pos := 30; pos+24 <= len(data); {
		n := binary.LittleEndian.Uint64(data[pos+16 : pos+24])
		if n < 24 || n > uint64(len(data)-pos) {
			return m, fmt.Errorf("%w: ASF object at %d has size %d", core.ErrCorruptFile, pos, n)
		}
		guid, body := data[pos:pos+16], data[pos+24:pos+int(n)]
		switch {
		case bytes.Equal(guid, asfContentDescription):
			parseASFContentDescription(body, m)
		case bytes.Equal(guid, asfExtendedContentDescription):
			parseASFExtendedContent(body, m)
		}
		pos += int(n)
	}
	return m, nil
}

// parseASFContentDescription reads the five lengths that precede the five
// UTF-16LE strings.
func parseASFContentDescription(data []byte, m *core.Metadata) {
	names := []string{"Title", "Author", "Copyright", "Description", "Rating"}
	if len(data) < 2*len(names) {
		return
	}
	pos := 2 * len(names)
	for i, name := range names {
		n := int(binary.LittleEndian.Uint16(data[2*i:]))
		if pos+n > len(data) {
			return
		}
		m.Add("ASF", name, utf16LE(data[pos:pos+n]))
		pos += n
	}
}

func parseASFExtendedContent(data []byte, m *core.Metadata) {
	if len(data) < 2 {
		return
	}
	count := int(binary.LittleEndian.Uint16(data))
	pos := 2
	for i := 0; i < count; i++ {
		if pos+2 > len(data) {
			return
		}
		nameLen := int(binary.LittleEndian.Uint16(data[pos:]))
		pos += 2
		if pos+nameLen+4 > len(data) {
			return
		}
		name := utf16LE(data[pos : pos+nameLen])
		pos += nameLen
		typ := binary.LittleEndian.Uint16(data[pos:])
		valLen := int(binary.LittleEndian.Uint16(data[pos+2:]))
		pos += 4
		if pos+valLen > len(data) {
			return
		}
		val := data[pos : pos+valLen]
		pos += valLen

		var s string
		switch {
		case typ == 0:
			s = utf16LE(val)
		case typ == 1:
			s = fmt.Sprintf("%d bytes", len(val))
		case typ == 2 && len(val) >= 4:
			s = strconv.FormatBool(binary.LittleEndian.Uint32(val) != 0)
		case typ == 3 && len(val) >= 4:
			s = strconv.FormatUint(uint64(binary.LittleEndian.Uint32(val)), 10)
		case typ == 4 && len(val) >= 8:
			s = strconv.FormatUint(binary.LittleEndian.Uint64(val), 10)
		case typ == 5 && len(val) >= 2:
			s = strconv.FormatUint(uint64(binary.LittleEndian.Uint16(val)), 10)
		}
		m.Add("ASF Extended", name, s)
	}
}

// utf16LE decodes a NUL-terminated UTF-16LE string.
func utf16LE(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}
