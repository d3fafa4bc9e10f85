package video

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── AVI ─────────────────────────────────────────────────────────────────────

var aviInfoNames = map[string]string{
	"IART": "Artist",
	"ICMT": "Comment",
	"ICOP": "Copyright",
	"ICRD": "DateCreated",
	"IENG": "Engineer",
	"IGNR": "Genre",
	"IKEY": "Keywords",
	"INAM": "Title",
	"IPRD": "Product",
	"ISBJ": "Subject",
	"ISFT": "Software",
	"ISRC": "Source",
	"ITCH": "Technician",
}

// aviMaxList bounds the hdrl and INFO lists loaded into memory.
const aviMaxList = 16 << 20

// viewAVI walks the top-level RIFF chunks, reading the INFO list and the
// IDIT capture date from the hdrl list. The movi list is skipped unread.
func viewAVI(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return m, err
	}

	hdr := make([]byte, 12)
	if _, err := f.ReadAt(hdr, 0); err != nil || string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "AVI " {
		return m, fmt.Errorf("%w: not a RIFF/AVI file", core.ErrCorruptFile)
	}

	for off := int64(12); off+12 <= st.Size(); {
		if _, err := f.ReadAt(hdr, off); err != nil {
			return m, fmt.Errorf("%w: read AVI chunk at %d: %v", core.ErrCorruptFile, off, err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		body := off + 8
		if body+size > st.Size() {
			return m, fmt.Errorf("%w: AVI chunk %q truncated", core.ErrCorruptFile, id)
		}
		if id == "LIST" && size >= 4 && size <= aviMaxList {
			switch string(hdr[8:12]) {
			case "INFO", "hdrl":
				list := make([]byte, size)
				if _, err := f.ReadAt(list, body); err != nil && err != io.EOF {
					return m, err
				}
				parseAVIList(list[4:], m)
			}
		}
		off = body + size + size%2
	}
	return m, nil
}

// parseAVIList reads the sub-chunks of a LIST body, descending into
// nested lists.
func parseAVIList(data []byte, m *core.Metadata) {
	for pos := 0; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if size > len(data)-pos {
			return
		}
		body := data[pos : pos+size]
		switch {
		case id == "LIST" && size >= 4:
			parseAVIList(body[4:], m)
		case id == "IDIT":
			m.Add("AVI", "DateTimeOriginal", trimNUL(body))
		case id == "strn":
			m.Add("AVI", "StreamName", trimNUL(body))
		case id[0] == 'I':
			name := aviInfoNames[id]
			if name == "" {
				name = id
			}
			m.Add("AVI INFO", name, trimNUL(body))
		}
		pos += size + size%2
	}
}

func trimNUL(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
