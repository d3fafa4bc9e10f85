package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/dhowden/tag"
)

// ─── AIFF ────────────────────────────────────────────────────────────────────

var aiffTextChunks = map[string]string{
	"NAME": "Title",
	"AUTH": "Author",
	"(c) ": "Copyright",
	"ANNO": "Annotation",
}

// viewAIFF walks the big-endian FORM chunks of an AIFF or AIFF-C file.
func viewAIFF(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 12 || string(data[0:4]) != "FORM" ||
		(string(data[8:12]) != "AIFF" && string(data[8:12]) != "AIFC") {
		return m, fmt.Errorf("%w: not a FORM/AIFF file", core.ErrCorruptFile)
	}

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if size < 0 || offset+size > len(data) {
			return m, fmt.Errorf("%w: AIFF chunk %q truncated", core.ErrCorruptFile, id)
		}
		body := data[offset : offset+size]
		switch id {
		case "NAME", "AUTH", "(c) ", "ANNO":
			m.Add("AIFF", aiffTextChunks[id], cString(body))
		case "ID3 ", "id3 ":
			if t, err := tag.ReadID3v2Tags(bytes.NewReader(body)); err == nil {
				addFromTag(t, m, "AIFF ID3")
			}
		}
		offset += size
		if size%2 != 0 {
			offset++
		}
	}
	return m, nil
}
