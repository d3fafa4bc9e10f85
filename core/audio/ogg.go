package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── Ogg Vorbis / Opus ───────────────────────────────────────────────────────

var oggCapture = []byte("OggS")

// oggPackets reassembles the first n packets of the first logical stream.
// Pages of other streams are skipped; CRCs are not checked.
func oggPackets(data []byte, n int) ([][]byte, error) {
	var (
		packets [][]byte
		cur     []byte
		serial  uint32
	)
	for pos := 0; pos < len(data) && len(packets) < n; {
		if len(data)-pos < 27 || !bytes.Equal(data[pos:pos+4], oggCapture) {
			return nil, fmt.Errorf("%w: no Ogg page at offset %d", core.ErrCorruptFile, pos)
		}
		s := binary.LittleEndian.Uint32(data[pos+14 : pos+18])
		if pos == 0 {
			serial = s
		}
		table := pos + 27
		body := table + int(data[pos+26])
		if body > len(data) {
			return nil, fmt.Errorf("%w: Ogg segment table truncated", core.ErrCorruptFile)
		}
		size := 0
		for _, l := range data[table:body] {
			size += int(l)
		}
		if body+size > len(data) {
			return nil, fmt.Errorf("%w: Ogg page truncated", core.ErrCorruptFile)
		}
		if s == serial {
			off := body
			for _, l := range data[table:body] {
				cur = append(cur, data[off:off+int(l)]...)
				off += int(l)
				// A lacing value below 255 ends the packet.
				if l < 255 {
					packets = append(packets, cur)
					cur = nil
					if len(packets) == n {
						break
					}
				}
			}
		}
		pos = body + size
	}
	if len(packets) < n {
		return nil, fmt.Errorf("%w: Ogg stream ends inside its headers", core.ErrCorruptFile)
	}
	return packets, nil
}

// viewOGG reads the comment header, the second packet of a Vorbis or Opus
// stream, which carries the same comment list FLAC uses.
func viewOGG(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	packets, err := oggPackets(data, 2)
	if err != nil {
		return m, err
	}

	comment := packets[1]
	var cat string
	switch {
	case bytes.HasPrefix(comment, []byte("\x03vorbis")):
		comment, cat = comment[7:], "Vorbis Comment"
	case bytes.HasPrefix(comment, []byte("OpusTags")):
		comment, cat = comment[8:], "Opus Tags"
	default:
		return m, fmt.Errorf("%w: Ogg stream has no Vorbis or Opus comment header", core.ErrCorruptFile)
	}

	for _, c := range parseVorbisComments(comment) {
		k, v, ok := strings.Cut(c, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(k)
		if k == "METADATA_BLOCK_PICTURE" {
			v = fmt.Sprintf("%d bytes (base64)", len(v))
		}
		m.Add(cat, k, v)
	}
	return m, nil
}
