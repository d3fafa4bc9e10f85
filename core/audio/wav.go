package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/dhowden/tag"
)

// WAV INFO field IDs → human names
var infoChunkNames = map[string]string{
	"IARL": "ArchivalLocation",
	"IART": "Artist",
	"ICMS": "Commissioned",
	"ICMT": "Comment",
	"ICOP": "Copyright",
	"ICRD": "DateCreated",
	"IENG": "Engineer",
	"IGNR": "Genre",
	"IKEY": "Keywords",
	"IMED": "Medium",
	"INAM": "Title",
	"IPRD": "Product",
	"ISBJ": "Subject",
	"ISFT": "Software",
	"ISRC": "Source",
	"ITCH": "Technician",
}

// metadataChunks are dropped by stripWAV.
var metadataChunks = map[string]bool{
	"LIST": true,
	"id3 ": true,
	"ID3 ": true,
	"bext": true,
	"iXML": true,
}

type riffChunk struct {
	id   string
	data []byte
}

func readWAVChunks(data []byte) ([]riffChunk, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", core.ErrCorruptFile)
	}
	var chunks []riffChunk
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+size > len(data) {
			return nil, fmt.Errorf("%w: WAV chunk %q truncated", core.ErrCorruptFile, id)
		}
		chunks = append(chunks, riffChunk{id: id, data: data[offset : offset+size]})
		offset += size
		if size%2 != 0 {
			offset++
		}
	}
	return chunks, nil
}

func viewWAV(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	chunks, err := readWAVChunks(data)
	if err != nil {
		return m, err
	}

	for _, c := range chunks {
		switch c.id {
		case "LIST":
			if len(c.data) >= 4 && string(c.data[:4]) == "INFO" {
				parseINFOInto(c.data[4:], m)
			}
		case "id3 ", "ID3 ":
			if t, err := tag.ReadID3v2Tags(bytes.NewReader(c.data)); err == nil {
				addFromTag(t, m, "WAV ID3")
			}
		case "bext":
			// Broadcast Wave: Description[256] Originator[32] OriginatorReference[32] Date[10] Time[8]
			if len(c.data) >= 338 {
				m.Add("WAV bext", "Description", cString(c.data[0:256]))
				m.Add("WAV bext", "Originator", cString(c.data[256:288]))
				m.Add("WAV bext", "OriginatorReference", cString(c.data[288:320]))
				m.Add("WAV bext", "OriginationDate", cString(c.data[320:330]))
				m.Add("WAV bext", "OriginationTime", cString(c.data[330:338]))
			}
		case "iXML":
			m.Add("WAV iXML", "iXML", fmt.Sprintf("%d bytes", len(c.data)))
		}
	}
	return m, nil
}

func parseINFOInto(data []byte, m *core.Metadata) {
	pos := 0
	for pos+8 <= len(data) {
		infoID := string(data[pos : pos+4])
		infoSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if pos+infoSize > len(data) {
			return
		}
		name := infoChunkNames[infoID]
		if name == "" {
			name = infoID
		}
		m.Add("WAV INFO", name, cString(data[pos:pos+infoSize]))
		pos += infoSize
		if infoSize%2 != 0 {
			pos++
		}
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// stripWAV rebuilds the RIFF container without metadata chunks.
func stripWAV(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunks, err := readWAVChunks(data)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	for _, c := range chunks {
		if metadataChunks[c.id] {
			continue
		}
		writeRIFFChunk(&body, c.id, c.data)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(body.Len()+4))
	out.Write(sizeBuf)
	out.WriteString("WAVE")
	out.Write(body.Bytes())

	return core.WriteBytesAtomic(outPath, out.Bytes(), opts.Write)
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
