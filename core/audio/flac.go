package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// FLAC metadata block types.
const (
	flacStreamInfo    = 0
	flacPadding       = 1
	flacApplication   = 2
	flacSeekTable     = 3
	flacVorbisComment = 4
	flacCueSheet      = 5
	flacPicture       = 6
)

type flacBlock struct {
	blockType byte
	data      []byte
}

// stripFLAC rewrites the metadata block chain. The Vorbis comment block keeps
// only its vendor string; pictures and application blocks go; everything
// the decoder needs is copied as-is, followed by the untouched audio frames.
func stripFLAC(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	blocks, audioStart, err := parseFLACBlocks(data)
	if err != nil {
		return err
	}

	kept := blocks[:0]
	for _, b := range blocks {
		switch b.blockType {
		case flacPicture, flacApplication:
			continue
		case flacVorbisComment:
			b.data = buildVorbisComment(vorbisVendor(b.data), nil)
		}
		kept = append(kept, b)
	}

	return core.WriteFileAtomic(outPath, func(w io.Writer) error {
		return writeFLAC(w, kept, data[audioStart:])
	}, opts.Write)
}

func parseFLACBlocks(data []byte) ([]flacBlock, int, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], []byte("fLaC")) {
		return nil, 0, fmt.Errorf("%w: missing fLaC marker", core.ErrCorruptFile)
	}
	var blocks []flacBlock
	i := 4 // skip "fLaC"
	for {
		if i+4 > len(data) {
			return nil, i, fmt.Errorf("%w: FLAC metadata not terminated", core.ErrCorruptFile)
		}
		header := binary.BigEndian.Uint32(data[i : i+4])
		isLast := (header >> 31) == 1
		blockType := byte((header >> 24) & 0x7F)
		length := int(header & 0xFFFFFF)
		i += 4
		if i+length > len(data) {
			return nil, i, fmt.Errorf("%w: FLAC block truncated", core.ErrCorruptFile)
		}
		blocks = append(blocks, flacBlock{blockType: blockType, data: data[i : i+length]})
		i += length
		if isLast {
			break
		}
	}
	if len(blocks) == 0 || blocks[0].blockType != flacStreamInfo {
		return nil, i, fmt.Errorf("%w: FLAC STREAMINFO missing", core.ErrCorruptFile)
	}
	return blocks, i, nil
}

// vorbisVendor returns the vendor string of a Vorbis comment block.
func vorbisVendor(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	if n < 0 || 4+n > len(data) {
		return ""
	}
	return string(data[4 : 4+n])
}

// parseVorbisComments returns the KEY=value entries of a comment block.
func parseVorbisComments(data []byte) []string {
	if len(data) < 4 {
		return nil
	}
	i := 4 + int(binary.LittleEndian.Uint32(data[0:4]))
	if i+4 > len(data) {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(data[i : i+4]))
	i += 4
	var out []string
	for n := 0; n < count && i+4 <= len(data); n++ {
		l := int(binary.LittleEndian.Uint32(data[i : i+4]))
		i += 4
		if l < 0 || i+l > len(data) {
			break
		}
		out = append(out, string(data[i:i+l]))
		i += l
	}
	return out
}

func buildVorbisComment(vendor string, comments []string) []byte {
	var buf bytes.Buffer
	le := make([]byte, 4)
	binary.LittleEndian.PutUint32(le, uint32(len(vendor)))
	buf.Write(le)
	buf.WriteString(vendor)
	binary.LittleEndian.PutUint32(le, uint32(len(comments)))
	buf.Write(le)
	for _, c := range comments {
		binary.LittleEndian.PutUint32(le, uint32(len(c)))
		buf.Write(le)
		buf.WriteString(c)
	}
	return buf.Bytes()
}

func writeFLAC(w io.Writer, blocks []flacBlock, audioData []byte) error {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for i, b := range blocks {
		header := uint32(b.blockType)<<24 | uint32(len(b.data))
		if i == len(blocks)-1 {
			header |= 1 << 31
		}
		hBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(hBuf, header)
		buf.Write(hBuf)
		buf.Write(b.data)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(audioData)
	return err
}
