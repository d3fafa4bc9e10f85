package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/bogem/id3v2/v2"
)

const (
	id3v2HeaderSize = 10
	id3v1Size       = 128
)

// stripMP3 removes every ID3v2 frame and a trailing ID3v1 block. A file
// without any tag is rewritten unchanged.
func stripMP3(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty MP3", core.ErrCorruptFile)
	}

	t, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: parse id3v2: %v", core.ErrCorruptFile, err)
	}
	t.DeleteAllFrames()

	start, err := id3v2TagSize(data)
	if err != nil {
		return err
	}
	audio := trimID3v1(data[start:])

	return core.WriteFileAtomic(outPath, func(w io.Writer) error {
		// An empty tag serialises to nothing.
		if _, err := t.WriteTo(w); err != nil {
			return fmt.Errorf("write id3v2: %w", err)
		}
		_, err := w.Write(audio)
		return err
	}, opts.Write)
}

// id3v2TagSize returns the number of bytes the leading ID3v2 tag occupies,
// or 0 when the data does not start with one.
func id3v2TagSize(data []byte) (int, error) {
	if len(data) < id3v2HeaderSize || !bytes.HasPrefix(data, []byte("ID3")) {
		return 0, nil
	}
	// Size is a 28-bit synchsafe integer.
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	size += id3v2HeaderSize
	if data[5]&0x10 != 0 { // footer present
		size += id3v2HeaderSize
	}
	if size > len(data) {
		return 0, fmt.Errorf("%w: ID3v2 tag larger than file", core.ErrCorruptFile)
	}
	return size, nil
}

func trimID3v1(audio []byte) []byte {
	if len(audio) >= id3v1Size && bytes.Equal(audio[len(audio)-id3v1Size:len(audio)-id3v1Size+3], []byte("TAG")) {
		return audio[:len(audio)-id3v1Size]
	}
	return audio
}
