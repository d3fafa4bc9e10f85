package video

import (
	"encoding/binary"
	"fmt"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// box is one ISO-BMFF box located inside a byte slice.
type box struct {
	typ   string
	start int // offset of the size field
	body  int // offset of the payload
	end   int // offset one past the last payload byte
}

func (b box) payload(data []byte) []byte { return data[b.body:b.end] }

// parseBoxes lists the boxes between start and end. A size of 0 means the
// box runs to end; a size of 1 means a 64-bit size follows the type.
func parseBoxes(data []byte, start, end int) ([]box, error) {
	var boxes []box
	pos := start
	for pos < end {
		if pos+8 > end {
			return nil, fmt.Errorf("%w: box header truncated at %d", core.ErrCorruptFile, pos)
		}
		size := int64(binary.BigEndian.Uint32(data[pos : pos+4]))
		b := box{typ: string(data[pos+4 : pos+8]), start: pos, body: pos + 8}
		switch size {
		case 0:
			size = int64(end - pos)
		case 1:
			if pos+16 > end {
				return nil, fmt.Errorf("%w: %q largesize truncated", core.ErrCorruptFile, b.typ)
			}
			size = int64(binary.BigEndian.Uint64(data[pos+8 : pos+16]))
			b.body = pos + 16
		}
		if size < int64(b.body-pos) || size > int64(end-pos) {
			return nil, fmt.Errorf("%w: box %q at %d has bad size %d", core.ErrCorruptFile, b.typ, pos, size)
		}
		b.end = pos + int(size)
		boxes = append(boxes, b)
		pos = b.end
	}
	return boxes, nil
}

// Boxes that are walked into while scrubbing.
var scrubContainers = map[string]bool{
	"moov": true,
	"trak": true,
	"mdia": true,
}

// Header boxes whose creation/modification times are zeroed.
var timestampBoxes = map[string]bool{
	"mvhd": true,
	"tkhd": true,
	"mdhd": true,
}

// xmpUUID is the extended type of the uuid box carrying an XMP packet.
var xmpUUID = []byte{0xBE, 0x7A, 0xCF, 0xCB, 0x97, 0xA9, 0x42, 0xE8, 0x9C, 0x71, 0x99, 0x94, 0x91, 0xE3, 0xAF, 0xAC}

// scrubBoxes neutralises metadata in place: udta, meta and XMP uuid boxes
// become free boxes with a zeroed payload, and header timestamps are
// cleared. No box changes size, so chunk offsets in stco/co64 stay valid.
// It returns the number of boxes it touched.
func scrubBoxes(data []byte, start, end, depth int) (int, error) {
	if depth > 8 {
		return 0, nil
	}
	boxes, err := parseBoxes(data, start, end)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range boxes {
		switch {
		case b.typ == "udta" || b.typ == "meta" || isXMPBox(data, b):
			freeBox(data, b)
			n++
		case timestampBoxes[b.typ]:
			if clearTimestamps(b.payload(data)) {
				n++
			}
		case scrubContainers[b.typ]:
			c, err := scrubBoxes(data, b.body, b.end, depth+1)
			if err != nil {
				return n, err
			}
			n += c
		}
	}
	return n, nil
}

func isXMPBox(data []byte, b box) bool {
	p := b.payload(data)
	return b.typ == "uuid" && len(p) >= 16 && string(p[:16]) == string(xmpUUID)
}

func freeBox(data []byte, b box) {
	copy(data[b.start+4:b.start+8], "free")
	// A largesize field sits before b.body and is left intact.
	clear(data[b.body:b.end])
}

// clearTimestamps zeroes the creation and modification time of a
// full box (mvhd, tkhd, mdhd) and reports whether anything was set.
func clearTimestamps(p []byte) bool {
	if len(p) < 4 {
		return false
	}
	width := 4
	if p[0] == 1 {
		width = 8
	}
	if len(p) < 4+2*width {
		return false
	}
	ts := p[4 : 4+2*width]
	touched := false
	for i := range ts {
		if ts[i] != 0 {
			touched = true
			ts[i] = 0
		}
	}
	return touched
}
