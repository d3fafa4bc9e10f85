package video

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── FLV ─────────────────────────────────────────────────────────────────────

const (
	flvTagScript = 18
	// flvScanTags bounds how many tags are examined for the script tag,
	// which muxers write first.
	flvScanTags = 16
	// amfMaxDepth bounds nested objects in a script tag.
	amfMaxDepth = 8
)

// viewFLV decodes the onMetaData script tag.
func viewFLV(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if len(data) < 9 || string(data[0:3]) != "FLV" {
		return m, fmt.Errorf("%w: no FLV header", core.ErrCorruptFile)
	}

	// Header, then a 4-byte PreviousTagSize before each tag.
	pos := int(binary.BigEndian.Uint32(data[5:9])) + 4
	for i := 0; i < flvScanTags && pos+11 <= len(data); i++ {
		typ := data[pos] & 0x1F
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		body := pos + 11
		if body+size > len(data) {
			return m, fmt.Errorf("%w: FLV tag truncated", core.ErrCorruptFile)
		}
		if typ == flvTagScript {
			d := amfDecoder{data: data[body : body+size]}
			if name, ok := d.value(0).(string); ok && name == "onMetaData" {
				flattenAMF("", d.value(0), m)
			}
			return m, nil
		}
		pos = body + size + 4
	}
	return m, nil
}

// amfDecoder reads AMF0 values. A malformed value decodes as nil and stops
// the decoder.
type amfDecoder struct {
	data []byte
	pos  int
	bad  bool
}

func (d *amfDecoder) take(n int) []byte {
	if d.bad || n < 0 || d.pos+n > len(d.data) {
		d.bad = true
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *amfDecoder) str(lenBytes int) (string, bool) {
	h := d.take(lenBytes)
	if h == nil {
		return "", false
	}
	var n int
	if lenBytes == 2 {
		n = int(binary.BigEndian.Uint16(h))
	} else {
		n = int(binary.BigEndian.Uint32(h))
	}
	b := d.take(n)
	return string(b), b != nil
}

// properties reads key/value pairs up to the empty-key end marker.
func (d *amfDecoder) properties(depth int) map[string]any {
	out := map[string]any{}
	for !d.bad {
		key, ok := d.str(2)
		if !ok {
			break
		}
		if key == "" {
			d.take(1) // object end marker 0x09
			break
		}
		out[key] = d.value(depth + 1)
	}
	return out
}

func (d *amfDecoder) value(depth int) any {
	if depth > amfMaxDepth {
		d.bad = true
		return nil
	}
	t := d.take(1)
	if t == nil {
		return nil
	}
	switch t[0] {
	case 0x00: // number
		if b := d.take(8); b != nil {
			return math.Float64frombits(binary.BigEndian.Uint64(b))
		}
	case 0x01: // boolean
		if b := d.take(1); b != nil {
			return b[0] != 0
		}
	case 0x02: // string
		if s, ok := d.str(2); ok {
			return s
		}
	case 0x03: // object
		return d.properties(depth)
	case 0x08: // ECMA array: approximate count, then properties
		if d.take(4) != nil {
			return d.properties(depth)
		}
	case 0x0A: // strict array
		if h := d.take(4); h != nil {
			n := int(binary.BigEndian.Uint32(h))
			var out []any
			for i := 0; i < n && !d.bad; i++ {
				out = append(out, d.value(depth+1))
			}
			return out
		}
	case 0x0B: // date: ms since epoch, then a timezone
		if b := d.take(10); b != nil {
			ms := math.Float64frombits(binary.BigEndian.Uint64(b))
			return time.UnixMilli(int64(ms)).UTC()
		}
	case 0x0C: // long string
		if s, ok := d.str(4); ok {
			return s
		}
	case 0x05, 0x06: // null, undefined
		return nil
	}
	d.bad = true
	return nil
}

// flattenAMF adds scalar values under dotted keys. Arrays are summarised
// by their length.
func flattenAMF(prefix string, v any, m *core.Metadata) {
	const cat = "FLV Metadata"
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			flattenAMF(name, t[k], m)
		}
	case []any:
		m.Add(cat, prefix, fmt.Sprintf("%d entries", len(t)))
	case float64:
		m.Add(cat, prefix, strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		m.Add(cat, prefix, strconv.FormatBool(t))
	case string:
		m.Add(cat, prefix, t)
	case time.Time:
		m.Add(cat, prefix, t.Format(time.RFC3339))
	}
}
