package document

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── RTF ─────────────────────────────────────────────────────────────────────

// Destination groups removed by stripRTF.
var rtfMetadataGroups = [][]byte{
	[]byte(`{\info`),
	[]byte(`{\*\generator`),
	[]byte(`{\*\company`),
	[]byte(`{\*\xmlnstbl`),
}

func stripRTF(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := stripRTFBytes(data)
	if err != nil {
		return err
	}
	return core.WriteBytesAtomic(outPath, out, opts.Write)
}

func stripRTFBytes(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(`{\rtf`)) {
		return nil, fmt.Errorf("%w: missing {\\rtf header", core.ErrCorruptFile)
	}
	for _, open := range rtfMetadataGroups {
		for {
			start := findRTFGroup(data, open)
			if start < 0 {
				break
			}
			end, err := rtfGroupEnd(data, start)
			if err != nil {
				return nil, err
			}
			data = append(data[:start:start], data[end:]...)
		}
	}
	return data, nil
}

// findRTFGroup returns the offset of the next group that opens with the
// control word in open, not counting longer words that share its prefix
// or an escaped \{ brace in the document text.
func findRTFGroup(data, open []byte) int {
	off := 0
	for {
		i := bytes.Index(data[off:], open)
		if i < 0 {
			return -1
		}
		i += off
		next := i + len(open)
		if !rtfEscaped(data, i) && (next >= len(data) || !isRTFLetter(data[next])) {
			return i
		}
		off = i + 1
	}
}

// rtfEscaped reports whether the byte at i follows an odd run of
// backslashes.
func rtfEscaped(data []byte, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func isRTFLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// rtfGroupEnd returns the offset just past the brace closing the group
// that opens at start. Escaped braces and backslashes do not count.
func rtfGroupEnd(data []byte, start int) (int, error) {
	depth := 0
	for i := start; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++ // skip the escaped character
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unbalanced RTF group at %d", core.ErrCorruptFile, start)
}

var (
	rtfInfoEntryRe = regexp.MustCompile(`\{\\(title|subject|author|manager|company|operator|category|keywords|comment|doccomm|hlinkbase)\s?([^{}]*)\}`)
	rtfTimeRe      = regexp.MustCompile(`\{\\(creatim|revtim|printim|buptim)((?:\\[a-z]+-?\d+)*)\s*\}`)
	rtfTimePartRe  = regexp.MustCompile(`\\(yr|mo|dy|hr|min|sec)(\d+)`)
	rtfGeneratorRe = regexp.MustCompile(`\{\\\*\\generator\s?([^{};]*);?\}`)
)

var rtfInfoNames = map[string]string{
	"title":     "Title",
	"subject":   "Subject",
	"author":    "Author",
	"manager":   "Manager",
	"company":   "Company",
	"operator":  "LastModifiedBy",
	"category":  "Category",
	"keywords":  "Keywords",
	"comment":   "Comment",
	"doccomm":   "DocComment",
	"hlinkbase": "HyperlinkBase",
	"creatim":   "Created",
	"revtim":    "Revised",
	"printim":   "LastPrinted",
	"buptim":    "LastBackup",
}

func viewRTF(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if !bytes.HasPrefix(data, []byte(`{\rtf`)) {
		return m, fmt.Errorf("%w: missing {\\rtf header", core.ErrCorruptFile)
	}

	if start := findRTFGroup(data, []byte(`{\info`)); start >= 0 {
		end, err := rtfGroupEnd(data, start)
		if err != nil {
			return m, err
		}
		info := data[start:end]
		for _, match := range rtfInfoEntryRe.FindAllSubmatch(info, -1) {
			m.Add("RTF Info", rtfInfoNames[string(match[1])], strings.TrimSpace(string(match[2])))
		}
		for _, match := range rtfTimeRe.FindAllSubmatch(info, -1) {
			parts := map[string]string{}
			for _, p := range rtfTimePartRe.FindAllSubmatch(match[2], -1) {
				parts[string(p[1])] = string(p[2])
			}
			if parts["yr"] == "" {
				continue
			}
			m.Add("RTF Info", rtfInfoNames[string(match[1])], fmt.Sprintf("%s-%s-%s %s:%s",
				parts["yr"], pad(parts["mo"]), pad(parts["dy"]), pad(parts["hr"]), pad(parts["min"])))
		}
	}
	if match := rtfGeneratorRe.FindSubmatch(data); match != nil {
		m.Add("RTF", "Generator", strings.TrimSpace(string(match[1])))
	}
	return m, nil
}

func pad(s string) string {
	if s == "" {
		return "00"
	}
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
