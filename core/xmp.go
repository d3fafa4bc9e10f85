package core

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// ParseXMP adds every property of an XMP packet to m under category.
// Element text and attribute values become fields named "xmp:<local name>";
// namespace declarations, rdf:about and the packet wrappers are skipped.
func ParseXMP(data []byte, m *Metadata, category string) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || strings.HasPrefix(attr.Name.Local, "xmlns") || attr.Name.Local == "about" {
					continue
				}
				m.Add(category, "xmp:"+attr.Name.Local, attr.Value)
			}
		case xml.CharData:
			switch current {
			case "", "xmpmeta", "RDF", "Description":
			default:
				m.Add(category, "xmp:"+current, strings.TrimSpace(string(t)))
			}
		}
	}
}
