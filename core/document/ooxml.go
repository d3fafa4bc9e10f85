package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/archive"
)

// ─── OPC (DOCX / XLSX / PPTX) ─────────────────────────────────────────────────

const (
	opcCorePart   = "docProps/core.xml"
	opcAppPart    = "docProps/app.xml"
	opcCustomPart = "docProps/custom.xml"
)

const blankCoreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"></cp:coreProperties>`

const blankCustomXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/custom-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"></Properties>`

// appIdentifying are the extended properties that name a person, an
// organisation or an editing history.
var appIdentifying = []string{"Company", "Manager", "Template", "TotalTime", "Application", "AppVersion", "HyperlinkBase"}

var appIdentifyingRe = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(appIdentifying))
	for _, name := range appIdentifying {
		res = append(res, regexp.MustCompile(`(?s)<(?:\w+:)?`+name+`\b[^>]*/>|<(?:\w+:)?`+name+`\b[^>]*>.*?</(?:\w+:)?`+name+`>`))
	}
	return res
}()

func stripAppXML(data []byte) []byte {
	for _, re := range appIdentifyingRe {
		data = re.ReplaceAll(data, nil)
	}
	return data
}

func stripOPC(path, outPath string, opts core.StripOptions) error {
	return archive.RepackFile(path, outPath, archive.Options{
		KeepMethod: true,
		Rewrite: func(name string, data []byte) ([]byte, bool, error) {
			switch name {
			case opcCorePart:
				return []byte(blankCoreXML), true, nil
			case opcAppPart:
				return stripAppXML(data), true, nil
			case opcCustomPart:
				return []byte(blankCustomXML), true, nil
			}
			return data, true, nil
		},
	}, opts.Write)
}

// OPC core properties XML
type opcCoreProps struct {
	XMLName        xml.Name `xml:"coreProperties"`
	Title          string   `xml:"title"`
	Subject        string   `xml:"subject"`
	Creator        string   `xml:"creator"`
	Keywords       string   `xml:"keywords"`
	Description    string   `xml:"description"`
	LastModifiedBy string   `xml:"lastModifiedBy"`
	LastPrinted    string   `xml:"lastPrinted"`
	Revision       string   `xml:"revision"`
	Created        string   `xml:"created"`
	Modified       string   `xml:"modified"`
	Category       string   `xml:"category"`
	ContentStatus  string   `xml:"contentStatus"`
}

type opcAppProps struct {
	XMLName       xml.Name `xml:"Properties"`
	Application   string   `xml:"Application"`
	AppVersion    string   `xml:"AppVersion"`
	Company       string   `xml:"Company"`
	Manager       string   `xml:"Manager"`
	Template      string   `xml:"Template"`
	TotalTime     string   `xml:"TotalTime"`
	HyperlinkBase string   `xml:"HyperlinkBase"`
}

type opcCustomProps struct {
	XMLName  xml.Name `xml:"Properties"`
	Property []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",innerxml"`
	} `xml:"property"`
}

func viewOPC(path string, m *core.Metadata) (*core.Metadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return m, fmt.Errorf("%w: open as zip: %v", core.ErrCorruptFile, err)
	}
	defer r.Close()

	for _, f := range r.File {
		switch f.Name {
		case opcCorePart:
			if data, err := readZipEntry(f); err == nil {
				parseCoreProps(data, m)
			}
		case opcAppPart:
			if data, err := readZipEntry(f); err == nil {
				parseAppProps(data, m)
			}
		case opcCustomPart:
			if data, err := readZipEntry(f); err == nil {
				parseCustomProps(data, m)
			}
		}
	}
	return m, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, 4<<20))
}

func parseCoreProps(data []byte, m *core.Metadata) {
	var props opcCoreProps
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}
	const cat = "Core Properties"
	m.Add(cat, "Title", props.Title)
	m.Add(cat, "Subject", props.Subject)
	m.Add(cat, "Author", props.Creator)
	m.Add(cat, "Keywords", props.Keywords)
	m.Add(cat, "Description", props.Description)
	m.Add(cat, "LastModifiedBy", props.LastModifiedBy)
	m.Add(cat, "LastPrinted", props.LastPrinted)
	m.Add(cat, "Revision", props.Revision)
	m.Add(cat, "Created", props.Created)
	m.Add(cat, "Modified", props.Modified)
	m.Add(cat, "Category", props.Category)
	m.Add(cat, "ContentStatus", props.ContentStatus)
}

func parseAppProps(data []byte, m *core.Metadata) {
	var props opcAppProps
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}
	const cat = "App Properties"
	m.Add(cat, "Application", props.Application)
	m.Add(cat, "AppVersion", props.AppVersion)
	m.Add(cat, "Company", props.Company)
	m.Add(cat, "Manager", props.Manager)
	m.Add(cat, "Template", props.Template)
	m.Add(cat, "TotalEditTime", props.TotalTime)
	m.Add(cat, "HyperlinkBase", props.HyperlinkBase)
}

var xmlTagRe = regexp.MustCompile(`<[^>]*>`)

func parseCustomProps(data []byte, m *core.Metadata) {
	var props opcCustomProps
	if err := xml.Unmarshal(data, &props); err != nil {
		return
	}
	for _, p := range props.Property {
		m.Add("Custom Properties", p.Name, strings.TrimSpace(xmlTagRe.ReplaceAllString(p.Value, "")))
	}
}

// ─── ODF ─────────────────────────────────────────────────────────────────────

const odfMetaPart = "meta.xml"

const blankMetaXML = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-meta xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" office:version="1.2"><office:meta/></office:document-meta>`

func stripODF(path, outPath string, opts core.StripOptions) error {
	return archive.RepackFile(path, outPath, archive.Options{
		KeepMethod: true, // mimetype must stay stored
		Rewrite: func(name string, data []byte) ([]byte, bool, error) {
			if name == odfMetaPart {
				return []byte(blankMetaXML), true, nil
			}
			return data, true, nil
		},
	}, opts.Write)
}

func viewODF(path string, m *core.Metadata) (*core.Metadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return m, fmt.Errorf("%w: open as zip: %v", core.ErrCorruptFile, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != odfMetaPart {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return m, fmt.Errorf("%w: read %s: %v", core.ErrCorruptFile, f.Name, err)
		}
		parseODFMeta(data, m)
		break
	}
	return m, nil
}

func parseODFMeta(data []byte, m *core.Metadata) {
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
			if current == "user-defined" {
				for _, a := range t.Attr {
					if a.Name.Local == "name" {
						current = a.Value
					}
				}
			}
			if current == "document-statistic" {
				// counts only
				current = ""
			}
		case xml.EndElement:
			current = ""
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if current != "" && current != "meta" && current != "document-meta" {
				m.Add("ODF Metadata", current, val)
			}
		}
	}
}
