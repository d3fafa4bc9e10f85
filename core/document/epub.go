package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
)

// ─── EPUB ────────────────────────────────────────────────────────────────────

const epubContainerPart = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		Title       []string `xml:"title"`
		Creator     []string `xml:"creator"`
		Contributor []string `xml:"contributor"`
		Subject     []string `xml:"subject"`
		Description []string `xml:"description"`
		Publisher   []string `xml:"publisher"`
		Date        []string `xml:"date"`
		Identifier  []string `xml:"identifier"`
		Language    []string `xml:"language"`
		Rights      []string `xml:"rights"`
		Meta        []struct {
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Property string `xml:"property,attr"`
			Value    string `xml:",chardata"`
		} `xml:"meta"`
	} `xml:"metadata"`
}

// viewEPUB reads the Dublin Core and <meta> entries of the package
// document that container.xml points to.
func viewEPUB(path string, m *core.Metadata) (*core.Metadata, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return m, fmt.Errorf("%w: open as zip: %v", core.ErrCorruptFile, err)
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	cf, ok := files[epubContainerPart]
	if !ok {
		return m, fmt.Errorf("%w: %s missing", core.ErrCorruptFile, epubContainerPart)
	}
	data, err := readZipEntry(cf)
	if err != nil {
		return m, fmt.Errorf("%w: read %s: %v", core.ErrCorruptFile, epubContainerPart, err)
	}
	var c epubContainer
	if err := xml.Unmarshal(data, &c); err != nil || len(c.Rootfiles) == 0 {
		return m, fmt.Errorf("%w: %s names no package document", core.ErrCorruptFile, epubContainerPart)
	}

	opf, ok := files[c.Rootfiles[0].FullPath]
	if !ok {
		return m, fmt.Errorf("%w: package document %s missing", core.ErrCorruptFile, c.Rootfiles[0].FullPath)
	}
	if data, err = readZipEntry(opf); err != nil {
		return m, fmt.Errorf("%w: read %s: %v", core.ErrCorruptFile, opf.Name, err)
	}
	parseEPUBPackage(data, m)
	return m, nil
}

func parseEPUBPackage(data []byte, m *core.Metadata) {
	var pkg epubPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return
	}
	const cat = "EPUB Metadata"
	md := pkg.Metadata
	for _, f := range []struct {
		key  string
		vals []string
	}{
		{"Title", md.Title},
		{"Author", md.Creator},
		{"Contributor", md.Contributor},
		{"Subject", md.Subject},
		{"Description", md.Description},
		{"Publisher", md.Publisher},
		{"Date", md.Date},
		{"Identifier", md.Identifier},
		{"Language", md.Language},
		{"Rights", md.Rights},
	} {
		for _, v := range f.vals {
			m.Add(cat, f.key, strings.TrimSpace(v))
		}
	}
	// EPUB 2 writes <meta name content/>, EPUB 3 <meta property>value</meta>.
	for _, meta := range md.Meta {
		switch {
		case meta.Property != "":
			m.Add(cat, meta.Property, strings.TrimSpace(meta.Value))
		case meta.Name != "":
			m.Add(cat, meta.Name, meta.Content)
		}
	}
}
