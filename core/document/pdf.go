package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"rsc.io/pdf"
)

func init() {
	// pdfcpu would otherwise create a config directory under $HOME.
	api.DisableConfigDir()
}

// pdfInfoFields are the standard Info dict keys.
var pdfInfoFields = []string{
	"Title", "Author", "Subject", "Keywords",
	"Creator", "Producer", "CreationDate", "ModDate", "Trapped",
}

// ─── View ────────────────────────────────────────────────────────────────────

func viewPDF(path string, m *core.Metadata) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return m, err
	}

	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		if err == pdf.ErrInvalidPassword {
			return m, fmt.Errorf("%w: %v", core.ErrEncrypted, err)
		}
		return m, fmt.Errorf("%w: read pdf: %v", core.ErrCorruptFile, err)
	}

	info := r.Trailer().Key("Info")
	if info.Kind() == pdf.Dict {
		seen := map[string]bool{}
		for _, k := range pdfInfoFields {
			seen[k] = true
			m.Add("PDF Info", k, pdfValueString(info.Key(k)))
		}
		extra := info.Keys()
		sort.Strings(extra)
		for _, k := range extra {
			if !seen[k] {
				m.Add("PDF Info", k, pdfValueString(info.Key(k)))
			}
		}
	}

	if xmp := r.Trailer().Key("Root").Key("Metadata"); xmp.Kind() == pdf.Stream {
		rc := xmp.Reader()
		data, err := io.ReadAll(io.LimitReader(rc, 1<<20))
		rc.Close()
		if err == nil {
			before := len(m.Fields)
			core.ParseXMP(data, m, "PDF XMP")
			if len(m.Fields) == before {
				m.Add("PDF XMP", "Packet", fmt.Sprintf("%d bytes", len(data)))
			}
		}
	}
	return m, nil
}

func pdfValueString(v pdf.Value) string {
	switch v.Kind() {
	case pdf.String:
		return v.Text()
	case pdf.Name:
		return v.Name()
	case pdf.Bool, pdf.Integer, pdf.Real:
		return v.String()
	}
	return ""
}

// ─── Strip ───────────────────────────────────────────────────────────────────

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// stripPDF rewrites the document with an emptied Info dictionary and no
// catalog-level XMP stream. pdfcpu stamps its own Producer and dates on
// write.
func stripPDF(path, outPath string, opts core.StripOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return fmt.Errorf("%w: missing %%PDF header", core.ErrCorruptFile)
	}
	if bytes.Contains(data, []byte("/Encrypt")) {
		return fmt.Errorf("%w: %s", core.ErrEncrypted, path)
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfConfig())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return fmt.Errorf("%w: %v", core.ErrEncrypted, err)
		}
		return fmt.Errorf("%w: read pdf: %v", core.ErrCorruptFile, err)
	}
	if ctx.Encrypt != nil {
		return fmt.Errorf("%w: %s", core.ErrEncrypted, path)
	}

	if ctx.Info != nil {
		d, err := ctx.DereferenceDict(*ctx.Info)
		if err == nil {
			for k := range d {
				delete(d, k)
			}
		}
	}
	ctx.Title, ctx.Author, ctx.Subject, ctx.Keywords, ctx.Creator = "", "", "", "", ""
	ctx.Properties = map[string]string{}
	ctx.RootDict.Delete("Metadata")
	ctx.RootDict.Delete("PieceInfo")

	return core.WriteFileAtomic(outPath, func(w io.Writer) error {
		if err := api.WriteContext(ctx, w); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		return nil
	}, opts.Write)
}
