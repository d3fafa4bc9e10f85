package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name    string
	body    string
	comment string
	method  uint16
}

func buildZip(t *testing.T, comment string, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, Comment: e.comment, Method: e.method}
		fh.Modified = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
		w, err := zw.CreateHeader(fh)
		require.NoError(t, err)
		if e.body != "" {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.SetComment(comment))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestStripZip(t *testing.T) {
	p := writeFile(t, "bundle.zip", buildZip(t, "built on alice-laptop",
		entry{name: "docs/", method: zip.Store},
		entry{name: "docs/readme.txt", body: "hello", comment: "draft by alice", method: zip.Store},
		entry{name: "data.csv", body: "a,b\n1,2\n", method: zip.Deflate},
	))

	h := New()
	before, err := h.View(p)
	require.NoError(t, err)
	assert.False(t, before.Clean())

	require.NoError(t, h.Strip(p, "", core.StripOptions{}))

	r, err := zip.OpenReader(p)
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Comment)
	require.Len(t, r.File, 3)

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.Empty(t, f.Comment, f.Name)
		assert.Empty(t, f.Extra, f.Name)
		assert.True(t, f.Modified.Equal(Epoch), "%s modified %s", f.Name, f.Modified)
		if f.Name != "docs/" {
			assert.Equal(t, zip.Deflate, f.Method, f.Name)
		}
	}
	assert.Equal(t, []string{"docs/", "docs/readme.txt", "data.csv"}, names)

	rc, err := r.File[1].Open()
	require.NoError(t, err)
	var body bytes.Buffer
	_, err = body.ReadFrom(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", body.String())

	after, err := h.View(p)
	require.NoError(t, err)
	assert.True(t, after.Clean(), "fields left: %v", after.Fields)
}

func TestViewZipEntryTimes(t *testing.T) {
	p := writeFile(t, "bundle.zip", buildZip(t, "",
		entry{name: "a.txt", body: "a", method: zip.Store},
		entry{name: "b.txt", body: "b", method: zip.Deflate},
	))
	h := New()

	m, err := h.View(p)
	require.NoError(t, err)
	var times []core.MetaField
	for _, f := range m.Fields {
		if f.Category == "ZIP Entry Time" {
			times = append(times, f)
		}
	}
	require.Len(t, times, 2)
	assert.Equal(t, core.MetaField{Key: "a.txt", Value: "2024-05-17T09:30:00Z", Category: "ZIP Entry Time"}, times[0])
	assert.Equal(t, "b.txt", times[1].Key)

	require.NoError(t, h.Strip(p, "", core.StripOptions{}))
	m, err = h.View(p)
	require.NoError(t, err)
	for _, f := range m.Fields {
		assert.NotEqual(t, "ZIP Entry Time", f.Category, f.Key)
	}
}

func TestRepackRewriteAndKeepMethod(t *testing.T) {
	src := buildZip(t, "",
		entry{name: "mimetype", body: "application/vnd.oasis.opendocument.text", method: zip.Store},
		entry{name: "meta.xml", body: "<meta>secret</meta>", method: zip.Deflate},
		entry{name: "junk.bin", body: "x", method: zip.Deflate},
	)
	r, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	var out bytes.Buffer
	err = Repack(&out, r, Options{
		KeepMethod: true,
		Rewrite: func(name string, data []byte) ([]byte, bool, error) {
			switch name {
			case "meta.xml":
				return []byte("<meta/>"), true, nil
			case "junk.bin":
				return nil, false, nil
			}
			return data, true, nil
		},
	})
	require.NoError(t, err)

	got, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	require.NoError(t, err)
	require.Len(t, got.File, 2)
	assert.Equal(t, "mimetype", got.File[0].Name)
	assert.Equal(t, zip.Store, got.File[0].Method)

	rc, err := got.File[1].Open()
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(rc)
	rc.Close()
	assert.Equal(t, "<meta/>", body.String())
}

func TestStripZipCorrupt(t *testing.T) {
	p := writeFile(t, "broken.zip", []byte("PK\x03\x04 not really"))
	err := New().Strip(p, "", core.StripOptions{})
	require.ErrorIs(t, err, core.ErrCorruptFile)

	got, _ := os.ReadFile(p)
	assert.Equal(t, []byte("PK\x03\x04 not really"), got)
}

func TestStripZipEncryptedEntry(t *testing.T) {
	data := buildZip(t, "", entry{name: "a.txt", body: "x", method: zip.Store})
	// Set the encryption bit in both the local and the central header.
	data[6] |= flagEncrypted
	cd := bytes.LastIndex(data, []byte("PK\x01\x02"))
	require.Positive(t, cd)
	data[cd+8] |= flagEncrypted

	p := writeFile(t, "locked.zip", data)
	assert.ErrorIs(t, New().Strip(p, "", core.StripOptions{}), core.ErrEncrypted)
}
