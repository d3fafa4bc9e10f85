// Package dispatch maps file formats to the handler that cleans them.
package dispatch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ankit-chaubey/metadata-scrub/core"
	"github.com/ankit-chaubey/metadata-scrub/core/archive"
	"github.com/ankit-chaubey/metadata-scrub/core/audio"
	"github.com/ankit-chaubey/metadata-scrub/core/document"
	"github.com/ankit-chaubey/metadata-scrub/core/image"
	"github.com/ankit-chaubey/metadata-scrub/core/video"
)

// Table is the format-to-handler registry. The zero value is empty and
// ready to use.
type Table struct {
	handlers map[core.FormatID]core.Handler
}

// Register binds h to id, replacing any previous handler.
func (t *Table) Register(id core.FormatID, h core.Handler) {
	if t.handlers == nil {
		t.handlers = make(map[core.FormatID]core.Handler)
	}
	t.handlers[id] = h
}

// Handler returns the handler registered for id.
func (t *Table) Handler(id core.FormatID) (core.Handler, bool) {
	h, ok := t.handlers[id]
	return h, ok
}

// Default returns a table with every built-in handler registered.
func Default() *Table {
	t := &Table{}
	for _, id := range image.Formats() {
		t.Register(id, image.New(id))
	}
	for _, id := range audio.Formats() {
		t.Register(id, audio.New(id))
	}
	for _, id := range video.Formats() {
		t.Register(id, video.New(id))
	}
	for _, id := range document.Formats() {
		t.Register(id, document.New(id))
	}
	t.Register(core.FmtZIP, archive.New())
	return t
}

// Resolve detects the format of path and returns the handler that strips
// it. Unknown or view-only formats yield core.ErrUnsupportedFormat.
func (t *Table) Resolve(path string) (core.Handler, core.FormatID, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, core.FmtUnknown, err
	}
	h, ok := t.handlers[id]
	if !ok {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			ext = "(no extension)"
		}
		return nil, id, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, ext)
	}
	if !h.Info().CanStrip {
		return nil, id, fmt.Errorf("%w: %s is view-only", core.ErrUnsupportedFormat, id)
	}
	return h, id, nil
}

// Formats lists the capabilities of every registered handler, grouped by
// media type and sorted by name within a group.
func (t *Table) Formats() []core.FormatInfo {
	infos := make([]core.FormatInfo, 0, len(t.handlers))
	for _, h := range t.handlers {
		infos = append(infos, h.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].MediaType != infos[j].MediaType {
			return infos[i].MediaType < infos[j].MediaType
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}
