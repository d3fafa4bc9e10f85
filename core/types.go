// Package core defines the shared types, interfaces, and format detection
// for metadata-scrub.
package core

// MetaField represents a single metadata key-value pair.
type MetaField struct {
	Key      string `json:"key" yaml:"key"`           // Canonical field name (e.g. "Make", "Artist", "Title")
	Value    string `json:"value" yaml:"value"`       // String representation of the value
	Category string `json:"category" yaml:"category"` // Category label (e.g. "EXIF", "ID3", "Vorbis", "XMP")
}

// Metadata holds the metadata found in a single file.
type Metadata struct {
	FilePath string      `json:"file" yaml:"file"`
	Format   string      `json:"format" yaml:"format"` // Human-readable format name (e.g. "JPEG", "MP3", "PDF")
	Fields   []MetaField `json:"fields" yaml:"fields"`
}

// Add appends a field unless the value is empty.
func (m *Metadata) Add(category, key, value string) {
	if value == "" {
		return
	}
	m.Fields = append(m.Fields, MetaField{Key: key, Value: value, Category: category})
}

// Clean reports whether no metadata fields were found.
func (m *Metadata) Clean() bool { return len(m.Fields) == 0 }

// StripOptions controls how handlers rewrite a file.
type StripOptions struct {
	// JPEGQuality is the encoder quality used when JPEG pixel data has to
	// be re-encoded. Zero means DefaultJPEGQuality.
	JPEGQuality int
	// Write controls how the output file replaces its destination.
	Write WriteOptions
}

// DefaultJPEGQuality is used when StripOptions.JPEGQuality is unset.
const DefaultJPEGQuality = 95

// Quality returns the effective JPEG quality.
func (o StripOptions) Quality() int {
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return o.JPEGQuality
}

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	ID         FormatID `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`             // "JPEG"
	Extensions []string `json:"extensions" yaml:"extensions"` // [".jpg", ".jpeg"]
	MediaType  string   `json:"media_type" yaml:"media_type"` // "image" | "audio" | "video" | "document" | "archive"
	MIMETypes  []string `json:"mime_types,omitempty" yaml:"mime_types,omitempty"`
	CanView    bool     `json:"can_view" yaml:"can_view"`
	CanStrip   bool     `json:"can_strip" yaml:"can_strip"`
	Notes      string   `json:"notes,omitempty" yaml:"notes,omitempty"` // What Strip removes
}

// Handler is the interface every format must implement.
type Handler interface {
	// View reads and returns the metadata still present in path.
	View(path string) (*Metadata, error)
	// Strip removes metadata from path, saving to outPath.
	// outPath == "" means in-place.
	Strip(path string, outPath string, opts StripOptions) error
	// Info returns format capabilities.
	Info() FormatInfo
}
