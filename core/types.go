// Package core defines the shared types, error tiers, and format registry
// for the image metadata views.
package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

// Field is one displayable metadata entry. Fields are kept in the order the
// records were met in the container.
type Field struct {
	Label string // e.g. "Size", "gamma", "comment", "Make"
	Value string // text rendering of the decoded value
}

// Metadata holds everything extracted from a single image payload.
type Metadata struct {
	Format FormatID
	Fields []Field
	// Warnings collects record-local failures (truncated chunks, undecodable
	// text, bad EXIF offsets). They never abort an extraction.
	Warnings *multierror.Error
}

// NewMetadata returns an empty Metadata for format.
func NewMetadata(format FormatID) *Metadata {
	return &Metadata{Format: format}
}

// Add appends a label/value pair.
func (m *Metadata) Add(label, value string) {
	m.Fields = append(m.Fields, Field{Label: label, Value: value})
}

// Addf appends a label with a formatted value.
func (m *Metadata) Addf(label, format string, args ...any) {
	m.Add(label, fmt.Sprintf(format, args...))
}

// Warn records a skipped record or field.
func (m *Metadata) Warn(err error) {
	if err == nil {
		return
	}
	m.Warnings = multierror.Append(m.Warnings, err)
}

// Warnf records a skipped record or field with a formatted reason.
func (m *Metadata) Warnf(format string, args ...any) {
	m.Warn(errors.Newf(format, args...))
}

// WarningList returns the recorded warnings, oldest first.
func (m *Metadata) WarningList() []error {
	if m.Warnings == nil {
		return nil
	}
	return m.Warnings.Errors
}

// Get returns the first value stored under label.
func (m *Metadata) Get(label string) (string, bool) {
	for _, f := range m.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// Options tunes extraction. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// MaxInflateBytes caps the decompressed size of zTXt/iTXt text.
	MaxInflateBytes int64
	// Extended enables records beyond the basic view: PNG tIME/eXIf and
	// JPEG XMP/IPTC.
	Extended bool
}

// DefaultMaxInflateBytes is the default cap for compressed PNG text.
const DefaultMaxInflateBytes = 1 << 20

// DefaultOptions returns the options used by the basic view.
func DefaultOptions() Options {
	return Options{MaxInflateBytes: DefaultMaxInflateBytes}
}

// FormatInfo describes a supported container format.
type FormatInfo struct {
	Name       string   `json:"name"`       // "JPEG"
	Label      string   `json:"label"`      // value of the "Format" entry, e.g. "JPEG (ISO 10918)"
	Extensions []string `json:"extensions"` // [".jpg", ".jpeg"]
	MIMETypes  []string `json:"mime_types"`
	Notes      string   `json:"notes,omitempty"`
}

// Extractor is implemented by every format reader.
type Extractor interface {
	// Extract decodes the metadata of a fully materialised payload. It
	// returns an error only for fatal container failures.
	Extract(data []byte, opts Options) (*Metadata, error)
	// Info returns the format description.
	Info() FormatInfo
}
