// Package image dispatches image payloads to the PNG, GIF and JPEG readers.
// It is the single bytes -> ordered (label, value) entry point used by the
// viewer front ends.
package image

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/gif"
	"github.com/ankit-chaubey/imgmeta/core/jpg"
	"github.com/ankit-chaubey/imgmeta/core/png"
)

var extractors = map[core.FormatID]core.Extractor{
	core.FmtPNG:  png.New(),
	core.FmtGIF:  gif.New(),
	core.FmtJPEG: jpg.New(),
}

// Handler extracts metadata for one format.
type Handler struct {
	format core.FormatID
	ex     core.Extractor
}

// New returns a Handler for the given format.
func New(format core.FormatID) (*Handler, error) {
	ex, ok := extractors[format]
	if !ok {
		return nil, errors.Wrapf(core.ErrUnsupportedFormat, "%s", format)
	}
	return &Handler{format: format, ex: ex}, nil
}

func (h *Handler) Info() core.FormatInfo {
	return h.ex.Info()
}

// Extract decodes data as the handler's format.
func (h *Handler) Extract(data []byte, opts core.Options) (*core.Metadata, error) {
	return h.ex.Extract(data, opts)
}

// Load reads the file at path and decodes it as the handler's format.
func (h *Handler) Load(path string, opts core.Options) (core.Source, *core.Metadata, error) {
	src, err := read(path)
	if err != nil {
		return src, nil, err
	}
	m, err := h.Extract(src.Data, opts)
	return src, m, err
}

// Extract decodes data. With hint set to core.FmtUnknown the format is
// detected from the magic bytes; otherwise the hinted reader is used and a
// mismatching payload is a malformed container.
func Extract(data []byte, hint core.FormatID, opts core.Options) (*core.Metadata, error) {
	format := hint
	if format == core.FmtUnknown || format == "" {
		format = core.DetectFormat(data)
	}
	h, err := New(format)
	if err != nil {
		return nil, err
	}
	return h.Extract(data, opts)
}

// ExtractContentType decodes data using an HTTP Content-Type as the format
// hint, falling back to magic detection for unknown types.
func ExtractContentType(data []byte, contentType string, opts core.Options) (*core.Metadata, error) {
	return Extract(data, core.FormatFromContentType(contentType), opts)
}

// Load reads the file at path and decodes it. The format is detected from
// the magic bytes, then from the file extension.
func Load(path string, opts core.Options) (core.Source, *core.Metadata, error) {
	src, err := read(path)
	if err != nil {
		return src, nil, err
	}
	format := core.DetectFormat(src.Data)
	if format == core.FmtUnknown {
		format = core.FormatFromExtension(path)
	}
	m, err := Extract(src.Data, format, opts)
	return src, m, err
}

// View is Load without the payload.
func View(path string, opts core.Options) (*core.Metadata, error) {
	_, m, err := Load(path, opts)
	return m, err
}

func read(path string) (core.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Source{Name: path}, errors.Wrap(err, "read")
	}
	return core.Source{Name: path, Data: data}, nil
}

// Supported lists the format descriptions in display order.
func Supported() []core.FormatInfo {
	infos := make([]core.FormatInfo, 0, len(core.Formats))
	for _, id := range core.Formats {
		infos = append(infos, extractors[id].Info())
	}
	return infos
}
