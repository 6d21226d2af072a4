package core

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	gomime "github.com/cubewise-code/go-mime"
)

// FormatID enumerates every recognised container format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtGIF  FormatID = "gif"

	FmtUnknown FormatID = "unknown"
)

// Formats lists the supported formats in display order.
var Formats = []FormatID{FmtPNG, FmtGIF, FmtJPEG}

// Signatures.
var (
	PNGSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	GIF87aMagic   = []byte("GIF87a")
	GIF89aMagic   = []byte("GIF89a")
	JPEGSignature = []byte{0xFF, 0xD8}
)

// contentTypes maps lowercase MIME types to format IDs.
var contentTypes = map[string]FormatID{
	"image/png":   FmtPNG,
	"image/x-png": FmtPNG,
	"image/apng":  FmtPNG,
	"image/gif":   FmtGIF,
	"image/jpeg":  FmtJPEG,
	"image/jpg":   FmtJPEG,
	"image/pjpeg": FmtJPEG,
}

// DetectFormat identifies a payload by its leading magic bytes.
func DetectFormat(b []byte) FormatID {
	switch {
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, PNGSignature):
		return FmtPNG
	// GIF: GIF87a or GIF89a
	case bytes.HasPrefix(b, GIF87aMagic) || bytes.HasPrefix(b, GIF89aMagic):
		return FmtGIF
	// JPEG: FF D8, the next marker is not required
	case bytes.HasPrefix(b, JPEGSignature):
		return FmtJPEG
	}
	return FmtUnknown
}

// FormatFromContentType maps an HTTP Content-Type header value to a format.
// Parameters such as "; charset=binary" are ignored.
func FormatFromContentType(contentType string) FormatID {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	if id, ok := contentTypes[strings.ToLower(mt)]; ok {
		return id
	}
	return FmtUnknown
}

// FormatFromExtension maps a file name to a format by its extension.
func FormatFromExtension(name string) FormatID {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return FmtUnknown
	}
	return FormatFromContentType(gomime.TypeByExtension(ext))
}

// DetectFile returns the FormatID for the given file, first by reading
// magic bytes and falling back to the extension.
func DetectFile(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 && !errors.Is(err, io.EOF) {
		return FmtUnknown, errors.Wrapf(err, "read %s", path)
	}
	if id := DetectFormat(buf[:n]); id != FmtUnknown {
		return id, nil
	}
	return FormatFromExtension(path), nil
}
