package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrMalformedContainer marks a payload whose signature or fixed header
	// is missing or wrong. It is the only error that aborts an extraction.
	ErrMalformedContainer = errors.New("malformed container")
	// ErrUnsupportedFormat is returned when no reader matches the payload.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTruncated is returned by Cursor reads that would pass the end of
	// the buffer.
	ErrTruncated = errors.New("truncated data")
)

// Malformed returns an ErrMalformedContainer error carrying a reason.
func Malformed(format FormatID, reason string, args ...any) error {
	return errors.Mark(errors.Newf("%s: "+reason, append([]any{format}, args...)...), ErrMalformedContainer)
}

// IsMalformed reports whether err is a fatal container failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedContainer)
}
