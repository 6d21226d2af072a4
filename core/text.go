package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Latin1 decodes ISO 8859-1 bytes. Every byte maps to a code point, so it
// never fails.
func Latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// unreachable for ISO 8859-1, keep the raw bytes visible anyway
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(s)
}

// UTF8 returns b as a string if it is valid UTF-8.
func UTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// Text renders raw bytes for display: valid UTF-8 as is, anything else as
// Latin-1.
func Text(b []byte) string {
	if s, ok := UTF8(b); ok {
		return s
	}
	return Latin1(b)
}

// TrimNUL strips trailing NUL padding.
func TrimNUL(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

// Printable reports whether s holds only printable runes and whitespace.
func Printable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Decimal renders f as the shortest decimal that round-trips, keeping a
// ".0" suffix on integral values (1 -> "1.0", 0.45455 -> "0.45455").
// Magnitudes below 1e-4 or from 1e16 up use exponent form (1e-05).
func Decimal(f float64) string {
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
