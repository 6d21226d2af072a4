package core

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Cursor is a bounds-checked read position over an immutable buffer. Every
// read either consumes exactly the requested bytes or fails with
// ErrTruncated and leaves the position unchanged.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// EOF reports whether the whole buffer was consumed.
func (c *Cursor) EOF() bool { return c.pos >= len(c.buf) }

// Seek moves to an absolute offset inside the buffer.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.buf) {
		return errors.Wrapf(ErrTruncated, "seek to %d of %d", off, len(c.buf))
	}
	c.pos = off
	return nil
}

// Bytes returns the next n bytes without copying. The slice aliases the
// buffer and must not be modified.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || n > c.Len() {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", n, c.pos, c.Len())
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.Bytes(n)
	return err
}

// Peek returns the byte at the current offset without consuming it.
func (c *Cursor) Peek() (byte, bool) {
	if c.EOF() {
		return 0, false
	}
	return c.buf[c.pos], true
}

// U8 reads one byte.
func (c *Cursor) U8() (byte, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16BE reads a big-endian uint16.
func (c *Cursor) U16BE() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U16LE reads a little-endian uint16.
func (c *Cursor) U16LE() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32BE reads a big-endian uint32.
func (c *Cursor) U32BE() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Rest returns every unread byte and moves to the end.
func (c *Cursor) Rest() []byte {
	b := c.buf[c.pos:len(c.buf):len(c.buf)]
	c.pos = len(c.buf)
	return b
}
