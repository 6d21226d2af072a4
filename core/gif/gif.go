// Package gif reads display metadata from GIF block streams.
package gif

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ankit-chaubey/imgmeta/core"
)

// FormatLabel is the value of the "Format" entry.
const FormatLabel = "Compuserve GIF"

// Block introducers.
const (
	IntroExtension byte = 0x21
	IntroImage     byte = 0x2C
	IntroTrailer   byte = 0x3B
)

// Extension labels.
const (
	LabelPlainText      byte = 0x01
	LabelGraphicControl byte = 0xF9
	LabelComment        byte = 0xFE
	LabelApplication    byte = 0xFF
)

// headerSize is the signature (6) plus the Logical Screen Descriptor (7).
const headerSize = 13

// imageDescriptorSize is left, top, width, height (u16 each) and flags.
const imageDescriptorSize = 9

// Header is the signature and Logical Screen Descriptor.
type Header struct {
	Version     string // "87a" or "89a"
	Width       uint16
	Height      uint16
	Flags       byte
	Background  byte
	AspectRatio byte
}

// colorTableSize returns the byte size of the color table described by
// packed flags, or 0 when the table is absent.
func colorTableSize(flags byte) int {
	if flags&0x80 == 0 {
		return 0
	}
	return 3 * (1 << (int(flags&0x07) + 1))
}

// BlockKind tells the top-level block types apart.
type BlockKind int

const (
	BlockExtension BlockKind = iota
	BlockImage
	BlockTrailer
)

// Block is one top-level GIF block. SubBlocks is only filled for
// extensions; image data is skipped.
type Block struct {
	Kind      BlockKind
	Label     byte
	SubBlocks [][]byte
	Offset    int
}

// Walker yields the blocks that follow the header and global color table.
type Walker struct {
	Header Header

	cur  *core.Cursor
	done bool
	err  error
}

// Open checks the signature, decodes the Logical Screen Descriptor and skips
// the global color table. A truncated color table ends the walk before the
// first block but is not fatal.
func Open(data []byte) (*Walker, error) {
	if len(data) < headerSize {
		return nil, core.Malformed(core.FmtGIF, "need %d header bytes, have %d", headerSize, len(data))
	}
	if !bytes.HasPrefix(data, core.GIF87aMagic) && !bytes.HasPrefix(data, core.GIF89aMagic) {
		return nil, core.Malformed(core.FmtGIF, "bad signature %q", data[:6])
	}
	w := &Walker{
		Header: Header{
			Version:     string(data[3:6]),
			Width:       binary.LittleEndian.Uint16(data[6:8]),
			Height:      binary.LittleEndian.Uint16(data[8:10]),
			Flags:       data[10],
			Background:  data[11],
			AspectRatio: data[12],
		},
		cur: core.NewCursor(data),
	}
	_ = w.cur.Skip(headerSize)
	if err := w.cur.Skip(colorTableSize(w.Header.Flags)); err != nil {
		w.done = true
		w.err = errors.Wrap(err, "global color table")
	}
	return w, nil
}

// Next returns the next block. The second result is false after the trailer,
// at the end of the buffer, or at an unknown introducer.
func (w *Walker) Next() (Block, bool) {
	if w.done {
		return Block{}, false
	}
	off := w.cur.Pos()
	intro, err := w.cur.U8()
	if err != nil {
		return w.stop(errors.Wrap(core.ErrTruncated, "end of data before trailer"))
	}
	switch intro {
	case IntroTrailer:
		w.done = true
		return Block{Kind: BlockTrailer, Offset: off}, true
	case IntroExtension:
		label, err := w.cur.U8()
		if err != nil {
			return w.stop(errors.Wrapf(err, "extension label at offset %d", off))
		}
		subs, err := w.subBlocks(true)
		if err != nil {
			return w.stop(errors.Wrapf(err, "extension %02X at offset %d", label, off))
		}
		return Block{Kind: BlockExtension, Label: label, SubBlocks: subs, Offset: off}, true
	case IntroImage:
		desc, err := w.cur.Bytes(imageDescriptorSize)
		if err != nil {
			return w.stop(errors.Wrapf(err, "image descriptor at offset %d", off))
		}
		if err := w.cur.Skip(colorTableSize(desc[8])); err != nil {
			return w.stop(errors.Wrapf(err, "local color table at offset %d", off))
		}
		// LZW minimum code size
		if err := w.cur.Skip(1); err != nil {
			return w.stop(errors.Wrapf(err, "image data at offset %d", off))
		}
		if _, err := w.subBlocks(false); err != nil {
			return w.stop(errors.Wrapf(err, "image data at offset %d", off))
		}
		return Block{Kind: BlockImage, Offset: off}, true
	default:
		return w.stop(core.Malformed(core.FmtGIF, "unknown block introducer %02X at offset %d", intro, off))
	}
}

// Err returns the reason the walk ended before the trailer.
func (w *Walker) Err() error { return w.err }

func (w *Walker) stop(err error) (Block, bool) {
	w.done = true
	w.err = err
	return Block{}, false
}

// subBlocks consumes a length-prefixed sub-block chain up to and including
// its zero-length terminator.
func (w *Walker) subBlocks(keep bool) ([][]byte, error) {
	var subs [][]byte
	for {
		n, err := w.cur.U8()
		if err != nil {
			return nil, errors.Wrap(err, "sub-block size")
		}
		if n == 0 {
			return subs, nil
		}
		b, err := w.cur.Bytes(int(n))
		if err != nil {
			return nil, errors.Wrap(err, "sub-block data")
		}
		if keep {
			subs = append(subs, b)
		}
	}
}

// Reader implements core.Extractor for GIF.
type Reader struct{}

// New returns a GIF reader.
func New() *Reader { return &Reader{} }

func (*Reader) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "GIF",
		Label:      FormatLabel,
		Extensions: []string{".gif"},
		MIMETypes:  []string{"image/gif"},
		Notes:      "Header, logical screen descriptor, comment extensions.",
	}
}

// Extract decodes the header and every comment extension.
func (*Reader) Extract(data []byte, _ core.Options) (*core.Metadata, error) {
	w, err := Open(data)
	if err != nil {
		return nil, err
	}
	h := w.Header
	m := core.NewMetadata(core.FmtGIF)
	m.Add("Format", FormatLabel)
	m.Add("Version", "GIF"+h.Version)
	m.Addf("Size", "%d x %d px", h.Width, h.Height)
	m.Add("background", strconv.Itoa(int(h.Background)))
	for {
		b, ok := w.Next()
		if !ok {
			break
		}
		if b.Kind != BlockExtension || b.Label != LabelComment {
			continue
		}
		// one entry per sub-block, never merged
		for _, sub := range b.SubBlocks {
			if len(sub) == 0 {
				continue
			}
			m.Add("comment", core.Text(sub))
		}
	}
	m.Warn(w.Err())
	return m, nil
}
