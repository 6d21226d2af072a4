// Package png reads display metadata from PNG chunk streams.
package png

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/jpg"
)

// FormatLabel is the value of the "Format" entry.
const FormatLabel = "Portable network graphics"

// Chunk types with a field extractor.
const (
	ChunkIHDR = "IHDR"
	ChunkGAMA = "gAMA"
	ChunkPHYS = "pHYs"
	ChunkTEXT = "tEXt"
	ChunkITXT = "iTXt"
	ChunkZTXT = "zTXt"
	ChunkTIME = "tIME"
	ChunkEXIF = "eXIf"
	ChunkIEND = "IEND"
)

// Chunk is one [length][type][data][crc] record. Data aliases the input
// buffer.
type Chunk struct {
	Type   string
	Data   []byte
	CRC    uint32
	HasCRC bool
	Offset int
}

// CRCValid reports whether the stored CRC matches type and data.
func (c Chunk) CRCValid() bool {
	if !c.HasCRC {
		return false
	}
	crc := crc32.ChecksumIEEE([]byte(c.Type))
	crc = crc32.Update(crc, crc32.IEEETable, c.Data)
	return crc == c.CRC
}

// Walker yields the chunks of a PNG stream in order. It stops after IEND,
// at the end of the buffer, or at the first chunk that does not fit.
type Walker struct {
	cur  *core.Cursor
	done bool
	err  error
}

// Open checks the 8-byte signature and positions a walker on the first
// chunk.
func Open(data []byte) (*Walker, error) {
	if len(data) < len(core.PNGSignature) {
		return nil, core.Malformed(core.FmtPNG, "need %d signature bytes, have %d", len(core.PNGSignature), len(data))
	}
	if !bytes.Equal(data[:len(core.PNGSignature)], core.PNGSignature) {
		return nil, core.Malformed(core.FmtPNG, "bad signature % x", data[:len(core.PNGSignature)])
	}
	cur := core.NewCursor(data)
	_ = cur.Skip(len(core.PNGSignature))
	return &Walker{cur: cur}, nil
}

// Next returns the next chunk. The second result is false once the walk has
// ended; Err then tells whether it ended early.
func (w *Walker) Next() (Chunk, bool) {
	if w.done || w.cur.EOF() {
		w.done = true
		return Chunk{}, false
	}
	off := w.cur.Pos()
	head, err := w.cur.Bytes(8)
	if err != nil {
		return w.stop(errors.Wrapf(err, "chunk header at offset %d", off))
	}
	length := binary.BigEndian.Uint32(head[:4])
	typ := string(head[4:8])
	if uint64(length) > uint64(w.cur.Len()) {
		return w.stop(errors.Wrapf(core.ErrTruncated, "%q chunk at offset %d declares %d bytes, %d left", typ, off, length, w.cur.Len()))
	}
	data, _ := w.cur.Bytes(int(length))
	c := Chunk{Type: typ, Data: data, Offset: off}
	if crc, err := w.cur.U32BE(); err == nil {
		c.CRC, c.HasCRC = crc, true
	} else {
		// payload is complete, keep it and end the walk
		w.done = true
		w.err = errors.Wrapf(err, "%q chunk at offset %d: missing crc", typ, off)
	}
	if typ == ChunkIEND {
		w.done = true
	}
	return c, true
}

// Err returns the reason the walk ended before IEND or end of buffer.
func (w *Walker) Err() error { return w.err }

func (w *Walker) stop(err error) (Chunk, bool) {
	w.done = true
	w.err = err
	return Chunk{}, false
}

// Reader implements core.Extractor for PNG.
type Reader struct{}

// New returns a PNG reader.
func New() *Reader { return &Reader{} }

func (*Reader) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "PNG",
		Label:      FormatLabel,
		Extensions: []string{".png"},
		MIMETypes:  []string{"image/png"},
		Notes:      "IHDR, gAMA, pHYs, tEXt, iTXt, zTXt; tIME and eXIf in extended mode.",
	}
}

// Extract walks every chunk and assembles the metadata view.
func (*Reader) Extract(data []byte, opts core.Options) (*core.Metadata, error) {
	w, err := Open(data)
	if err != nil {
		return nil, err
	}
	m := core.NewMetadata(core.FmtPNG)
	m.Add("Format", FormatLabel)
	for {
		c, ok := w.Next()
		if !ok {
			break
		}
		if c.HasCRC && !c.CRCValid() {
			m.Warnf("%q chunk at offset %d: crc mismatch", c.Type, c.Offset)
		}
		if err := extractChunk(m, c, opts); err != nil {
			m.Warn(errors.Wrapf(err, "%q chunk at offset %d", c.Type, c.Offset))
		}
	}
	m.Warn(w.Err())
	return m, nil
}

func extractChunk(m *core.Metadata, c Chunk, opts core.Options) error {
	switch c.Type {
	case ChunkIHDR:
		if len(c.Data) < 8 {
			return errors.Wrapf(core.ErrTruncated, "need 8 bytes, have %d", len(c.Data))
		}
		m.Addf("Size", "%d x %d px", binary.BigEndian.Uint32(c.Data[0:4]), binary.BigEndian.Uint32(c.Data[4:8]))
	case ChunkGAMA:
		if len(c.Data) < 4 {
			return errors.Wrapf(core.ErrTruncated, "need 4 bytes, have %d", len(c.Data))
		}
		m.Add("gamma", core.Decimal(float64(binary.BigEndian.Uint32(c.Data))/100000))
	case ChunkPHYS:
		if len(c.Data) < 8 {
			return errors.Wrapf(core.ErrTruncated, "need 8 bytes, have %d", len(c.Data))
		}
		m.Addf("aspect", "%d x %d", binary.BigEndian.Uint32(c.Data[0:4]), binary.BigEndian.Uint32(c.Data[4:8]))
	case ChunkTEXT:
		key, rest, err := keyword(c.Data)
		if err != nil {
			return err
		}
		m.Add(key, core.Latin1(rest))
	case ChunkZTXT:
		key, rest, err := keyword(c.Data)
		if err != nil {
			return err
		}
		if len(rest) < 1 {
			return errors.Wrap(core.ErrTruncated, "missing compression method")
		}
		if rest[0] != 0 {
			return errors.Newf("unknown compression method %d", rest[0])
		}
		text, err := inflate(rest[1:], opts.MaxInflateBytes)
		if err != nil {
			return err
		}
		m.Add(key, core.Latin1(text))
	case ChunkITXT:
		key, text, err := internationalText(c.Data, opts.MaxInflateBytes)
		if err != nil {
			return err
		}
		m.Add(key, text)
	case ChunkTIME:
		if !opts.Extended {
			return nil
		}
		if len(c.Data) < 7 {
			return errors.Wrapf(core.ErrTruncated, "need 7 bytes, have %d", len(c.Data))
		}
		year := binary.BigEndian.Uint16(c.Data[0:2])
		m.Add("LastModified", fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, c.Data[2], c.Data[3], c.Data[4], c.Data[5], c.Data[6]))
	case ChunkEXIF:
		if !opts.Extended {
			return nil
		}
		x, err := jpg.ParseTIFF(c.Data)
		if err != nil {
			return err
		}
		x.AppendTo(m)
	default:
		// IDAT, PLTE, ancillary chunks without a view
	}
	return nil
}

// keyword splits a text chunk at its NUL-terminated Latin-1 keyword.
func keyword(data []byte) (string, []byte, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, errors.New("keyword is not NUL-terminated")
	}
	return core.Latin1(data[:i]), data[i+1:], nil
}

// internationalText decodes an iTXt body:
// keyword\0 flag method language\0 translated\0 text.
func internationalText(data []byte, limit int64) (string, string, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", "", errors.New("keyword is not NUL-terminated")
	}
	key := core.Text(data[:i])
	cur := core.NewCursor(data[i+1:])
	flags, err := cur.Bytes(2)
	if err != nil {
		return "", "", errors.Wrap(err, "compression flags")
	}
	rest := cur.Rest()
	for n := 0; n < 2; n++ { // language tag, translated keyword
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			return "", "", errors.New("language tag or translated keyword is not NUL-terminated")
		}
		rest = rest[j+1:]
	}
	if flags[0] == 1 {
		if flags[1] != 0 {
			return "", "", errors.Newf("unknown compression method %d", flags[1])
		}
		if rest, err = inflate(rest, limit); err != nil {
			return "", "", err
		}
	}
	text, ok := core.UTF8(rest)
	if !ok {
		return "", "", errors.New("text is not valid UTF-8")
	}
	return key, text, nil
}

// inflate decompresses a zlib stream, refusing output larger than limit.
func inflate(data []byte, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = core.DefaultMaxInflateBytes
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "zlib")
	}
	defer zr.Close()
	var out bytes.Buffer
	n, err := io.Copy(&out, io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "zlib")
	}
	if n > limit {
		return nil, errors.Newf("decompressed text exceeds %d bytes", limit)
	}
	return out.Bytes(), nil
}
