// Package fixture builds small synthetic PNG, GIF, JPEG and TIFF/Exif
// payloads for tests.
package fixture

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
)

// ─── PNG ─────────────────────────────────────────────────────────────────────

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// PNG concatenates the signature and the given chunks.
func PNG(chunks ...[]byte) []byte {
	out := append([]byte{}, pngSignature...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Chunk encodes one chunk with a valid CRC.
func Chunk(typ string, data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.ChecksumIEEE([]byte(typ))
	crc = crc32.Update(crc, crc32.IEEETable, data)
	_ = binary.Write(&buf, binary.BigEndian, crc)
	return buf.Bytes()
}

func IHDR(width, height uint32) []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], width)
	binary.BigEndian.PutUint32(data[4:8], height)
	data[8] = 8 // bit depth
	data[9] = 6 // RGBA
	return Chunk("IHDR", data)
}

func GAMA(v uint32) []byte {
	return Chunk("gAMA", binary.BigEndian.AppendUint32(nil, v))
}

func PHYS(x, y uint32, unit byte) []byte {
	data := binary.BigEndian.AppendUint32(nil, x)
	data = binary.BigEndian.AppendUint32(data, y)
	return Chunk("pHYs", append(data, unit))
}

// TEXt builds a tEXt chunk from raw Latin-1 bytes.
func TEXt(keyword string, text []byte) []byte {
	data := append([]byte(keyword), 0)
	return Chunk("tEXt", append(data, text...))
}

// ZTXt builds a zTXt chunk, compressing text with zlib.
func ZTXt(keyword string, text []byte) []byte {
	data := append([]byte(keyword), 0, 0)
	return Chunk("zTXt", append(data, Deflate(text)...))
}

// ITXt builds an iTXt chunk with empty language and translated keyword.
func ITXt(keyword, text string, compressed bool) []byte {
	data := append([]byte(keyword), 0)
	body := []byte(text)
	if compressed {
		data = append(data, 1, 0)
		body = Deflate(body)
	} else {
		data = append(data, 0, 0)
	}
	data = append(data, 0, 0) // language tag, translated keyword
	return Chunk("iTXt", append(data, body...))
}

func TIME(year uint16, month, day, hour, min, sec byte) []byte {
	data := binary.BigEndian.AppendUint16(nil, year)
	return Chunk("tIME", append(data, month, day, hour, min, sec))
}

func IDAT(data []byte) []byte { return Chunk("IDAT", data) }

func IEND() []byte { return Chunk("IEND", nil) }

// Deflate returns a zlib stream of b.
func Deflate(b []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(b)
	_ = zw.Close()
	return buf.Bytes()
}

// ─── GIF ─────────────────────────────────────────────────────────────────────

// GIFTrailer ends a GIF stream.
var GIFTrailer = []byte{0x3B}

// GIF builds a header, a logical screen descriptor, a zeroed global color
// table when flags has bit 7 set, and the given blocks.
func GIF(version string, width, height uint16, flags, background byte, blocks ...[]byte) []byte {
	out := []byte("GIF" + version)
	out = binary.LittleEndian.AppendUint16(out, width)
	out = binary.LittleEndian.AppendUint16(out, height)
	out = append(out, flags, background, 0)
	if flags&0x80 != 0 {
		out = append(out, make([]byte, 3*(1<<(int(flags&0x07)+1)))...)
	}
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

// SubBlocks encodes a sub-block chain with its terminator.
func SubBlocks(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, byte(len(p)))
		out = append(out, p...)
	}
	return append(out, 0)
}

// GIFExtension builds an extension block.
func GIFExtension(label byte, parts ...[]byte) []byte {
	return append([]byte{0x21, label}, SubBlocks(parts...)...)
}

// GIFComment builds a comment extension with one sub-block per string.
func GIFComment(parts ...string) []byte {
	raw := make([][]byte, len(parts))
	for i, p := range parts {
		raw[i] = []byte(p)
	}
	return GIFExtension(0xFE, raw...)
}

// GIFImage builds an image descriptor without a local color table and a
// short LZW data chain.
func GIFImage(width, height uint16) []byte {
	out := []byte{0x2C, 0, 0, 0, 0}
	out = binary.LittleEndian.AppendUint16(out, width)
	out = binary.LittleEndian.AppendUint16(out, height)
	out = append(out, 0, 2) // flags, LZW minimum code size
	return append(out, SubBlocks([]byte{0x44, 0x01})...)
}

// ─── JPEG ────────────────────────────────────────────────────────────────────

// JPEG concatenates SOI and the given segments. Add EOI explicitly.
func JPEG(segments ...[]byte) []byte {
	out := []byte{0xFF, 0xD8}
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}

// EOI is the end-of-image marker.
func EOI() []byte { return []byte{0xFF, 0xD9} }

// Segment encodes a marker with a length field and payload.
func Segment(marker byte, payload []byte) []byte {
	out := []byte{0xFF, marker}
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	return append(out, payload...)
}

func JFIF(major, minor, unit byte, x, y uint16) []byte {
	p := append([]byte("JFIF\x00"), major, minor, unit)
	p = binary.BigEndian.AppendUint16(p, x)
	p = binary.BigEndian.AppendUint16(p, y)
	return Segment(0xE0, append(p, 0, 0))
}

// SOF0 builds a baseline frame header with three components.
func SOF0(width, height uint16) []byte {
	p := []byte{8}
	p = binary.BigEndian.AppendUint16(p, height)
	p = binary.BigEndian.AppendUint16(p, width)
	p = append(p, 3, 1, 0x22, 0, 2, 0x11, 1, 3, 0x11, 1)
	return Segment(0xC0, p)
}

func COM(text string) []byte { return Segment(0xFE, []byte(text)) }

// APP1Exif wraps a TIFF block in an Exif APP1 segment.
func APP1Exif(tiff []byte) []byte {
	return Segment(0xE1, append([]byte("Exif\x00\x00"), tiff...))
}

// SOS builds a one-component scan header followed by raw entropy-coded
// bytes.
func SOS(scan []byte) []byte {
	return append(Segment(0xDA, []byte{1, 1, 0, 0, 0x3F, 0}), scan...)
}

// ─── TIFF / Exif ─────────────────────────────────────────────────────────────

// Entry is one IFD0 entry. Value is a string (ASCII), uint16 (SHORT),
// uint32 (LONG) or []byte (UNDEFINED).
type Entry struct {
	Tag   uint16
	Value any
}

// Raw is an IFD0 entry written verbatim: type, count and the 4-byte
// value/offset field are taken as given.
type Raw struct {
	Tag    uint16
	Type   uint16
	Count  uint32
	Offset uint32
}

// ByteOrder is satisfied by binary.LittleEndian and binary.BigEndian.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// TIFF builds a TIFF block with IFD0 at offset 8. Values longer than four
// bytes are stored after the directory.
func TIFF(order ByteOrder, entries ...any) []byte {
	var head []byte
	if order == binary.LittleEndian {
		head = []byte("II")
	} else {
		head = []byte("MM")
	}
	head = order.AppendUint16(head, 42)
	head = order.AppendUint32(head, 8)

	dirSize := 2 + 12*len(entries) + 4
	valueBase := 8 + dirSize
	dir := order.AppendUint16(nil, uint16(len(entries)))
	var values []byte
	for _, e := range entries {
		if r, ok := e.(Raw); ok {
			dir = order.AppendUint16(dir, r.Tag)
			dir = order.AppendUint16(dir, r.Type)
			dir = order.AppendUint32(dir, r.Count)
			dir = order.AppendUint32(dir, r.Offset)
			continue
		}
		ent := e.(Entry)
		var typ uint16
		var val []byte
		switch v := ent.Value.(type) {
		case string:
			typ, val = 2, append([]byte(v), 0)
		case uint16:
			typ, val = 3, order.AppendUint16(nil, v)
		case uint32:
			typ, val = 4, order.AppendUint32(nil, v)
		case []byte:
			typ, val = 7, v
		default:
			panic("fixture: unsupported tiff value")
		}
		count := uint32(len(val))
		if typ == 3 || typ == 4 {
			count = 1
		}
		dir = order.AppendUint16(dir, ent.Tag)
		dir = order.AppendUint16(dir, typ)
		dir = order.AppendUint32(dir, count)
		if len(val) <= 4 {
			dir = append(dir, val...)
			dir = append(dir, make([]byte, 4-len(val))...)
			continue
		}
		dir = order.AppendUint32(dir, uint32(valueBase+len(values)))
		values = append(values, val...)
	}
	dir = order.AppendUint32(dir, 0) // next IFD
	out := append(head, dir...)
	return append(out, values...)
}
