package jpg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/imgmeta/core"
)

// ExifHeader prefixes the TIFF block of an Exif APP1 segment.
var ExifHeader = []byte("Exif\x00\x00")

// ifdEntrySize is tag(2) + type(2) + count(4) + value/offset(4).
const ifdEntrySize = 12

// ifd0Names is the IFD0 tag vocabulary.
var ifd0Names = map[uint16]exif.FieldName{
	0x00FE: "NewSubfileType",
	0x0100: exif.ImageWidth,
	0x0101: exif.ImageLength,
	0x0102: exif.BitsPerSample,
	0x0103: exif.Compression,
	0x0106: exif.PhotometricInterpretation,
	0x010D: "DocumentName",
	0x010E: exif.ImageDescription,
	0x010F: exif.Make,
	0x0110: exif.Model,
	0x0111: "StripOffsets",
	0x0112: exif.Orientation,
	0x0115: exif.SamplesPerPixel,
	0x011A: exif.XResolution,
	0x011B: exif.YResolution,
	0x011C: exif.PlanarConfiguration,
	0x011D: "PageName",
	0x0128: exif.ResolutionUnit,
	0x0131: exif.Software,
	0x0132: exif.DateTime,
	0x013B: exif.Artist,
	0x013C: "HostComputer",
	0x013E: "WhitePoint",
	0x013F: "PrimaryChromaticities",
	0x0211: "YCbCrCoefficients",
	0x0213: exif.YCbCrPositioning,
	0x0214: "ReferenceBlackWhite",
	0x8298: exif.Copyright,
	0x8769: exif.ExifIFDPointer,
	0x8825: exif.GPSInfoIFDPointer,
	0x9C9B: "XPTitle",
	0x9C9C: "XPComment",
	0x9C9D: "XPAuthor",
	0x9C9E: "XPKeywords",
	0x9C9F: "XPSubject",
}

// Tag is one decoded IFD0 entry.
type Tag struct {
	*tiff.Tag
}

// Name returns the field name of the tag, or its hex id when unknown.
func (t Tag) Name() string {
	if name, ok := ifd0Names[t.Id]; ok {
		return string(name)
	}
	return fmt.Sprintf("0x%04x", t.Id)
}

// Text renders the tag value as display text. Numeric types and binary
// payloads report false.
func (t Tag) Text() (string, bool) {
	switch {
	case t.Format() == tiff.StringVal:
		s, err := t.StringVal()
		if err != nil {
			return "", false
		}
		return core.Text([]byte(s)), true
	case t.Format() == tiff.UndefVal, t.Type == tiff.DTByte:
		s, ok := core.UTF8(core.TrimNUL(t.Val))
		if !ok || s == "" || !core.Printable(s) {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}

// Exif is a parsed TIFF block: its byte order and the IFD0 entries that could
// be decoded inside the block.
type Exif struct {
	Order binary.ByteOrder
	IFD0  []Tag
	// Skipped holds the entries dropped for bad types or out-of-range values.
	Skipped []error
}

// ParseTIFF reads the TIFF header and the IFD0 directory of block. An
// unknown byte order or an IFD0 offset outside the block fails the whole
// block; a bad entry only drops that entry.
func ParseTIFF(block []byte) (*Exif, error) {
	if len(block) < 8 {
		return nil, errors.Wrapf(core.ErrTruncated, "tiff header: have %d bytes", len(block))
	}
	var order binary.ByteOrder
	switch string(block[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.Newf("invalid tiff byte order % x", block[:2])
	}
	off := int64(order.Uint32(block[4:8]))
	if off+2 > int64(len(block)) {
		return nil, errors.Newf("ifd0 offset %d outside %d-byte block", off, len(block))
	}
	x := &Exif{Order: order}
	count := int(order.Uint16(block[off:]))
	r := bytes.NewReader(block)
	for i := 0; i < count; i++ {
		pos := off + 2 + int64(i)*ifdEntrySize
		if pos+ifdEntrySize > int64(len(block)) {
			x.Skipped = append(x.Skipped, errors.Wrapf(core.ErrTruncated, "ifd0 entry %d of %d", i, count))
			break
		}
		id := order.Uint16(block[pos:])
		// every value is at least one byte per element
		if n := order.Uint32(block[pos+4:]); int64(n) > int64(len(block)) {
			x.Skipped = append(x.Skipped, errors.Wrapf(core.ErrTruncated, "ifd0 tag 0x%04x: count %d exceeds %d-byte block", id, n, len(block)))
			continue
		}
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "seek ifd0 entry")
		}
		tag, err := tiff.DecodeTag(r, order)
		if err != nil {
			x.Skipped = append(x.Skipped, errors.Wrapf(err, "ifd0 tag 0x%04x", id))
			continue
		}
		x.IFD0 = append(x.IFD0, Tag{tag})
	}
	return x, nil
}

// AppendTo adds every text-decodable IFD0 entry to m and records the skipped
// entries as warnings.
func (x *Exif) AppendTo(m *core.Metadata) {
	for _, t := range x.IFD0 {
		if s, ok := t.Text(); ok {
			m.Add(t.Name(), s)
		}
	}
	for _, err := range x.Skipped {
		m.Warn(err)
	}
}

// exifBlock returns the TIFF block of an APP1 payload, or false when the
// payload is not Exif (XMP and other APP1 users).
func exifBlock(payload []byte) ([]byte, bool) {
	if !bytes.HasPrefix(payload, ExifHeader) {
		return nil, false
	}
	return payload[len(ExifHeader):], true
}
