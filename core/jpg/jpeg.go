// Package jpg reads display metadata from JPEG marker segments, including the
// IFD0 directory of an embedded Exif block.
package jpg

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/ankit-chaubey/imgmeta/core"
)

// FormatLabel is the value of the "Format" entry.
const FormatLabel = "JPEG (ISO 10918)"

// Marker codes (the byte after 0xFF).
const (
	MarkerTEM   byte = 0x01
	MarkerSOF0  byte = 0xC0 // baseline
	MarkerSOF2  byte = 0xC2 // progressive
	MarkerDHT   byte = 0xC4
	MarkerRST0  byte = 0xD0
	MarkerRST7  byte = 0xD7
	MarkerSOI   byte = 0xD8
	MarkerEOI   byte = 0xD9
	MarkerSOS   byte = 0xDA
	MarkerDQT   byte = 0xDB
	MarkerAPP0  byte = 0xE0
	MarkerAPP1  byte = 0xE1
	MarkerAPP13 byte = 0xED
	MarkerCOM   byte = 0xFE
)

var (
	jfifHeader      = []byte("JFIF\x00")
	photoshopHeader = []byte("Photoshop 3.0\x00")
)

// Segment is one marker and its payload (the bytes after the length field).
// Standalone markers have no payload.
type Segment struct {
	Marker  byte
	Payload []byte
	Offset  int
}

// Standalone reports whether the marker carries no length field.
func Standalone(marker byte) bool {
	return marker == MarkerSOI || marker == MarkerEOI || marker == MarkerTEM || isRST(marker)
}

func isRST(marker byte) bool {
	return marker >= MarkerRST0 && marker <= MarkerRST7
}

// Walker yields the segments of a JPEG stream. After SOS it skips the
// entropy-coded data, including byte-stuffed 0xFF00 pairs and RST markers,
// and resumes at the next real marker.
type Walker struct {
	buf  []byte
	pos  int
	done bool
	err  error
}

// Open checks the SOI marker and positions a walker after it.
func Open(data []byte) (*Walker, error) {
	if len(data) < len(core.JPEGSignature) {
		return nil, core.Malformed(core.FmtJPEG, "need %d SOI bytes, have %d", len(core.JPEGSignature), len(data))
	}
	if !bytes.Equal(data[:2], core.JPEGSignature) {
		return nil, core.Malformed(core.FmtJPEG, "bad SOI marker % x", data[:2])
	}
	return &Walker{buf: data, pos: 2}, nil
}

// Next returns the next segment. The second result is false once EOI or
// the end of the buffer was reached, or a segment did not fit.
func (w *Walker) Next() (Segment, bool) {
	if w.done {
		return Segment{}, false
	}
	off, marker, ok := w.nextMarker()
	if !ok {
		return w.stop(errors.Wrap(core.ErrTruncated, "end of data before EOI"))
	}
	seg := Segment{Marker: marker, Offset: off}
	if Standalone(marker) {
		if marker == MarkerEOI {
			w.done = true
		}
		return seg, true
	}
	if len(w.buf)-w.pos < 2 {
		return w.stop(errors.Wrapf(core.ErrTruncated, "marker %02X at offset %d: missing length", marker, off))
	}
	length := int(binary.BigEndian.Uint16(w.buf[w.pos:]))
	if length < 2 {
		return w.stop(errors.Newf("marker %02X at offset %d: invalid length %d", marker, off, length))
	}
	if length > len(w.buf)-w.pos {
		return w.stop(errors.Wrapf(core.ErrTruncated, "marker %02X at offset %d declares %d bytes, %d left", marker, off, length, len(w.buf)-w.pos))
	}
	seg.Payload = w.buf[w.pos+2 : w.pos+length : w.pos+length]
	w.pos += length
	if marker == MarkerSOS {
		w.pos = scanEnd(w.buf, w.pos)
	}
	return seg, true
}

// Err returns the reason the walk ended before EOI.
func (w *Walker) Err() error { return w.err }

func (w *Walker) stop(err error) (Segment, bool) {
	w.done = true
	w.err = err
	return Segment{}, false
}

// nextMarker finds the next 0xFF followed by a byte that is neither 0x00
// (stuffing) nor 0xFF (fill).
func (w *Walker) nextMarker() (int, byte, bool) {
	for i := w.pos; i+1 < len(w.buf); i++ {
		if w.buf[i] != 0xFF {
			continue
		}
		b := w.buf[i+1]
		if b == 0x00 || b == 0xFF {
			continue
		}
		w.pos = i + 2
		return i, b, true
	}
	w.pos = len(w.buf)
	return 0, 0, false
}

// scanEnd returns the offset of the first marker after entropy-coded data
// that is not a restart marker.
func scanEnd(buf []byte, pos int) int {
	for i := pos; i+1 < len(buf); i++ {
		if buf[i] != 0xFF {
			continue
		}
		b := buf[i+1]
		if b == 0x00 || b == 0xFF || isRST(b) {
			continue
		}
		return i
	}
	return len(buf)
}

// Reader implements core.Extractor for JPEG.
type Reader struct{}

// New returns a JPEG reader.
func New() *Reader { return &Reader{} }

func (*Reader) Info() core.FormatInfo {
	return core.FormatInfo{
		Name:       "JPEG",
		Label:      FormatLabel,
		Extensions: []string{".jpg", ".jpeg"},
		MIMETypes:  []string{"image/jpeg"},
		Notes:      "SOF0 size, JFIF APP0, COM, Exif IFD0; XMP and IPTC in extended mode.",
	}
}

// Extract walks every segment and assembles the metadata view.
func (*Reader) Extract(data []byte, opts core.Options) (*core.Metadata, error) {
	w, err := Open(data)
	if err != nil {
		return nil, err
	}
	m := core.NewMetadata(core.FmtJPEG)
	m.Add("Format", FormatLabel)
	for {
		seg, ok := w.Next()
		if !ok {
			break
		}
		if err := extractSegment(m, seg, opts); err != nil {
			m.Warn(errors.Wrapf(err, "marker %02X at offset %d", seg.Marker, seg.Offset))
		}
	}
	m.Warn(w.Err())
	return m, nil
}

func extractSegment(m *core.Metadata, seg Segment, opts core.Options) error {
	p := seg.Payload
	switch seg.Marker {
	case MarkerSOF0:
		// precision(1) height(2) width(2)
		if len(p) < 5 {
			return errors.Wrapf(core.ErrTruncated, "frame header: need 5 bytes, have %d", len(p))
		}
		m.Addf("Size", "%d x %d px", binary.BigEndian.Uint16(p[3:5]), binary.BigEndian.Uint16(p[1:3]))
	case MarkerAPP0:
		if !bytes.HasPrefix(p, jfifHeader) {
			return nil
		}
		// major(1) minor(1) units(1) xdensity(2) ydensity(2)
		f := p[len(jfifHeader):]
		if len(f) < 7 {
			return errors.Wrapf(core.ErrTruncated, "jfif header: need 7 bytes, have %d", len(f))
		}
		m.Addf("jfif_version", "(%d, %d)", f[0], f[1])
		m.Addf("jfif_density", "(%d, %d)", binary.BigEndian.Uint16(f[3:5]), binary.BigEndian.Uint16(f[5:7]))
		m.Addf("jfif_unit", "%d", f[2])
	case MarkerCOM:
		m.Add("comment", core.Text(p))
	case MarkerAPP1:
		if block, ok := exifBlock(p); ok {
			x, err := ParseTIFF(block)
			if err != nil {
				return errors.Wrap(err, "exif")
			}
			x.AppendTo(m)
			return nil
		}
		if opts.Extended {
			if packet, ok := xmpPacket(p); ok {
				return appendXMP(m, packet)
			}
		}
	case MarkerAPP13:
		if opts.Extended && bytes.HasPrefix(p, photoshopHeader) {
			return appendIPTC(m, p[len(photoshopHeader):])
		}
	default:
		// DQT, DHT, SOS, other APPn: nothing to show
	}
	return nil
}
