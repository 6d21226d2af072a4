package jpg

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ankit-chaubey/imgmeta/core"
)

var xmpHeader = []byte("http://ns.adobe.com/xap/1.0/\x00")

func xmpPacket(payload []byte) ([]byte, bool) {
	if !bytes.HasPrefix(payload, xmpHeader) {
		return nil, false
	}
	return payload[len(xmpHeader):], true
}

// appendXMP adds the attributes and leaf text of an XMP packet as
// "xmp:<name>" entries, in document order.
func appendXMP(m *core.Metadata, packet []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(packet))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "xmp")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" || attr.Value == "" {
					continue
				}
				m.Add("xmp:"+attr.Name.Local, attr.Value)
			}
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val != "" && current != "" && current != "xmpmeta" && current != "RDF" {
				m.Add("xmp:"+current, val)
			}
		case xml.EndElement:
			current = ""
		}
	}
}

// iptcNames maps IPTC application record (2) datasets to names.
var iptcNames = map[byte]string{
	0x05: "ObjectName",
	0x0F: "Category",
	0x14: "SupplementalCategory",
	0x19: "Keywords",
	0x1E: "ReleaseDate",
	0x23: "ReleaseTime",
	0x28: "SpecialInstructions",
	0x37: "DateCreated",
	0x3C: "TimeCreated",
	0x3E: "DigitalCreationDate",
	0x50: "Byline",
	0x55: "BylineTitle",
	0x5A: "City",
	0x5F: "Province",
	0x65: "Country",
	0x67: "OriginalTransmissionReference",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "CopyrightNotice",
	0x76: "Contact",
	0x78: "Caption",
	0x7A: "CaptionWriter",
}

const iptcResource = 0x0404

// appendIPTC walks the Photoshop image resource blocks of an APP13 payload
// and adds the IPTC datasets of the IPTC-NAA resource.
func appendIPTC(m *core.Metadata, data []byte) error {
	cur := core.NewCursor(data)
	for !cur.EOF() {
		sig, err := cur.Bytes(4)
		if err != nil {
			return errors.Wrap(err, "photoshop resource")
		}
		if string(sig) != "8BIM" {
			return errors.Newf("photoshop resource signature %q", sig)
		}
		id, err := cur.U16BE()
		if err != nil {
			return errors.Wrap(err, "photoshop resource id")
		}
		// Pascal name padded to an even size, length byte included.
		nameLen, err := cur.U8()
		if err != nil {
			return errors.Wrap(err, "photoshop resource name")
		}
		pad := int(nameLen)
		if pad%2 == 0 {
			pad++
		}
		if err := cur.Skip(pad); err != nil {
			return errors.Wrap(err, "photoshop resource name")
		}
		size, err := cur.U32BE()
		if err != nil {
			return errors.Wrap(err, "photoshop resource size")
		}
		if uint64(size) > uint64(cur.Len()) {
			return errors.Wrapf(core.ErrTruncated, "photoshop resource 0x%04x declares %d bytes, %d left", id, size, cur.Len())
		}
		block, _ := cur.Bytes(int(size))
		if size%2 != 0 {
			_ = cur.Skip(1)
		}
		if id == iptcResource {
			return appendIPTCRecords(m, block)
		}
	}
	return nil
}

func appendIPTCRecords(m *core.Metadata, data []byte) error {
	cur := core.NewCursor(data)
	for !cur.EOF() {
		head, err := cur.Bytes(5)
		if err != nil {
			return errors.Wrap(err, "iptc dataset header")
		}
		if head[0] != 0x1C {
			return errors.Newf("iptc tag marker %02X", head[0])
		}
		record, dataset := head[1], head[2]
		length := binary.BigEndian.Uint16(head[3:5])
		if length&0x8000 != 0 {
			return errors.Newf("iptc extended dataset %d:%d not supported", record, dataset)
		}
		val, err := cur.Bytes(int(length))
		if err != nil {
			return errors.Wrapf(err, "iptc dataset %d:%d", record, dataset)
		}
		if record != 2 {
			continue
		}
		if name, ok := iptcNames[dataset]; ok {
			m.Add(name, core.Text(val))
		}
	}
	return nil
}
