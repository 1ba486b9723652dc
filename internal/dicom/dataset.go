package dicom

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Tag identifies a DICOM data element by (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag in (GGGG,EEEE) format.
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Tags of the attributes this system extracts.
var (
	TagSpecificCharacterSet    = Tag{0x0008, 0x0005}
	TagSOPInstanceUID          = Tag{0x0008, 0x0018}
	TagStudyDate               = Tag{0x0008, 0x0020}
	TagStudyTime               = Tag{0x0008, 0x0030}
	TagModality                = Tag{0x0008, 0x0060}
	TagReferringPhysicianName  = Tag{0x0008, 0x0090}
	TagStudyDescription        = Tag{0x0008, 0x1030}
	TagSeriesDescription       = Tag{0x0008, 0x103E}
	TagPatientName             = Tag{0x0010, 0x0010}
	TagPatientID               = Tag{0x0010, 0x0020}
	TagPatientBirthDate        = Tag{0x0010, 0x0030}
	TagPatientSex              = Tag{0x0010, 0x0040}
	TagSliceThickness          = Tag{0x0018, 0x0050}
	TagStudyInstanceUID        = Tag{0x0020, 0x000D}
	TagSeriesInstanceUID       = Tag{0x0020, 0x000E}
	TagSeriesNumber            = Tag{0x0020, 0x0011}
	TagInstanceNumber          = Tag{0x0020, 0x0013}
	TagImagePositionPatient    = Tag{0x0020, 0x0032}
	TagImageOrientationPatient = Tag{0x0020, 0x0037}
	TagPixelSpacing            = Tag{0x0028, 0x0030}
)

// Element is one data element. Value holds the raw on-wire bytes; text
// decoding happens at extraction time so the charset cascade can see the
// original byte sequence.
type Element struct {
	Tag    Tag
	VR     string
	Length uint32
	Value  []byte
}

// Dataset is a collection of data elements keyed by tag.
type Dataset struct {
	Elements map[Tag]*Element
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{Elements: make(map[Tag]*Element)}
}

// Add inserts a raw element.
func (d *Dataset) Add(tag Tag, vr string, value []byte) {
	d.Elements[tag] = &Element{Tag: tag, VR: vr, Length: uint32(len(value)), Value: value}
}

// AddString inserts a text element.
func (d *Dataset) AddString(tag Tag, vr, value string) {
	d.Add(tag, vr, []byte(value))
}

// Get returns the element for a tag.
func (d *Dataset) Get(tag Tag) (*Element, bool) {
	e, ok := d.Elements[tag]
	return e, ok
}

// Has reports whether the tag is present with a non-empty value.
func (d *Dataset) Has(tag Tag) bool {
	e, ok := d.Elements[tag]
	return ok && len(e.Value) > 0
}

// rawString returns the element bytes with trailing null/space padding
// stripped, without charset interpretation.
func (e *Element) rawString() string {
	v := string(e.Value)
	if idx := strings.IndexByte(v, 0); idx != -1 {
		v = v[:idx]
	}
	return strings.TrimSpace(v)
}

// longVRs use the 12-byte explicit header (2 reserved bytes + 32-bit
// length); every other VR uses the 8-byte header with a 16-bit length.
var longVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true, "OW": true,
	"SQ": true, "UC": true, "UN": true, "UR": true, "UT": true,
}

var knownVRs = map[string]bool{
	"AE": true, "AS": true, "AT": true, "CS": true, "DA": true, "DS": true,
	"DT": true, "FL": true, "FD": true, "IS": true, "LO": true, "LT": true,
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true, "OW": true,
	"PN": true, "SH": true, "SL": true, "SQ": true, "SS": true, "ST": true,
	"SV": true, "TM": true, "UC": true, "UI": true, "UL": true, "UN": true,
	"UR": true, "US": true, "UT": true, "UV": true,
}

// parseExplicit reads Explicit VR Little Endian elements. Framing is
// best-effort: the walk stops at the first element it cannot frame and
// returns whatever parsed before it.
func parseExplicit(data []byte) *Dataset {
	ds := NewDataset()
	offset := 0
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		tag := Tag{Group: group, Element: element}

		vr := string(data[offset+4 : offset+6])
		if !knownVRs[vr] {
			break
		}

		var length uint32
		var valueOffset int
		if longVRs[vr] {
			if offset+12 > len(data) {
				break
			}
			length = binary.LittleEndian.Uint32(data[offset+8 : offset+12])
			valueOffset = offset + 12
		} else {
			length = uint32(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
			valueOffset = offset + 8
		}

		if valueOffset+int(length) > len(data) {
			break
		}

		ds.Add(tag, vr, data[valueOffset:valueOffset+int(length)])

		offset = valueOffset + int(length)
		if length%2 == 1 {
			offset++
		}
	}
	return ds
}

// parseImplicit reads Implicit VR Little Endian elements, assigning VRs
// from the tag dictionary.
func parseImplicit(data []byte) *Dataset {
	ds := NewDataset()
	offset := 0
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		tag := Tag{Group: group, Element: element}

		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		valueOffset := offset + 8
		if valueOffset+int(length) > len(data) {
			break
		}

		ds.Add(tag, vrForTag(tag), data[valueOffset:valueOffset+int(length)])

		offset = valueOffset + int(length)
		if length%2 == 1 {
			offset++
		}
	}
	return ds
}

// vrForTag maps the tags of interest to their VR; everything else is UN.
func vrForTag(tag Tag) string {
	switch tag {
	case TagSpecificCharacterSet, TagModality, TagPatientSex:
		return "CS"
	case TagSOPInstanceUID, TagStudyInstanceUID, TagSeriesInstanceUID:
		return "UI"
	case TagStudyDate, TagPatientBirthDate:
		return "DA"
	case TagStudyTime:
		return "TM"
	case TagReferringPhysicianName, TagPatientName:
		return "PN"
	case TagStudyDescription, TagSeriesDescription, TagPatientID:
		return "LO"
	case TagSeriesNumber, TagInstanceNumber:
		return "IS"
	case TagSliceThickness, TagImagePositionPatient, TagImageOrientationPatient, TagPixelSpacing:
		return "DS"
	default:
		return "UN"
	}
}

// Encode serializes the dataset as Explicit VR Little Endian with tags in
// ascending order and even-length padding.
func (d *Dataset) Encode() []byte {
	tags := make([]Tag, 0, len(d.Elements))
	for tag := range d.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Group != tags[j].Group {
			return tags[i].Group < tags[j].Group
		}
		return tags[i].Element < tags[j].Element
	})

	var out []byte
	for _, tag := range tags {
		e := d.Elements[tag]

		hdr := make([]byte, 4)
		binary.LittleEndian.PutUint16(hdr[0:2], tag.Group)
		binary.LittleEndian.PutUint16(hdr[2:4], tag.Element)
		out = append(out, hdr...)
		out = append(out, []byte(e.VR)...)

		value := e.Value
		if len(value)%2 == 1 {
			pad := byte(0x20)
			if e.VR == "UI" || e.VR == "OB" || e.VR == "UN" {
				pad = 0x00
			}
			value = append(append([]byte{}, value...), pad)
		}

		if longVRs[e.VR] {
			out = append(out, 0x00, 0x00)
			length := make([]byte, 4)
			binary.LittleEndian.PutUint32(length, uint32(len(value)))
			out = append(out, length...)
		} else {
			length := make([]byte, 2)
			binary.LittleEndian.PutUint16(length, uint16(len(value)))
			out = append(out, length...)
		}
		out = append(out, value...)
	}
	return out
}
