package dicom

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// Transfer syntaxes the reader understands natively. Anything else is
// parsed as explicit VR on a best-effort basis.
const (
	ImplicitVRLittleEndian = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// HasPart10Header reports whether data starts with the 128-byte preamble
// followed by the "DICM" marker.
func HasPart10Header(data []byte) bool {
	return len(data) >= 132 && string(data[128:132]) == "DICM"
}

// stripPart10 skips the preamble, the DICM marker and the file meta
// group (0x0002), returning the dataset bytes and the declared transfer
// syntax UID. The file meta group is always Explicit VR Little Endian.
func stripPart10(data []byte) ([]byte, string, error) {
	if !HasPart10Header(data) {
		return nil, "", fmt.Errorf("missing DICM marker at offset 128")
	}

	offset := 132
	var transferSyntax string

	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		if group != 0x0002 {
			break
		}

		vr := string(data[offset+4 : offset+6])
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

		if element == 0x0010 {
			transferSyntax = strings.TrimRight(string(data[valueOffset:valueOffset+int(length)]), "\x00 ")
		}

		offset = valueOffset + int(length)
	}

	if offset >= len(data) {
		return nil, "", fmt.Errorf("no dataset after file meta information")
	}
	return data[offset:], transferSyntax, nil
}

// ParseFile reads a DICOM byte stream in forced mode: part-10 files have
// their preamble and file meta stripped and the declared transfer syntax
// honored; bare datasets are sniffed as explicit then implicit VR. The
// only hard failure is a buffer in which nothing DICOM-shaped can be
// found, reported as models.ErrInvalidFormat.
func ParseFile(data []byte) (*Dataset, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes is too short", models.ErrInvalidFormat, len(data))
	}

	payload := data
	transferSyntax := ""
	hadMarker := false

	if HasPart10Header(data) {
		stripped, ts, err := stripPart10(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidFormat, err)
		}
		payload, transferSyntax = stripped, ts
		hadMarker = true
	}

	var ds *Dataset
	switch transferSyntax {
	case ImplicitVRLittleEndian:
		ds = parseImplicit(payload)
	case ExplicitVRLittleEndian:
		ds = parseExplicit(payload)
	default:
		// No declared syntax (or an unrecognized one): sniff.
		ds = parseExplicit(payload)
		if len(ds.Elements) == 0 {
			ds = parseImplicit(payload)
		}
	}

	if len(ds.Elements) == 0 && !hadMarker {
		return nil, fmt.Errorf("%w: no parseable data elements", models.ErrInvalidFormat)
	}
	return ds, nil
}
