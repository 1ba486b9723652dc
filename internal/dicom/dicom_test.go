package dicom

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// wrapPart10 prepends the 128-byte preamble, the DICM marker and a file
// meta group declaring the given transfer syntax.
func wrapPart10(transferSyntax string, dataset []byte) []byte {
	out := make([]byte, 128)
	out = append(out, []byte("DICM")...)

	ts := []byte(transferSyntax)
	if len(ts)%2 == 1 {
		ts = append(ts, 0x00)
	}
	meta := make([]byte, 8)
	binary.LittleEndian.PutUint16(meta[0:2], 0x0002)
	binary.LittleEndian.PutUint16(meta[2:4], 0x0010)
	meta[4], meta[5] = 'U', 'I'
	binary.LittleEndian.PutUint16(meta[6:8], uint16(len(ts)))
	out = append(out, meta...)
	out = append(out, ts...)

	return append(out, dataset...)
}

// encodeImplicitElement writes one Implicit VR Little Endian element.
func encodeImplicitElement(tag Tag, value []byte) []byte {
	if len(value)%2 == 1 {
		value = append(append([]byte{}, value...), 0x20)
	}
	hdr := make([]byte, 8)
	binary.LittleEndian.PutUint16(hdr[0:2], tag.Group)
	binary.LittleEndian.PutUint16(hdr[2:4], tag.Element)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(value)))
	return append(hdr, value...)
}

func sampleDataset() *Dataset {
	ds := NewDataset()
	ds.AddString(TagPatientName, "PN", "Doe^Jane")
	ds.AddString(TagPatientID, "LO", "PAT-001")
	ds.AddString(TagPatientBirthDate, "DA", "19800101")
	ds.AddString(TagPatientSex, "CS", "F")
	ds.AddString(TagStudyInstanceUID, "UI", "1.2.840.999.1")
	ds.AddString(TagStudyDate, "DA", "20250114")
	ds.AddString(TagStudyTime, "TM", "093011")
	ds.AddString(TagStudyDescription, "LO", "CT CHEST W/O CONTRAST")
	ds.AddString(TagSeriesInstanceUID, "UI", "1.2.840.999.1.1")
	ds.AddString(TagSeriesNumber, "IS", "2")
	ds.AddString(TagModality, "CS", "CT")
	ds.AddString(TagSOPInstanceUID, "UI", "1.2.840.999.1.1.7")
	ds.AddString(TagInstanceNumber, "IS", "14")
	return ds
}

func TestParseFilePart10Explicit(t *testing.T) {
	raw := wrapPart10(ExplicitVRLittleEndian, sampleDataset().Encode())

	md, err := Extract(raw)
	require.NoError(t, err)

	assert.Equal(t, "Doe^Jane", md.PatientName)
	assert.Equal(t, "PAT-001", md.PatientID)
	assert.Equal(t, "F", md.PatientSex)
	assert.Equal(t, "1.2.840.999.1", md.StudyInstanceUID)
	assert.Equal(t, "20250114", md.StudyDate)
	assert.Equal(t, "CT CHEST W/O CONTRAST", md.StudyDescription)
	assert.Equal(t, "CT", md.Modality)
	assert.Equal(t, "1.2.840.999.1.1.7", md.SOPInstanceUID)
	assert.Equal(t, "14", md.InstanceNumber)
	assert.Equal(t, DefaultCharacterSet, md.CharacterSet)
}

func TestParseFilePart10Implicit(t *testing.T) {
	var payload []byte
	payload = append(payload, encodeImplicitElement(TagPatientName, []byte("Smith^John"))...)
	payload = append(payload, encodeImplicitElement(TagModality, []byte("MR"))...)
	payload = append(payload, encodeImplicitElement(TagStudyInstanceUID, []byte("1.2.3.4"))...)
	raw := wrapPart10(ImplicitVRLittleEndian, payload)

	md, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "Smith^John", md.PatientName)
	assert.Equal(t, "MR", md.Modality)
	assert.Equal(t, "1.2.3.4", md.StudyInstanceUID)
}

func TestParseFileBareDatasetSniffed(t *testing.T) {
	// No preamble, no marker: the payload is sniffed as explicit VR.
	md, err := Extract(sampleDataset().Encode())
	require.NoError(t, err)
	assert.Equal(t, "Doe^Jane", md.PatientName)
	assert.Equal(t, "CT", md.Modality)
}

func TestParseFileBareImplicitSniffed(t *testing.T) {
	var payload []byte
	payload = append(payload, encodeImplicitElement(TagPatientID, []byte("PAT-7"))...)
	payload = append(payload, encodeImplicitElement(TagModality, []byte("US"))...)

	md, err := Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, "PAT-7", md.PatientID)
	assert.Equal(t, "US", md.Modality)
}

func TestParseFileRejectsGarbage(t *testing.T) {
	_, err := Extract([]byte("hello world, definitely not a medical image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
}

func TestParseFileRejectsTooShort(t *testing.T) {
	_, err := Extract([]byte("AB"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
}

func TestParseFileMarkerWithEmptyDatasetSucceeds(t *testing.T) {
	// A DICM marker buys trust: zero parsed elements is still accepted
	// and every attribute falls back to its default.
	raw := wrapPart10(ExplicitVRLittleEndian, []byte{0xFF, 0xFE, 0xFF, 0xFE, 0xFF, 0xFE, 0xFF, 0xFE})
	md, err := Extract(raw)
	require.NoError(t, err)
	assert.Empty(t, md.PatientName)
	assert.Empty(t, md.StudyInstanceUID)
}

func TestExtractMissingAttributesDefaultEmpty(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagModality, "CS", "CR")

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "CR", md.Modality)
	assert.Empty(t, md.PatientName)
	assert.Empty(t, md.PatientID)
	assert.Nil(t, md.PixelSpacing)
	assert.Nil(t, md.SliceThickness)
}

func TestExtractPersonNameKeepsAlphabeticComponent(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagPatientName, "PN", "Yamada^Tarou=\xE5\xB1\xB1\xE7\x94\xB0^\xE5\xA4\xAA\xE9\x83\x8E")

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "Yamada^Tarou", md.PatientName)
}

func TestExtractLatin1FallsBackWithoutError(t *testing.T) {
	// 0xE9 is invalid UTF-8 but valid Latin-1 ("é").
	ds := NewDataset()
	ds.Add(TagStudyDescription, "LO", []byte{'c', 'a', 'f', 0xE9})

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "café", md.StudyDescription)
}

func TestExtractCharacterSetElement(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagSpecificCharacterSet, "CS", "ISO_IR 192")

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "ISO_IR 192", md.CharacterSet)
}

func TestExtractGeometry(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagPixelSpacing, "DS", "0.5\\0.5")
	ds.AddString(TagImagePositionPatient, "DS", "-125.0\\-125.0\\57.5")
	ds.AddString(TagImageOrientationPatient, "DS", "1\\0\\0\\0\\1\\0")
	ds.AddString(TagSliceThickness, "DS", "2.5")

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, md.PixelSpacing)
	assert.Equal(t, []float64{-125.0, -125.0, 57.5}, md.ImagePosition)
	assert.Equal(t, []float64{1, 0, 0, 0, 1, 0}, md.ImageOrientation)
	require.NotNil(t, md.SliceThickness)
	assert.Equal(t, 2.5, *md.SliceThickness)
}

func TestExtractUnparseableGeometryDropsAttribute(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagPixelSpacing, "DS", "abc\\0.5")
	ds.AddString(TagSliceThickness, "DS", "thick")

	md, err := Extract(wrapPart10(ExplicitVRLittleEndian, ds.Encode()))
	require.NoError(t, err)
	assert.Nil(t, md.PixelSpacing)
	assert.Nil(t, md.SliceThickness)
}

func TestEncodePadsOddLengths(t *testing.T) {
	ds := NewDataset()
	ds.AddString(TagStudyInstanceUID, "UI", "1.2.3")
	ds.AddString(TagPatientID, "LO", "ABC")

	parsed := parseExplicit(ds.Encode())
	uid, ok := parsed.Get(TagStudyInstanceUID)
	require.True(t, ok)
	assert.Equal(t, uint32(6), uid.Length)
	assert.Equal(t, "1.2.3", uid.rawString())

	pid, ok := parsed.Get(TagPatientID)
	require.True(t, ok)
	assert.Equal(t, "ABC", pid.rawString())
}

func TestDecodeTextCascade(t *testing.T) {
	assert.Equal(t, "plain ascii", decodeText([]byte("plain ascii")))
	assert.Equal(t, "ünïcödé", decodeText([]byte("ünïcödé")))
	assert.Equal(t, "café", decodeText([]byte{'c', 'a', 'f', 0xE9}))
	assert.Empty(t, decodeText(nil))
}

func TestCleanTextStripsPadding(t *testing.T) {
	assert.Equal(t, "1.2.3", cleanText("1.2.3\x00"))
	assert.Equal(t, "CT", cleanText("CT "))
}
