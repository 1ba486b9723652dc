package dicom

import (
	"log/slog"
	"strconv"
	"strings"
)

// Metadata is the normalized record extracted from one DICOM instance.
// Text fields default to "" when the attribute is absent or undecodable;
// geometry fields are nil/absent rather than zero-filled.
type Metadata struct {
	PatientName      string
	PatientID        string
	PatientBirthDate string
	PatientSex       string

	StudyInstanceUID   string
	StudyDate          string
	StudyTime          string
	StudyDescription   string
	ReferringPhysician string

	SeriesInstanceUID string
	SeriesNumber      string
	SeriesDescription string
	Modality          string

	SOPInstanceUID string
	InstanceNumber string

	ImageOrientation []float64
	ImagePosition    []float64
	PixelSpacing     []float64
	SliceThickness   *float64

	CharacterSet string
}

// Extract parses raw bytes in forced mode and pulls the attribute set
// this system persists. A structural parse failure is the only error;
// individual attribute failures degrade to that attribute's default and
// never abort extraction of the rest.
func Extract(data []byte) (*Metadata, error) {
	ds, err := ParseFile(data)
	if err != nil {
		return nil, err
	}

	md := &Metadata{}

	md.CharacterSet = safeString(ds, TagSpecificCharacterSet)
	if md.CharacterSet == "" {
		md.CharacterSet = DefaultCharacterSet
	}

	md.PatientName = safePersonName(ds, TagPatientName)
	md.PatientID = safeString(ds, TagPatientID)
	md.PatientBirthDate = safeString(ds, TagPatientBirthDate)
	md.PatientSex = safeString(ds, TagPatientSex)

	md.StudyInstanceUID = safeString(ds, TagStudyInstanceUID)
	md.StudyDate = safeString(ds, TagStudyDate)
	md.StudyTime = safeString(ds, TagStudyTime)
	md.StudyDescription = safeString(ds, TagStudyDescription)
	md.ReferringPhysician = safePersonName(ds, TagReferringPhysicianName)

	md.SeriesInstanceUID = safeString(ds, TagSeriesInstanceUID)
	md.SeriesNumber = safeString(ds, TagSeriesNumber)
	md.SeriesDescription = safeString(ds, TagSeriesDescription)
	md.Modality = safeString(ds, TagModality)

	md.SOPInstanceUID = safeString(ds, TagSOPInstanceUID)
	md.InstanceNumber = safeString(ds, TagInstanceNumber)

	md.ImageOrientation = safeFloats(ds, TagImageOrientationPatient)
	md.ImagePosition = safeFloats(ds, TagImagePositionPatient)
	md.PixelSpacing = safeFloats(ds, TagPixelSpacing)
	md.SliceThickness = safeFloat(ds, TagSliceThickness)

	return md, nil
}

// safeString decodes a text attribute through the charset cascade,
// defaulting to "" on absence or any failure.
func safeString(ds *Dataset, tag Tag) (out string) {
	defer recoverAttr(tag, &out, "")()
	e, ok := ds.Get(tag)
	if !ok || len(e.Value) == 0 {
		return ""
	}
	return decodeText(e.Value)
}

// safePersonName decodes a PN attribute and keeps only the alphabetic
// component (the part before the first '='). On decode failure the raw
// bytes are decoded with replacement rather than dropped.
func safePersonName(ds *Dataset, tag Tag) (out string) {
	defer recoverAttr(tag, &out, "")()
	e, ok := ds.Get(tag)
	if !ok || len(e.Value) == 0 {
		return ""
	}
	s := decodeText(e.Value)
	if idx := strings.IndexByte(s, '='); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// safeFloats coerces a multi-valued decimal-string attribute to floats.
// Absent attributes and unparseable components both yield nil (the field
// is omitted, not zero-filled).
func safeFloats(ds *Dataset, tag Tag) (out []float64) {
	defer recoverAttr(tag, &out, nil)()
	e, ok := ds.Get(tag)
	if !ok || len(e.Value) == 0 {
		return nil
	}
	parts := strings.Split(e.rawString(), "\\")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			slog.Warn("unparseable numeric component, dropping attribute",
				"tag", tag.String(), "component", p)
			return nil
		}
		vals = append(vals, f)
	}
	return vals
}

// safeFloat coerces a single decimal-string attribute, nil when absent
// or unparseable.
func safeFloat(ds *Dataset, tag Tag) (out *float64) {
	defer recoverAttr(tag, &out, nil)()
	e, ok := ds.Get(tag)
	if !ok || len(e.Value) == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(e.rawString(), 64)
	if err != nil {
		slog.Warn("unparseable numeric attribute, dropping",
			"tag", tag.String(), "value", e.rawString())
		return nil
	}
	return &f
}

// recoverAttr absorbs a panic raised while extracting one attribute so a
// single bad value cannot abort extraction of the remaining fields.
func recoverAttr[T any](tag Tag, out *T, def T) func() {
	return func() {
		if r := recover(); r != nil {
			slog.Warn("attribute extraction failed", "tag", tag.String(), "panic", r)
			*out = def
		}
	}
}
