package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Column width limits applied before persistence. Overlong values are
// truncated, never rejected.
const (
	MaxCenterName  = 200
	MaxPatientName = 200
	MaxPatientID   = 64
	MaxUID         = 64
	MaxDescription = 200
	MaxSex         = 10
	MaxModality    = 16
	MaxPhysician   = 200
	MaxDateTime    = 16
	MaxNumber      = 16
)

// ImageRecord is one persisted DICOM instance. Records are created by the
// ingestion pipeline and mutated only by the report workflow.
type ImageRecord struct {
	ID                 int64      `json:"id"`
	CenterName         string     `json:"center_name"`
	PatientName        string     `json:"patient_name"`
	PatientID          string     `json:"patient_id"`
	PatientBirthDate   string     `json:"patient_birth_date"`
	PatientSex         string     `json:"patient_sex"`
	StudyInstanceUID   string     `json:"study_instance_uid"`
	StudyDate          string     `json:"study_date"`
	StudyTime          string     `json:"study_time"`
	StudyDescription   string     `json:"study_description"`
	ReferringPhysician string     `json:"referring_physician"`
	SeriesInstanceUID  string     `json:"series_instance_uid"`
	SeriesNumber       string     `json:"series_number"`
	SeriesDescription  string     `json:"series_description"`
	Modality           string     `json:"modality"`
	SOPInstanceUID     string     `json:"sop_instance_uid"`
	InstanceNumber     string     `json:"instance_number"`
	FilePath           string     `json:"file_path"`
	FileSize           int64      `json:"file_size"`
	ImageOrientation   string     `json:"image_orientation,omitempty"`
	ImagePosition      string     `json:"image_position,omitempty"`
	PixelSpacing       string     `json:"pixel_spacing,omitempty"`
	SliceThickness     *float64   `json:"slice_thickness,omitempty"`
	Status             Status     `json:"status"`
	AssignedDoctors    string     `json:"assigned_doctors"`
	ReportedBy         string     `json:"reported_by"`
	ReportContent      string     `json:"report_content,omitempty"`
	ReportFilePath     string     `json:"report_file_path,omitempty"`
	IsEmergency        bool       `json:"is_emergency"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Truncate clips a string to at most max bytes without splitting a
// multi-byte rune, so the result stays valid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// AssignedDoctorsList splits the comma-joined doctor set, preserving the
// order doctors were first added.
func (r *ImageRecord) AssignedDoctorsList() []string {
	if strings.TrimSpace(r.AssignedDoctors) == "" {
		return nil
	}
	parts := strings.Split(r.AssignedDoctors, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// AssignDoctor adds a doctor to the set. Adding a name already present is
// a no-op; reports whether the set changed.
func (r *ImageRecord) AssignDoctor(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	current := r.AssignedDoctorsList()
	for _, d := range current {
		if d == name {
			return false
		}
	}
	current = append(current, name)
	r.AssignedDoctors = strings.Join(current, ", ")
	return true
}

// RemoveDoctor removes a doctor from the set; reports whether the name
// was present.
func (r *ImageRecord) RemoveDoctor(name string) bool {
	name = strings.TrimSpace(name)
	current := r.AssignedDoctorsList()
	out := current[:0]
	found := false
	for _, d := range current {
		if d == name {
			found = true
			continue
		}
		out = append(out, d)
	}
	if !found {
		return false
	}
	r.AssignedDoctors = strings.Join(out, ", ")
	return true
}

// FileSizeMB returns the payload size in megabytes rounded to 2 decimals.
func (r *ImageRecord) FileSizeMB() float64 {
	return RoundMB(r.FileSize)
}

// ImageSummary is the lightweight per-instance view used inside study
// groupings.
type ImageSummary struct {
	ID                int64  `json:"id"`
	SOPInstanceUID    string `json:"sop_instance_uid"`
	InstanceNumber    string `json:"instance_number"`
	SeriesDescription string `json:"series_description"`
	FilePath          string `json:"file_path"`
	FileSize          int64  `json:"file_size"`
}

// Summary projects a record to its study-listing form.
func (r *ImageRecord) Summary() ImageSummary {
	return ImageSummary{
		ID:                r.ID,
		SOPInstanceUID:    r.SOPInstanceUID,
		InstanceNumber:    r.InstanceNumber,
		SeriesDescription: r.SeriesDescription,
		FilePath:          r.FilePath,
		FileSize:          r.FileSize,
	}
}
