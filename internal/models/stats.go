package models

// GlobalStats aggregates over all records, or over one center when
// CenterName is set.
type GlobalStats struct {
	CenterName      string         `json:"center_name,omitempty"`
	TotalImages     int            `json:"total_images"`
	TotalStudies    int            `json:"total_studies"`
	TotalPatients   int            `json:"total_patients"`
	TotalCenters    int            `json:"total_centers,omitempty"`
	TotalSizeBytes  int64          `json:"total_size_bytes"`
	TotalSizeMB     float64        `json:"total_size_mb"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
}

// CenterStats is the per-center rollup used in center listings and
// institute aggregation.
type CenterStats struct {
	CenterName   string `json:"center_name"`
	ImageCount   int    `json:"image_count"`
	PatientCount int    `json:"patient_count"`
	StudyCount   int    `json:"study_count"`
}

// InstituteStats rolls up every center belonging to one institute.
type InstituteStats struct {
	InstituteName   string         `json:"institute_name"`
	TotalCenters    int            `json:"total_centers"`
	TotalImages     int            `json:"total_images"`
	TotalStudies    int            `json:"total_studies"`
	TotalPatients   int            `json:"total_patients"`
	TotalSizeBytes  int64          `json:"total_size_bytes"`
	TotalSizeMB     float64        `json:"total_size_mb"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	CenterStats     []CenterStats  `json:"center_stats"`
}

// RoundMB converts bytes to megabytes rounded to 2 decimals.
func RoundMB(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
