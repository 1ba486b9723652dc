// Package grouping turns flat image record collections into the
// patient- and study-level views the listing APIs serve. Everything here
// is a pure in-memory transform recomputed on each read.
package grouping

import (
	"sort"
	"time"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// UnknownPatientKey groups records that carry no patient id.
const UnknownPatientKey = "Unknown"

// PatientGroup is the derived per-patient bucket.
type PatientGroup struct {
	PatientID       string               `json:"patient_id"`
	PatientName     string               `json:"patient_name"`
	PatientSex      string               `json:"patient_sex"`
	Images          []models.ImageRecord `json:"images"`
	LatestCreatedAt time.Time            `json:"latest_created_at"`
}

// PagedPatientResult is one page of the patient-grouped listing. Paging
// slices over patient groups, not individual images.
type PagedPatientResult struct {
	Results        []models.ImageRecord `json:"results"`
	Count          int                  `json:"count"`
	TotalPages     int                  `json:"total_pages"`
	CurrentPage    int                  `json:"current_page"`
	PatientsOnPage int                  `json:"patients_on_page"`
}

// GroupByPatient partitions images by patient id (first-seen group order,
// "Unknown" for blank ids), sorts groups by their newest image
// descending, then slices the requested 1-indexed page of groups and
// flattens each selected group newest-first. Empty input and
// out-of-range pages yield empty results, never errors.
func GroupByPatient(images []models.ImageRecord, page, pageSize int) PagedPatientResult {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	groups := make(map[string]*PatientGroup)
	order := make([]string, 0)

	for _, img := range images {
		key := img.PatientID
		if key == "" {
			key = UnknownPatientKey
		}
		g, ok := groups[key]
		if !ok {
			g = &PatientGroup{
				PatientID:       key,
				PatientName:     img.PatientName,
				PatientSex:      img.PatientSex,
				LatestCreatedAt: img.CreatedAt,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.Images = append(g.Images, img)
		if img.CreatedAt.After(g.LatestCreatedAt) {
			g.LatestCreatedAt = img.CreatedAt
		}
	}

	sorted := make([]*PatientGroup, 0, len(order))
	for _, key := range order {
		sorted = append(sorted, groups[key])
	}
	// Missing timestamps (zero time) naturally sort last.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LatestCreatedAt.After(sorted[j].LatestCreatedAt)
	})

	totalPatients := len(sorted)
	totalPages := (totalPatients + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalPatients {
		start = totalPatients
	}
	if end > totalPatients {
		end = totalPatients
	}
	pageGroups := sorted[start:end]

	var results []models.ImageRecord
	for _, g := range pageGroups {
		members := make([]models.ImageRecord, len(g.Images))
		copy(members, g.Images)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.After(members[j].CreatedAt)
		})
		results = append(results, members...)
	}

	return PagedPatientResult{
		Results:        results,
		Count:          totalPatients,
		TotalPages:     totalPages,
		CurrentPage:    page,
		PatientsOnPage: len(pageGroups),
	}
}

// StudyGroup is the derived per-study bucket: representative study-level
// fields from the first instance seen, plus lightweight member summaries.
type StudyGroup struct {
	StudyInstanceUID string                `json:"study_instance_uid"`
	PatientName      string                `json:"patient_name"`
	PatientID        string                `json:"patient_id"`
	PatientBirthDate string                `json:"patient_birth_date"`
	PatientSex       string                `json:"patient_sex"`
	StudyDate        string                `json:"study_date"`
	StudyDescription string                `json:"study_description"`
	Modality         string                `json:"modality"`
	CenterName       string                `json:"center_name"`
	Status           models.Status         `json:"status"`
	AssignedDoctors  string                `json:"assigned_doctors"`
	IsEmergency      bool                  `json:"is_emergency"`
	Images           []models.ImageSummary `json:"images"`
	ImageCount       int                   `json:"image_count"`
}

// GroupByStudy walks images in (study UID, series number, instance
// number) order, opening a group on the first instance of each study and
// appending per-image summaries. First-seen study order is preserved.
func GroupByStudy(images []models.ImageRecord) []StudyGroup {
	ordered := make([]models.ImageRecord, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.StudyInstanceUID != b.StudyInstanceUID {
			return a.StudyInstanceUID < b.StudyInstanceUID
		}
		if a.SeriesNumber != b.SeriesNumber {
			return a.SeriesNumber < b.SeriesNumber
		}
		return a.InstanceNumber < b.InstanceNumber
	})

	index := make(map[string]int)
	groups := make([]StudyGroup, 0)

	for _, img := range ordered {
		i, ok := index[img.StudyInstanceUID]
		if !ok {
			i = len(groups)
			index[img.StudyInstanceUID] = i
			groups = append(groups, StudyGroup{
				StudyInstanceUID: img.StudyInstanceUID,
				PatientName:      img.PatientName,
				PatientID:        img.PatientID,
				PatientBirthDate: img.PatientBirthDate,
				PatientSex:       img.PatientSex,
				StudyDate:        img.StudyDate,
				StudyDescription: img.StudyDescription,
				Modality:         img.Modality,
				CenterName:       img.CenterName,
				Status:           img.Status,
				AssignedDoctors:  img.AssignedDoctors,
				IsEmergency:      img.IsEmergency,
			})
		}
		groups[i].Images = append(groups[i].Images, img.Summary())
		groups[i].ImageCount++
	}
	return groups
}
