package grouping

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

func img(id int64, patientID, studyUID string, createdAt time.Time) models.ImageRecord {
	return models.ImageRecord{
		ID:               id,
		PatientID:        patientID,
		PatientName:      "Patient " + patientID,
		StudyInstanceUID: studyUID,
		Status:           models.StatusNotAssigned,
		CreatedAt:        createdAt,
	}
}

func TestGroupByPatientEmptyInput(t *testing.T) {
	result := GroupByPatient(nil, 1, 10)
	assert.Empty(t, result.Results)
	assert.Zero(t, result.Count)
	assert.Zero(t, result.TotalPages)
	assert.Equal(t, 1, result.CurrentPage)
	assert.Zero(t, result.PatientsOnPage)
}

func TestGroupByPatientPagination(t *testing.T) {
	base := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	var images []models.ImageRecord
	for i := 0; i < 25; i++ {
		pid := fmt.Sprintf("PAT-%02d", i)
		images = append(images, img(int64(i*2+1), pid, "study-"+pid, base.Add(time.Duration(i)*time.Minute)))
		images = append(images, img(int64(i*2+2), pid, "study-"+pid, base.Add(time.Duration(i)*time.Minute+30*time.Second)))
	}

	page1 := GroupByPatient(images, 1, 10)
	assert.Equal(t, 25, page1.Count)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, 10, page1.PatientsOnPage)
	assert.Len(t, page1.Results, 20)

	page3 := GroupByPatient(images, 3, 10)
	assert.Equal(t, 3, page3.CurrentPage)
	assert.Equal(t, 5, page3.PatientsOnPage)
	assert.Len(t, page3.Results, 10)

	page4 := GroupByPatient(images, 4, 10)
	assert.Empty(t, page4.Results)
	assert.Zero(t, page4.PatientsOnPage)
	assert.Equal(t, 25, page4.Count)
}

func TestGroupByPatientOrdersByNewestActivity(t *testing.T) {
	base := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	images := []models.ImageRecord{
		img(1, "OLD", "s1", base),
		img(2, "BUSY", "s2", base.Add(time.Minute)),
		// An old record of BUSY must not demote the group: its newest
		// image decides the position.
		img(3, "BUSY", "s2", base.Add(-time.Hour)),
		img(4, "NEW", "s3", base.Add(2*time.Minute)),
	}

	result := GroupByPatient(images, 1, 10)
	require.Len(t, result.Results, 4)
	assert.Equal(t, "NEW", result.Results[0].PatientID)
	assert.Equal(t, "BUSY", result.Results[1].PatientID)
	// Within the BUSY group images are newest-first.
	assert.Equal(t, int64(2), result.Results[1].ID)
	assert.Equal(t, int64(3), result.Results[2].ID)
	assert.Equal(t, "OLD", result.Results[3].PatientID)
}

func TestGroupByPatientBlankIDsBucketAsUnknown(t *testing.T) {
	base := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	images := []models.ImageRecord{
		img(1, "", "s1", base),
		img(2, "", "s2", base.Add(time.Minute)),
		img(3, "PAT-1", "s3", base.Add(2*time.Minute)),
	}

	result := GroupByPatient(images, 1, 10)
	assert.Equal(t, 2, result.Count)
	assert.Len(t, result.Results, 3)
}

func TestGroupByPatientDefaultsBadPageArguments(t *testing.T) {
	images := []models.ImageRecord{img(1, "P", "s", time.Now())}
	result := GroupByPatient(images, 0, -5)
	assert.Equal(t, 1, result.CurrentPage)
	assert.Equal(t, 1, result.TotalPages)
	assert.Len(t, result.Results, 1)
}

func TestGroupByStudy(t *testing.T) {
	images := []models.ImageRecord{
		{ID: 1, StudyInstanceUID: "1.2.b", SeriesNumber: "2", InstanceNumber: "1", PatientID: "P1", Modality: "CT"},
		{ID: 2, StudyInstanceUID: "1.2.a", SeriesNumber: "1", InstanceNumber: "2", PatientID: "P2", Modality: "MR"},
		{ID: 3, StudyInstanceUID: "1.2.a", SeriesNumber: "1", InstanceNumber: "1", PatientID: "P2", Modality: "MR"},
		{ID: 4, StudyInstanceUID: "1.2.b", SeriesNumber: "1", InstanceNumber: "1", PatientID: "P1", Modality: "CT"},
	}

	groups := GroupByStudy(images)
	require.Len(t, groups, 2)

	assert.Equal(t, "1.2.a", groups[0].StudyInstanceUID)
	assert.Equal(t, 2, groups[0].ImageCount)
	assert.Equal(t, "P2", groups[0].PatientID)
	// Members arrive in (series, instance) order.
	assert.Equal(t, int64(3), groups[0].Images[0].ID)
	assert.Equal(t, int64(2), groups[0].Images[1].ID)

	assert.Equal(t, "1.2.b", groups[1].StudyInstanceUID)
	assert.Equal(t, 2, groups[1].ImageCount)
	assert.Equal(t, int64(4), groups[1].Images[0].ID)
	assert.Equal(t, int64(1), groups[1].Images[1].ID)
}

func TestGroupByStudyEmpty(t *testing.T) {
	assert.Empty(t, GroupByStudy(nil))
}
