package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/blob"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
)

func newService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return NewService(store, blobs), store
}

func seedStudy(t *testing.T, store *storage.MemoryStore) []int64 {
	t.Helper()
	ctx := context.Background()
	records := []models.ImageRecord{
		{CenterName: "Center A", PatientID: "P1", StudyInstanceUID: "1.2.a", InstanceNumber: "1", Status: models.StatusNotAssigned},
		{CenterName: "Center A", PatientID: "P1", StudyInstanceUID: "1.2.a", InstanceNumber: "2", Status: models.StatusNotAssigned},
		{CenterName: "Center B", PatientID: "P2", StudyInstanceUID: "1.2.b", InstanceNumber: "1", Status: models.StatusUnreported, AssignedDoctors: "Dr. Smith"},
	}
	ids := make([]int64, 0, len(records))
	for i := range records {
		require.NoError(t, store.Create(ctx, &records[i]))
		ids = append(ids, records[i].ID)
	}
	return ids
}

func TestAssignDoctors(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	updated, err := svc.AssignDoctors(ctx, ids[:2], []string{"Dr. Smith", "Dr. Jones"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	rec, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Dr. Smith, Dr. Jones", rec.AssignedDoctors)
	assert.Equal(t, models.StatusUnreported, rec.Status)
}

func TestAssignDoctorsIdempotentPerName(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	_, err := svc.AssignDoctors(ctx, ids[:1], []string{"Dr. Smith"})
	require.NoError(t, err)
	_, err = svc.AssignDoctors(ctx, ids[:1], []string{"Dr. Smith"})
	require.NoError(t, err)

	rec, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Dr. Smith", rec.AssignedDoctors)
}

func TestAssignDoctorsValidation(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	_, err := svc.AssignDoctors(ctx, nil, []string{"Dr. Smith"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AssignDoctors(ctx, ids, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AssignDoctors(ctx, []int64{ids[0], 999}, []string{"Dr. Smith"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveSingleDoctor(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	require.NoError(t, svc.RemoveSingleDoctor(ctx, ids[2], "Dr. Smith"))
	rec, err := store.GetByID(ctx, ids[2])
	require.NoError(t, err)
	assert.Empty(t, rec.AssignedDoctors)

	// Removing a name that is not assigned is an error, not a no-op.
	err = svc.RemoveSingleDoctor(ctx, ids[0], "Dr. Smith")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	rec, err := svc.UpdateStatus(ctx, ids[0], models.StatusDraft, "Dr. Smith", "preliminary findings")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, rec.Status)
	assert.Equal(t, "Dr. Smith", rec.ReportedBy)
	assert.Equal(t, "preliminary findings", rec.ReportContent)

	// Omitted fields keep their prior values.
	rec, err = svc.UpdateStatus(ctx, ids[0], models.StatusReviewed, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, rec.Status)
	assert.Equal(t, "Dr. Smith", rec.ReportedBy)
	assert.Equal(t, "preliminary findings", rec.ReportContent)

	// Sibling untouched.
	sibling, err := store.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotAssigned, sibling.Status)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, ids[0], models.Status("Pending"), "", "")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	rec, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotAssigned, rec.Status)
}

func TestUploadReportPropagatesAcrossStudy(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	result, err := svc.UploadReport(ctx, ids[0], "findings.pdf", []byte("report body"), "Dr. Smith")
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedImages)
	assert.Equal(t, "Dr. Smith", result.ReportedBy)
	assert.Contains(t, result.ReportFilePath, "reports/P1_")
	assert.Contains(t, result.ReportFilePath, "findings.pdf")

	for _, id := range ids[:2] {
		rec, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReported, rec.Status)
		assert.Equal(t, "Dr. Smith", rec.ReportedBy)
		assert.Equal(t, result.ReportFilePath, rec.ReportFilePath)
	}

	// The other study is untouched.
	other, err := store.GetByID(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnreported, other.Status)
	assert.Empty(t, other.ReportFilePath)
}

func TestUploadReportStripsClientPaths(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)

	result, err := svc.UploadReport(context.Background(), ids[0], "../../etc/findings.pdf", []byte("x"), "Dr. Smith")
	require.NoError(t, err)
	assert.NotContains(t, result.ReportFilePath, "..")
}

func TestUploadReportValidation(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)

	_, err := svc.UploadReport(context.Background(), ids[0], "f.pdf", nil, "Dr. Smith")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UploadReport(context.Background(), 999, "f.pdf", []byte("x"), "Dr. Smith")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// A blank uploader must not blank the reporter on the whole study.
	_, err = svc.UploadReport(context.Background(), ids[0], "f.pdf", []byte("x"), "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	rec, err := store.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Empty(t, rec.ReportedBy)
	assert.NotEqual(t, models.StatusReported, rec.Status)
}

func TestUpdateStatusWithPropagation(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	count, err := svc.UpdateStatusWithPropagation(ctx, ids[0], models.StatusReviewed, "Dr. Jones", "final")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range ids[:2] {
		rec, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReviewed, rec.Status)
		assert.Equal(t, "Dr. Jones", rec.ReportedBy)
		assert.Equal(t, "final", rec.ReportContent)
	}
}

func TestUpdateStatusWithPropagationCarriesReportFile(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	// Give the primary a report file and the sibling its own.
	primary, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	primary.ReportFilePath = "reports/primary.pdf"
	require.NoError(t, store.Update(ctx, primary))

	count, err := svc.UpdateStatusWithPropagation(ctx, ids[0], models.StatusReported, "Dr. Smith", "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sibling, err := store.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "reports/primary.pdf", sibling.ReportFilePath)
}

func TestUpdateStatusWithPropagationKeepsExistingSiblingFile(t *testing.T) {
	svc, store := newService(t)
	ids := seedStudy(t, store)
	ctx := context.Background()

	primary, err := store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	primary.ReportFilePath = "reports/primary.pdf"
	require.NoError(t, store.Update(ctx, primary))

	sibling, err := store.GetByID(ctx, ids[1])
	require.NoError(t, err)
	sibling.ReportFilePath = "reports/sibling.pdf"
	require.NoError(t, store.Update(ctx, sibling))

	_, err = svc.UpdateStatusWithPropagation(ctx, ids[0], models.StatusReported, "Dr. Smith", "")
	require.NoError(t, err)

	sibling, err = store.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "reports/sibling.pdf", sibling.ReportFilePath)
}
