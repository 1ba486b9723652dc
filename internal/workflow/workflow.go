// Package workflow manages report assignment and status transitions for
// image records. The status set is closed but transitions are free-form:
// only the value is validated, never the edge.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/blob"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
)

// Service executes workflow operations against the image store.
type Service struct {
	store storage.ImageStore
	blobs blob.Store
}

// NewService builds a workflow service.
func NewService(store storage.ImageStore, blobs blob.Store) *Service {
	return &Service{store: store, blobs: blobs}
}

// AssignDoctors unions doctorNames into the assigned set of every listed
// image. All ids must exist (models.ErrNotFound otherwise). Records still
// in Not Assigned advance to Unreported. Re-assigning a doctor already in
// a set is a no-op for that name. Returns the number of images touched.
func (s *Service) AssignDoctors(ctx context.Context, imageIDs []int64, doctorNames []string) (int, error) {
	if len(imageIDs) == 0 || len(doctorNames) == 0 {
		return 0, fmt.Errorf("%w: image_ids and doctor_names are required", models.ErrValidation)
	}

	records, err := s.store.GetByIDs(ctx, imageIDs)
	if err != nil {
		return 0, err
	}
	if len(records) != len(imageIDs) {
		return 0, fmt.Errorf("%w: some image ids do not exist", models.ErrNotFound)
	}

	updated := 0
	for i := range records {
		rec := &records[i]
		for _, name := range doctorNames {
			rec.AssignDoctor(name)
		}
		if rec.Status == models.StatusNotAssigned {
			rec.Status = models.StatusUnreported
		}
		if err := s.store.Update(ctx, rec); err != nil {
			return updated, err
		}
		updated++
	}

	slog.InfoContext(ctx, "Assigned doctors", "images", updated, "doctors", doctorNames)
	return updated, nil
}

// RemoveSingleDoctor removes one doctor from one image's assigned set.
// A name that is not in the set is reported as models.ErrNotFound, not
// silently ignored.
func (s *Service) RemoveSingleDoctor(ctx context.Context, imageID int64, doctorName string) error {
	rec, err := s.store.GetByID(ctx, imageID)
	if err != nil {
		return err
	}
	if !rec.RemoveDoctor(doctorName) {
		return fmt.Errorf("%w: doctor %q is not assigned to image %d", models.ErrNotFound, doctorName, imageID)
	}
	return s.store.Update(ctx, rec)
}

// UpdateStatus sets a new status on one record. reportedBy and
// reportContent are applied only when non-empty; omitted fields keep
// their prior values.
func (s *Service) UpdateStatus(ctx context.Context, imageID int64, newStatus models.Status, reportedBy, reportContent string) (*models.ImageRecord, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q (valid: %v)", models.ErrInvalidStatus, newStatus, models.ValidStatuses)
	}

	rec, err := s.store.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	rec.Status = newStatus
	if reportedBy != "" {
		rec.ReportedBy = reportedBy
	}
	if reportContent != "" {
		rec.ReportContent = reportContent
	}
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReportResult describes a propagated report operation.
type ReportResult struct {
	ReportFilePath string
	ReportedBy     string
	UpdatedImages  int
}

// cleanFilename strips any client-supplied directory components.
func cleanFilename(name string) string {
	if idx := strings.LastIndexAny(name, "/\\"); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

// UploadReport stores the report file under a deterministic key, marks
// the target image Reported and propagates the file reference, status and
// reporter to every record of the same (patient, study) pair. A report
// covers the whole study even though records are per-instance. The
// returned count includes the primary image.
func (s *Service) UploadReport(ctx context.Context, imageID int64, filename string, content []byte, uploaderDisplayName string) (*ReportResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: no file provided", models.ErrValidation)
	}
	uploaderDisplayName = strings.TrimSpace(uploaderDisplayName)
	if uploaderDisplayName == "" {
		return nil, fmt.Errorf("%w: uploader name is required", models.ErrValidation)
	}

	rec, err := s.store.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("reports/%s_%d_%s", rec.PatientID, imageID, cleanFilename(filename))
	if err := s.blobs.Save(key, content); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	count, err := s.store.UpdateStudyRecords(ctx, rec.PatientID, rec.StudyInstanceUID, func(r *models.ImageRecord) {
		r.Status = models.StatusReported
		r.ReportedBy = uploaderDisplayName
		r.ReportFilePath = key
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Report uploaded",
		"imageID", imageID, "reportPath", key, "updatedImages", count)
	return &ReportResult{ReportFilePath: key, ReportedBy: uploaderDisplayName, UpdatedImages: count}, nil
}

// UpdateStatusWithPropagation applies a status change (plus optional
// reporter and report content) to the target image and every sibling of
// the same (patient, study) pair. A report file reference already on the
// primary is carried to siblings that lack one. Returns the number of
// records updated including the primary.
func (s *Service) UpdateStatusWithPropagation(ctx context.Context, imageID int64, newStatus models.Status, reportedBy, reportContent string) (int, error) {
	if !newStatus.Valid() {
		return 0, fmt.Errorf("%w: %q (valid: %v)", models.ErrInvalidStatus, newStatus, models.ValidStatuses)
	}

	rec, err := s.store.GetByID(ctx, imageID)
	if err != nil {
		return 0, err
	}
	primaryReportFile := rec.ReportFilePath

	count, err := s.store.UpdateStudyRecords(ctx, rec.PatientID, rec.StudyInstanceUID, func(r *models.ImageRecord) {
		r.Status = newStatus
		if reportedBy != "" {
			r.ReportedBy = reportedBy
		}
		if reportContent != "" {
			r.ReportContent = reportContent
		}
		if r.ID != imageID && primaryReportFile != "" && r.ReportFilePath == "" {
			r.ReportFilePath = primaryReportFile
		}
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Status propagated",
		"imageID", imageID, "status", newStatus, "updatedImages", count)
	return count, nil
}
