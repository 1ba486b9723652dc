// Package ingest turns an uploaded DICOM payload into a stored file plus
// a persisted image record.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/blob"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/dicom"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
)

// Pipeline wires the extractor to the blob area and the image store.
type Pipeline struct {
	store storage.ImageStore
	blobs blob.Store
	now   func() time.Time
}

// NewPipeline builds an ingestion pipeline.
func NewPipeline(store storage.ImageStore, blobs blob.Store) *Pipeline {
	return &Pipeline{store: store, blobs: blobs, now: time.Now}
}

// sanitizeCenter replaces path-unsafe characters in a center name so it
// can prefix a storage key.
func sanitizeCenter(name string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return r.Replace(name)
}

// storageKey composes the blob key for an upload. The uuid suffix makes
// two uploads of the same instance within one second distinct keys.
func (p *Pipeline) storageKey(centerName, sopInstanceUID string) string {
	sop := sopInstanceUID
	if sop == "" {
		sop = "unknown"
	}
	stamp := p.now().Format("20060102_150405")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s/%s_%s_%s.dcm", sanitizeCenter(centerName), sop, stamp, suffix)
}

// encodeFloats serializes a geometry sequence as a compact JSON array,
// or "" when the attribute was absent.
func encodeFloats(vals []float64) string {
	if len(vals) == 0 {
		return ""
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return ""
	}
	return string(b)
}

// Ingest validates, extracts, stores and persists one upload. On a
// database failure after the file was written, the file is removed
// best-effort so no orphan blobs accumulate; a cleanup failure is logged
// and swallowed.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte, centerName string) (*models.ImageRecord, error) {
	centerName = strings.TrimSpace(centerName)
	if centerName == "" {
		return nil, fmt.Errorf("%w: center name is required", models.ErrValidation)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty file payload", models.ErrValidation)
	}

	md, err := dicom.Extract(raw)
	if err != nil {
		slog.ErrorContext(ctx, "Error reading DICOM file", "centerName", centerName, "error", err)
		return nil, err
	}

	key := p.storageKey(centerName, md.SOPInstanceUID)
	if err := p.blobs.Save(key, raw); err != nil {
		slog.ErrorContext(ctx, "Error saving DICOM file", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	rec := &models.ImageRecord{
		CenterName:         models.Truncate(centerName, models.MaxCenterName),
		PatientName:        models.Truncate(md.PatientName, models.MaxPatientName),
		PatientID:          models.Truncate(md.PatientID, models.MaxPatientID),
		PatientBirthDate:   models.Truncate(md.PatientBirthDate, models.MaxDateTime),
		PatientSex:         models.Truncate(md.PatientSex, models.MaxSex),
		StudyInstanceUID:   models.Truncate(md.StudyInstanceUID, models.MaxUID),
		StudyDate:          models.Truncate(md.StudyDate, models.MaxDateTime),
		StudyTime:          models.Truncate(md.StudyTime, models.MaxDateTime),
		StudyDescription:   models.Truncate(md.StudyDescription, models.MaxDescription),
		ReferringPhysician: models.Truncate(md.ReferringPhysician, models.MaxPhysician),
		SeriesInstanceUID:  models.Truncate(md.SeriesInstanceUID, models.MaxUID),
		SeriesNumber:       models.Truncate(md.SeriesNumber, models.MaxNumber),
		SeriesDescription:  models.Truncate(md.SeriesDescription, models.MaxDescription),
		Modality:           models.Truncate(md.Modality, models.MaxModality),
		SOPInstanceUID:     models.Truncate(md.SOPInstanceUID, models.MaxUID),
		InstanceNumber:     models.Truncate(md.InstanceNumber, models.MaxNumber),
		FilePath:           key,
		FileSize:           int64(len(raw)),
		ImageOrientation:   encodeFloats(md.ImageOrientation),
		ImagePosition:      encodeFloats(md.ImagePosition),
		PixelSpacing:       encodeFloats(md.PixelSpacing),
		SliceThickness:     md.SliceThickness,
		Status:             models.StatusNotAssigned,
		AssignedDoctors:    "",
		ReportedBy:         "",
		IsEmergency:        false,
	}

	if err := p.store.Create(ctx, rec); err != nil {
		if cleanupErr := p.blobs.Delete(key); cleanupErr != nil {
			slog.WarnContext(ctx, "Failed to clean up stored file after database error",
				"key", key, "error", cleanupErr)
		}
		slog.ErrorContext(ctx, "Error saving image record", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	slog.InfoContext(ctx, "Ingested DICOM image",
		"centerName", centerName, "imageID", rec.ID, "key", key, "size", rec.FileSize)
	return rec, nil
}
