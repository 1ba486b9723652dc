package storage

import (
	"context"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// ListFilter narrows List results. Zero-value fields are ignored.
// DoctorName, PatientName and PatientID match as case-insensitive
// substrings; CenterName and Status match exactly. CenterNames restricts
// to a set of centers (institute rollups).
type ListFilter struct {
	CenterName  string
	CenterNames []string
	DoctorName  string
	Status      string
	PatientName string
	PatientID   string
	Limit       int
}

// ImageStore is the durable home of image records. It is the only shared
// mutable resource in the system; implementations must be safe for
// concurrent use.
type ImageStore interface {
	// Create persists a new record and fills in ID and CreatedAt.
	Create(ctx context.Context, rec *models.ImageRecord) error
	// GetByID returns models.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id int64) (*models.ImageRecord, error)
	// GetByIDs returns the records found; callers needing all-or-nothing
	// compare the result length against len(ids).
	GetByIDs(ctx context.Context, ids []int64) ([]models.ImageRecord, error)
	// Update rewrites the mutable fields of an existing record.
	Update(ctx context.Context, rec *models.ImageRecord) error
	// List returns records newest-first, narrowed by the filter.
	List(ctx context.Context, f ListFilter) ([]models.ImageRecord, error)
	// ListByStudyUID returns a study's records ordered by series number
	// then instance number.
	ListByStudyUID(ctx context.Context, studyUID string) ([]models.ImageRecord, error)
	// UpdateStudyRecords applies fn to every record sharing
	// (patientID, studyUID) as one atomic update and returns how many
	// records were written.
	UpdateStudyRecords(ctx context.Context, patientID, studyUID string, fn func(*models.ImageRecord)) (int, error)
	// DistinctCenters lists every center name that has submitted images.
	DistinctCenters(ctx context.Context) ([]string, error)
	// GlobalStats aggregates counts and sizes, scoped to one center when
	// centerName is non-empty.
	GlobalStats(ctx context.Context, centerName string) (*models.GlobalStats, error)
	// CenterStats returns the per-center rollup.
	CenterStats(ctx context.Context, centerName string) (*models.CenterStats, error)
	Ping(ctx context.Context) error
}
