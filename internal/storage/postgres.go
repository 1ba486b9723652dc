package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// PostgresStore is the pgx-backed ImageStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("database pool cannot be nil")
	}
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the dicom_images table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS dicom_images (
            id                  BIGSERIAL PRIMARY KEY,
            center_name         VARCHAR(200) NOT NULL,
            patient_name        VARCHAR(200) NOT NULL DEFAULT '',
            patient_id          VARCHAR(64) NOT NULL DEFAULT '',
            patient_birth_date  VARCHAR(16) NOT NULL DEFAULT '',
            patient_sex         VARCHAR(10) NOT NULL DEFAULT '',
            study_instance_uid  VARCHAR(64) NOT NULL DEFAULT '',
            study_date          VARCHAR(16) NOT NULL DEFAULT '',
            study_time          VARCHAR(16) NOT NULL DEFAULT '',
            study_description   VARCHAR(200) NOT NULL DEFAULT '',
            referring_physician VARCHAR(200) NOT NULL DEFAULT '',
            series_instance_uid VARCHAR(64) NOT NULL DEFAULT '',
            series_number       VARCHAR(16) NOT NULL DEFAULT '',
            series_description  VARCHAR(200) NOT NULL DEFAULT '',
            modality            VARCHAR(16) NOT NULL DEFAULT '',
            sop_instance_uid    VARCHAR(64) NOT NULL DEFAULT '',
            instance_number     VARCHAR(16) NOT NULL DEFAULT '',
            file_path           TEXT NOT NULL,
            file_size           BIGINT NOT NULL DEFAULT 0,
            image_orientation   TEXT NOT NULL DEFAULT '',
            image_position      TEXT NOT NULL DEFAULT '',
            pixel_spacing       TEXT NOT NULL DEFAULT '',
            slice_thickness     DOUBLE PRECISION,
            status              VARCHAR(20) NOT NULL DEFAULT 'Not Assigned',
            assigned_doctors    TEXT NOT NULL DEFAULT '',
            reported_by         VARCHAR(200) NOT NULL DEFAULT '',
            report_content      TEXT NOT NULL DEFAULT '',
            report_file_path    TEXT NOT NULL DEFAULT '',
            is_emergency        BOOLEAN NOT NULL DEFAULT FALSE,
            created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_dicom_images_center ON dicom_images (center_name);
        CREATE INDEX IF NOT EXISTS idx_dicom_images_study ON dicom_images (study_instance_uid);
        CREATE INDEX IF NOT EXISTS idx_dicom_images_patient_study ON dicom_images (patient_id, study_instance_uid);
    `
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const imageColumns = `id, center_name, patient_name, patient_id, patient_birth_date, patient_sex,
    study_instance_uid, study_date, study_time, study_description, referring_physician,
    series_instance_uid, series_number, series_description, modality,
    sop_instance_uid, instance_number, file_path, file_size,
    image_orientation, image_position, pixel_spacing, slice_thickness,
    status, assigned_doctors, reported_by, report_content, report_file_path,
    is_emergency, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner, rec *models.ImageRecord) error {
	return row.Scan(
		&rec.ID, &rec.CenterName, &rec.PatientName, &rec.PatientID, &rec.PatientBirthDate, &rec.PatientSex,
		&rec.StudyInstanceUID, &rec.StudyDate, &rec.StudyTime, &rec.StudyDescription, &rec.ReferringPhysician,
		&rec.SeriesInstanceUID, &rec.SeriesNumber, &rec.SeriesDescription, &rec.Modality,
		&rec.SOPInstanceUID, &rec.InstanceNumber, &rec.FilePath, &rec.FileSize,
		&rec.ImageOrientation, &rec.ImagePosition, &rec.PixelSpacing, &rec.SliceThickness,
		&rec.Status, &rec.AssignedDoctors, &rec.ReportedBy, &rec.ReportContent, &rec.ReportFilePath,
		&rec.IsEmergency, &rec.CreatedAt,
	)
}

func collectImages(rows pgx.Rows) ([]models.ImageRecord, error) {
	defer rows.Close()
	out := make([]models.ImageRecord, 0)
	for rows.Next() {
		var rec models.ImageRecord
		if err := scanImage(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.ImageRecord) error {
	const query = `
        INSERT INTO dicom_images (
            center_name, patient_name, patient_id, patient_birth_date, patient_sex,
            study_instance_uid, study_date, study_time, study_description, referring_physician,
            series_instance_uid, series_number, series_description, modality,
            sop_instance_uid, instance_number, file_path, file_size,
            image_orientation, image_position, pixel_spacing, slice_thickness,
            status, assigned_doctors, reported_by, report_content, report_file_path, is_emergency
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
        RETURNING id, created_at
    `
	err := s.pool.QueryRow(ctx, query,
		rec.CenterName, rec.PatientName, rec.PatientID, rec.PatientBirthDate, rec.PatientSex,
		rec.StudyInstanceUID, rec.StudyDate, rec.StudyTime, rec.StudyDescription, rec.ReferringPhysician,
		rec.SeriesInstanceUID, rec.SeriesNumber, rec.SeriesDescription, rec.Modality,
		rec.SOPInstanceUID, rec.InstanceNumber, rec.FilePath, rec.FileSize,
		rec.ImageOrientation, rec.ImagePosition, rec.PixelSpacing, rec.SliceThickness,
		rec.Status, rec.AssignedDoctors, rec.ReportedBy, rec.ReportContent, rec.ReportFilePath, rec.IsEmergency,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		slog.ErrorContext(ctx, "Error inserting image record", "sopInstanceUID", rec.SOPInstanceUID, "error", err)
		return fmt.Errorf("failed to insert image record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM dicom_images WHERE id = $1`
	var rec models.ImageRecord
	err := scanImage(s.pool.QueryRow(ctx, query, id), &rec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("image %d: %w", id, models.ErrNotFound)
		}
		slog.ErrorContext(ctx, "Error querying image record", "id", id, "error", err)
		return nil, fmt.Errorf("failed to query image record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetByIDs(ctx context.Context, ids []int64) ([]models.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM dicom_images WHERE id = ANY($1) ORDER BY id`
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query image records: %w", err)
	}
	return collectImages(rows)
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.ImageRecord) error {
	const query = `
        UPDATE dicom_images SET
            status = $2, assigned_doctors = $3, reported_by = $4,
            report_content = $5, report_file_path = $6, is_emergency = $7
        WHERE id = $1
    `
	tag, err := s.pool.Exec(ctx, query, rec.ID,
		rec.Status, rec.AssignedDoctors, rec.ReportedBy,
		rec.ReportContent, rec.ReportFilePath, rec.IsEmergency)
	if err != nil {
		slog.ErrorContext(ctx, "Error updating image record", "id", rec.ID, "error", err)
		return fmt.Errorf("failed to update image record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image %d: %w", rec.ID, models.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.ImageRecord, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.CenterName != "" {
		conds = append(conds, "center_name = "+arg(f.CenterName))
	}
	if len(f.CenterNames) > 0 {
		conds = append(conds, "center_name = ANY("+arg(f.CenterNames)+")")
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(f.Status))
	}
	if f.DoctorName != "" {
		conds = append(conds, "assigned_doctors ILIKE "+arg("%"+f.DoctorName+"%"))
	}
	if f.PatientName != "" {
		conds = append(conds, "patient_name ILIKE "+arg("%"+f.PatientName+"%"))
	}
	if f.PatientID != "" {
		conds = append(conds, "patient_id ILIKE "+arg("%"+f.PatientID+"%"))
	}

	query := `SELECT ` + imageColumns + ` FROM dicom_images`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		slog.ErrorContext(ctx, "Error listing image records", "error", err)
		return nil, fmt.Errorf("failed to list image records: %w", err)
	}
	return collectImages(rows)
}

func (s *PostgresStore) ListByStudyUID(ctx context.Context, studyUID string) ([]models.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM dicom_images
        WHERE study_instance_uid = $1
        ORDER BY series_number, instance_number`
	rows, err := s.pool.Query(ctx, query, studyUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list study images: %w", err)
	}
	return collectImages(rows)
}

// UpdateStudyRecords selects the sibling set FOR UPDATE, applies fn and
// writes every row back inside one transaction, so a report either
// propagates to the whole study or not at all.
func (s *PostgresStore) UpdateStudyRecords(ctx context.Context, patientID, studyUID string, fn func(*models.ImageRecord)) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + imageColumns + ` FROM dicom_images
        WHERE patient_id = $1 AND study_instance_uid = $2
        FOR UPDATE`
	rows, err := tx.Query(ctx, query, patientID, studyUID)
	if err != nil {
		return 0, fmt.Errorf("failed to select study records: %w", err)
	}
	records, err := collectImages(rows)
	if err != nil {
		return 0, err
	}

	const update = `
        UPDATE dicom_images SET
            status = $2, assigned_doctors = $3, reported_by = $4,
            report_content = $5, report_file_path = $6, is_emergency = $7
        WHERE id = $1
    `
	for i := range records {
		fn(&records[i])
		rec := &records[i]
		if _, err := tx.Exec(ctx, update, rec.ID,
			rec.Status, rec.AssignedDoctors, rec.ReportedBy,
			rec.ReportContent, rec.ReportFilePath, rec.IsEmergency); err != nil {
			slog.ErrorContext(ctx, "Error propagating study update", "id", rec.ID, "error", err)
			return 0, fmt.Errorf("failed to propagate study update: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit study update: %w", err)
	}
	return len(records), nil
}

func (s *PostgresStore) DistinctCenters(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT center_name FROM dicom_images ORDER BY center_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list centers: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan center name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GlobalStats(ctx context.Context, centerName string) (*models.GlobalStats, error) {
	query := `
        SELECT COUNT(*),
               COUNT(DISTINCT study_instance_uid),
               COUNT(DISTINCT patient_id),
               COUNT(DISTINCT center_name),
               COALESCE(SUM(file_size), 0)
        FROM dicom_images
    `
	var args []any
	if centerName != "" {
		query += ` WHERE center_name = $1`
		args = append(args, centerName)
	}

	stats := &models.GlobalStats{CenterName: centerName, StatusBreakdown: make(map[string]int)}
	var centers int
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalImages, &stats.TotalStudies, &stats.TotalPatients, &centers, &stats.TotalSizeBytes)
	if err != nil {
		slog.ErrorContext(ctx, "Error aggregating stats", "centerName", centerName, "error", err)
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	if centerName == "" {
		stats.TotalCenters = centers
	}
	stats.TotalSizeMB = models.RoundMB(stats.TotalSizeBytes)

	breakdown := `SELECT status, COUNT(*) FROM dicom_images`
	if centerName != "" {
		breakdown += ` WHERE center_name = $1`
	}
	breakdown += ` GROUP BY status`
	rows, err := s.pool.Query(ctx, breakdown, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate status breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status breakdown: %w", err)
		}
		stats.StatusBreakdown[status] = count
	}
	return stats, rows.Err()
}

func (s *PostgresStore) CenterStats(ctx context.Context, centerName string) (*models.CenterStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(DISTINCT patient_id),
               COUNT(DISTINCT study_instance_uid)
        FROM dicom_images
        WHERE center_name = $1
    `
	stats := &models.CenterStats{CenterName: centerName}
	err := s.pool.QueryRow(ctx, query, centerName).Scan(&stats.ImageCount, &stats.PatientCount, &stats.StudyCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate center stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
