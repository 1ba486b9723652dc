package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

// MemoryStore is an in-memory ImageStore guarded by a read-write mutex.
// It backs tests and DATABASE_URL-less development runs; a multi-replica
// deployment needs the postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	images map[int64]*models.ImageRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, images: make(map[int64]*models.ImageRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec *models.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	s.images[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.images[id]
	if !ok {
		return nil, fmt.Errorf("image %d: %w", id, models.ErrNotFound)
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryStore) GetByIDs(_ context.Context, ids []int64) ([]models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ImageRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.images[id]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, rec *models.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[rec.ID]; !ok {
		return fmt.Errorf("image %d: %w", rec.ID, models.ErrNotFound)
	}
	clone := *rec
	s.images[rec.ID] = &clone
	return nil
}

func matches(rec *models.ImageRecord, f ListFilter) bool {
	if f.CenterName != "" && rec.CenterName != f.CenterName {
		return false
	}
	if len(f.CenterNames) > 0 {
		ok := false
		for _, c := range f.CenterNames {
			if rec.CenterName == c {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Status != "" && string(rec.Status) != f.Status {
		return false
	}
	if f.DoctorName != "" && !strings.Contains(strings.ToLower(rec.AssignedDoctors), strings.ToLower(f.DoctorName)) {
		return false
	}
	if f.PatientName != "" && !strings.Contains(strings.ToLower(rec.PatientName), strings.ToLower(f.PatientName)) {
		return false
	}
	if f.PatientID != "" && !strings.Contains(strings.ToLower(rec.PatientID), strings.ToLower(f.PatientID)) {
		return false
	}
	return true
}

func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ImageRecord, 0)
	for _, rec := range s.images {
		if matches(rec, f) {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByStudyUID(_ context.Context, studyUID string) ([]models.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ImageRecord, 0)
	for _, rec := range s.images {
		if rec.StudyInstanceUID == studyUID {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeriesNumber != out[j].SeriesNumber {
			return out[i].SeriesNumber < out[j].SeriesNumber
		}
		return out[i].InstanceNumber < out[j].InstanceNumber
	})
	return out, nil
}

// UpdateStudyRecords holds the write lock for the whole sibling set so
// the update is atomic with respect to other store operations.
func (s *MemoryStore) UpdateStudyRecords(_ context.Context, patientID, studyUID string, fn func(*models.ImageRecord)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.images {
		if rec.PatientID == patientID && rec.StudyInstanceUID == studyUID {
			fn(rec)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DistinctCenters(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, rec := range s.images {
		if !seen[rec.CenterName] {
			seen[rec.CenterName] = true
			out = append(out, rec.CenterName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) GlobalStats(_ context.Context, centerName string) (*models.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studies := make(map[string]bool)
	patients := make(map[string]bool)
	centers := make(map[string]bool)
	breakdown := make(map[string]int)
	stats := &models.GlobalStats{CenterName: centerName, StatusBreakdown: breakdown}

	for _, rec := range s.images {
		if centerName != "" && rec.CenterName != centerName {
			continue
		}
		stats.TotalImages++
		stats.TotalSizeBytes += rec.FileSize
		studies[rec.StudyInstanceUID] = true
		patients[rec.PatientID] = true
		centers[rec.CenterName] = true
		breakdown[string(rec.Status)]++
	}
	stats.TotalStudies = len(studies)
	stats.TotalPatients = len(patients)
	if centerName == "" {
		stats.TotalCenters = len(centers)
	}
	stats.TotalSizeMB = models.RoundMB(stats.TotalSizeBytes)
	return stats, nil
}

func (s *MemoryStore) CenterStats(_ context.Context, centerName string) (*models.CenterStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studies := make(map[string]bool)
	patients := make(map[string]bool)
	stats := &models.CenterStats{CenterName: centerName}

	for _, rec := range s.images {
		if rec.CenterName != centerName {
			continue
		}
		stats.ImageCount++
		studies[rec.StudyInstanceUID] = true
		patients[rec.PatientID] = true
	}
	stats.StudyCount = len(studies)
	stats.PatientCount = len(patients)
	return stats, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
