package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrJobNotFound is returned when a job id is unknown.
var ErrJobNotFound = errors.New("generation job not found")

// JobService handles database operations for the generation job ledger
type JobService struct {
	db *gorm.DB
}

// NewJobService creates a new job service
func NewJobService(db *gorm.DB) *JobService {
	return &JobService{db: db}
}

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	Kind   string
	Status string
	Limit  int
}

// StartJob records a submitted generate request.
func (s *JobService) StartJob(kind string, scriptIDs []int64, voicePersonaID int64, quality string) (*GenerationJob, error) {
	raw, err := json.Marshal(scriptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script ids: %w", err)
	}

	job := &GenerationJob{
		Kind:           kind,
		Status:         JobStatusRunning,
		ScriptIDs:      datatypes.JSON(raw),
		VoicePersonaID: voicePersonaID,
		Quality:        quality,
		Total:          len(scriptIDs),
		StartedAt:      time.Now().UTC(),
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// UpdateProgress stores the latest completed count and attempt number.
func (s *JobService) UpdateProgress(id uuid.UUID, completed, attempts int) error {
	result := s.db.Model(&GenerationJob{}).
		Where("id = ? AND status = ?", id, JobStatusRunning).
		Updates(map[string]interface{}{
			"completed": completed,
			"attempts":  attempts,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update job progress: %w", result.Error)
	}
	return nil
}

// FinishJob moves a running job to a terminal status. Finishing an already
// finished job is a no-op.
func (s *JobService) FinishJob(id uuid.UUID, status string, completed, attempts int, lastErr error) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"completed":   completed,
		"attempts":    attempts,
		"finished_at": now,
	}
	if lastErr != nil {
		updates["last_error"] = lastErr.Error()
	}

	result := s.db.Model(&GenerationJob{}).
		Where("id = ? AND status = ?", id, JobStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to finish job: %w", result.Error)
	}
	return nil
}

// GetJob returns a single job.
func (s *JobService) GetJob(id uuid.UUID) (*GenerationJob, error) {
	var job GenerationJob
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns jobs newest first.
func (s *JobService) ListJobs(filter JobFilter) ([]GenerationJob, error) {
	query := s.db.Model(&GenerationJob{}).Order("started_at DESC")
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	jobs := []GenerationJob{}
	if err := query.Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// AbandonRunning marks jobs left running by a previous process as cancelled.
func (s *JobService) AbandonRunning() (int64, error) {
	now := time.Now().UTC()
	result := s.db.Model(&GenerationJob{}).
		Where("status = ?", JobStatusRunning).
		Updates(map[string]interface{}{
			"status":      JobStatusCancelled,
			"finished_at": now,
			"last_error":  "console restarted before the job finished",
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to abandon running jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PruneFinished deletes finished jobs that ended before cutoff.
func (s *JobService) PruneFinished(cutoff time.Time) (int64, error) {
	result := s.db.Where("status <> ? AND finished_at < ?", JobStatusRunning, cutoff.UTC()).
		Delete(&GenerationJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
