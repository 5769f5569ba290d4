package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job kinds.
const (
	JobKindSingle = "single"
	JobKindBulk   = "bulk"
)

// Job statuses. The terminal ones mirror the poll task outcomes.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusTimedOut  = "timed_out"
	JobStatusCancelled = "cancelled"
	JobStatusFailed    = "failed"
)

// GenerationJob records one MP3 watch: the generate request that was
// submitted and how the poll loop that followed it ended.
type GenerationJob struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           string         `gorm:"size:16;not null;index:idx_generation_jobs_kind_status" json:"kind"`
	Status         string         `gorm:"size:16;not null;index:idx_generation_jobs_kind_status" json:"status"`
	ScriptIDs      datatypes.JSON `json:"script_ids"`
	VoicePersonaID int64          `json:"voice_persona_id"`
	Quality        string         `gorm:"size:16" json:"quality"`
	Completed      int            `json:"completed"`
	Total          int            `json:"total"`
	Attempts       int            `json:"attempts"`
	LastError      string         `json:"last_error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BeforeCreate sets UUID if not already set
func (j *GenerationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// IDs decodes the script id list.
func (j *GenerationJob) IDs() ([]int64, error) {
	if len(j.ScriptIDs) == 0 {
		return []int64{}, nil
	}
	var ids []int64
	if err := json.Unmarshal(j.ScriptIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Finished reports whether the job reached a terminal status.
func (j *GenerationJob) Finished() bool {
	return j.Status != JobStatusRunning
}

// GetAllModels returns all models for auto-migration
func GetAllModels() []interface{} {
	return []interface{}{
		&GenerationJob{},
	}
}
