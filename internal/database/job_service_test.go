package database

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(&DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open(&DatabaseConfig{Type: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
	if !db.Migrator().HasTable(&GenerationJob{}) {
		t.Fatal("generation_jobs table missing")
	}
}

func TestJobLifecycle(t *testing.T) {
	svc := NewJobService(setupTestDB(t))

	job, err := svc.StartJob(JobKindBulk, []int64{4, 8, 15}, 7, "medium")
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if job.ID == uuid.Nil || job.Total != 3 || job.Status != JobStatusRunning {
		t.Fatalf("unexpected job: %+v", job)
	}

	if err := svc.UpdateProgress(job.ID, 2, 5); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := svc.FinishJob(job.ID, JobStatusTimedOut, 2, 60, errors.New("backend unreachable")); err != nil {
		t.Fatalf("FinishJob: %v", err)
	}
	// Terminal status is not overwritten.
	if err := svc.FinishJob(job.ID, JobStatusSucceeded, 3, 61, nil); err != nil {
		t.Fatalf("FinishJob again: %v", err)
	}

	got, err := svc.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobStatusTimedOut || got.Completed != 2 || got.Attempts != 60 {
		t.Errorf("job = %+v", got)
	}
	if got.LastError != "backend unreachable" || got.FinishedAt == nil || !got.Finished() {
		t.Errorf("terminal fields not stored: %+v", got)
	}
	ids, err := got.IDs()
	if err != nil || len(ids) != 3 || ids[2] != 15 {
		t.Errorf("IDs() = %v, %v", ids, err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc := NewJobService(setupTestDB(t))
	if _, err := svc.GetJob(uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListJobsFilters(t *testing.T) {
	svc := NewJobService(setupTestDB(t))

	single, _ := svc.StartJob(JobKindSingle, []int64{1}, 7, "high")
	if _, err := svc.StartJob(JobKindBulk, []int64{2, 3}, 7, "low"); err != nil {
		t.Fatal(err)
	}
	if err := svc.FinishJob(single.ID, JobStatusSucceeded, 1, 3, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter JobFilter
		want   int
	}{
		{"all", JobFilter{}, 2},
		{"by kind", JobFilter{Kind: JobKindBulk}, 1},
		{"by status", JobFilter{Status: JobStatusSucceeded}, 1},
		{"no match", JobFilter{Kind: JobKindBulk, Status: JobStatusSucceeded}, 0},
		{"limit", JobFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := svc.ListJobs(tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(jobs) != tt.want {
				t.Errorf("got %d jobs, want %d", len(jobs), tt.want)
			}
		})
	}
}

func TestAbandonAndPrune(t *testing.T) {
	svc := NewJobService(setupTestDB(t))

	running, _ := svc.StartJob(JobKindSingle, []int64{1}, 7, "medium")
	done, _ := svc.StartJob(JobKindSingle, []int64{2}, 7, "medium")
	if err := svc.FinishJob(done.ID, JobStatusSucceeded, 1, 1, nil); err != nil {
		t.Fatal(err)
	}

	n, err := svc.AbandonRunning()
	if err != nil || n != 1 {
		t.Fatalf("AbandonRunning = %d, %v", n, err)
	}
	got, _ := svc.GetJob(running.ID)
	if got.Status != JobStatusCancelled {
		t.Errorf("running job status = %s", got.Status)
	}

	n, err = svc.PruneFinished(time.Now().Add(time.Minute))
	if err != nil || n != 2 {
		t.Fatalf("PruneFinished = %d, %v", n, err)
	}
	jobs, _ := svc.ListJobs(JobFilter{})
	if len(jobs) != 0 {
		t.Errorf("expected empty ledger, got %d", len(jobs))
	}
}
