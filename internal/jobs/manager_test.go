package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickfind/go-fuzzy-engine/model"
)

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeScan, "backend", map[string]string{
		"operation": "test",
	})

	if jobID == "" {
		t.Error("Expected non-empty job ID")
	}

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get created job: %v", err)
	}

	if job.Type != model.JobTypeScan {
		t.Errorf("Expected job type %s, got %s", model.JobTypeScan, job.Type)
	}

	if job.Status != model.JobStatusPending {
		t.Errorf("Expected job status %s, got %s", model.JobStatusPending, job.Status)
	}

	if job.WorktreeName != "backend" {
		t.Errorf("Expected worktree name 'backend', got %s", job.WorktreeName)
	}
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeScan, "backend", nil)

	// Execute a simple job that updates progress
	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 50, 100, "Halfway done")
		time.Sleep(10 * time.Millisecond) // Simulate work
		manager.UpdateJobProgress(jobID, 100, 100, "Completed")
		return nil
	})

	if err != nil {
		t.Fatalf("Failed to execute job: %v", err)
	}

	// Wait a bit for job to complete
	time.Sleep(50 * time.Millisecond)

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get job after execution: %v", err)
	}

	if job.Status != model.JobStatusCompleted {
		t.Errorf("Expected job status %s, got %s", model.JobStatusCompleted, job.Status)
	}

	if job.Progress == nil {
		t.Error("Expected job progress to be set")
	} else {
		if job.Progress.Current != 100 {
			t.Errorf("Expected progress current 100, got %d", job.Progress.Current)
		}
		if job.Progress.Total != 100 {
			t.Errorf("Expected progress total 100, got %d", job.Progress.Total)
		}
	}
}

func TestJobManager_ExecuteJobFailure(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRescan, "backend", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return errors.New("disk on fire")
	})
	if err != nil {
		t.Fatalf("Failed to execute job: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get job after execution: %v", err)
	}

	if job.Status != model.JobStatusFailed {
		t.Errorf("Expected job status %s, got %s", model.JobStatusFailed, job.Status)
	}
	if job.Error != "disk on fire" {
		t.Errorf("Expected job error to be recorded, got %q", job.Error)
	}
	if job.CompletedAt == nil {
		t.Error("Expected failed job to carry a completion time")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	manager.CreateJob(model.JobTypeScan, "backend", nil)
	manager.CreateJob(model.JobTypeRescan, "backend", nil)
	manager.CreateJob(model.JobTypeScan, "frontend", nil)

	backendJobs := manager.ListJobs("backend", nil)
	if len(backendJobs) != 2 {
		t.Errorf("Expected 2 jobs for backend, got %d", len(backendJobs))
	}

	pending := model.JobStatusPending
	pendingFrontend := manager.ListJobs("frontend", &pending)
	if len(pendingFrontend) != 1 {
		t.Errorf("Expected 1 pending job for frontend, got %d", len(pendingFrontend))
	}

	running := model.JobStatusRunning
	if got := manager.ListJobs("frontend", &running); len(got) != 0 {
		t.Errorf("Expected no running jobs, got %d", len(got))
	}
}
