// Package testing provides utilities and helpers for testing the engine.
package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/internal/engine"
	"github.com/quickfind/go-fuzzy-engine/model"
	"github.com/quickfind/go-fuzzy-engine/services"
)

// CreateTestEngine creates a new engine instance for testing with automatic cleanup
func CreateTestEngine(t *testing.T) *engine.Engine {
	eng := engine.NewEngine(t.TempDir())
	t.Cleanup(eng.Close)
	return eng
}

// CreateTestTree materializes a directory tree on disk for scanning. Paths
// ending in "/" become directories; everything else becomes a small file.
func CreateTestTree(t *testing.T, paths ...string) string {
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if len(p) > 0 && p[len(p)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0755), "Failed to create test directory")
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755), "Failed to create parent directory")
		require.NoError(t, os.WriteFile(full, []byte("test\n"), 0644), "Failed to create test file")
	}
	return root
}

// CreateTestWorktree adds a worktree over the given root and waits for its
// initial scan to finish.
func CreateTestWorktree(t *testing.T, eng *engine.Engine, name, root string) config.WorktreeSettings {
	settings := config.WorktreeSettings{
		Name:     name,
		RootPath: root,
	}

	jobID, err := eng.AddWorktree(settings)
	require.NoError(t, err, "Failed to add test worktree")

	job := WaitForJobCompletion(t, eng, jobID, DefaultJobPollingOptions())
	AssertJobCompleted(t, job, model.JobTypeScan, name)

	return settings
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

// WaitForJobCompletion polls a job until it completes or times out
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				return job
			case model.JobStatusFailed:
				t.Fatalf("Job %s failed: %s", jobID, job.Error)
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedWorktree string) {
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedWorktree, job.WorktreeName, "Job worktree name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}
