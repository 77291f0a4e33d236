// Package engine orchestrates worktrees: it owns their path stores, runs
// scans as background jobs, serves searches, and persists state to disk.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/internal/errors"
	"github.com/quickfind/go-fuzzy-engine/internal/jobs"
	"github.com/quickfind/go-fuzzy-engine/internal/stats"
	"github.com/quickfind/go-fuzzy-engine/model"
	"github.com/quickfind/go-fuzzy-engine/services"
)

const maxConcurrentJobs = 4

// Engine manages multiple worktrees.
// It implements the services.Manager interface.
type Engine struct {
	mu         sync.RWMutex
	worktrees  map[string]*WorktreeInstance
	dataDir    string
	jobManager *jobs.Manager
	stats      *stats.Collector
	watcher    *watcher
}

// NewEngine creates a new engine rooted at dataDir, loading any previously
// persisted worktrees.
func NewEngine(dataDir string) *Engine {
	eng := &Engine{
		worktrees:  make(map[string]*WorktreeInstance),
		dataDir:    dataDir,
		jobManager: jobs.NewManager(maxConcurrentJobs),
		stats:      stats.NewCollector(),
	}
	eng.jobManager.Start()
	eng.loadWorktreesFromDisk()

	w, err := newWatcher(eng)
	if err != nil {
		log.Printf("Warning: filesystem watching disabled: %v", err)
	} else {
		eng.watcher = w
		eng.watchLoadedWorktrees()
	}

	return eng
}

// Close stops background workers. In-flight jobs are allowed to finish.
func (e *Engine) Close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	e.jobManager.Stop()
}

// watchLoadedWorktrees registers watches for worktrees restored from disk
// that ask for them.
func (e *Engine) watchLoadedWorktrees() {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for name, instance := range e.worktrees {
		if instance.settings.WatchChanges {
			e.watcher.Watch(name, instance.settings.RootPath)
		}
	}
}

// AddWorktree registers a new worktree and starts its initial scan as a
// background job, returning the job ID.
func (e *Engine) AddWorktree(settings config.WorktreeSettings) (string, error) {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return "", errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	if _, exists := e.worktrees[settings.Name]; exists {
		e.mu.Unlock()
		return "", errors.NewWorktreeAlreadyExistsError(settings.Name)
	}

	instance, err := NewWorktreeInstance(settings)
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to create worktree instance for '%s': %w", settings.Name, err)
	}

	if err := e.persistWorktreeUnsafe(settings.Name, settings, instance); err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to persist new worktree '%s': %w", settings.Name, err)
	}
	e.worktrees[settings.Name] = instance
	e.mu.Unlock()

	if settings.WatchChanges && e.watcher != nil {
		e.watcher.Watch(settings.Name, settings.RootPath)
	}

	log.Printf("Worktree '%s' added, starting initial scan of %s", settings.Name, settings.RootPath)
	return e.startScanJob(model.JobTypeScan, settings.Name)
}

// GetWorktreeSettings retrieves the settings for a specific worktree.
func (e *Engine) GetWorktreeSettings(name string) (config.WorktreeSettings, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.worktrees[name]
	if !exists {
		return config.WorktreeSettings{}, errors.NewWorktreeNotFoundError(name)
	}
	return *instance.settings, nil // Return a copy
}

// UpdateWorktreeSettings updates the settings for an existing worktree,
// persists them, and starts a rescan so the index reflects the new scan
// options. Returns the rescan job ID.
func (e *Engine) UpdateWorktreeSettings(name string, newSettings config.WorktreeSettings) (string, error) {
	if newSettings.Name != "" && newSettings.Name != name {
		return "", errors.NewValidationError("name", "worktree cannot be renamed through a settings update")
	}
	newSettings.Name = name
	newSettings.ApplyDefaults()
	if problems := newSettings.Validate(); len(problems) > 0 {
		return "", errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	instance, exists := e.worktrees[name]
	if !exists {
		e.mu.Unlock()
		return "", errors.NewWorktreeNotFoundError(name)
	}

	wasWatching := instance.settings.WatchChanges
	instance.settings = &newSettings
	instance.Store.Mu.Lock()
	instance.Store.MaxRecents = newSettings.MaxRecents
	instance.Store.Mu.Unlock()

	if err := e.persistWorktreeUnsafe(name, newSettings, instance); err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to save updated settings for worktree '%s': %w", name, err)
	}
	e.mu.Unlock()

	if e.watcher != nil {
		if newSettings.WatchChanges && !wasWatching {
			e.watcher.Watch(name, newSettings.RootPath)
		} else if !newSettings.WatchChanges && wasWatching {
			e.watcher.Unwatch(name)
		}
	}

	log.Printf("Settings for worktree '%s' updated and persisted.", name)
	return e.startScanJob(model.JobTypeRescan, name)
}

// RescanWorktree starts a rescan of an existing worktree as a background
// job, returning the job ID.
func (e *Engine) RescanWorktree(name string) (string, error) {
	e.mu.RLock()
	_, exists := e.worktrees[name]
	e.mu.RUnlock()
	if !exists {
		return "", errors.NewWorktreeNotFoundError(name)
	}

	return e.startScanJob(model.JobTypeRescan, name)
}

// DeleteWorktree removes a worktree from memory and disk as a background
// job, returning the job ID.
func (e *Engine) DeleteWorktree(name string) (string, error) {
	e.mu.RLock()
	_, exists := e.worktrees[name]
	e.mu.RUnlock()
	if !exists {
		return "", errors.NewWorktreeNotFoundError(name)
	}

	jobID := e.jobManager.CreateJob(model.JobTypeDeleteWorktree, name, map[string]string{
		"operation": "delete_worktree",
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeDeleteWorktreeJob(name)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start delete worktree job: %w", err)
	}
	return jobID, nil
}

// ListWorktrees returns the names of all registered worktrees, sorted.
func (e *Engine) ListWorktrees() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.worktrees))
	for name := range e.worktrees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJob retrieves a job by ID.
func (e *Engine) GetJob(jobID string) (*model.Job, error) {
	return e.jobManager.GetJob(jobID)
}

// ListJobs returns all jobs for a specific worktree, optionally filtered by status.
func (e *Engine) ListJobs(worktreeName string, status *model.JobStatus) []*model.Job {
	return e.jobManager.ListJobs(worktreeName, status)
}

// GetJobMetrics returns aggregate job performance metrics.
func (e *Engine) GetJobMetrics() jobs.JobMetricsData {
	return e.jobManager.GetMetrics()
}

// GetJobSuccessRate returns the overall job success rate.
func (e *Engine) GetJobSuccessRate() float64 {
	return e.jobManager.GetJobSuccessRate()
}

// GetCurrentWorkload returns the number of currently running jobs.
func (e *Engine) GetCurrentWorkload() int64 {
	return e.jobManager.GetCurrentWorkload()
}

// WorktreeStats summarizes the indexed contents of one worktree.
type WorktreeStats struct {
	Name         string `json:"name"`
	IndexedPaths int    `json:"indexed_paths"`
	Directories  int    `json:"directories"`
	Recents      int    `json:"recents"`
}

// GetWorktreeStats returns per-worktree index counts.
func (e *Engine) GetWorktreeStats(name string) (WorktreeStats, error) {
	instance, err := e.instanceByName(name)
	if err != nil {
		return WorktreeStats{}, err
	}
	paths, dirs, recents := instance.Store.Counts()
	return WorktreeStats{
		Name:         name,
		IndexedPaths: paths,
		Directories:  dirs,
		Recents:      recents,
	}, nil
}

// Stats returns a snapshot of engine usage.
func (e *Engine) Stats() services.StatsData {
	data := e.stats.Data()

	e.mu.RLock()
	defer e.mu.RUnlock()
	data.WorktreeCount = len(e.worktrees)
	for _, instance := range e.worktrees {
		data.IndexedPaths += instance.Store.Len()
	}
	return data
}

// instanceByName returns the instance for a worktree, or a not-found error.
func (e *Engine) instanceByName(name string) (*WorktreeInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.worktrees[name]
	if !exists {
		return nil, errors.NewWorktreeNotFoundError(name)
	}
	return instance, nil
}
