package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/model"
)

// scanProgressInterval is how many entries are collected between job
// progress updates and cancellation checks.
const scanProgressInterval = 1000

// startScanJob creates and starts a scan or rescan job for a worktree.
func (e *Engine) startScanJob(jobType model.JobType, name string) (string, error) {
	jobID := e.jobManager.CreateJob(jobType, name, map[string]string{
		"operation": string(jobType),
	})

	err := e.jobManager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return e.executeScanJob(ctx, name, jobID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to start %s job: %w", jobType, err)
	}
	return jobID, nil
}

// executeScanJob walks the worktree root and replaces the path store contents
// with what it finds.
func (e *Engine) executeScanJob(ctx context.Context, name, jobID string) error {
	instance, err := e.instanceByName(name)
	if err != nil {
		return err
	}
	settings := instance.Settings()

	entries, err := scanTree(ctx, settings, func(count int) {
		e.jobManager.UpdateJobProgress(jobID, count, 0, "Scanning")
	})
	if err != nil {
		return fmt.Errorf("scan of '%s' failed: %w", settings.RootPath, err)
	}

	instance.Store.Replace(entries)
	e.jobManager.UpdateJobProgress(jobID, len(entries), len(entries), "Scan complete")

	if e.watcher != nil && settings.WatchChanges {
		e.watcher.WatchSubdirs(name, settings.RootPath, entries)
	}

	if err := e.PersistWorktreeData(name); err != nil {
		// The in-memory index is fresh even if the disk copy is stale.
		log.Printf("Warning: failed to persist worktree '%s' after scan: %v", name, err)
	}
	return nil
}

// executeDeleteWorktreeJob removes a worktree from memory and disk.
func (e *Engine) executeDeleteWorktreeJob(name string) error {
	if e.watcher != nil {
		e.watcher.Unwatch(name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.worktrees[name]; !exists {
		return fmt.Errorf("worktree named '%s' not found", name)
	}
	delete(e.worktrees, name)

	worktreePath := filepath.Join(e.dataDir, name)
	if err := os.RemoveAll(worktreePath); err != nil {
		return fmt.Errorf("failed to remove worktree directory %s: %w", worktreePath, err)
	}

	log.Printf("Worktree '%s' deleted from memory and disk.", name)
	return nil
}

// scanTree walks the worktree root and returns an entry per file and
// directory, with paths relative to the root in slash form. filepath.WalkDir
// visits lexically, so the result is sorted by path. progress, if non-nil, is
// called periodically with the number of entries collected so far.
func scanTree(ctx context.Context, settings config.WorktreeSettings, progress func(count int)) ([]model.PathEntry, error) {
	excluded := make(map[string]bool, len(settings.ExcludeDirs))
	for _, dir := range settings.ExcludeDirs {
		excluded[dir] = true
	}

	var entries []model.PathEntry
	root := settings.RootPath

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			log.Printf("Warning: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if !settings.IncludeHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && excluded[name] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			// Deleted between readdir and stat; drop it.
			return nil
		}

		entries = append(entries, model.PathEntry{
			Path:    filepath.ToSlash(rel),
			IsDir:   d.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})

		if len(entries)%scanProgressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if progress != nil {
				progress(len(entries))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
