package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/internal/persistence"
)

const (
	dataDirPerm   = 0755
	settingsFile  = "settings.gob"
	pathStoreFile = "path_store.gob"
)

// loadWorktreesFromDisk loads all worktrees from the data directory.
func (e *Engine) loadWorktreesFromDisk() {
	log.Printf("Loading worktrees from disk: %s", e.dataDir)

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(e.dataDir, dataDirPerm); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v. Proceeding without persistence for new worktrees if loading fails.", e.dataDir, err)
	}

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		log.Printf("Warning: Failed to read data directory %s: %v. No worktrees loaded.", e.dataDir, err)
		return
	}

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		name := item.Name()
		worktreePath := filepath.Join(e.dataDir, name)
		log.Printf("Attempting to load worktree: %s", name)

		var settings config.WorktreeSettings
		settingsPath := filepath.Join(worktreePath, settingsFile)
		if err := persistence.LoadGob(settingsPath, &settings); err != nil {
			log.Printf("Warning: Failed to load settings for worktree %s from %s: %v. Skipping this worktree.", name, settingsPath, err)
			continue
		}

		// Validate settings name matches directory name
		if settings.Name != name {
			log.Printf("Warning: Worktree name in settings ('%s') does not match directory name ('%s') for path %s. Skipping this worktree.", settings.Name, name, worktreePath)
			continue
		}

		instance, err := NewWorktreeInstance(settings)
		if err != nil {
			log.Printf("Error creating instance for loaded worktree %s: %v. Skipping.", name, err)
			continue
		}

		storePath := filepath.Join(worktreePath, pathStoreFile)
		if err := persistence.LoadGob(storePath, instance.Store); err != nil && err != os.ErrNotExist {
			log.Printf("Warning: Failed to load path store for worktree %s from %s: %v. Proceeding with empty store.", name, storePath, err)
		} else if err == os.ErrNotExist {
			log.Printf("Info: Path store file %s not found for worktree %s. Initializing empty store.", storePath, name)
		}
		// Settings are authoritative for the recents cap, not the persisted store.
		instance.Store.MaxRecents = settings.MaxRecents

		e.worktrees[name] = instance
		log.Printf("Successfully loaded worktree: %s (%d paths)", name, instance.Store.Len())
	}
}

// PersistWorktreeData persists the path store for a specific worktree to disk.
func (e *Engine) PersistWorktreeData(name string) error {
	e.mu.RLock()
	instance, exists := e.worktrees[name]
	e.mu.RUnlock()

	if !exists {
		return fmt.Errorf("cannot persist: worktree '%s' not found", name)
	}

	worktreePath := filepath.Join(e.dataDir, name)
	// PathStore already takes its own read lock in GobEncode
	if err := persistence.SaveGob(filepath.Join(worktreePath, pathStoreFile), instance.Store); err != nil {
		return fmt.Errorf("failed to save path store for %s: %w", name, err)
	}
	log.Printf("Data for worktree '%s' persisted.", name)
	return nil
}

// persistWorktreeUnsafe persists a worktree's settings and store to disk.
// This method assumes the caller has appropriate locking.
func (e *Engine) persistWorktreeUnsafe(name string, settings config.WorktreeSettings, instance *WorktreeInstance) error {
	worktreePath := filepath.Join(e.dataDir, name)
	if err := os.MkdirAll(worktreePath, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for worktree %s: %w", name, err)
	}

	if err := persistence.SaveGob(filepath.Join(worktreePath, settingsFile), settings); err != nil {
		return fmt.Errorf("failed to save settings for worktree %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(worktreePath, pathStoreFile), instance.Store); err != nil {
		return fmt.Errorf("failed to save path store for %s: %w", name, err)
	}

	return nil
}
