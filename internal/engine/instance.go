package engine

import (
	"fmt"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/store"
)

// WorktreeInstance holds all components for a single scanned worktree: its
// settings and the indexed path store.
type WorktreeInstance struct {
	settings *config.WorktreeSettings
	Store    *store.PathStore
}

// NewWorktreeInstance creates and initializes a new WorktreeInstance.
func NewWorktreeInstance(settings config.WorktreeSettings) (*WorktreeInstance, error) {
	if settings.Name == "" {
		return nil, fmt.Errorf("worktree name cannot be empty in settings")
	}

	return &WorktreeInstance{
		settings: &settings,
		Store:    store.NewPathStore(settings.MaxRecents),
	}, nil
}

// Settings returns the configuration settings for this worktree.
func (w *WorktreeInstance) Settings() config.WorktreeSettings {
	return *w.settings
}
