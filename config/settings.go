// Package config provides configuration structures for the path search engine.
// It defines per-worktree scan settings and their validation.
package config

import (
	"path/filepath"
	"strings"
)

// WorktreeSettings contains all configuration options for a scanned worktree.
// A worktree is a directory tree on disk whose file paths are indexed for
// fuzzy searching.
type WorktreeSettings struct {
	Name          string   `json:"name"`           // Unique name for the worktree
	RootPath      string   `json:"root_path"`      // Absolute path to the directory to scan
	IncludeHidden bool     `json:"include_hidden"` // Whether dot-files and dot-directories are indexed
	WatchChanges  bool     `json:"watch_changes"`  // Whether filesystem events trigger automatic rescans
	ExcludeDirs   []string `json:"exclude_dirs"`   // Directory names skipped during scanning (e.g., "node_modules")
	MaxRecents    int      `json:"max_recents"`    // Maximum number of recently opened paths tracked per worktree
}

// Validate checks the settings for basic requirements and returns a list of
// human-readable problems. An empty list means the settings are usable.
func (settings *WorktreeSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Worktree name cannot be empty or whitespace-only")
	}
	if strings.ContainsAny(settings.Name, "/\\") {
		problems = append(problems, "Worktree name cannot contain path separators")
	}

	if strings.TrimSpace(settings.RootPath) == "" {
		problems = append(problems, "Root path cannot be empty")
	} else if !filepath.IsAbs(settings.RootPath) {
		problems = append(problems, "Root path must be absolute, got '"+settings.RootPath+"'")
	}

	problems = append(problems, checkDuplicates("exclude_dirs", settings.ExcludeDirs)...)
	for _, dir := range settings.ExcludeDirs {
		if strings.TrimSpace(dir) == "" {
			problems = append(problems, "Excluded directory name cannot be empty or whitespace-only")
		}
		if strings.ContainsAny(dir, "/\\") {
			problems = append(problems, "Excluded directory '"+dir+"' must be a bare name, not a path")
		}
	}

	if settings.MaxRecents < 0 {
		problems = append(problems, "max_recents cannot be negative")
	}

	return problems
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, values []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, v := range values {
		if seen[v] {
			errors = append(errors, "Duplicate entry '"+v+"' found in "+fieldName)
		}
		seen[v] = true
	}

	return errors
}

// ApplyDefaults applies default values to the worktree settings
func (settings *WorktreeSettings) ApplyDefaults() {
	if settings.MaxRecents == 0 {
		settings.MaxRecents = 32
	}

	// Initialize empty slices if nil to prevent nil pointer issues
	if settings.ExcludeDirs == nil {
		settings.ExcludeDirs = []string{}
	}
}
