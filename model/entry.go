package model

import "time"

// PathEntry is a single file or directory inside a scanned worktree.
// Path is always relative to the worktree root and uses forward slashes
// regardless of the host OS.
type PathEntry struct {
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
