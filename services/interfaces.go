package services

import (
	"sync/atomic"

	"github.com/quickfind/go-fuzzy-engine/config"
	"github.com/quickfind/go-fuzzy-engine/model"
)

// HitResult represents a single path in the search results.
type HitResult struct {
	Worktree  string  `json:"worktree"`            // Name of the worktree the path belongs to
	Path      string  `json:"path"`                // Path relative to the worktree root
	FullPath  string  `json:"full_path"`           // Absolute path on disk
	Score     float64 `json:"score"`               // Match score, higher is better
	Positions []int   `json:"positions,omitempty"` // Byte offsets of matched characters within the displayed path
	Recent    bool    `json:"recent"`              // Whether this path was surfaced from the recents list
}

type SearchResult struct {
	Hits     []HitResult `json:"hits"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Took     int64       `json:"took"`     // milliseconds
	QueryID  string      `json:"query_id"` // unique UUID for this search query
}

type SearchQuery struct {
	Query      string   `json:"query"`
	Worktrees  []string `json:"worktrees,omitempty"`   // Optional: subset of worktrees to search; empty means all
	RelativeTo string   `json:"relative_to,omitempty"` // Optional: path whose neighbors are preferred on ties
	SmartCase  bool     `json:"smart_case"`            // Uppercase query characters require exact-case matches
	DirsOnly   bool     `json:"dirs_only"`             // Restrict results to directories
	MaxResults int      `json:"max_results,omitempty"` // Cap on candidates kept before paging; 0 means default
	Page       int      `json:"page,omitempty"`
	PageSize   int      `json:"page_size,omitempty"`
}

// WorktreeManager manages the lifecycle of worktrees
type WorktreeManager interface {
	AddWorktree(settings config.WorktreeSettings) (string, error) // Returns scan job ID
	GetWorktreeSettings(name string) (config.WorktreeSettings, error)
	UpdateWorktreeSettings(name string, settings config.WorktreeSettings) (string, error) // Returns rescan job ID
	RescanWorktree(name string) (string, error)                                           // Returns rescan job ID
	DeleteWorktree(name string) (string, error)                                           // Returns deletion job ID
	ListWorktrees() []string
	PersistWorktreeData(name string) error
}

// Searcher defines operations for querying the indexed worktrees. The cancel
// flag, when set, makes an in-flight search return early with an error.
type Searcher interface {
	Search(query SearchQuery, cancelFlag *atomic.Bool) (SearchResult, error)
	RecordOpened(worktree, path string) error
}

// JobManager defines operations for managing background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(worktreeName string, status *model.JobStatus) []*model.Job
}

// StatsProvider exposes aggregate usage numbers for the running engine.
type StatsProvider interface {
	Stats() StatsData
}

// StatsData is a point-in-time snapshot of engine usage.
type StatsData struct {
	TotalSearches    int64            `json:"total_searches"`
	TotalPathsServed int64            `json:"total_paths_served"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	TopQueries       []QueryFrequency `json:"top_queries"`
	WorktreeCount    int              `json:"worktree_count"`
	IndexedPaths     int              `json:"indexed_paths"`
}

// QueryFrequency pairs a query string with how often it was searched.
type QueryFrequency struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Manager is the full surface the HTTP API is built on.
type Manager interface {
	WorktreeManager
	Searcher
	JobManager
	StatsProvider
}
