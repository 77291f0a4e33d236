package engine

import (
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quickfind/go-fuzzy-engine/fuzzy"
	"github.com/quickfind/go-fuzzy-engine/internal/errors"
	"github.com/quickfind/go-fuzzy-engine/services"
)

const (
	defaultMaxCandidates = 100
	defaultPageSize      = 50
)

// searchTree is one worktree participating in a search. Its index in the
// tree slice doubles as the fuzzy tree ID.
type searchTree struct {
	name     string
	prefix   string
	root     string
	instance *WorktreeInstance
}

// Search runs a fuzzy path query over the selected worktrees. Recently
// opened paths that match are surfaced ahead of the regular results. The
// cancel flag, when set mid-flight, makes the search return
// ErrSearchCancelled with no partial results.
func (e *Engine) Search(query services.SearchQuery, cancelFlag *atomic.Bool) (services.SearchResult, error) {
	start := time.Now()
	queryID := uuid.New().String()

	trees, err := e.resolveSearchTrees(query.Worktrees)
	if err != nil {
		return services.SearchResult{}, err
	}

	maxResults := query.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxCandidates
	}

	// Matching recents come first, most relevant on top.
	recentMatches := e.matchRecents(trees, query, maxResults)

	seen := make(map[string]bool, len(recentMatches))
	hits := make([]services.HitResult, 0, len(recentMatches))
	for _, m := range recentMatches {
		seen[hitKey(m.TreeID, m.Path)] = true
		hits = append(hits, buildHit(trees, m, true))
	}

	sets := make([]fuzzy.PathMatchCandidateSet, len(trees))
	for i, tree := range trees {
		sets[i] = tree.instance.Store.Snapshot(i, tree.prefix, query.DirsOnly)
	}

	matches := fuzzy.MatchPathSets(sets, query.Query, query.RelativeTo, query.SmartCase, maxResults, cancelFlag)
	if cancelFlag != nil && cancelFlag.Load() {
		return services.SearchResult{}, errors.NewSearchCancelledError(queryID)
	}
	for _, m := range matches {
		if seen[hitKey(m.TreeID, m.Path)] {
			continue
		}
		hits = append(hits, buildHit(trees, m, false))
	}

	total := len(hits)
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	startIx := (page - 1) * pageSize
	if startIx > total {
		startIx = total
	}
	endIx := startIx + pageSize
	if endIx > total {
		endIx = total
	}

	took := time.Since(start)
	e.stats.RecordSearch(query.Query, total, took)

	return services.SearchResult{
		Hits:     hits[startIx:endIx],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Took:     took.Milliseconds(),
		QueryID:  queryID,
	}, nil
}

// resolveSearchTrees maps the requested worktree names (or all worktrees,
// when none are named) to search trees. Prefixes are only assigned when more
// than one tree participates, so single-tree results stay unprefixed.
func (e *Engine) resolveSearchTrees(requested []string) ([]searchTree, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := requested
	if len(names) == 0 {
		names = make([]string, 0, len(e.worktrees))
		for name := range e.worktrees {
			names = append(names, name)
		}
	}

	trees := make([]searchTree, 0, len(names))
	for _, name := range names {
		instance, exists := e.worktrees[name]
		if !exists {
			return nil, errors.NewWorktreeNotFoundError(name)
		}
		trees = append(trees, searchTree{
			name:     name,
			root:     instance.settings.RootPath,
			instance: instance,
		})
	}

	sort.Slice(trees, func(i, j int) bool { return trees[i].name < trees[j].name })
	if len(trees) > 1 {
		for i := range trees {
			trees[i].prefix = trees[i].name + "/"
		}
	}
	return trees, nil
}

// matchRecents runs the query over each tree's recently opened paths.
func (e *Engine) matchRecents(trees []searchTree, query services.SearchQuery, maxResults int) []fuzzy.PathMatch {
	var all []fuzzy.PathMatch
	for i, tree := range trees {
		recents := tree.instance.Store.Recents()
		if query.DirsOnly {
			dirs := recents[:0:0]
			for _, c := range recents {
				if entry, ok := tree.instance.Store.Lookup(c.Path); ok && entry.IsDir {
					dirs = append(dirs, c)
				}
			}
			recents = dirs
		}
		if len(recents) == 0 {
			continue
		}
		all = append(all, fuzzy.MatchFixedPathSet(recents, i, tree.prefix, query.Query, query.SmartCase, maxResults)...)
	}
	fuzzy.SortPathMatches(all)
	if len(all) > maxResults {
		all = all[:maxResults]
	}
	return all
}

func buildHit(trees []searchTree, m fuzzy.PathMatch, recent bool) services.HitResult {
	tree := trees[m.TreeID]
	return services.HitResult{
		Worktree:  tree.name,
		Path:      m.Path,
		FullPath:  filepath.Join(tree.root, filepath.FromSlash(m.Path)),
		Score:     m.Score,
		Positions: m.Positions,
		Recent:    recent,
	}
}

func hitKey(treeID int, path string) string {
	return strconv.Itoa(treeID) + "\x00" + path
}

// RecordOpened marks a path as recently opened so future searches surface it
// early.
func (e *Engine) RecordOpened(worktree, path string) error {
	instance, err := e.instanceByName(worktree)
	if err != nil {
		return err
	}

	if !instance.Store.RecordOpened(path) {
		return errors.NewPathNotFoundError(path, worktree)
	}

	if err := e.PersistWorktreeData(worktree); err != nil {
		log.Printf("Warning: failed to persist recents for worktree '%s': %v", worktree, err)
	}
	return nil
}
