package fuzzy

import (
	"math"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// PathMatchCandidate is a slash-separated relative path with its precomputed
// character bag.
type PathMatchCandidate struct {
	Path  string
	Chars CharBag
}

// HasChars implements MatchCandidate.
func (c PathMatchCandidate) HasChars(bag CharBag) bool { return c.Chars.Contains(bag) }

// MatchText implements MatchCandidate.
func (c PathMatchCandidate) MatchText() string { return c.Path }

// PathMatchCandidateSet is a source of path candidates, typically one scanned
// worktree. The prefix is a display label (for example "rootname/") that
// participates in scoring as if prepended to every candidate path.
type PathMatchCandidateSet interface {
	ID() int
	Len() int
	Prefix() string
	// Candidates returns the candidates from index start to Len().
	Candidates(start int) []PathMatchCandidate
}

// PathMatch is an accepted path candidate. Positions are byte offsets into
// PathPrefix + Path.
type PathMatch struct {
	Score      float64 `json:"score"`
	Positions  []int   `json:"positions"`
	TreeID     int     `json:"tree_id"`
	Path       string  `json:"path"`
	PathPrefix string  `json:"path_prefix"`

	// DistanceToRelativeAncestor counts the path components by which this
	// match diverges from the path the search was anchored to, or MaxInt
	// when the search was not anchored.
	DistanceToRelativeAncestor int `json:"distance_to_relative_ancestor"`
}

// MatchPathSets matches query against every candidate set, partitioning the
// combined candidate space across workers, and returns up to maxResults
// matches stable-sorted by descending score. relativeTo, when non-empty,
// anchors DistanceToRelativeAncestor so callers can prefer nearby files.
// Results from a cancelled call are incomplete and must be discarded.
func MatchPathSets(sets []PathMatchCandidateSet, query string, relativeTo string, smartCase bool, maxResults int, cancelFlag *atomic.Bool) []PathMatch {
	total := 0
	for _, set := range sets {
		total += set.Len()
	}
	if total == 0 || maxResults <= 0 {
		return nil
	}

	queryRunes := []rune(query)
	lowercaseQuery := toLowerRunes(queryRunes)
	queryChars := CharBagFromRunes(lowercaseQuery)

	workers := runtime.GOMAXPROCS(0)
	if workers > total {
		workers = total
	}
	segmentSize := (total + workers - 1) / workers
	segmentResults := make([][]PathMatch, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			segmentStart := w * segmentSize
			segmentEnd := min(segmentStart+segmentSize, total)
			matcher := NewMatcher(queryRunes, lowercaseQuery, queryChars, smartCase, 0)

			treeStart := 0
			for _, set := range sets {
				treeEnd := treeStart + set.Len()
				if segmentStart < treeEnd && segmentEnd > treeStart {
					start := max(segmentStart-treeStart, 0)
					end := min(segmentEnd-treeStart, set.Len())
					candidates := set.Candidates(start)[: end-start : end-start]

					prefix := []rune(set.Prefix())
					lowercasePrefix := toLowerRunes(prefix)
					treeID := set.ID()
					pathPrefix := set.Prefix()

					MatchCandidates(matcher, prefix, lowercasePrefix, candidates, &segmentResults[w], cancelFlag,
						func(c PathMatchCandidate, score float64, positions []int) PathMatch {
							distance := math.MaxInt
							if relativeTo != "" {
								distance = distanceBetweenPaths(c.Path, relativeTo)
							}
							return PathMatch{
								Score:                      score,
								Positions:                  slices.Clone(positions),
								TreeID:                     treeID,
								Path:                       c.Path,
								PathPrefix:                 pathPrefix,
								DistanceToRelativeAncestor: distance,
							}
						})
				}
				treeStart = treeEnd
			}
		}(w)
	}
	wg.Wait()

	var results []PathMatch
	for _, segment := range segmentResults {
		results = append(results, segment...)
	}
	SortPathMatches(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// MatchFixedPathSet matches query against a small fixed candidate list on the
// calling goroutine. It is meant for short lists such as recent selections,
// where spawning workers would cost more than the matching.
func MatchFixedPathSet(candidates []PathMatchCandidate, treeID int, prefix string, query string, smartCase bool, maxResults int) []PathMatch {
	if len(candidates) == 0 || maxResults <= 0 {
		return nil
	}

	queryRunes := []rune(query)
	lowercaseQuery := toLowerRunes(queryRunes)
	queryChars := CharBagFromRunes(lowercaseQuery)

	prefixRunes := []rune(prefix)
	lowercasePrefix := toLowerRunes(prefixRunes)

	matcher := NewMatcher(queryRunes, lowercaseQuery, queryChars, smartCase, 0)

	var results []PathMatch
	MatchCandidates(matcher, prefixRunes, lowercasePrefix, candidates, &results, nil,
		func(c PathMatchCandidate, score float64, positions []int) PathMatch {
			return PathMatch{
				Score:                      score,
				Positions:                  slices.Clone(positions),
				TreeID:                     treeID,
				Path:                       c.Path,
				PathPrefix:                 prefix,
				DistanceToRelativeAncestor: math.MaxInt,
			}
		})
	SortPathMatches(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// SortPathMatches stable-sorts matches by descending score, then tree id,
// then distance to the relative ancestor, then path, so equal-score results
// have a deterministic order.
func SortPathMatches(matches []PathMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TreeID != b.TreeID {
			return a.TreeID < b.TreeID
		}
		if a.DistanceToRelativeAncestor != b.DistanceToRelativeAncestor {
			return a.DistanceToRelativeAncestor < b.DistanceToRelativeAncestor
		}
		return a.Path < b.Path
	})
}

// distanceBetweenPaths counts the path components in which two
// slash-separated paths do not share a common ancestry.
func distanceBetweenPaths(path, relativeTo string) int {
	pathComponents := strings.Split(path, "/")
	relativeComponents := strings.Split(relativeTo, "/")
	shared := 0
	for shared < len(pathComponents) && shared < len(relativeComponents) &&
		pathComponents[shared] == relativeComponents[shared] {
		shared++
	}
	return len(pathComponents) + len(relativeComponents) - 2*shared
}
