package fuzzy

import (
	"runtime"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// StringMatchCandidate is a plain string candidate with a precomputed
// character bag, identified by a caller-chosen id.
type StringMatchCandidate struct {
	ID     int
	String string
	Chars  CharBag
}

// NewStringMatchCandidate builds a candidate for s, computing its bag.
func NewStringMatchCandidate(id int, s string) StringMatchCandidate {
	return StringMatchCandidate{ID: id, String: s, Chars: MakeCharBag(s)}
}

// HasChars implements MatchCandidate.
func (c StringMatchCandidate) HasChars(bag CharBag) bool { return c.Chars.Contains(bag) }

// MatchText implements MatchCandidate.
func (c StringMatchCandidate) MatchText() string { return c.String }

// StringMatch is an accepted string candidate with its score and the byte
// offsets of the matched characters.
type StringMatch struct {
	CandidateID int     `json:"candidate_id"`
	Score       float64 `json:"score"`
	Positions   []int   `json:"positions"`
	String      string  `json:"string"`
}

// MatchStrings matches query against candidates in parallel, one matcher per
// worker, and returns up to maxResults matches stable-sorted by descending
// score (ties broken by candidate id). An empty query matches every
// candidate with the maximal score and no positions. Results from a
// cancelled call are incomplete and must be discarded.
func MatchStrings(candidates []StringMatchCandidate, query string, smartCase bool, maxResults int, cancelFlag *atomic.Bool) []StringMatch {
	if len(candidates) == 0 || maxResults <= 0 {
		return nil
	}

	if query == "" {
		results := make([]StringMatch, len(candidates))
		for i, c := range candidates {
			results[i] = StringMatch{CandidateID: c.ID, Score: 1, String: c.String}
		}
		return results
	}

	queryRunes := []rune(query)
	lowercaseQuery := toLowerRunes(queryRunes)
	queryChars := CharBagFromRunes(lowercaseQuery)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(candidates) {
		workers = len(candidates)
	}
	segmentSize := (len(candidates) + workers - 1) / workers
	segmentResults := make([][]StringMatch, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * segmentSize
		end := min(start+segmentSize, len(candidates))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			matcher := NewMatcher(queryRunes, lowercaseQuery, queryChars, smartCase, 0)
			MatchCandidates(matcher, nil, nil, candidates[start:end], &segmentResults[w], cancelFlag,
				func(c StringMatchCandidate, score float64, positions []int) StringMatch {
					return StringMatch{
						CandidateID: c.ID,
						Score:       score,
						Positions:   slices.Clone(positions),
						String:      c.String,
					}
				})
		}(w, start, end)
	}
	wg.Wait()

	var results []StringMatch
	for _, segment := range segmentResults {
		results = append(results, segment...)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CandidateID < results[j].CandidateID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
