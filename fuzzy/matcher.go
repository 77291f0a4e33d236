// Package fuzzy implements approximate string matching and ranking for
// quick-open style navigation: given a typed query and a stream of candidate
// strings (typically file paths), it decides which candidates plausibly
// match, assigns each a relevance score, and reports the byte positions of
// the matched characters for highlighting.
//
// The matching algorithm is a memoized recursive search over match
// positions, bounded by a precomputed last-position pruning pass, with a
// multi-factor per-character score that favors matches after path
// separators, on camelCase and word boundaries, close to the start of the
// final path segment, and tightly clustered.
package fuzzy

import (
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	baseDistancePenalty       = 0.6
	additionalDistancePenalty = 0.05
	minDistancePenalty        = 0.2
)

// MatchCandidate is the capability required of anything fuzzy-matchable.
// Concrete candidate kinds are owned and iterated by the caller.
type MatchCandidate interface {
	// HasChars reports whether the candidate's character bag contains bag.
	HasChars(bag CharBag) bool
	// MatchText returns the string the candidate is matched against.
	MatchText() string
}

// Matcher scores candidates against a single query. It owns scratch buffers
// that are reused across candidates to avoid per-candidate allocation, so a
// Matcher must not be shared between goroutines; construct one per worker.
type Matcher struct {
	query          []rune
	lowercaseQuery []rune
	queryChars     CharBag
	smartCase      bool
	minScore       float64

	lastPositions      []int
	scoreMatrix        []float64 // flattened query x search memo; -1 marks an uncomputed cell
	bestPositionMatrix []int
	matchPositions     []int
}

// NewMatcher returns a matcher for the given query. The lowercase query must
// be the per-rune lowercase of query (same length). A positive minScore
// enables early abandonment of branches that cannot reach it; 0 disables the
// cutoff.
func NewMatcher(query, lowercaseQuery []rune, queryChars CharBag, smartCase bool, minScore float64) *Matcher {
	return &Matcher{
		query:          query,
		lowercaseQuery: lowercaseQuery,
		queryChars:     queryChars,
		smartCase:      smartCase,
		minScore:       minScore,
		lastPositions:  make([]int, len(query)),
		matchPositions: make([]int, len(query)),
	}
}

// MatchCandidates scores each candidate against the matcher's query and, for
// every candidate with a positive score, appends the result of buildMatch to
// results, in candidate order. The positions slice passed to buildMatch is
// scratch owned by the matcher; builders must copy it.
//
// The cancel flag is read once per candidate. A cancelled batch stops at the
// next candidate boundary leaving results partially filled; callers must
// discard such results rather than treat them as complete.
//
// The prefix participates in scoring as if prepended to every candidate but
// is supplied once per batch. lowercasePrefix must be the per-rune lowercase
// of prefix.
func MatchCandidates[C MatchCandidate, R any](
	m *Matcher,
	prefix, lowercasePrefix []rune,
	candidates []C,
	results *[]R,
	cancelFlag *atomic.Bool,
	buildMatch func(c C, score float64, positions []int) R,
) {
	folder := cases.Lower(language.Und)

	var (
		candidateRunes []rune
		lowercaseRunes []rune
		toOriginal     []int
	)

	for _, candidate := range candidates {
		if !candidate.HasChars(m.queryChars) {
			continue
		}
		if cancelFlag != nil && cancelFlag.Load() {
			break
		}

		candidateRunes = candidateRunes[:0]
		lowercaseRunes = lowercaseRunes[:0]
		toOriginal = toOriginal[:0]
		expanded := false

		for _, r := range candidate.MatchText() {
			i := len(candidateRunes)
			candidateRunes = append(candidateRunes, r)

			if r < utf8.RuneSelf {
				if r >= 'A' && r <= 'Z' {
					r += 'a' - 'A'
				}
				lowercaseRunes = append(lowercaseRunes, r)
				if expanded {
					toOriginal = append(toOriginal, i)
				}
				continue
			}

			// Full case mapping: a single rune may lowercase to several
			// (e.g. U+0130 -> "i" + combining dot). The expansion table maps
			// lowercased indices back to original ones.
			folded := []rune(folder.String(string(r)))
			if len(folded) > 1 && !expanded {
				expanded = true
				for j := range lowercaseRunes {
					toOriginal = append(toOriginal, j)
				}
			}
			lowercaseRunes = append(lowercaseRunes, folded...)
			if expanded {
				for range folded {
					toOriginal = append(toOriginal, i)
				}
			}
		}

		var expansion []int
		if expanded {
			expansion = toOriginal
		}

		if !m.findLastPositions(lowercasePrefix, lowercaseRunes) {
			continue
		}

		m.resizeScratch(len(lowercasePrefix) + len(lowercaseRunes))

		score := m.scoreMatch(candidateRunes, lowercaseRunes, prefix, lowercasePrefix, expansion)
		if score > 0 {
			*results = append(*results, buildMatch(candidate, score, m.matchPositions))
		}
	}
}

// findLastPositions computes, for every query character, the furthest index
// in prefix+candidate at which it may still occur while leaving room for all
// query characters after it. It returns false if some query character has no
// reachable occurrence, in which case the candidate cannot match and the
// recursive scorer is skipped entirely.
func (m *Matcher) findLastPositions(lowercasePrefix, lowercaseCandidate []rune) bool {
	candidateEnd := len(lowercaseCandidate)
	prefixEnd := len(lowercasePrefix)

	for i := len(m.lowercaseQuery) - 1; i >= 0; i-- {
		qc := m.lowercaseQuery[i]
		found := false

		for j := candidateEnd - 1; j >= 0; j-- {
			if lowercaseCandidate[j] == qc {
				m.lastPositions[i] = len(lowercasePrefix) + j
				candidateEnd = j
				found = true
				break
			}
		}
		if found {
			continue
		}

		candidateEnd = 0
		for j := prefixEnd - 1; j >= 0; j-- {
			if lowercasePrefix[j] == qc {
				m.lastPositions[i] = j
				prefixEnd = j
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// resizeScratch prepares the memo tables for a candidate whose combined
// lowercased search space holds searchLen characters, reusing allocated
// capacity across candidates.
func (m *Matcher) resizeScratch(searchLen int) {
	n := len(m.query) * searchLen
	if cap(m.scoreMatrix) < n {
		m.scoreMatrix = make([]float64, n)
		m.bestPositionMatrix = make([]int, n)
	} else {
		m.scoreMatrix = m.scoreMatrix[:n]
		m.bestPositionMatrix = m.bestPositionMatrix[:n]
	}
	for i := range m.scoreMatrix {
		m.scoreMatrix[i] = -1
		m.bestPositionMatrix[i] = 0
	}
}

// scoreMatch runs the recursive scorer and, when the candidate matches,
// rebuilds matchPositions as byte offsets into the original prefix+candidate
// text by walking the best-position matrix. toOriginal maps lowercased
// candidate indices to original ones; nil means the mapping is the identity.
func (m *Matcher) scoreMatch(candidate, lowercaseCandidate, prefix, lowercasePrefix []rune, toOriginal []int) float64 {
	if len(m.query) == 0 {
		// An empty query trivially matches everything.
		return 1
	}

	score := m.recursiveScoreMatch(candidate, lowercaseCandidate, prefix, lowercasePrefix, toOriginal, 0, 0, float64(len(m.query)))
	score *= float64(len(m.query))
	if score <= 0 {
		return 0
	}
	// An abandoned branch leaves a tiny placeholder in the memo; it must not
	// surface as a match below the configured cutoff.
	if m.minScore > 0 && score < m.minScore {
		return 0
	}

	searchLen := len(lowercasePrefix) + len(lowercaseCandidate)
	curStart := 0
	byteIx := 0
	charIx := 0
	for i := range m.query {
		matchCharIx := m.bestPositionMatrix[i*searchLen+curStart]
		curStart = matchCharIx + 1

		origIx := matchCharIx
		if toOriginal != nil && matchCharIx >= len(lowercasePrefix) {
			origIx = len(lowercasePrefix) + toOriginal[matchCharIx-len(lowercasePrefix)]
		}
		for charIx < origIx {
			var r rune
			if charIx < len(prefix) {
				r = prefix[charIx]
			} else {
				r = candidate[charIx-len(prefix)]
			}
			byteIx += utf8.RuneLen(r)
			charIx++
		}
		m.matchPositions[i] = byteIx
	}
	return score
}

// recursiveScoreMatch computes the best achievable score for matching the
// query from queryIx onward against the search space from searchIx onward,
// recording the position that produced it. curScore is the running upper
// bound on the final score along this branch, used for minScore pruning.
func (m *Matcher) recursiveScoreMatch(
	candidate, lowercaseCandidate, prefix, lowercasePrefix []rune,
	toOriginal []int,
	queryIx, searchIx int,
	curScore float64,
) float64 {
	if queryIx == len(m.query) {
		return 1
	}

	searchLen := len(lowercasePrefix) + len(lowercaseCandidate)
	if memoized := m.scoreMatrix[queryIx*searchLen+searchIx]; memoized >= 0 {
		return memoized
	}

	score := 0.0
	bestPosition := 0

	queryChar := m.lowercaseQuery[queryIx]
	limit := m.lastPositions[queryIx]

	lastSlash := 0
	for j := searchIx; j <= limit; j++ {
		var searchChar rune
		if j < len(lowercasePrefix) {
			searchChar = lowercasePrefix[j]
		} else {
			searchChar = lowercaseCandidate[j-len(lowercasePrefix)]
		}

		// jRegular addresses the original (pre-folding) character space,
		// which diverges from j only past a length-expanding lowercase.
		jRegular := j
		if toOriginal != nil && j >= len(lowercasePrefix) {
			jRegular = len(lowercasePrefix) + toOriginal[j-len(lowercasePrefix)]
		}

		isPathSep := searchChar == '/'
		if queryIx == 0 && isPathSep {
			lastSlash = jRegular
		}

		if searchChar != queryChar && !(isPathSep && (queryChar == '_' || queryChar == '\\')) {
			continue
		}

		var curr rune
		if jRegular < len(prefix) {
			curr = prefix[jRegular]
		} else {
			curr = candidate[jRegular-len(prefix)]
		}

		charScore := 1.0
		if j > searchIx {
			var last rune
			if jRegular-1 < len(prefix) {
				last = prefix[jRegular-1]
			} else {
				last = candidate[jRegular-1-len(prefix)]
			}

			switch {
			case last == '/':
				charScore = 0.9
			case last == '-' || last == '_' || last == ' ' || unicode.IsDigit(last):
				charScore = 0.8
			case unicode.IsLower(last) && unicode.IsUpper(curr):
				charScore = 0.8
			case last == '.':
				charScore = 0.7
			case queryIx == 0:
				charScore = baseDistancePenalty
			default:
				charScore = baseDistancePenalty - float64(j-searchIx-1)*additionalDistancePenalty
				if charScore < minDistancePenalty {
					charScore = minDistancePenalty
				}
			}
		}

		// A case mismatch is heavily penalized so that an exact-case match
		// of the same characters always outranks a case-insensitive one.
		if (m.smartCase || curr == '/') && m.query[queryIx] != curr {
			charScore *= 0.001
		}

		multiplier := charScore
		// Scale the first matched character by how deep into the final path
		// segment it lands.
		if queryIx == 0 {
			multiplier /= float64(len(prefix) + len(candidate) - lastSlash)
		}

		nextScore := 1.0
		if m.minScore > 0 {
			nextScore = curScore * multiplier
			if nextScore < m.minScore {
				// Scores only decrease down a branch; this one cannot reach
				// the cutoff. Keep the memo cell distinguishable from
				// "uncomputed".
				if score == 0 {
					score = 1e-18
				}
				continue
			}
		}

		newScore := multiplier * m.recursiveScoreMatch(
			candidate, lowercaseCandidate, prefix, lowercasePrefix,
			toOriginal, queryIx+1, j+1, nextScore,
		)

		if newScore > score {
			score = newScore
			bestPosition = j
			// No other position at this level can beat a perfect downstream
			// score.
			if newScore == 1 {
				break
			}
		}
	}

	m.bestPositionMatrix[queryIx*searchLen+searchIx] = bestPosition
	m.scoreMatrix[queryIx*searchLen+searchIx] = score
	return score
}

func toLowerRunes(rs []rune) []rune {
	lower := make([]rune, len(rs))
	for i, r := range rs {
		lower[i] = unicode.ToLower(r)
	}
	return lower
}
