package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/quickfind/go-fuzzy-engine/fuzzy"
	"github.com/quickfind/go-fuzzy-engine/model"
)

// PathStore holds the indexed entries of a single worktree together with the
// precomputed match candidates the fuzzy matcher consumes. Candidates carry
// a character bag per path so a search can reject most candidates without
// scoring them.
type PathStore struct {
	Mu            sync.RWMutex
	Entries       []model.PathEntry
	MaxRecents    int
	recents       []string
	candidates    []fuzzy.PathMatchCandidate
	dirCandidates []fuzzy.PathMatchCandidate
	entryByPath   map[string]int
}

// NewPathStore creates an empty store. maxRecents bounds the recently opened
// list; zero disables it.
func NewPathStore(maxRecents int) *PathStore {
	return &PathStore{MaxRecents: maxRecents}
}

// Replace swaps in a freshly scanned set of entries. Entries are expected to
// be sorted by path; the scanner guarantees this.
func (ps *PathStore) Replace(entries []model.PathEntry) {
	ps.Mu.Lock()
	defer ps.Mu.Unlock()

	ps.Entries = entries
	ps.rebuildLocked()

	// Drop recents pointing at paths that no longer exist.
	kept := ps.recents[:0]
	for _, p := range ps.recents {
		if _, ok := ps.entryByPath[p]; ok {
			kept = append(kept, p)
		}
	}
	ps.recents = kept
}

// rebuildLocked recomputes the candidate slices and the path lookup map.
// Callers must hold the write lock.
func (ps *PathStore) rebuildLocked() {
	ps.candidates = make([]fuzzy.PathMatchCandidate, len(ps.Entries))
	ps.dirCandidates = ps.dirCandidates[:0]
	ps.entryByPath = make(map[string]int, len(ps.Entries))
	for i, entry := range ps.Entries {
		ps.candidates[i] = fuzzy.PathMatchCandidate{
			Path:  entry.Path,
			Chars: fuzzy.MakeCharBag(entry.Path),
		}
		if entry.IsDir {
			ps.dirCandidates = append(ps.dirCandidates, ps.candidates[i])
		}
		ps.entryByPath[entry.Path] = i
	}
}

// Len returns the number of indexed entries.
func (ps *PathStore) Len() int {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()
	return len(ps.Entries)
}

// Counts reports how many entries, directories, and recents the store holds.
func (ps *PathStore) Counts() (paths, dirs, recents int) {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()
	for _, entry := range ps.Entries {
		if entry.IsDir {
			dirs++
		}
	}
	return len(ps.Entries), dirs, len(ps.recents)
}

// Lookup returns the entry for a relative path, if indexed.
func (ps *PathStore) Lookup(path string) (model.PathEntry, bool) {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()
	if i, ok := ps.entryByPath[path]; ok {
		return ps.Entries[i], true
	}
	return model.PathEntry{}, false
}

// RecordOpened moves a path to the front of the recents list. The path must
// be indexed; unknown paths are rejected so stale client state cannot pollute
// the list.
func (ps *PathStore) RecordOpened(path string) bool {
	ps.Mu.Lock()
	defer ps.Mu.Unlock()

	if ps.MaxRecents <= 0 {
		return false
	}
	if _, ok := ps.entryByPath[path]; !ok {
		return false
	}

	for i, p := range ps.recents {
		if p == path {
			copy(ps.recents[1:i+1], ps.recents[:i])
			ps.recents[0] = path
			return true
		}
	}

	ps.recents = append(ps.recents, "")
	copy(ps.recents[1:], ps.recents)
	ps.recents[0] = path
	if len(ps.recents) > ps.MaxRecents {
		ps.recents = ps.recents[:ps.MaxRecents]
	}
	return true
}

// Recents returns the recently opened paths as match candidates, most recent
// first.
func (ps *PathStore) Recents() []fuzzy.PathMatchCandidate {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()

	out := make([]fuzzy.PathMatchCandidate, 0, len(ps.recents))
	for _, p := range ps.recents {
		if i, ok := ps.entryByPath[p]; ok {
			out = append(out, ps.candidates[i])
		}
	}
	return out
}

// Snapshot returns a candidate set over the current entries. The returned set
// references the store's candidate slice directly; Replace builds a new slice
// rather than mutating the old one, so a snapshot stays consistent for the
// duration of a search even if a rescan lands mid-way.
func (ps *PathStore) Snapshot(treeID int, prefix string, dirsOnly bool) fuzzy.PathMatchCandidateSet {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()

	candidates := ps.candidates
	if dirsOnly {
		candidates = ps.dirCandidates
	}
	return &pathStoreSnapshot{id: treeID, prefix: prefix, candidates: candidates}
}

type pathStoreSnapshot struct {
	id         int
	prefix     string
	candidates []fuzzy.PathMatchCandidate
}

func (s *pathStoreSnapshot) ID() int        { return s.id }
func (s *pathStoreSnapshot) Len() int       { return len(s.candidates) }
func (s *pathStoreSnapshot) Prefix() string { return s.prefix }
func (s *pathStoreSnapshot) Candidates(start int) []fuzzy.PathMatchCandidate {
	return s.candidates[start:]
}

// gobPathStoreData is a helper struct for Gob encoding/decoding PathStore
// data. It excludes the mutex and the derived candidate slices, which are
// rebuilt on decode.
type gobPathStoreData struct {
	Entries    []model.PathEntry
	MaxRecents int
	Recents    []string
}

// GobEncode implements the gob.GobEncoder interface for PathStore.
func (ps *PathStore) GobEncode() ([]byte, error) {
	ps.Mu.RLock()
	defer ps.Mu.RUnlock()

	dataToEncode := gobPathStoreData{
		Entries:    ps.Entries,
		MaxRecents: ps.MaxRecents,
		Recents:    ps.recents,
	}

	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(dataToEncode); err != nil {
		return nil, fmt.Errorf("failed to gob encode path store data: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for PathStore.
func (ps *PathStore) GobDecode(data []byte) error {
	decodedData := gobPathStoreData{}

	buf := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buf)
	if err := decoder.Decode(&decodedData); err != nil {
		return fmt.Errorf("failed to gob decode path store data: %w", err)
	}

	ps.Mu.Lock()
	defer ps.Mu.Unlock()

	ps.Entries = decodedData.Entries
	ps.MaxRecents = decodedData.MaxRecents
	ps.recents = decodedData.Recents
	ps.rebuildLocked()

	return nil
}
