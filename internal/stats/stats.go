// Package stats aggregates usage numbers for the running engine: search
// counts, latency, and frequent queries.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/quickfind/go-fuzzy-engine/services"
)

const topQueriesToReport = 5

// Collector accumulates search events in memory. It is safe for concurrent
// use.
type Collector struct {
	mu           sync.RWMutex
	searches     int64
	pathsServed  int64
	totalLatency time.Duration
	queryCounts  map[string]int64
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{queryCounts: make(map[string]int64)}
}

// RecordSearch records one completed search
func (c *Collector) RecordSearch(query string, hits int, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searches++
	c.pathsServed += int64(hits)
	c.totalLatency += took
	if query != "" {
		c.queryCounts[query]++
	}
}

// Data returns a point-in-time snapshot. Worktree and path counts are filled
// in by the caller, which owns that state.
func (c *Collector) Data() services.StatsData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var avgMs float64
	if c.searches > 0 {
		avgMs = float64(c.totalLatency.Milliseconds()) / float64(c.searches)
	}

	return services.StatsData{
		TotalSearches:    c.searches,
		TotalPathsServed: c.pathsServed,
		AvgLatencyMs:     avgMs,
		TopQueries:       c.topQueriesLocked(),
	}
}

// topQueriesLocked returns the most frequent queries, count descending.
// Callers must hold at least the read lock.
func (c *Collector) topQueriesLocked() []services.QueryFrequency {
	queries := make([]services.QueryFrequency, 0, len(c.queryCounts))
	for q, n := range c.queryCounts {
		queries = append(queries, services.QueryFrequency{Query: q, Count: n})
	}

	sort.Slice(queries, func(i, j int) bool {
		if queries[i].Count != queries[j].Count {
			return queries[i].Count > queries[j].Count
		}
		return queries[i].Query < queries[j].Query
	})

	if len(queries) > topQueriesToReport {
		queries = queries[:topQueriesToReport]
	}
	return queries
}
