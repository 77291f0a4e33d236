package stats

import (
	"fmt"
	"testing"
	"time"
)

func TestRecordSearch(t *testing.T) {
	c := NewCollector()

	c.RecordSearch("main", 10, 4*time.Millisecond)
	c.RecordSearch("main", 8, 2*time.Millisecond)
	c.RecordSearch("server", 3, 6*time.Millisecond)
	c.RecordSearch("", 0, time.Millisecond) // empty queries counted but not ranked

	data := c.Data()
	if data.TotalSearches != 4 {
		t.Errorf("Expected 4 searches, got %d", data.TotalSearches)
	}
	if data.TotalPathsServed != 21 {
		t.Errorf("Expected 21 paths served, got %d", data.TotalPathsServed)
	}
	if data.AvgLatencyMs <= 0 {
		t.Errorf("Expected positive average latency, got %v", data.AvgLatencyMs)
	}

	if len(data.TopQueries) != 2 {
		t.Fatalf("Expected 2 ranked queries, got %d", len(data.TopQueries))
	}
	if data.TopQueries[0].Query != "main" || data.TopQueries[0].Count != 2 {
		t.Errorf("Expected 'main' with count 2 first, got %+v", data.TopQueries[0])
	}
}

func TestTopQueriesCapped(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 20; i++ {
		c.RecordSearch(fmt.Sprintf("query-%d", i), 1, time.Millisecond)
	}

	data := c.Data()
	if len(data.TopQueries) != topQueriesToReport {
		t.Errorf("Expected top queries capped at %d, got %d", topQueriesToReport, len(data.TopQueries))
	}
}

func TestEmptyCollector(t *testing.T) {
	data := NewCollector().Data()
	if data.TotalSearches != 0 || data.AvgLatencyMs != 0 || len(data.TopQueries) != 0 {
		t.Errorf("Expected zero-valued snapshot, got %+v", data)
	}
}
