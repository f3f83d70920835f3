package metrics

import (
	"testing"
	"time"
)

func TestLatencyTrackerStats(t *testing.T) {
	lt := NewLatencyTracker(1000)
	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Microsecond)
	}

	stats := lt.Stats()
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.Min != 1*time.Microsecond {
		t.Errorf("Min = %v, want 1µs", stats.Min)
	}
	if stats.Max != 100*time.Microsecond {
		t.Errorf("Max = %v, want 100µs", stats.Max)
	}
	if stats.Avg != 50*time.Microsecond {
		t.Errorf("Avg = %v, want 50µs", stats.Avg)
	}
	if stats.P50 != 50*time.Microsecond {
		t.Errorf("P50 = %v, want 50µs", stats.P50)
	}
	if stats.P99 != 99*time.Microsecond {
		t.Errorf("P99 = %v, want 99µs", stats.P99)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	lt := NewLatencyTracker(10)
	if stats := lt.Stats(); stats.Count != 0 || stats.Max != 0 {
		t.Errorf("empty tracker stats = %+v, want zero", stats)
	}
}

func TestLatencyTrackerWindowEviction(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 1; i <= 20; i++ {
		lt.Record(time.Duration(i) * time.Microsecond)
	}

	stats := lt.Stats()
	if stats.Count != 10 {
		t.Fatalf("Count = %d, want 10", stats.Count)
	}
	// Oldest samples are evicted one per overflow, leaving 11..20.
	if stats.Min != 11*time.Microsecond {
		t.Errorf("Min = %v, want 11µs", stats.Min)
	}
	if stats.Max != 20*time.Microsecond {
		t.Errorf("Max = %v, want 20µs", stats.Max)
	}
}

func TestStageRegistry(t *testing.T) {
	r := NewStageRegistry(100)
	r.Record("extract", 10*time.Microsecond)
	r.Record("extract", 20*time.Microsecond)
	r.Record("extract", 30*time.Microsecond)
	r.Record("consolidate", 5*time.Microsecond)

	if stats := r.Stats("extract"); stats.Count != 3 || stats.Avg != 20*time.Microsecond {
		t.Errorf("extract stats = %+v, want count 3 avg 20µs", stats)
	}
	if stats := r.Stats("missing"); stats.Count != 0 {
		t.Errorf("missing stage stats = %+v, want zero", stats)
	}

	all := r.AllStats()
	if len(all) != 2 {
		t.Errorf("AllStats len = %d, want 2", len(all))
	}
	if all["consolidate"].Count != 1 {
		t.Errorf("consolidate count = %d, want 1", all["consolidate"].Count)
	}

	r.Reset()
	if stats := r.Stats("extract"); stats.Count != 0 {
		t.Errorf("after reset count = %d, want 0", stats.Count)
	}
}
