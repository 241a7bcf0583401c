package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

func TestObserveReport(t *testing.T) {
	m := New()
	started := time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	m.ObserveReport(database.RunReport{
		Kind:      "speeches",
		Status:    "ok",
		Fetched:   120,
		Malformed: 2,
		Linked:    100,
		StartedAt: database.Timestamp(started),
		Counts: []database.EntityCounts{
			{Entity: "speeches", Inserted: 110, Unchanged: 8},
			{Entity: "legislators", Inserted: 3, Updated: 4},
		},
	}, finished)

	if got := testutil.ToFloat64(m.Rows.WithLabelValues("speeches", "inserted")); got != 110 {
		t.Errorf("expected 110 inserted speeches, got %v", got)
	}
	if got := testutil.ToFloat64(m.Rows.WithLabelValues("legislators", "updated")); got != 4 {
		t.Errorf("expected 4 updated legislators, got %v", got)
	}
	if got := testutil.ToFloat64(m.Fetched.WithLabelValues("speeches")); got != 120 {
		t.Errorf("expected 120 fetched, got %v", got)
	}
	if got := testutil.ToFloat64(m.Linked); got != 100 {
		t.Errorf("expected 100 linked, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunDuration.WithLabelValues("speeches")); got != 90 {
		t.Errorf("expected 90s duration, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != float64(finished.Unix()) {
		t.Errorf("expected last success %d, got %v", finished.Unix(), got)
	}
}

func TestFailedRunLeavesLastSuccess(t *testing.T) {
	m := New()
	m.ObserveReport(database.RunReport{Kind: "run", Status: "failed"}, time.Now())

	if got := testutil.ToFloat64(m.LastSuccess); got != 0 {
		t.Errorf("expected no success timestamp, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastRun.WithLabelValues("run", "failed")); got == 0 {
		t.Error("expected last run timestamp for failed run")
	}
}

func TestZeroCountsAreNotSeries(t *testing.T) {
	m := New()
	m.ObserveCounts([]database.EntityCounts{{Entity: "votes", Inserted: 2}})
	if n := testutil.CollectAndCount(m.Rows); n != 1 {
		t.Errorf("expected 1 series, got %d", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Linked.Add(5)

	path := filepath.Join(t.TempDir(), "kokkaisync.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	if !strings.Contains(string(data), "kokkaisync_speeches_linked_total 5") {
		t.Errorf("expected linked counter in textfile, got:\n%s", data)
	}

	if err := m.WriteTextfile(""); err != nil {
		t.Errorf("expected empty path to be a no-op, got %v", err)
	}
}
