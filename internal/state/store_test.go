package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/loomwork/loom/pkg/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := setupTestStore(t)

	if err := s.StartRun("run-1", "analyze TSLA", "plans/p.json"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	r, err := s.Run("run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Query != "analyze TSLA" || r.PlanPath != "plans/p.json" {
		t.Errorf("unexpected record: %+v", r)
	}
	if r.FinishedAt != nil || r.Succeeded != nil {
		t.Error("unfinished run should have nil terminal fields")
	}

	if err := s.FinishRun("run-1", true, 3, 1000, 500, 0.42); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	r, err = s.Run("run-1")
	if err != nil {
		t.Fatalf("Run after finish: %v", err)
	}
	if r.FinishedAt == nil || r.Succeeded == nil || !*r.Succeeded {
		t.Errorf("terminal fields not recorded: %+v", r)
	}
	if r.Rounds != 3 || r.TokensIn != 1000 || r.TokensOut != 500 || r.CostUSD != 0.42 {
		t.Errorf("accounting not recorded: %+v", r)
	}
}

func TestSaveAndLoadResults(t *testing.T) {
	s := setupTestStore(t)
	if err := s.StartRun("run-1", "q", ""); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	results := map[string]*models.ExecutionResult{
		"a": {NodeID: "a", Success: true, Output: "done", Profile: "SEARCH:QUICK", Attempts: 1, Duration: 1500 * time.Millisecond},
		"b": {NodeID: "b", Success: false, Error: "boom", Attempts: 3, Duration: 4 * time.Second},
	}
	if err := s.SaveResults("run-1", results); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}

	loaded, err := s.Results("run-1")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 results, got %d", len(loaded))
	}
	if a := loaded["a"]; !a.Success || a.Output != "done" || a.Duration != 1500*time.Millisecond {
		t.Errorf("result a mismatch: %+v", a)
	}
	if b := loaded["b"]; b.Success || b.Error != "boom" || b.Attempts != 3 {
		t.Errorf("result b mismatch: %+v", b)
	}
}

func TestRecentRunsOrder(t *testing.T) {
	s := setupTestStore(t)

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := s.StartRun(id, "q "+id, ""); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "r3" || runs[1].ID != "r2" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s.Close()

	// Reopening applies no duplicate migrations.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s.Close()

	if err := s.StartRun("r", "", ""); err != nil {
		t.Errorf("store unusable after reopen: %v", err)
	}
}
