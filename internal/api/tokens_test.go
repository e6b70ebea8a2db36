package api

import (
	"sync"
	"testing"
)

func TestTokenTrackerAccumulates(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 50)
	tr.Add(200, 25)

	in, out := tr.Total()
	if in != 300 || out != 75 {
		t.Errorf("Total = (%d, %d), want (300, 75)", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", tr.Calls())
	}
}

func TestTokenTrackerReset(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 50)
	tr.Reset()

	in, out := tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Errorf("after Reset: in=%d out=%d calls=%d", in, out, tr.Calls())
	}
}

func TestTokenTrackerCost(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(1_000_000, 1_000_000)

	if cost := tr.Cost(); cost != 18.0 {
		t.Errorf("Cost = %v, want 18.0", cost)
	}
}

func TestTokenTrackerConcurrent(t *testing.T) {
	tr := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Add(10, 5)
		}()
	}
	wg.Wait()

	in, out := tr.Total()
	if in != 100 || out != 50 || tr.Calls() != 10 {
		t.Errorf("concurrent adds: in=%d out=%d calls=%d", in, out, tr.Calls())
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	got := translateModelForBedrock("claude-sonnet-4-20250514")
	if got != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("unexpected translation: %s", got)
	}

	// Already-translated and unknown names pass through.
	already := translateModelForBedrock("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if already != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("double translation: %s", already)
	}
	custom := translateModelForBedrock("my-custom-model")
	if custom != "my-custom-model" {
		t.Errorf("custom model changed: %s", custom)
	}
}
