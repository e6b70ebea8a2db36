package worker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newTestRunner(t *testing.T) *LocalRunner {
	t.Helper()
	r, err := NewLocalRunner(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalRunner: %v", err)
	}
	return r
}

func exec(t *testing.T, r *LocalRunner, tool string, args map[string]interface{}) (string, bool) {
	t.Helper()
	input, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return r.Execute(context.Background(), tool, input)
}

func TestRunnerWriteThenRead(t *testing.T) {
	r := newTestRunner(t)

	msg, isErr := exec(t, r, "write_file", map[string]interface{}{
		"file_path": "notes/summary.txt",
		"content":   "quarterly numbers",
	})
	if isErr {
		t.Fatalf("write_file failed: %s", msg)
	}

	content, isErr := exec(t, r, "read_file", map[string]interface{}{
		"file_path": "notes/summary.txt",
	})
	if isErr {
		t.Fatalf("read_file failed: %s", content)
	}
	if content != "quarterly numbers" {
		t.Errorf("read back %q", content)
	}
}

func TestRunnerAppend(t *testing.T) {
	r := newTestRunner(t)

	exec(t, r, "write_file", map[string]interface{}{"file_path": "log.txt", "content": "one\n"})
	exec(t, r, "append_to_file", map[string]interface{}{"file_path": "log.txt", "content": "two\n"})

	content, isErr := exec(t, r, "read_file", map[string]interface{}{"file_path": "log.txt"})
	if isErr || content != "one\ntwo\n" {
		t.Errorf("append result: %q (err=%v)", content, isErr)
	}
}

func TestRunnerListFiles(t *testing.T) {
	r := newTestRunner(t)
	exec(t, r, "write_file", map[string]interface{}{"file_path": "b.txt", "content": "b"})
	exec(t, r, "write_file", map[string]interface{}{"file_path": "a.txt", "content": "a"})

	out, isErr := exec(t, r, "list_files", map[string]interface{}{})
	if isErr {
		t.Fatalf("list_files failed: %s", out)
	}
	if !strings.Contains(out, "- a.txt") || !strings.Contains(out, "- b.txt") {
		t.Errorf("listing missing entries:\n%s", out)
	}
}

func TestRunnerRejectsWorkspaceEscape(t *testing.T) {
	r := newTestRunner(t)

	for _, path := range []string{"../outside.txt", "a/../../outside.txt"} {
		msg, isErr := exec(t, r, "write_file", map[string]interface{}{
			"file_path": path,
			"content":   "x",
		})
		// Cleaned paths that stay inside the workspace are fine; a true
		// escape must error.
		if !isErr && strings.Contains(msg, "..") {
			t.Errorf("path %s accepted: %s", path, msg)
		}
	}

	// A read of a path resolving above the root always fails.
	if content, isErr := exec(t, r, "read_file", map[string]interface{}{"file_path": "../../etc/passwd"}); !isErr {
		t.Errorf("escape read succeeded: %q", content)
	}
}

func TestRunnerBuildReport(t *testing.T) {
	r := newTestRunner(t)

	msg, isErr := exec(t, r, "build_report", map[string]interface{}{
		"file_name": "analysis.md",
		"title":     "Q2 Analysis",
		"content":   "Revenue grew 12%.",
	})
	if isErr {
		t.Fatalf("build_report failed: %s", msg)
	}

	content, isErr := exec(t, r, "read_file", map[string]interface{}{"file_path": "analysis.md"})
	if isErr {
		t.Fatalf("read report: %s", content)
	}
	if !strings.HasPrefix(content, "# Q2 Analysis") {
		t.Errorf("report missing title:\n%s", content)
	}
	if !strings.Contains(content, "Revenue grew 12%.") {
		t.Errorf("report missing body:\n%s", content)
	}
}

func TestRunnerExtractMetrics(t *testing.T) {
	r := newTestRunner(t)

	out, isErr := exec(t, r, "extract_metrics", map[string]interface{}{
		"text": "Revenue was $1,234.56, up 12.5% from 980 units.",
	})
	if isErr {
		t.Fatalf("extract_metrics failed: %s", out)
	}
	if !strings.Contains(out, "$1,234.56") {
		t.Errorf("dollar amount missing:\n%s", out)
	}
	if !strings.Contains(out, "12.5%") {
		t.Errorf("percentage missing:\n%s", out)
	}
	if !strings.Contains(out, "980") {
		t.Errorf("plain value missing:\n%s", out)
	}
}

func TestRunnerUnknownTool(t *testing.T) {
	r := newTestRunner(t)
	msg, isErr := r.Execute(context.Background(), "no_such_tool", nil)
	if !isErr {
		t.Errorf("unknown tool accepted: %s", msg)
	}
}

func TestDailyVolatility(t *testing.T) {
	if v := dailyVolatility([]float64{100, 100, 100}); v != 0 {
		t.Errorf("constant series volatility = %v, want 0", v)
	}
	if v := dailyVolatility([]float64{100, 110, 99}); v <= 0 {
		t.Errorf("varying series volatility = %v, want > 0", v)
	}
}

func TestSummarizePriceHistory(t *testing.T) {
	out, isErr := summarizePriceHistory("aapl", "3mo", chartQuote{
		High:   []float64{102, 111, 105},
		Low:    []float64{98, 104, 99},
		Close:  []float64{100, 110, 104},
		Volume: []float64{1000, 2000, 3000},
	})
	if isErr {
		t.Fatalf("unexpected tool error: %s", out)
	}
	for _, want := range []string{"AAPL", "Period High: 111.00", "Period Low: 98.00", "Average Volume: 2000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummarizePriceHistoryMissingHighLow(t *testing.T) {
	// Some symbols come back with closes only.
	out, isErr := summarizePriceHistory("xyz", "3mo", chartQuote{
		Close: []float64{100, 110, 104},
	})
	if !isErr {
		t.Fatalf("missing high/low series must be a tool error, got: %s", out)
	}
	if !strings.Contains(out, "incomplete price data") {
		t.Errorf("unexpected error message: %s", out)
	}
}

func TestSummarizePriceHistoryMissingVolume(t *testing.T) {
	out, isErr := summarizePriceHistory("xyz", "3mo", chartQuote{
		High:  []float64{102, 111},
		Low:   []float64{98, 104},
		Close: []float64{100, 110},
	})
	if isErr {
		t.Fatalf("missing volume series must not fail the call: %s", out)
	}
	if !strings.Contains(out, "Average Volume: 0") {
		t.Errorf("expected zero average volume:\n%s", out)
	}
}
