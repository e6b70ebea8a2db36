package engine

import (
	"reflect"
	"testing"

	"github.com/loomwork/loom/pkg/models"
)

func TestPatternDetector(t *testing.T) {
	d := NewPatternDetector()

	cases := []struct {
		name string
		desc string
		want []string
	}{
		{
			"quoted filename wins",
			`Write the totals into "report.csv" and mention summary.txt`,
			[]string{"report.csv"},
		},
		{
			"named resource",
			"Create a dataset named quarterly_sales for later use",
			[]string{"quarterly_sales"},
		},
		{
			"file keyword",
			"Update file notes.md with the findings",
			[]string{"notes.md"},
		},
		{
			"bare extension fallback",
			"Append the metrics to metrics.json when done",
			[]string{"metrics.json"},
		},
		{
			"multiple matches deduped in order",
			`Merge "a.csv" into "b.csv" then re-check "a.csv"`,
			[]string{"a.csv", "b.csv"},
		},
		{
			"no resource",
			"Summarize the prior analysis in three bullet points",
			nil,
		},
	}

	for _, tc := range cases {
		if got := d.Detect(tc.desc); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: Detect(%q) = %v, want %v", tc.name, tc.desc, got, tc.want)
		}
	}
}

func actionNode(tools ...string) *models.TaskNode {
	n := testNode("act")
	n.Single.Profile.TaskType = models.TaskTypeAct
	n.Single.Tools = tools
	return n
}

func TestShouldRecordEnvChange(t *testing.T) {
	if !shouldRecordEnvChange(actionNode("FileEditor"), "created the file") {
		t.Error("action node with FileEditor and clean output must record")
	}

	if shouldRecordEnvChange(testNode("think"), "some analysis") {
		t.Error("non-action node must not record")
	}

	if shouldRecordEnvChange(actionNode("WebSearchTools"), "searched the web") {
		t.Error("action node without a modifying tool must not record")
	}

	for _, output := range []string{
		"Error: permission denied",
		"I failed to open the file",
		"unable to write the report",
		"The tool could not locate the directory",
	} {
		if shouldRecordEnvChange(actionNode("FileEditor"), output) {
			t.Errorf("output %q should suppress the update", output)
		}
	}
}
