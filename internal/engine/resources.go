package engine

import (
	"regexp"
	"strings"

	"github.com/loomwork/loom/pkg/models"
)

// ResourceDetector extracts the resource names a task is expected to
// modify. The engine applies it to the task description, not the worker
// output. Implementations can later be backed by structured tool-call
// metadata without touching the update policy.
type ResourceDetector interface {
	Detect(taskDescription string) []string
}

// resourcePatterns are tried in priority order; the first pattern that
// yields any match wins and the rest are skipped. Reordering these
// changes observable side effects.
var resourcePatterns = []*regexp.Regexp{
	// Quoted filename: "report.csv" or 'notes.txt'
	regexp.MustCompile(`["']([\w./-]+\.[A-Za-z0-9]{1,8})["']`),
	// "named X"
	regexp.MustCompile(`\bnamed\s+([\w./-]+)`),
	// "file X"
	regexp.MustCompile(`\bfile\s+([\w./-]+\.[A-Za-z0-9]{1,8})`),
	// Bare name with extension
	regexp.MustCompile(`\b([\w-]+\.[A-Za-z0-9]{1,8})\b`),
}

// PatternDetector is the default heuristic detector: an ordered list of
// text patterns applied to the task description.
type PatternDetector struct{}

// NewPatternDetector returns the default pattern-based resource detector.
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{}
}

// Detect returns the deduplicated resource names matched by the first
// pattern with any hit, preserving match order. Returns nil when no
// pattern matches.
func (d *PatternDetector) Detect(taskDescription string) []string {
	for _, re := range resourcePatterns {
		matches := re.FindAllStringSubmatch(taskDescription, -1)
		if len(matches) == 0 {
			continue
		}
		var out []string
		seen := make(map[string]bool)
		for _, m := range matches {
			name := strings.TrimRight(m[1], ".")
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// modifyingTools are the capability names that can change files or other
// external resources. A node without one of these never triggers an
// environment update.
var modifyingTools = map[string]bool{
	"FileEditor":         true,
	"ReportBuilderTools": true,
}

// failureMarkers, when present in worker output, suppress the
// environment update for an action node.
var failureMarkers = []string{
	"error:",
	"failed to",
	"unable to",
	"could not",
}

// shouldRecordEnvChange decides whether a successful worker call on the
// given node should update the shared environment state.
func shouldRecordEnvChange(node *models.TaskNode, output string) bool {
	if !node.IsAction() {
		return false
	}

	hasModifier := false
	for _, t := range node.Tools() {
		if modifyingTools[t] {
			hasModifier = true
			break
		}
	}
	if !hasModifier {
		return false
	}

	lower := strings.ToLower(output)
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
