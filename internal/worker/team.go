package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/loomwork/loom/internal/api"
)

// Collaboration patterns a team node can declare.
const (
	// PatternCoordinate runs every member in parallel and synthesizes
	// their contributions. The default.
	PatternCoordinate = "coordinate"
	// PatternRoute picks the single member whose role best matches the
	// prompt and runs only them.
	PatternRoute = "route"
	// PatternCollaborate runs members sequentially, each seeing the
	// contributions before theirs, then synthesizes.
	PatternCollaborate = "collaborate"
)

// teamMember pairs a member's identity with their live session.
type teamMember struct {
	role        string
	description string
	session     *api.Session
}

// TeamWorker runs a node's prompt through a group of member sessions
// under one collaboration pattern.
type TeamWorker struct {
	members     []teamMember
	coordinator *api.Session
	pattern     string
}

// Run executes the team's collaboration pattern for one prompt.
func (w *TeamWorker) Run(ctx context.Context, prompt string) (string, error) {
	switch w.pattern {
	case PatternRoute:
		return w.runRoute(ctx, prompt)
	case PatternCollaborate:
		return w.runCollaborate(ctx, prompt)
	default:
		return w.runCoordinate(ctx, prompt)
	}
}

// runCoordinate fans the prompt out to every member in parallel and
// has the coordinator synthesize. A member error fails the whole
// attempt; the retry loop above handles it.
func (w *TeamWorker) runCoordinate(ctx context.Context, prompt string) (string, error) {
	contributions := make([]string, len(w.members))
	errs := make([]error, len(w.members))

	var wg sync.WaitGroup
	for i, m := range w.members {
		wg.Add(1)
		go func(i int, m teamMember) {
			defer wg.Done()
			out, err := m.session.Run(ctx, prompt)
			if err != nil {
				errs[i] = fmt.Errorf("member %s: %w", m.role, err)
				return
			}
			contributions[i] = out
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", err
		}
	}

	return w.synthesize(ctx, prompt, contributions)
}

// runRoute selects the best-matching member by keyword overlap between
// the prompt and the member's role and description.
func (w *TeamWorker) runRoute(ctx context.Context, prompt string) (string, error) {
	best := routeIndex(w.members, prompt)

	out, err := w.members[best].session.Run(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("member %s: %w", w.members[best].role, err)
	}
	return out, nil
}

// routeIndex scores each member by how many of their role/description
// words (longer than three characters) appear in the prompt. Ties go to
// the earlier member.
func routeIndex(members []teamMember, prompt string) int {
	best := 0
	bestScore := -1
	lower := strings.ToLower(prompt)

	for i, m := range members {
		score := 0
		for _, word := range strings.Fields(strings.ToLower(m.role + " " + m.description)) {
			if len(word) > 3 && strings.Contains(lower, word) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// runCollaborate runs members in declaration order, each seeing the
// contributions recorded before theirs.
func (w *TeamWorker) runCollaborate(ctx context.Context, prompt string) (string, error) {
	var contributions []string

	for _, m := range w.members {
		memberPrompt := prompt
		if len(contributions) > 0 {
			memberPrompt = prompt + "\n\nContributions from teammates so far:\n\n" +
				strings.Join(contributions, "\n\n")
		}

		out, err := m.session.Run(ctx, memberPrompt)
		if err != nil {
			return "", fmt.Errorf("member %s: %w", m.role, err)
		}
		contributions = append(contributions, fmt.Sprintf("[%s]\n%s", m.role, out))
	}

	return w.synthesize(ctx, prompt, contributions)
}

func (w *TeamWorker) synthesize(ctx context.Context, prompt string, contributions []string) (string, error) {
	var b strings.Builder
	b.WriteString("Original task:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nTeam contributions:\n\n")
	for i, c := range contributions {
		if !strings.HasPrefix(c, "[") {
			c = fmt.Sprintf("[%s]\n%s", w.members[i].role, c)
		}
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("Produce the team's final answer.")

	out, err := w.coordinator.Run(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("coordinator: %w", err)
	}
	return out, nil
}
