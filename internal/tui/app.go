// Package tui provides the terminal user interface for watching a loom
// run: one row per task, live round and environment counters, and a
// final summary.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomwork/loom/internal/engine"
	"github.com/loomwork/loom/pkg/models"
)

// Task display states.
const (
	statePending   = "pending"
	stateRunning   = "running"
	stateRetrying  = "retrying"
	stateCompleted = "completed"
	stateFailed    = "failed"
)

// EventMsg wraps one engine event for the update loop.
type EventMsg struct {
	Event engine.Event
}

// RunDoneMsg signals that the engine's event stream has closed.
type RunDoneMsg struct{}

// taskRow is the display state of one node.
type taskRow struct {
	id       string
	profile  string
	state    string
	attempt  int
	duration time.Duration
}

// App is the bubbletea model for a live run view.
type App struct {
	events  <-chan engine.Event
	rows    map[string]*taskRow
	order   []string
	spinner spinner.Model

	round      int
	envVersion int
	done       bool
	quitting   bool
	width      int
}

// New creates a run view for the given nodes, consuming events until
// the channel closes.
func New(nodes []*models.TaskNode, events <-chan engine.Event) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))

	rows := make(map[string]*taskRow, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		rows[n.ID] = &taskRow{id: n.ID, profile: n.ProfileLabel(), state: statePending}
		order = append(order, n.ID)
	}
	sort.Strings(order)

	return &App{
		events:     events,
		rows:       rows,
		order:      order,
		spinner:    sp,
		envVersion: 1,
		width:      80,
	}
}

// Round returns the last scheduling round the app observed.
func (a *App) Round() int {
	return a.round
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return RunDoneMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.waitForEvent())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.apply(msg.Event)
		return a, a.waitForEvent()

	case RunDoneMsg:
		a.done = true
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) apply(ev engine.Event) {
	switch ev.Type {
	case engine.EventRoundStarted:
		a.round = ev.Round

	case engine.EventTaskStarted:
		if row := a.rows[ev.NodeID]; row != nil {
			row.state = stateRunning
			row.attempt = 1
		}

	case engine.EventTaskRetry:
		if row := a.rows[ev.NodeID]; row != nil {
			row.state = stateRetrying
			row.attempt = ev.Attempt + 1
		}

	case engine.EventTaskCompleted:
		if row := a.rows[ev.NodeID]; row != nil {
			row.state = stateCompleted
			row.duration = ev.Duration
		}

	case engine.EventTaskFailed:
		if row := a.rows[ev.NodeID]; row != nil {
			row.state = stateFailed
			row.duration = ev.Duration
		}

	case engine.EventEnvChanged:
		a.envVersion++
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	retryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))
)

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting && !a.done {
		return "detaching from run (engine keeps going)\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("loom"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  round %d · env v%d", a.round, a.envVersion)))
	b.WriteString("\n\n")

	for _, id := range a.order {
		row := a.rows[id]
		b.WriteString("  ")
		b.WriteString(a.renderRow(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.done {
		b.WriteString(dimStyle.Render("run complete"))
	} else {
		b.WriteString(dimStyle.Render("q to detach"))
	}
	b.WriteString("\n")

	return b.String()
}

func (a *App) renderRow(row *taskRow) string {
	var marker, note string
	switch row.state {
	case statePending:
		marker = dimStyle.Render("·")
	case stateRunning:
		marker = a.spinner.View()
	case stateRetrying:
		marker = retryStyle.Render("↻")
		note = retryStyle.Render(fmt.Sprintf(" attempt %d", row.attempt))
	case stateCompleted:
		marker = completedStyle.Render("✓")
		note = dimStyle.Render(" " + row.duration.Round(time.Millisecond).String())
	case stateFailed:
		marker = failedStyle.Render("✗")
		note = failedStyle.Render(" failed")
	}

	return fmt.Sprintf("%s %-24s %s%s", marker, row.id, dimStyle.Render(row.profile), note)
}
