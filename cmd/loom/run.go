package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loomwork/loom/internal/api"
	"github.com/loomwork/loom/internal/config"
	"github.com/loomwork/loom/internal/engine"
	"github.com/loomwork/loom/internal/graph"
	"github.com/loomwork/loom/internal/plan"
	"github.com/loomwork/loom/internal/state"
	"github.com/loomwork/loom/internal/tui"
	"github.com/loomwork/loom/internal/worker"
	"github.com/loomwork/loom/pkg/models"
)

var (
	runTUI         bool
	runQuery       string
	runMaxParallel int
	runWorkspace   string
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a plan file",
	Long: `Run loads a plan (JSON or YAML), builds and validates the task graph,
and executes it round by round. Results and accounting are recorded in
the project-local run history (.loom/loom.db).`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "watch the run in a live terminal view")
	runCmd.Flags().StringVar(&runQuery, "query", "", "original query to record with the run")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", -1, "bound on concurrent tasks per round (0 = unbounded)")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "directory tool calls operate in")
}

func runRun(cmd *cobra.Command, args []string) error {
	planPath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runMaxParallel >= 0 {
		cfg.Engine.MaxParallel = runMaxParallel
	}
	if runWorkspace != "" {
		cfg.Engine.Workspace = runWorkspace
	}

	p, err := plan.Load(planPath)
	if err != nil {
		return err
	}
	builder := plan.NewBuilder(nil).WithDefaults(plan.Defaults{
		MaxRetries: cfg.Defaults.MaxRetries,
		Validation: cfg.Defaults.Validation,
	})
	g, err := builder.Build(p)
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	client, err := api.NewClient(api.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}

	runner, err := worker.NewLocalRunner(cfg.Engine.Workspace)
	if err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}

	adapter := worker.NewAdapter(worker.AdapterConfig{
		Client: client,
		Models: modelSetFromConfig(cfg),
		Runner: runner,
	})
	judge := worker.NewLLMJudge(client, anthropic.Model(cfg.Models.Judge))

	logger := engine.NewDebugLoggerForDir(cfg.Engine.Workspace)
	defer logger.Close()

	pause, err := engine.NewPauseController(cfg.Engine.SignalDir)
	if err != nil {
		return fmt.Errorf("pause controller: %w", err)
	}
	defer pause.Close()

	eng := engine.New(g, adapter, judge, engine.Options{
		MaxParallel: cfg.Engine.MaxParallel,
		Logger:      logger,
		Pause:       pause,
	})

	store, err := state.OpenProject(".")
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	artifactPath, err := plan.Save(p, filepath.Join(".loom", "runs", eng.RunID()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save plan artifact: %v\n", err)
	}
	if err := store.StartRun(eng.RunID(), runQuery, artifactPath); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var results map[string]*models.ExecutionResult
	var rounds int
	var runErr error
	if runTUI {
		results, rounds, runErr = executeWithTUI(ctx, eng, g)
	} else {
		results, rounds, runErr = executePlain(ctx, eng)
	}
	elapsed := time.Since(start)

	succeeded := runErr == nil && engine.Succeeded(results)
	if err := store.SaveResults(eng.RunID(), results); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save results: %v\n", err)
	}
	in, out := client.Tracker().Total()
	if err := store.FinishRun(eng.RunID(), succeeded, rounds, in, out, client.Tracker().Cost()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not finish run record: %v\n", err)
	}

	printSummary(g, results, elapsed, client.Tracker())

	if runErr != nil {
		return runErr
	}
	if !succeeded {
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		return fmt.Errorf("%d of %d tasks failed", failed, len(results))
	}
	return nil
}

// executePlain runs the engine while streaming events to stdout.
func executePlain(ctx context.Context, eng *engine.Engine) (map[string]*models.ExecutionResult, int, error) {
	done := make(chan int)
	go func() {
		rounds := 0
		for ev := range eng.Events() {
			rounds = printEvent(ev, rounds)
		}
		done <- rounds
	}()

	results, err := eng.Run(ctx)
	rounds := <-done
	return results, rounds, err
}

// executeWithTUI runs the engine behind a live bubbletea view. Detaching
// from the view leaves the engine running; results are still collected.
func executeWithTUI(ctx context.Context, eng *engine.Engine, g *graph.TaskGraph) (map[string]*models.ExecutionResult, int, error) {
	type outcome struct {
		results map[string]*models.ExecutionResult
		err     error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		results, err := eng.Run(ctx)
		outcomeCh <- outcome{results, err}
	}()

	app := tui.New(g.Nodes(), eng.Events())
	if _, err := tea.NewProgram(app).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: display error: %v\n", err)
	}

	o := <-outcomeCh
	return o.results, app.Round(), o.err
}

var (
	roundColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	failColor  = color.New(color.FgRed)
	retryColor = color.New(color.FgYellow)
	dimColor   = color.New(color.Faint)
)

// printEvent renders one engine event and returns the updated round count.
func printEvent(ev engine.Event, rounds int) int {
	switch ev.Type {
	case engine.EventRoundStarted:
		rounds = ev.Round
		roundColor.Printf("round %d", ev.Round)
		fmt.Printf("  %s\n", ev.Message)
	case engine.EventTaskStarted:
		dimColor.Printf("  · %s started\n", ev.NodeID)
	case engine.EventTaskRetry:
		retryColor.Printf("  ↻ %s retrying (attempt %d)\n", ev.NodeID, ev.Attempt+1)
	case engine.EventTaskCompleted:
		okColor.Printf("  ✓ %s", ev.NodeID)
		dimColor.Printf(" %s\n", ev.Duration.Round(time.Millisecond))
	case engine.EventTaskFailed:
		failColor.Printf("  ✗ %s: %v\n", ev.NodeID, ev.Err)
	case engine.EventEnvChanged:
		dimColor.Printf("  ~ environment updated by %s\n", ev.NodeID)
	}
	return rounds
}

// printSummary prints per-task outcomes, final-node outputs, and
// accounting totals.
func printSummary(g *graph.TaskGraph, results map[string]*models.ExecutionResult, elapsed time.Duration, tracker *api.TokenTracker) {
	fmt.Println()
	roundColor.Println("run summary")

	for _, node := range g.Nodes() {
		r := results[node.ID]
		if r == nil {
			dimColor.Printf("  · %-24s not executed\n", node.ID)
			continue
		}
		if r.Success {
			okColor.Printf("  ✓ %-24s", r.NodeID)
		} else {
			failColor.Printf("  ✗ %-24s", r.NodeID)
		}
		dimColor.Printf(" %s  %d attempt(s)  %s\n", r.Profile, r.Attempts, r.Duration.Round(time.Millisecond))
	}

	finals := g.FinalNodes()
	finalIDs := make([]string, 0, len(finals))
	for id := range finals {
		finalIDs = append(finalIDs, id)
	}
	sort.Strings(finalIDs)

	for _, id := range finalIDs {
		r := results[id]
		if r == nil || !r.Success {
			continue
		}
		fmt.Println()
		roundColor.Printf("── %s ──\n", id)
		fmt.Println(r.Output)
	}

	in, out := tracker.Total()
	fmt.Println()
	dimColor.Printf("%d API calls · %d in / %d out tokens · $%.4f · %s\n",
		tracker.Calls(), in, out, tracker.Cost(), elapsed.Round(time.Millisecond))
}

// modelSetFromConfig maps configured model names onto complexity tiers.
func modelSetFromConfig(cfg *config.Config) worker.ModelSet {
	set := worker.DefaultModelSet()
	if cfg.Models.Quick != "" {
		set.Quick = anthropic.Model(cfg.Models.Quick)
	}
	if cfg.Models.Thorough != "" {
		set.Thorough = anthropic.Model(cfg.Models.Thorough)
	}
	if cfg.Models.Deep != "" {
		set.Deep = anthropic.Model(cfg.Models.Deep)
	}
	return set
}
