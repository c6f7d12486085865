// Command console is a local terminal for running a scenario simulation:
// it steps the consciousness runtime tick by tick, shows which narrative
// triggers fire, and provides a prompt for evaluating ad-hoc expressions
// against the live state with the evaluator's audit stats on screen.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zekusmaximus/runtime-engine/internal/config"
	"github.com/zekusmaximus/runtime-engine/internal/storage"
	"github.com/zekusmaximus/runtime-engine/pkg/expression"
	"github.com/zekusmaximus/runtime-engine/pkg/scenario"
	"github.com/zekusmaximus/runtime-engine/pkg/state"
)

func main() {
	cfg := config.Load()

	// The TUI owns stdout; keep logging quiet and on stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.WaitForConnection(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s: %v\nTry: docker-compose up -d\n", cfg.RedisURL, err)
		os.Exit(1)
	}

	scenarioMap, err := store.ListScenarios(ctx)
	if err != nil || len(scenarioMap) == 0 {
		fmt.Fprintf(os.Stderr, "Failed to list scenarios in %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}

	orderedNames := make([]string, 0, len(scenarioMap))
	for name := range scenarioMap {
		orderedNames = append(orderedNames, name)
	}
	sort.Strings(orderedNames)

	fmt.Println("Available Scenarios:")
	for i, name := range orderedNames {
		fmt.Printf("  %d - %s (%s)\n", i+1, name, scenarioMap[name])
	}
	fmt.Print("\nSelect a scenario by number: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(orderedNames) {
		fmt.Fprintf(os.Stderr, "Invalid selection\n")
		os.Exit(1)
	}

	scenarioFile := scenarioMap[orderedNames[choice-1]]
	s, err := store.GetScenario(ctx, scenarioFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}

	eng := expression.New(log)
	if err := s.Compile(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Scenario content failed expression compilation: %v\n", err)
		os.Exit(1)
	}

	gs := newSession(s, scenarioFile)
	if err := store.SaveGameState(ctx, gs.ID, gs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save initial game state: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(eng, store, s, gs), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// newSession builds the opening game state: the scenario's process set and
// the opening scene's vars.
func newSession(s *scenario.Scenario, scenarioFile string) *state.GameState {
	gs := state.NewGameState(scenarioFile, s.OpeningScene)

	for name, spec := range s.Processes {
		status := spec.Status
		if status == "" {
			status = state.ProcessStatusRunning
		}
		gs.Processes[name] = state.Process{
			Status:      status,
			MemoryUsage: spec.MemoryUsage,
			CPUUsage:    spec.CPUUsage,
			Threads:     spec.Threads,
		}
	}

	if scene, ok := s.Scenes[s.OpeningScene]; ok {
		for name, val := range scene.Vars {
			gs.Vars[name] = val
		}
	}
	return gs
}
