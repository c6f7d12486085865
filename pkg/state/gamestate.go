package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zekusmaximus/runtime-engine/pkg/expression"
)

// Process is one simulated mental process. Its metrics are the primary
// material for narrative conditions ("grief_memory > 500").
type Process struct {
	Status      string  `json:"status"` // "running", "sleeping", "crashed", "terminated"
	MemoryUsage float64 `json:"memory_usage"`
	CPUUsage    float64 `json:"cpu_usage"`
	Threads     int     `json:"threads"`
}

const ProcessStatusRunning = "running"

// GameState is the live state of one narrative session.
type GameState struct {
	ID               uuid.UUID                   `json:"id"`
	Scenario         string                      `json:"scenario"` // scenario file name
	SceneName        string                      `json:"scene_name"`
	TurnCounter      int                         `json:"turn_counter"`
	SceneTurnCounter int                         `json:"scene_turn_counter"`
	Vars             map[string]expression.Value `json:"vars,omitempty"`
	Processes        map[string]Process          `json:"processes,omitempty"`
	FiredTriggers    map[string]bool             `json:"fired_triggers,omitempty"`
	PendingPrompts   []string                    `json:"pending_prompts,omitempty"`
	GameEnded        bool                        `json:"game_ended"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

func NewGameState(scenarioFile, openingScene string) *GameState {
	now := time.Now()
	return &GameState{
		ID:            uuid.New(),
		Scenario:      scenarioFile,
		SceneName:     openingScene,
		Vars:          make(map[string]expression.Value),
		Processes:     make(map[string]Process),
		FiredTriggers: make(map[string]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// GetSceneName implements scenario.StateView.
func (gs *GameState) GetSceneName() string {
	return gs.SceneName
}

// HasFired implements scenario.StateView.
func (gs *GameState) HasFired(key string) bool {
	return gs.FiredTriggers[key]
}

// Context flattens the game state into expression bindings: vars as-is,
// turn counters, and per-process metrics as <name>_memory, <name>_cpu,
// <name>_threads, and <name>_running. The constrained builder refuses
// denylisted names, so hostile var names in a tampered save can never
// reach evaluation.
func (gs *GameState) Context() expression.Context {
	b := expression.NewContextBuilder().
		Number("turn_counter", float64(gs.TurnCounter)).
		Number("scene_turn_counter", float64(gs.SceneTurnCounter))

	for name, val := range gs.Vars {
		b.Value(name, val)
	}
	for name, proc := range gs.Processes {
		b.Number(fmt.Sprintf("%s_memory", name), proc.MemoryUsage)
		b.Number(fmt.Sprintf("%s_cpu", name), proc.CPUUsage)
		b.Number(fmt.Sprintf("%s_threads", name), float64(proc.Threads))
		b.Bool(fmt.Sprintf("%s_running", name), proc.Status == ProcessStatusRunning)
	}
	return b.Build()
}

// EnsureInitialized replaces nil collections with empty ones. The JSON
// tags omit empty maps, so a state saved before any vars or firings exist
// deserializes with nil maps; callers that mutate a loaded state must be
// able to write into them.
func (gs *GameState) EnsureInitialized() {
	if gs.Vars == nil {
		gs.Vars = make(map[string]expression.Value)
	}
	if gs.Processes == nil {
		gs.Processes = make(map[string]Process)
	}
	if gs.FiredTriggers == nil {
		gs.FiredTriggers = make(map[string]bool)
	}
}

// Tick advances the turn counters.
func (gs *GameState) Tick() {
	gs.TurnCounter++
	gs.SceneTurnCounter++
	gs.UpdatedAt = time.Now()
}

// DrainPrompts returns and clears the pending narrative prompts.
func (gs *GameState) DrainPrompts() []string {
	prompts := gs.PendingPrompts
	gs.PendingPrompts = nil
	return prompts
}
