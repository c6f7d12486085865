package scenario

import (
	"log/slog"
	"os"
	"testing"

	"github.com/zekusmaximus/runtime-engine/pkg/expression"
)

// mockStateView implements StateView for testing
type mockStateView struct {
	sceneName string
	ctx       expression.Context
	fired     map[string]bool
}

func (m *mockStateView) GetSceneName() string        { return m.sceneName }
func (m *mockStateView) Context() expression.Context { return m.ctx }
func (m *mockStateView) HasFired(key string) bool    { return m.fired[key] }

func testEngine() *expression.Engine {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return expression.New(log)
}

func testScenario() *Scenario {
	ended := true
	return &Scenario{
		Name:         "Fractured Runtime",
		OpeningScene: "boot",
		Scenes: map[string]Scene{
			"boot": {
				Story: "The consciousness comes online.",
				Triggers: map[string]Trigger{
					"memory_leak": {
						Condition: "grief_memory > 500",
						Then:      TriggerThen{Prompt: "The grief process is consuming everything."},
					},
					"stabilized": {
						Condition: "grief_memory < 100 && anxiety_cpu < 20",
						Then:      TriggerThen{Scene: "recovery"},
					},
					"first_boot": {
						Condition: "scene_turn_counter == 1",
						Once:      true,
						Then:      TriggerThen{Prompt: "Everything flickers."},
					},
				},
			},
			"recovery": {
				Story: "Quiet, for now.",
				Triggers: map[string]Trigger{
					"shutdown": {
						Condition: "turn_counter >= 100",
						Then:      TriggerThen{GameEnded: &ended},
					},
				},
			},
		},
		Interventions: map[string]Intervention{
			"free_memory": {
				Description: "Release held memory from the grief process.",
				Requirement: "grief_memory > 200",
				Magnitude:   "min(grief_memory * 0.5, 300)",
			},
		},
	}
}

func TestEvaluateTriggers(t *testing.T) {
	eng := testEngine()
	s := testScenario()

	tests := []struct {
		name      string
		view      *mockStateView
		wantFired []string
	}{
		{
			name: "no scene name",
			view: &mockStateView{sceneName: ""},
		},
		{
			name: "unknown scene",
			view: &mockStateView{sceneName: "missing"},
		},
		{
			name: "memory leak fires",
			view: &mockStateView{
				sceneName: "boot",
				ctx: expression.NewContextBuilder().
					Number("grief_memory", 612).
					Number("anxiety_cpu", 80).
					Number("scene_turn_counter", 4).
					Build(),
			},
			wantFired: []string{"memory_leak"},
		},
		{
			name: "stabilized fires",
			view: &mockStateView{
				sceneName: "boot",
				ctx: expression.NewContextBuilder().
					Number("grief_memory", 50).
					Number("anxiety_cpu", 10).
					Number("scene_turn_counter", 7).
					Build(),
			},
			wantFired: []string{"stabilized"},
		},
		{
			name: "fire-once trigger respects bookkeeping",
			view: &mockStateView{
				sceneName: "boot",
				ctx: expression.NewContextBuilder().
					Number("grief_memory", 50).
					Number("anxiety_cpu", 80).
					Number("scene_turn_counter", 1).
					Build(),
				fired: map[string]bool{"boot/first_boot": true},
			},
		},
		{
			name: "missing variables fail closed",
			view: &mockStateView{
				sceneName: "boot",
				ctx:       expression.Context{},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fired := s.EvaluateTriggers(eng, tc.view)
			if len(fired) != len(tc.wantFired) {
				t.Fatalf("got %d firings, want %d: %+v", len(fired), len(tc.wantFired), fired)
			}
			got := make(map[string]bool, len(fired))
			for _, f := range fired {
				got[f.TriggerID] = true
			}
			for _, id := range tc.wantFired {
				if !got[id] {
					t.Errorf("expected trigger %q to fire", id)
				}
			}
		})
	}
}

func TestEvaluateTriggers_CompiledMatchesInterpreted(t *testing.T) {
	eng := testEngine()
	s := testScenario()
	if err := s.Compile(eng); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	view := &mockStateView{
		sceneName: "boot",
		ctx: expression.NewContextBuilder().
			Number("grief_memory", 612).
			Number("anxiety_cpu", 80).
			Number("scene_turn_counter", 4).
			Build(),
	}

	fired := s.EvaluateTriggers(eng, view)
	if len(fired) != 1 || fired[0].TriggerID != "memory_leak" {
		t.Fatalf("unexpected firings: %+v", fired)
	}
	if fired[0].Key() != "boot/memory_leak" {
		t.Errorf("Key() = %q", fired[0].Key())
	}
}

func TestScenarioCompile_RejectsBadContent(t *testing.T) {
	eng := testEngine()
	s := testScenario()
	s.Scenes["boot"].Triggers["injected"] = Trigger{
		Condition: "constructor.constructor(1)",
	}

	if err := s.Compile(eng); err == nil {
		t.Fatal("expected compile error for injected trigger")
	}
}

func TestInterventionCheck(t *testing.T) {
	eng := testEngine()
	s := testScenario()
	iv := s.Interventions["free_memory"]

	// Requirement not met.
	view := &mockStateView{
		ctx: expression.NewContextBuilder().Number("grief_memory", 100).Build(),
	}
	met, magnitude, err := iv.Check(eng, view)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if met || magnitude != 0 {
		t.Errorf("expected gate closed, got met=%v magnitude=%v", met, magnitude)
	}

	// Requirement met; magnitude is half the memory, capped at 300.
	view = &mockStateView{
		ctx: expression.NewContextBuilder().Number("grief_memory", 400).Build(),
	}
	met, magnitude, err = iv.Check(eng, view)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !met || magnitude != 200 {
		t.Errorf("got met=%v magnitude=%v, want true 200", met, magnitude)
	}

	// Missing context variable gates closed without error.
	view = &mockStateView{ctx: expression.Context{}}
	met, _, err = iv.Check(eng, view)
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if met {
		t.Error("expected gate closed on missing variable")
	}
}

func TestInterventionCheck_SecurityErrorPropagates(t *testing.T) {
	eng := testEngine()
	iv := Intervention{
		Requirement: "eval(x)",
		Magnitude:   "1",
	}

	view := &mockStateView{ctx: expression.Context{}}
	if _, _, err := iv.Check(eng, view); err == nil {
		t.Fatal("expected security error")
	}
}
