package scenario

import (
	"fmt"

	"github.com/zekusmaximus/runtime-engine/pkg/expression"
)

// Scenario is the authored template for a narrative session. Scene triggers
// and intervention formulas are written as condition expressions and
// evaluated against live simulation state; the expressions are untrusted
// content and only ever run through the sandboxed engine.
type Scenario struct {
	Name          string                  `json:"name"`
	FileName      string                  `json:"file_name"`
	Story         string                  `json:"story"`
	Rating        string                  `json:"rating,omitempty"` // e.g. "PG13"
	OpeningScene  string                  `json:"opening_scene"`
	Processes     map[string]ProcessSpec  `json:"processes,omitempty"`
	Scenes        map[string]Scene        `json:"scenes"`
	Interventions map[string]Intervention `json:"interventions,omitempty"`
}

// ProcessSpec is the authored starting point for a simulated mental
// process. The state package owns the live counterpart.
type ProcessSpec struct {
	Status      string  `json:"status,omitempty"`
	MemoryUsage float64 `json:"memory_usage"`
	CPUUsage    float64 `json:"cpu_usage"`
	Threads     int     `json:"threads"`
}

// Scene is one beat of the scenario with its own triggers and initial vars.
type Scene struct {
	Story    string                      `json:"story"`
	Vars     map[string]expression.Value `json:"vars,omitempty"`
	Triggers map[string]Trigger          `json:"triggers,omitempty"`
}

// Trigger fires a narrative outcome when its condition evaluates true.
type Trigger struct {
	Condition string      `json:"condition"`
	Once      bool        `json:"once,omitempty"` // fire at most once per session
	Then      TriggerThen `json:"then"`

	compiled *expression.Compiled
}

// TriggerThen is the outcome of a fired trigger.
type TriggerThen struct {
	Scene     string                      `json:"scene,omitempty"`  // change to this scene
	Prompt    string                      `json:"prompt,omitempty"` // narrative text to inject
	SetVars   map[string]expression.Value `json:"set_vars,omitempty"`
	GameEnded *bool                       `json:"game_ended,omitempty"`
}

// Intervention is a player action gated by a requirement expression and
// sized by a magnitude formula, both authored as content.
type Intervention struct {
	Description string `json:"description"`
	Requirement string `json:"requirement"`
	Magnitude   string `json:"magnitude"`

	requirement *expression.Compiled
	magnitude   *expression.Compiled
}

// Compile pre-parses every authored expression in the scenario so that bad
// content surfaces at load time and per-tick evaluation skips re-parsing.
func (s *Scenario) Compile(eng *expression.Engine) error {
	for sceneName, scene := range s.Scenes {
		for id, tr := range scene.Triggers {
			c, err := eng.Compile(tr.Condition)
			if err != nil {
				return fmt.Errorf("scene %q trigger %q: %w", sceneName, id, err)
			}
			tr.compiled = c
			scene.Triggers[id] = tr
		}
	}
	for id, iv := range s.Interventions {
		req, err := eng.Compile(iv.Requirement)
		if err != nil {
			return fmt.Errorf("intervention %q requirement: %w", id, err)
		}
		mag, err := eng.Compile(iv.Magnitude)
		if err != nil {
			return fmt.Errorf("intervention %q magnitude: %w", id, err)
		}
		iv.requirement = req
		iv.magnitude = mag
		s.Interventions[id] = iv
	}
	return nil
}
