package state

import (
	"time"

	"github.com/zekusmaximus/runtime-engine/pkg/scenario"
)

// Apply folds a tick's trigger firings into the game state: injected
// prompts, var updates, scene changes, and game end. Application order is
// the order the firings were produced in; a scene change resets the scene
// turn counter and layers the new scene's initial vars over the current
// ones.
func Apply(gs *GameState, s *scenario.Scenario, firings []scenario.Firing) {
	if len(firings) == 0 {
		return
	}
	gs.EnsureInitialized()

	for _, f := range firings {
		gs.FiredTriggers[f.Key()] = true

		if f.Then.Prompt != "" {
			gs.PendingPrompts = append(gs.PendingPrompts, f.Then.Prompt)
		}
		for name, val := range f.Then.SetVars {
			gs.Vars[name] = val
		}
		if f.Then.Scene != "" && f.Then.Scene != gs.SceneName {
			enterScene(gs, s, f.Then.Scene)
		}
		if f.Then.GameEnded != nil {
			gs.GameEnded = *f.Then.GameEnded
		}
	}
	gs.UpdatedAt = time.Now()
}

func enterScene(gs *GameState, s *scenario.Scenario, name string) {
	scene, exists := s.Scenes[name]
	if !exists {
		return
	}
	gs.SceneName = name
	gs.SceneTurnCounter = 0
	for varName, val := range scene.Vars {
		gs.Vars[varName] = val
	}
}
