package scenario

import (
	"fmt"

	"github.com/zekusmaximus/runtime-engine/pkg/expression"
)

// StateView provides the minimal view of simulation state needed to
// evaluate triggers. This avoids an import cycle with the state package.
type StateView interface {
	GetSceneName() string
	// Context returns the flattened variable bindings for expression
	// evaluation, including process metrics and turn counters.
	Context() expression.Context
	// HasFired reports whether a fire-once trigger has already fired
	// this session. Keys are "scene/trigger".
	HasFired(key string) bool
}

// Firing records a trigger whose condition evaluated true this tick.
type Firing struct {
	SceneName string
	TriggerID string
	Then      TriggerThen
}

// Key identifies the trigger for fire-once bookkeeping.
func (f Firing) Key() string {
	return f.SceneName + "/" + f.TriggerID
}

// EvaluateTriggers checks all triggers for the current scene and returns
// the ones that fire. Evaluation is fail-closed per trigger: a condition
// that cannot be evaluated simply does not fire, and a condition the
// engine rejects outright is skipped (compiled scenarios surface those at
// load time instead).
func (s *Scenario) EvaluateTriggers(eng *expression.Engine, view StateView) []Firing {
	sceneName := view.GetSceneName()
	if sceneName == "" {
		return nil
	}

	scene, exists := s.Scenes[sceneName]
	if !exists || len(scene.Triggers) == 0 {
		return nil
	}

	ctx := view.Context()

	var fired []Firing
	for id, tr := range scene.Triggers {
		f := Firing{SceneName: sceneName, TriggerID: id, Then: tr.Then}
		if tr.Once && view.HasFired(f.Key()) {
			continue
		}

		var ok bool
		var err error
		if tr.compiled != nil {
			ok, err = eng.EvaluateCompiledCondition(tr.compiled, ctx)
		} else {
			ok, err = eng.EvaluateCondition(tr.Condition, ctx)
		}
		if err != nil || !ok {
			continue
		}
		fired = append(fired, f)
	}
	return fired
}

// Check evaluates the intervention's requirement against the current state
// and, when met, its magnitude formula. A requirement that cannot be
// evaluated gates closed. Magnitude errors are returned so the caller can
// log the broken content without halting the simulation loop.
func (iv *Intervention) Check(eng *expression.Engine, view StateView) (bool, float64, error) {
	ctx := view.Context()

	var met bool
	var err error
	if iv.requirement != nil {
		met, err = eng.EvaluateCompiledCondition(iv.requirement, ctx)
	} else {
		met, err = eng.EvaluateCondition(iv.Requirement, ctx)
	}
	if err != nil {
		return false, 0, fmt.Errorf("intervention requirement: %w", err)
	}
	if !met {
		return false, 0, nil
	}

	var magnitude float64
	if iv.magnitude != nil {
		magnitude, err = eng.EvaluateCompiled(iv.magnitude, ctx)
	} else {
		magnitude, err = eng.Evaluate(iv.Magnitude, ctx)
	}
	if err != nil {
		return true, 0, fmt.Errorf("intervention magnitude: %w", err)
	}
	return true, magnitude, nil
}
