// Command validate lints scenario content files. It strict-decodes each
// file and runs every authored trigger condition and intervention formula
// through the expression engine's security gate, so that injection attempts
// and malformed conditions are caught at build time instead of mid-session.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zekusmaximus/runtime-engine/internal/config"
	"github.com/zekusmaximus/runtime-engine/internal/logger"
	"github.com/zekusmaximus/runtime-engine/pkg/expression"
	"github.com/zekusmaximus/runtime-engine/pkg/scenario"
	"github.com/zekusmaximus/runtime-engine/pkg/textfilter"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.json> [more files...]\n", os.Args[0])
		os.Exit(1)
	}

	log := logger.Setup(config.Load())
	validator := &ScenarioValidator{
		engine: expression.New(log),
		filter: textfilter.NewPromptFilter(),
	}

	failed := false
	for _, filename := range os.Args[1:] {
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}

	stats := validator.engine.Stats()
	if stats.SecurityViolations > 0 {
		fmt.Fprintf(os.Stderr, "%d expression(s) rejected by the security gate:\n", stats.SecurityViolations)
		for _, v := range stats.RecentViolations {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", v.Expression, v.Reason)
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("All scenario files are valid!")
}

type ScenarioValidator struct {
	engine *expression.Engine
	filter *textfilter.PromptFilter
	errors []string
}

func (v *ScenarioValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	// Validate filename format
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidScenarioFilename(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.json, not my-scenario.json or MyScenario.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var s scenario.Scenario
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&s); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.validateScenario(&s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *ScenarioValidator) validateScenario(s *scenario.Scenario) {
	if s.Name == "" {
		v.addError("scenario name is required")
	}

	v.validateIDFormat("opening_scene", s.OpeningScene)
	if _, ok := s.Scenes[s.OpeningScene]; !ok {
		v.addError(fmt.Sprintf("opening_scene %q does not exist", s.OpeningScene))
	}

	// Process names become expression identifiers (<name>_memory etc.),
	// so they follow the same format rules as IDs.
	for procName := range s.Processes {
		v.validateIDFormat("process name", procName)
	}

	for sceneID, scene := range s.Scenes {
		v.validateIDFormat("scene ID", sceneID)
		v.validateScene(&scene, sceneID, s)
	}

	for ivID, iv := range s.Interventions {
		v.validateIDFormat("intervention ID", ivID)
		v.validateExpr(fmt.Sprintf("intervention %q requirement", ivID), iv.Requirement)
		v.validateExpr(fmt.Sprintf("intervention %q magnitude", ivID), iv.Magnitude)
	}
}

func (v *ScenarioValidator) validateScene(scene *scenario.Scene, sceneID string, s *scenario.Scenario) {
	filterRating := textfilter.ShouldFilterContent(s.Rating)

	for triggerID, trigger := range scene.Triggers {
		v.validateIDFormat("trigger ID", triggerID)
		where := fmt.Sprintf("trigger %q in scene %q", triggerID, sceneID)

		v.validateExpr(where+" condition", trigger.Condition)

		if filterRating && trigger.Then.Prompt != "" && v.filter.ContainsProfanity(trigger.Then.Prompt) {
			v.addError(fmt.Sprintf("%s prompt contains profanity but scenario is rated %s", where, s.Rating))
		}

		then := trigger.Then
		if then.Scene == "" && then.Prompt == "" && len(then.SetVars) == 0 && then.GameEnded == nil {
			v.addError(where + " has an empty 'then' clause")
		}
		if then.Scene != "" {
			if _, ok := s.Scenes[then.Scene]; !ok {
				v.addError(fmt.Sprintf("%s changes to unknown scene %q", where, then.Scene))
			}
		}
	}
}

func (v *ScenarioValidator) validateExpr(where, expr string) {
	if err := v.engine.Validate(expr); err != nil {
		v.addError(fmt.Sprintf("%s: %v", where, err))
		return
	}
	// Compile to surface syntax errors the lexical gate cannot see.
	if _, err := v.engine.Compile(expr); err != nil {
		v.addError(fmt.Sprintf("%s: %v", where, err))
	}
}

var idFormatRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func (v *ScenarioValidator) validateIDFormat(kind, id string) {
	if id == "" {
		v.addError(kind + " is required")
		return
	}
	if !idFormatRegex.MatchString(id) {
		v.addError(fmt.Sprintf("%s %q must be lowercase snake_case", kind, id))
	}
}

func isValidScenarioFilename(name string) bool {
	return idFormatRegex.MatchString(name)
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, msg)
}
