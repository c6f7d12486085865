package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/zekusmaximus/runtime-engine/pkg/expression"
	"github.com/zekusmaximus/runtime-engine/pkg/state"
)

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := NewRedisStorage(mr.Addr(), t.TempDir(), logger)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close storage: %v", err)
		}
	})

	return store, mr
}

func TestRedisStorage_GameStateRoundTrip(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	gs := state.NewGameState("fractured_runtime.json", "boot")
	gs.Vars["coherence"] = expression.Number(0.75)
	gs.Processes["grief"] = state.Process{
		Status:      state.ProcessStatusRunning,
		MemoryUsage: 612,
	}

	if err := store.SaveGameState(ctx, gs.ID, gs); err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}

	loaded, err := store.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("LoadGameState failed: %v", err)
	}
	if loaded.ID != gs.ID {
		t.Errorf("ID = %s, want %s", loaded.ID, gs.ID)
	}
	if !loaded.Vars["coherence"].Equal(expression.Number(0.75)) {
		t.Errorf("coherence = %v", loaded.Vars["coherence"])
	}
	if loaded.Processes["grief"].MemoryUsage != 612 {
		t.Errorf("grief memory = %v", loaded.Processes["grief"].MemoryUsage)
	}

	if err := store.DeleteGameState(ctx, gs.ID); err != nil {
		t.Fatalf("DeleteGameState failed: %v", err)
	}
	if _, err := store.LoadGameState(ctx, gs.ID); err == nil {
		t.Error("expected error loading deleted gamestate")
	}
}

func TestRedisStorage_LoadInitializesMaps(t *testing.T) {
	store, _ := setupTestStorage(t)
	ctx := context.Background()

	// A brand-new state has empty maps, which the JSON tags omit. The
	// loaded copy must still be mutable.
	gs := state.NewGameState("fractured_runtime.json", "boot")
	if err := store.SaveGameState(ctx, gs.ID, gs); err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}

	loaded, err := store.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("LoadGameState failed: %v", err)
	}
	if loaded.Vars == nil || loaded.Processes == nil || loaded.FiredTriggers == nil {
		t.Fatal("loaded state should have initialized maps")
	}
	loaded.Vars["coherence"] = expression.Number(0.5)
	loaded.FiredTriggers["boot/first_attach"] = true
}

func TestRedisStorage_LoadMissingGameState(t *testing.T) {
	store, _ := setupTestStorage(t)

	_, err := store.LoadGameState(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error for missing gamestate")
	}
}

func TestRedisStorage_Scenarios(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	dataDir := t.TempDir()
	scenarioDir := filepath.Join(dataDir, "scenarios")
	if err := os.MkdirAll(scenarioDir, 0o755); err != nil {
		t.Fatal(err)
	}

	content := `{
		"name": "Fractured Runtime",
		"opening_scene": "boot",
		"scenes": {
			"boot": {
				"story": "The consciousness comes online.",
				"triggers": {
					"memory_leak": {
						"condition": "grief_memory > 500",
						"then": {"prompt": "The grief process is consuming everything."}
					}
				}
			}
		}
	}`
	if err := os.WriteFile(filepath.Join(scenarioDir, "fractured_runtime.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := NewRedisStorage(mr.Addr(), dataDir, logger)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()

	list, err := store.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if list["Fractured Runtime"] != "fractured_runtime.json" {
		t.Errorf("list = %v", list)
	}

	s, err := store.GetScenario(ctx, "fractured_runtime.json")
	if err != nil {
		t.Fatalf("GetScenario failed: %v", err)
	}
	if s.Name != "Fractured Runtime" || s.OpeningScene != "boot" {
		t.Errorf("scenario = %+v", s)
	}
	if s.Scenes["boot"].Triggers["memory_leak"].Condition != "grief_memory > 500" {
		t.Errorf("trigger condition lost: %+v", s.Scenes["boot"])
	}

	// Path traversal is refused.
	if _, err := store.GetScenario(ctx, "../secrets.json"); err == nil {
		t.Error("expected error for traversal filename")
	}
	if _, err := store.GetScenario(ctx, "missing.json"); err == nil {
		t.Error("expected error for missing scenario")
	}
}
