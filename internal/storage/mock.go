package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zekusmaximus/runtime-engine/pkg/scenario"
	"github.com/zekusmaximus/runtime-engine/pkg/state"
)

// MockStorage is an in-memory Storage implementation for tests.
type MockStorage struct {
	GameStates map[uuid.UUID]*state.GameState
	Scenarios  map[string]*scenario.Scenario
	Err        error // returned by every method when set
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		GameStates: make(map[uuid.UUID]*state.GameState),
		Scenarios:  make(map[string]*scenario.Scenario),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return m.Err }
func (m *MockStorage) Close() error                   { return m.Err }

func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if m.Err != nil {
		return m.Err
	}
	m.GameStates[id] = gs
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	gs, ok := m.GameStates[id]
	if !ok {
		return nil, fmt.Errorf("gamestate not found: %s", id)
	}
	return gs, nil
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.GameStates, id)
	return nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]string, len(m.Scenarios))
	for filename, s := range m.Scenarios {
		out[s.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Scenarios[filename]
	if !ok {
		return nil, fmt.Errorf("scenario not found: %s", filename)
	}
	return s, nil
}
