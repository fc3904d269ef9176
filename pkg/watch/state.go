package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const stateFileName = "watch_state.json"

// StoreState contains the last run information for a content store
type StoreState struct {
	LastRunTime     time.Time `json:"last_run_time"`
	LastRunSuccess  bool      `json:"last_run_success"`
	RecordsChecked  int       `json:"records_checked"`
	RecordsAdvanced int       `json:"records_advanced"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// WatchState contains the persistent state for the watch scheduler, keyed by content store path
type WatchState struct {
	Stores    map[string]StoreState `json:"stores"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// StateManager handles persisting and loading watch state.
// With an empty stateDir the state lives in memory only.
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a new state manager
func NewStateManager(stateDir string) *StateManager {
	m := &StateManager{
		stateDir: stateDir,
		state:    WatchState{Stores: make(map[string]StoreState)},
	}
	if stateDir != "" {
		m.statePath = filepath.Join(stateDir, stateFileName)
	}
	return m
}

// Load loads the state from disk
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.statePath == "" {
		return nil
	}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = WatchState{Stores: make(map[string]StoreState)}
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &m.state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if m.state.Stores == nil {
		m.state.Stores = make(map[string]StoreState)
	}
	return nil
}

// Save saves the state to disk
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = time.Now()
	if m.statePath == "" {
		return nil
	}

	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// GetStoreState returns the state for a content store
func (m *StateManager) GetStoreState(storeKey string) (StoreState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Stores[storeKey]
	return state, ok
}

// UpdateStoreState records the outcome of a run over storeKey finished at runTime
func (m *StateManager) UpdateStoreState(storeKey string, runTime time.Time, state StoreState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state.LastRunTime = runTime
	m.state.Stores[storeKey] = state
}

// ShouldRun checks if a store is due at now based on the interval
func (m *StateManager) ShouldRun(storeKey string, interval time.Duration, now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Stores[storeKey]
	if !ok {
		return true
	}
	return now.Sub(state.LastRunTime) >= interval
}

// GetNextRunTime returns when the store should next run
func (m *StateManager) GetNextRunTime(storeKey string, interval time.Duration) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.state.Stores[storeKey]
	if !ok {
		return time.Now()
	}
	return state.LastRunTime.Add(interval)
}
