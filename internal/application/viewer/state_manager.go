package viewer

import (
	"sync"
	"time"

	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/core/trace"
)

// StateManager holds the viewer state shared between the UI loop and the
// background loader.
type StateManager struct {
	mu sync.RWMutex

	current *trace.Trace

	// Loading state
	isLoading      bool
	loadingMessage string
	loadingPercent float64

	interactionState model.InteractionState

	lastDataUpdate int64
}

// NewStateManager creates a new StateManager instance
func NewStateManager() *StateManager {
	return &StateManager{
		loadingPercent:   -1,
		interactionState: model.InteractionState{SelectedRow: -1},
	}
}

// GetTrace returns the trace on display, or nil before the first load.
func (sm *StateManager) GetTrace() *trace.Trace {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// SwapTrace installs tr and returns the trace it replaces; the caller
// closes it. The selection is reset when it does not exist in tr.
func (sm *StateManager) SwapTrace(tr *trace.Trace) *trace.Trace {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	previous := sm.current
	sm.current = tr
	sm.lastDataUpdate = time.Now().Unix()
	if tr == nil || sm.interactionState.SelectedRow >= tr.RowCount() {
		sm.interactionState.SelectedRow = -1
		sm.interactionState.ShowDetail = false
	}
	return previous
}

// GetLoadingState returns current loading state, message and progress
func (sm *StateManager) GetLoadingState() (bool, string, float64) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isLoading, sm.loadingMessage, sm.loadingPercent
}

// SetLoadingState updates loading state and message and resets progress
func (sm *StateManager) SetLoadingState(isLoading bool, message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.isLoading = isLoading
	sm.loadingMessage = message
	sm.loadingPercent = -1
}

// SetLoadingProgress records build progress in percent.
func (sm *StateManager) SetLoadingProgress(percent float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.loadingPercent = percent
}

// GetInteractionState returns a copy of the interaction state
func (sm *StateManager) GetInteractionState() model.InteractionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.interactionState
}

// UpdateInteractionState updates specific fields of interaction state
func (sm *StateManager) UpdateInteractionState(updateFunc func(*model.InteractionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	updateFunc(&sm.interactionState)
}

// DisplayState merges the loading state into the interaction state. A
// reload keeps showing the previous trace, so loading only takes over the
// screen when there is nothing to show yet.
func (sm *StateManager) DisplayState() model.InteractionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state := sm.interactionState
	state.IsLoading = sm.isLoading && sm.current == nil
	state.LoadingMessage = sm.loadingMessage
	state.LoadingPercent = sm.loadingPercent
	if sm.isLoading && sm.current != nil && state.StatusMessage == "" {
		state.StatusMessage = sm.loadingMessage
	}
	return state
}

// GetLastDataUpdate returns timestamp of last successful load
func (sm *StateManager) GetLastDataUpdate() int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastDataUpdate
}
