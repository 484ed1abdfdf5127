// Package flow provides concrete implementations of conversation state storage.
package flow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/PaintKaro/LeadPipe/internal/models"
	"github.com/PaintKaro/LeadPipe/internal/store"
)

// InMemoryStateStore keeps conversation and step-flow state in process-lifetime
// maps keyed by chat id. This matches the reference semantics: no expiry, no
// cross-process synchronization, everything lost on restart.
type InMemoryStateStore struct {
	mu        sync.RWMutex
	states    map[string]models.ConversationState
	stepFlows map[string]models.StepFlowState
}

// NewInMemoryStateStore creates an empty in-memory state store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{
		states:    make(map[string]models.ConversationState),
		stepFlows: make(map[string]models.StepFlowState),
	}
}

// GetConversationState retrieves the state for a chat, or nil if none exists.
func (s *InMemoryStateStore) GetConversationState(ctx context.Context, chatID string) (*models.ConversationState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[chatID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// SetConversationState stores the state for a chat.
func (s *InMemoryStateStore) SetConversationState(ctx context.Context, chatID string, state models.ConversationState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
	return nil
}

// DeleteConversationState removes the state for a chat.
func (s *InMemoryStateStore) DeleteConversationState(ctx context.Context, chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}

// GetStepFlowState retrieves the step-flow state for a chat, or nil if none exists.
func (s *InMemoryStateStore) GetStepFlowState(ctx context.Context, chatID string) (*models.StepFlowState, error) {
	if chatID == "" {
		return nil, models.ErrEmptyChatID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.stepFlows[chatID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// SetStepFlowState stores the step-flow state for a chat.
func (s *InMemoryStateStore) SetStepFlowState(ctx context.Context, chatID string, state models.StepFlowState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepFlows[chatID] = state
	return nil
}

// DeleteStepFlowState removes the step-flow state for a chat.
func (s *InMemoryStateStore) DeleteStepFlowState(ctx context.Context, chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stepFlows, chatID)
	return nil
}

// StoreBasedStateStore implements StateStore over a durable store.Store backend,
// for deployments that need conversation state to survive restarts.
type StoreBasedStateStore struct {
	store store.Store
}

// NewStoreBasedStateStore creates a StateStore backed by a Store.
func NewStoreBasedStateStore(st store.Store) *StoreBasedStateStore {
	slog.Debug("Creating StoreBasedStateStore")
	return &StoreBasedStateStore{store: st}
}

// GetConversationState retrieves the state for a chat, or nil if none exists.
func (s *StoreBasedStateStore) GetConversationState(ctx context.Context, chatID string) (*models.ConversationState, error) {
	state, err := s.store.GetConversationState(chatID)
	if err != nil {
		slog.Error("StateStore GetConversationState error", "error", err, "chatID", chatID)
		return nil, err
	}
	return state, nil
}

// SetConversationState stores the state for a chat.
func (s *StoreBasedStateStore) SetConversationState(ctx context.Context, chatID string, state models.ConversationState) error {
	if err := s.store.SaveConversationState(chatID, state); err != nil {
		slog.Error("StateStore SetConversationState error", "error", err, "chatID", chatID)
		return err
	}
	slog.Debug("StateStore SetConversationState succeeded", "chatID", chatID, "leadStatus", state.LeadStatus, "lastIntent", state.LastIntent)
	return nil
}

// DeleteConversationState removes the state for a chat.
func (s *StoreBasedStateStore) DeleteConversationState(ctx context.Context, chatID string) error {
	if err := s.store.DeleteConversationState(chatID); err != nil {
		slog.Error("StateStore DeleteConversationState error", "error", err, "chatID", chatID)
		return err
	}
	return nil
}

// GetStepFlowState retrieves the step-flow state for a chat, or nil if none exists.
func (s *StoreBasedStateStore) GetStepFlowState(ctx context.Context, chatID string) (*models.StepFlowState, error) {
	state, err := s.store.GetStepFlowState(chatID)
	if err != nil {
		slog.Error("StateStore GetStepFlowState error", "error", err, "chatID", chatID)
		return nil, err
	}
	return state, nil
}

// SetStepFlowState stores the step-flow state for a chat.
func (s *StoreBasedStateStore) SetStepFlowState(ctx context.Context, chatID string, state models.StepFlowState) error {
	if err := s.store.SaveStepFlowState(chatID, state); err != nil {
		slog.Error("StateStore SetStepFlowState error", "error", err, "chatID", chatID)
		return err
	}
	return nil
}

// DeleteStepFlowState removes the step-flow state for a chat.
func (s *StoreBasedStateStore) DeleteStepFlowState(ctx context.Context, chatID string) error {
	if err := s.store.DeleteStepFlowState(chatID); err != nil {
		slog.Error("StateStore DeleteStepFlowState error", "error", err, "chatID", chatID)
		return err
	}
	return nil
}
