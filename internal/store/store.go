// Package store provides storage backends for LeadPipe.
//
// It includes an in-memory store for tests and single-process deployments,
// plus SQLite- and PostgreSQL-backed stores for durable state.
package store

import (
	"sync"
	"time"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// Store is the persistence interface shared by all backends: conversation and
// step-flow state keyed by chat, plus captured leads and their measurements.
type Store interface {
	GetConversationState(chatID string) (*models.ConversationState, error)
	SaveConversationState(chatID string, state models.ConversationState) error
	DeleteConversationState(chatID string) error

	GetStepFlowState(chatID string) (*models.StepFlowState, error)
	SaveStepFlowState(chatID string, state models.StepFlowState) error
	DeleteStepFlowState(chatID string) error

	SaveLead(lead models.Lead) error
	GetLead(id string) (*models.Lead, error)
	ListLeads() ([]models.Lead, error)

	SaveMeasurement(m models.Measurement) error
	GetMeasurement(leadID string) (*models.Measurement, error)

	Close() error
}

// InMemoryStore is a map-backed Store for tests and ephemeral deployments.
type InMemoryStore struct {
	mu           sync.RWMutex
	states       map[string]models.ConversationState
	stepFlows    map[string]models.StepFlowState
	leads        map[string]models.Lead
	leadOrder    []string
	measurements map[string]models.Measurement
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:       make(map[string]models.ConversationState),
		stepFlows:    make(map[string]models.StepFlowState),
		leads:        make(map[string]models.Lead),
		measurements: make(map[string]models.Measurement),
	}
}

func (s *InMemoryStore) GetConversationState(chatID string) (*models.ConversationState, error) {
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

func (s *InMemoryStore) SaveConversationState(chatID string, state models.ConversationState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
	return nil
}

func (s *InMemoryStore) DeleteConversationState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}

func (s *InMemoryStore) GetStepFlowState(chatID string) (*models.StepFlowState, error) {
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

func (s *InMemoryStore) SaveStepFlowState(chatID string, state models.StepFlowState) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepFlows[chatID] = state
	return nil
}

func (s *InMemoryStore) DeleteStepFlowState(chatID string) error {
	if chatID == "" {
		return models.ErrEmptyChatID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stepFlows, chatID)
	return nil
}

func (s *InMemoryStore) SaveLead(lead models.Lead) error {
	if lead.ID == "" {
		return models.ErrEmptyLeadID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[lead.ID]; !exists {
		s.leadOrder = append(s.leadOrder, lead.ID)
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	lead.UpdatedAt = time.Now()
	s.leads[lead.ID] = lead
	return nil
}

func (s *InMemoryStore) GetLead(id string) (*models.Lead, error) {
	if id == "" {
		return nil, models.ErrEmptyLeadID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, models.ErrLeadNotFound
	}
	return &lead, nil
}

// ListLeads returns all leads in insertion order.
func (s *InMemoryStore) ListLeads() ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leads := make([]models.Lead, 0, len(s.leadOrder))
	for _, id := range s.leadOrder {
		leads = append(leads, s.leads[id])
	}
	return leads, nil
}

func (s *InMemoryStore) SaveMeasurement(m models.Measurement) error {
	if m.LeadID == "" {
		return models.ErrEmptyLeadID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.measurements[m.LeadID]; ok {
		m.CreatedAt = existing.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = time.Now()
	s.measurements[m.LeadID] = m
	return nil
}

func (s *InMemoryStore) GetMeasurement(leadID string) (*models.Measurement, error) {
	if leadID == "" {
		return nil, models.ErrEmptyLeadID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.measurements[leadID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
