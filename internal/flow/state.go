// Package flow implements the turn-level decision logic for LeadPipe: the
// missing-field resolver, the quote dependency gate, the turn orchestrator,
// and the step-flow micro-orchestrator.
package flow

import (
	"context"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// StateStore is the keyed conversation-state abstraction. The orchestrator
// itself never touches storage; the session layer reads state before a turn and
// writes the decision's state after. Implementations may be volatile
// (in-memory, the reference behavior) or durable (SQL-backed).
type StateStore interface {
	// GetConversationState retrieves the state for a chat, or nil if none exists.
	GetConversationState(ctx context.Context, chatID string) (*models.ConversationState, error)

	// SetConversationState stores the state for a chat.
	SetConversationState(ctx context.Context, chatID string, state models.ConversationState) error

	// DeleteConversationState removes the state for a chat.
	DeleteConversationState(ctx context.Context, chatID string) error

	// GetStepFlowState retrieves the step-flow state for a chat, or nil if none exists.
	GetStepFlowState(ctx context.Context, chatID string) (*models.StepFlowState, error)

	// SetStepFlowState stores the step-flow state for a chat.
	SetStepFlowState(ctx context.Context, chatID string, state models.StepFlowState) error

	// DeleteStepFlowState removes the step-flow state for a chat.
	DeleteStepFlowState(ctx context.Context, chatID string) error
}
