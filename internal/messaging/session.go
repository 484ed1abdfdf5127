// Package messaging provides the session layer for stateful chat interactions.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PaintKaro/LeadPipe/internal/confirm"
	"github.com/PaintKaro/LeadPipe/internal/flow"
	"github.com/PaintKaro/LeadPipe/internal/genai"
	"github.com/PaintKaro/LeadPipe/internal/models"
	"github.com/PaintKaro/LeadPipe/internal/store"
	"github.com/google/uuid"
)

// StepFlowSaveFunc is invoked when a guided site intake completes.
type StepFlowSaveFunc func(chatID string, save models.StepFlowSave)

// errorReplyMessage is sent when message processing fails outright.
const errorReplyMessage = "Sorry, something went wrong on our side. Please try again in a moment."

// SessionHandler is the stateful session layer: it consumes inbound messages,
// assembles the turn input (state, intent, extraction, measurements), runs the
// turn pipeline, and applies the decision's side effects (persisting state,
// capturing leads, executing tool calls) before replying.
//
// The turn pipeline itself stays pure; every read and write lives here.
type SessionHandler struct {
	msgService   Service
	genaiClient  genai.ClientInterface
	stateStore   flow.StateStore
	store        store.Store
	stepFlow     *flow.StepFlow
	quoteExec    QuoteExecutor
	contractorID string

	onStepFlowSave StepFlowSaveFunc

	// pendingAnalysis holds the extraction that produced the outstanding recap,
	// keyed by chat id. Consumed when the user confirms.
	mu              sync.Mutex
	pendingAnalysis map[string]*models.LeadAnalysis
}

// NewSessionHandler creates a SessionHandler wired to the given collaborators.
func NewSessionHandler(msgService Service, genaiClient genai.ClientInterface, stateStore flow.StateStore, st store.Store, quoteExec QuoteExecutor, contractorID string) *SessionHandler {
	return &SessionHandler{
		msgService:      msgService,
		genaiClient:     genaiClient,
		stateStore:      stateStore,
		store:           st,
		stepFlow:        flow.NewStepFlow(stateStore),
		quoteExec:       quoteExec,
		contractorID:    contractorID,
		pendingAnalysis: make(map[string]*models.LeadAnalysis),
	}
}

// SetStepFlowSaveFunc registers the callback invoked when a guided site intake
// completes.
func (h *SessionHandler) SetStepFlowSaveFunc(fn StepFlowSaveFunc) {
	h.onStepFlowSave = fn
}

// Start begins consuming inbound messages from the messaging service.
func (h *SessionHandler) Start(ctx context.Context) {
	slog.Info("SessionHandler starting response processing")

	go func() {
		defer slog.Info("SessionHandler stopped response processing")

		for {
			select {
			case response, ok := <-h.msgService.Responses():
				if !ok {
					slog.Debug("SessionHandler responses channel closed")
					return
				}
				if err := h.ProcessResponse(ctx, response); err != nil {
					slog.Error("SessionHandler failed to process response", "error", err, "from", response.From)
				}
			case <-ctx.Done():
				slog.Debug("SessionHandler stopping due to context cancellation")
				return
			}
		}
	}()
}

// ProcessResponse handles one inbound message end to end: canonicalize the
// sender, run the turn, and send the reply.
func (h *SessionHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	chatID, err := h.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("SessionHandler ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}

	reply, err := h.HandleMessage(ctx, chatID, response.Body)
	if err != nil {
		slog.Error("SessionHandler message handling failed", "error", err, "chatID", chatID)
		if sendErr := h.msgService.SendMessage(ctx, chatID, errorReplyMessage); sendErr != nil {
			slog.Error("SessionHandler failed to send error reply", "error", sendErr, "chatID", chatID)
		}
		return err
	}

	if reply == "" {
		return nil
	}
	if err := h.msgService.SendMessage(ctx, chatID, reply); err != nil {
		slog.Error("SessionHandler failed to send reply", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// HandleMessage runs one chat turn and returns the reply text. Exposed so the
// HTTP API can drive the same pipeline as the messaging transports.
func (h *SessionHandler) HandleMessage(ctx context.Context, chatID, text string) (string, error) {
	if chatID == "" {
		return "", models.ErrEmptyChatID
	}

	// Guided site intake runs outside the turn pipeline: its start command
	// always wins, and an in-progress session swallows every message.
	if confirm.Normalize(text) == flow.StepFlowStartCommand {
		return h.runStepFlow(ctx, chatID, text)
	}
	active, err := h.stepFlow.Active(ctx, chatID)
	if err != nil {
		return "", err
	}
	if active {
		return h.runStepFlow(ctx, chatID, text)
	}

	state, err := h.loadState(ctx, chatID)
	if err != nil {
		return "", err
	}

	intent := h.classify(ctx, chatID, text)
	analysis := h.extract(ctx, chatID, text, intent, state)

	if intent != nil && intent.Intent == models.IntentLogMeasurement && state.LeadID != "" {
		h.recordMeasurements(chatID, state.LeadID, text)
	}

	measurements := h.loadMeasurements(chatID, state.LeadID)

	decision := flow.ProcessTurn(flow.TurnInput{
		ChatID:       chatID,
		Text:         text,
		Intent:       intent,
		Analysis:     analysis,
		State:        state,
		Measurements: measurements,
	})

	return h.applyDecision(ctx, chatID, analysis, state, decision)
}

// runStepFlow advances the guided intake and fires the save callback on
// completion.
func (h *SessionHandler) runStepFlow(ctx context.Context, chatID, text string) (string, error) {
	result, err := h.stepFlow.Handle(ctx, chatID, text)
	if err != nil {
		return "", fmt.Errorf("step flow failed: %w", err)
	}
	if result.Save != nil && h.onStepFlowSave != nil {
		h.onStepFlowSave(chatID, *result.Save)
	}
	return result.Reply, nil
}

// loadState fetches the conversation state, binding the chat's most recent
// lead when the state carries none. Rebinding clears the advisory last-intent
// marker so stale recap context cannot leak across leads.
func (h *SessionHandler) loadState(ctx context.Context, chatID string) (models.ConversationState, error) {
	stored, err := h.stateStore.GetConversationState(ctx, chatID)
	if err != nil {
		return models.ConversationState{}, fmt.Errorf("failed to load conversation state: %w", err)
	}
	state := models.NewConversationState()
	if stored != nil {
		state = *stored
	}

	if state.LeadID == "" && h.store != nil {
		if leadID := h.latestLeadForChat(chatID); leadID != "" {
			slog.Debug("SessionHandler rebinding lead", "chatID", chatID, "leadID", leadID)
			state.LeadID = leadID
			state.LastIntent = ""
		}
	}
	return state, nil
}

// latestLeadForChat returns the most recently created lead id for a chat, or
// empty when none exists.
func (h *SessionHandler) latestLeadForChat(chatID string) string {
	leads, err := h.store.ListLeads()
	if err != nil {
		slog.Error("SessionHandler failed to list leads", "error", err, "chatID", chatID)
		return ""
	}
	var leadID string
	for _, lead := range leads {
		if lead.ChatID == chatID {
			leadID = lead.ID
		}
	}
	return leadID
}

// classify runs intent classification. Failures degrade to a nil intent so
// the turn pipeline falls back to its text heuristics.
func (h *SessionHandler) classify(ctx context.Context, chatID, text string) *models.IntentResult {
	if h.genaiClient == nil {
		return nil
	}
	intent, err := h.genaiClient.Classify(ctx, text)
	if err != nil {
		slog.Error("SessionHandler classification failed", "error", err, "chatID", chatID)
		return nil
	}
	return intent
}

// extract runs lead extraction for intents that carry lead content. The result
// is wrapped so the turn pipeline can distinguish failure from absence.
func (h *SessionHandler) extract(ctx context.Context, chatID, text string, intent *models.IntentResult, state models.ConversationState) *models.AnalysisResult {
	if h.genaiClient == nil {
		return nil
	}
	if intent != nil {
		switch intent.Intent {
		case models.IntentGreeting, models.IntentGeneralQuestion, models.IntentLogMeasurement, models.IntentGenerateQuoteOptions:
			return nil
		}
	}
	// A confirmation reply to a pending recap carries no lead content.
	if state.LastIntent == models.StageLeadCaptured && confirm.Resolve(text) != confirm.Ambiguous {
		return nil
	}

	data, err := h.genaiClient.Extract(ctx, genai.ExtractRequest{
		Text:          text,
		ContractorID:  h.contractorID,
		DetectedPhone: "+" + chatID,
	})
	if err != nil {
		slog.Error("SessionHandler extraction failed", "error", err, "chatID", chatID)
		return &models.AnalysisResult{Success: false, Error: err.Error()}
	}
	return &models.AnalysisResult{Success: true, Data: data}
}

// recordMeasurements parses sizing figures out of the utterance and merges
// them into the lead's stored measurement.
func (h *SessionHandler) recordMeasurements(chatID, leadID, text string) {
	parsed := flow.ParseMeasurementText(text)
	if !parsed.HasSignal() && parsed.Coats == nil {
		return
	}

	data := parsed
	if existing, err := h.store.GetMeasurement(leadID); err == nil && existing != nil {
		data = flow.MergeMeasurements(existing.Data, parsed)
	}
	if err := h.store.SaveMeasurement(models.Measurement{LeadID: leadID, Data: data}); err != nil {
		slog.Error("SessionHandler failed to save measurement", "error", err, "chatID", chatID, "leadID", leadID)
		return
	}
	slog.Debug("SessionHandler recorded measurements", "chatID", chatID, "leadID", leadID)
}

// loadMeasurements fetches the measurement sidecar for a bound lead.
func (h *SessionHandler) loadMeasurements(chatID, leadID string) *models.MeasurementData {
	if leadID == "" || h.store == nil {
		return nil
	}
	m, err := h.store.GetMeasurement(leadID)
	if err != nil {
		slog.Error("SessionHandler failed to load measurement", "error", err, "chatID", chatID, "leadID", leadID)
		return nil
	}
	if m == nil {
		return nil
	}
	return &m.Data
}

// applyDecision persists the successor state and executes the decision's side
// effects: lead capture on the NEW -> LEAD_CAPTURED transition, pending-recap
// bookkeeping, and tool call execution.
func (h *SessionHandler) applyDecision(ctx context.Context, chatID string, analysis *models.AnalysisResult, prior models.ConversationState, decision models.TurnDecision) (string, error) {
	reply := decision.Reply
	newState := decision.State

	// Remember the extraction behind an outstanding recap so the confirming
	// turn can build the lead from it.
	if newState.LastIntent == models.StageLeadCaptured && analysis != nil && analysis.Success && analysis.Data != nil {
		h.mu.Lock()
		h.pendingAnalysis[chatID] = analysis.Data
		h.mu.Unlock()
	}

	if prior.LeadStatus == models.LeadStatusNew && newState.LeadStatus == models.LeadStatusCaptured && newState.LeadID == "" {
		leadID, err := h.captureLead(chatID)
		if err != nil {
			slog.Error("SessionHandler lead capture failed", "error", err, "chatID", chatID)
			return "", err
		}
		newState.LeadID = leadID
	}

	if err := h.stateStore.SetConversationState(ctx, chatID, newState); err != nil {
		return "", fmt.Errorf("failed to persist conversation state: %w", err)
	}

	if decision.ToolCall != nil {
		reply = h.executeToolCall(ctx, chatID, decision.ToolCall, reply)
	}

	return reply, nil
}

// captureLead mints a lead id and persists the lead built from the pending
// recap extraction.
func (h *SessionHandler) captureLead(chatID string) (string, error) {
	h.mu.Lock()
	analysis := h.pendingAnalysis[chatID]
	delete(h.pendingAnalysis, chatID)
	h.mu.Unlock()

	lead := models.Lead{
		ID:           uuid.New().String(),
		ContractorID: h.contractorID,
		ChatID:       chatID,
		JobType:      models.JobTypeUnknown,
		Urgency:      models.UrgencyUnknown,
		CreatedAt:    time.Now(),
	}
	if analysis != nil {
		lead.CustomerName = analysis.CustomerName
		lead.CustomerPhone = analysis.CustomerPhone
		lead.Location = analysis.Location
		if analysis.JobType != "" {
			lead.JobType = analysis.JobType
		}
		if analysis.Urgency != "" {
			lead.Urgency = analysis.Urgency
		}
		lead.InteriorScope = analysis.InteriorScope
		lead.ExteriorScope = analysis.ExteriorScope
		lead.PreferredLanguage = analysis.PreferredLanguage
	}

	if h.store != nil {
		if err := h.store.SaveLead(lead); err != nil {
			return "", fmt.Errorf("failed to save lead: %w", err)
		}
	}
	slog.Info("SessionHandler lead captured", "chatID", chatID, "leadID", lead.ID, "jobType", lead.JobType)
	return lead.ID, nil
}

// executeToolCall runs the quote executor and appends its output to the reply.
// Executor failures degrade to an apology rather than failing the turn.
func (h *SessionHandler) executeToolCall(ctx context.Context, chatID string, toolCall *models.ToolCall, reply string) string {
	if h.quoteExec == nil {
		slog.Warn("SessionHandler no quote executor configured", "chatID", chatID)
		return reply
	}

	args, err := toolCall.ParseQuoteArguments()
	if err != nil {
		slog.Error("SessionHandler invalid quote tool call", "error", err, "chatID", chatID)
		return reply
	}

	result, err := h.quoteExec.Execute(ctx, args)
	if err != nil {
		slog.Error("SessionHandler quote execution failed", "error", err, "chatID", chatID, "leadID", args.LeadID)
		return reply + "\n\nI couldn't prepare the quote just now; I'll share it shortly."
	}
	return reply + "\n\n" + result
}
