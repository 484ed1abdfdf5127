// Package models defines the core data structures for LeadPipe.
//
// It includes conversation state, lead analysis and intent types, quote
// dependencies, and message envelopes shared across modules.
package models

import (
	"errors"
	"time"
)

// LeadStatus tracks whether a conversation has produced a captured lead.
type LeadStatus string

const (
	// LeadStatusNew indicates no lead has been captured in this conversation yet.
	LeadStatusNew LeadStatus = "NEW"
	// LeadStatusCaptured indicates the user confirmed the recap and the lead was captured.
	LeadStatusCaptured LeadStatus = "LEAD_CAPTURED"
)

// IntentStage is the advisory last-intent marker carried between turns.
// It must not be trusted across a lead rebinding.
type IntentStage string

const (
	StageGreeting          IntentStage = "GREETING"
	StageNew               IntentStage = "NEW"
	StageLeadCaptured      IntentStage = "LEAD_CAPTURED"
	StageLeadModification  IntentStage = "LEAD_MODIFICATION"
	StageScheduleSiteVisit IntentStage = "SCHEDULE_SITE_VISIT"
)

// ConversationState is the persistent per-conversation state mutated only by the
// turn orchestrator. LeadStatus transitions only NEW -> LEAD_CAPTURED and never
// reverts.
type ConversationState struct {
	LeadStatus LeadStatus  `json:"lead_status"`
	LastIntent IntentStage `json:"last_intent,omitempty"`
	LeadID     string      `json:"lead_id,omitempty"`
}

// NewConversationState returns the initial state for a first turn.
func NewConversationState() ConversationState {
	return ConversationState{LeadStatus: LeadStatusNew}
}

// HighLevelIntent is the closed intent enum produced by the external classifier.
type HighLevelIntent string

const (
	IntentGreeting             HighLevelIntent = "GREETING"
	IntentNewLead              HighLevelIntent = "NEW_LEAD"
	IntentGenerateQuoteOptions HighLevelIntent = "GENERATE_QUOTE_OPTIONS"
	IntentUpdateExistingLead   HighLevelIntent = "UPDATE_EXISTING_LEAD"
	IntentLogMeasurement       HighLevelIntent = "LOG_MEASUREMENT"
	IntentGeneralQuestion      HighLevelIntent = "GENERAL_QUESTION"
	IntentOther                HighLevelIntent = "OTHER"
)

// IsValidIntent checks whether the given intent is a member of the closed enum.
func IsValidIntent(i HighLevelIntent) bool {
	switch i {
	case IntentGreeting, IntentNewLead, IntentGenerateQuoteOptions,
		IntentUpdateExistingLead, IntentLogMeasurement, IntentGeneralQuestion, IntentOther:
		return true
	default:
		return false
	}
}

// IntentResult is the classifier output for one utterance.
type IntentResult struct {
	Intent   HighLevelIntent `json:"intent"`
	LeadHint string          `json:"lead_hint,omitempty"`
	Topic    string          `json:"topic,omitempty"`
}

// JobType is the closed job-type enum used in lead analysis.
type JobType string

const (
	JobTypeFreshPainting JobType = "fresh_painting"
	JobTypeRepainting    JobType = "repainting"
	JobTypeWaterproofing JobType = "waterproofing"
	JobTypeTexture       JobType = "texture"
	JobTypeUnknown       JobType = "unknown"
)

// Urgency is the closed urgency enum used in lead analysis.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyThisMonth Urgency = "this_month"
	UrgencyFlexible  Urgency = "flexible"
	UrgencyUnknown   Urgency = "unknown"
)

// LeadAnalysis is the structured extraction of one utterance, produced by the
// external extractor. Read-only to the orchestrator.
type LeadAnalysis struct {
	CustomerName      string  `json:"customer_name,omitempty"`
	CustomerPhone     string  `json:"customer_phone,omitempty"`
	Location          string  `json:"location,omitempty"`
	JobType           JobType `json:"job_type"`
	InteriorScope     *bool   `json:"interior_scope,omitempty"`
	ExteriorScope     *bool   `json:"exterior_scope,omitempty"`
	Urgency           Urgency `json:"urgency"`
	PreferredLanguage string  `json:"preferred_language,omitempty"`
}

// AnalysisResult wraps the extractor call outcome before it reaches the
// orchestrator. A failed call carries Error and Success=false; the orchestrator
// treats that as a recoverable condition, never a hard error.
type AnalysisResult struct {
	Success bool          `json:"success"`
	Data    *LeadAnalysis `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// MeasurementData is the optional measurement sidecar for a bound lead. The
// orchestrator only reads presence or absence of fields.
type MeasurementData struct {
	BHK             *int     `json:"bhk,omitempty"`
	Sqft            *float64 `json:"sqft,omitempty"`
	PaintableArea   *float64 `json:"paintable_area,omitempty"`
	Ceilings        *bool    `json:"ceilings,omitempty"`
	Coats           *int     `json:"coats,omitempty"`
	Dampness        *bool    `json:"dampness,omitempty"`
	PuttyLevel      string   `json:"putty_level,omitempty"`
	BrandPreference string   `json:"brand_preference,omitempty"`
}

// HasSignal reports whether any sizing field (bhk, sqft, paintable area) is present.
func (m *MeasurementData) HasSignal() bool {
	if m == nil {
		return false
	}
	return m.BHK != nil || m.Sqft != nil || m.PaintableArea != nil
}

// HasArea reports whether an area field (sqft or paintable area) is present.
func (m *MeasurementData) HasArea() bool {
	if m == nil {
		return false
	}
	return m.Sqft != nil || m.PaintableArea != nil
}

// DependencyType identifies an unmet quote prerequisite.
type DependencyType string

const (
	DependencyProjectRequired       DependencyType = "PROJECT_REQUIRED"
	DependencyMeasurementRequired   DependencyType = "MEASUREMENT_REQUIRED"
	DependencyBHKRequired           DependencyType = "BHK_REQUIRED"
	DependencySqftRequired          DependencyType = "SQFT_REQUIRED"
	DependencyPaintableAreaRequired DependencyType = "PAINTABLE_AREA_REQUIRED"
)

// Dependency is a transient unmet precondition blocking quote generation.
// Constructed fresh per turn, never persisted.
type Dependency struct {
	Type    DependencyType `json:"type"`
	Message string         `json:"message"`
	Action  string         `json:"action,omitempty"`
}

// TurnDecision is the turn orchestrator output: a reply, the new conversation
// state, and optional side-effect directives for the caller to apply.
type TurnDecision struct {
	Reply        string            `json:"reply"`
	State        ConversationState `json:"state"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	Dependencies []Dependency      `json:"dependencies,omitempty"`
	Missing      map[string]bool   `json:"missing,omitempty"`
}

// Lead is a captured job opportunity persisted by the session layer once the
// user confirms the recap.
type Lead struct {
	ID                string    `json:"id"`
	ContractorID      string    `json:"contractor_id,omitempty"`
	ChatID            string    `json:"chat_id"`
	CustomerName      string    `json:"customer_name,omitempty"`
	CustomerPhone     string    `json:"customer_phone,omitempty"`
	Location          string    `json:"location,omitempty"`
	JobType           JobType   `json:"job_type"`
	InteriorScope     *bool     `json:"interior_scope,omitempty"`
	ExteriorScope     *bool     `json:"exterior_scope,omitempty"`
	Urgency           Urgency   `json:"urgency"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Measurement associates measurement data with a lead.
type Measurement struct {
	LeadID    string          `json:"lead_id"`
	Data      MeasurementData `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Error variables for validation and storage.
var (
	ErrEmptyChatID   = errors.New("chat id cannot be empty")
	ErrEmptyLeadID   = errors.New("lead id cannot be empty")
	ErrLeadNotFound  = errors.New("lead not found")
	ErrEmptyToolName = errors.New("tool name cannot be empty")
)

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records a delivery status event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming message from a participant.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and result.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Recorded creates a recorded API response.
func Recorded() APIResponse {
	return APIResponse{Status: string(APIStatusRecorded)}
}
