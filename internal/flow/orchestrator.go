package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/confirm"
	"github.com/PaintKaro/LeadPipe/internal/models"
)

// Fixed reply fragments. Exported only through TurnDecision replies; kept as
// consts so orchestrator tests assert against the same strings.
const (
	replyGreeting        = "Hi! I help painting contractors capture job details and prepare quotes. Tell me about the work you need done."
	replyQuoteAck        = "Got it, preparing quote options for you now."
	replyWhichProject    = "Which project is this for?"
	replyMeasurementAck  = "Noted, I've logged those measurements against the project."
	replyAskVisitSlot    = "Great! When would you like us to visit the site? Please share a convenient date and time."
	replyVisitSlotAgain  = "Just let me know a convenient date and time for the site visit."
	replyAskWhatToChange = "No problem. What would you like to change?"
	replyExtractRetry    = "Sorry, I couldn't catch that. Could you describe the work again?"
	replyFallback        = "Understood. Is there anything else you'd like to share about the job?"
)

// TurnInput carries everything one turn needs. The orchestrator reads it and
// the prior state; it performs no I/O and never mutates its inputs.
type TurnInput struct {
	ChatID       string
	Text         string
	Intent       *models.IntentResult
	Analysis     *models.AnalysisResult
	State        models.ConversationState
	Measurements *models.MeasurementData
}

// ProcessTurn runs the precedence ladder over one inbound turn and returns the
// decision: reply text, the successor state, and any side-effect directives.
// Rules are evaluated strictly in order and the first one that handles the
// turn wins; a rule may decline (for example an ambiguous confirmation) and
// let evaluation continue down the ladder.
func ProcessTurn(in TurnInput) models.TurnDecision {
	rules := []func(TurnInput) (models.TurnDecision, bool){
		ruleClassifiedGreeting,
		ruleGenerateQuote,
		ruleUnboundLeadReference,
		ruleLogMeasurement,
		ruleTextGreeting,
		ruleRecapConfirmation,
		ruleExtractionFailure,
		ruleLeadIntake,
		ruleVisitScheduling,
	}
	for _, rule := range rules {
		if decision, ok := rule(in); ok {
			return decision
		}
	}
	slog.Debug("Orchestrator.ProcessTurn: no rule matched, using fallback", "chatID", in.ChatID)
	return models.TurnDecision{Reply: replyFallback, State: in.State}
}

// ruleClassifiedGreeting handles GREETING and GENERAL_QUESTION intents.
func ruleClassifiedGreeting(in TurnInput) (models.TurnDecision, bool) {
	if in.Intent == nil {
		return models.TurnDecision{}, false
	}
	if in.Intent.Intent != models.IntentGreeting && in.Intent.Intent != models.IntentGeneralQuestion {
		return models.TurnDecision{}, false
	}
	state := in.State
	state.LastIntent = models.StageGreeting
	return models.TurnDecision{Reply: replyGreeting, State: state}, true
}

// ruleGenerateQuote handles GENERATE_QUOTE_OPTIONS: run the dependency gate,
// and either report the unmet prerequisites or emit the quote tool call.
func ruleGenerateQuote(in TurnInput) (models.TurnDecision, bool) {
	if in.Intent == nil || in.Intent.Intent != models.IntentGenerateQuoteOptions {
		return models.TurnDecision{}, false
	}

	state := in.State
	state.LastIntent = models.StageNew

	deps := CheckQuoteDependencies(in.State, in.Measurements)
	if len(deps) > 0 {
		slog.Debug("Orchestrator.ruleGenerateQuote: gate unsatisfied",
			"chatID", in.ChatID, "dependencies", len(deps))
		return models.TurnDecision{
			Reply:        JoinDependencyMessages(deps),
			State:        state,
			Dependencies: deps,
		}, true
	}

	var analysis *models.LeadAnalysis
	if in.Analysis != nil && in.Analysis.Success {
		analysis = in.Analysis.Data
	}
	toolCall, err := BuildQuoteToolCall(in.State, analysis, in.Text)
	if err != nil {
		slog.Error("Orchestrator.ruleGenerateQuote: failed to build tool call",
			"error", err, "chatID", in.ChatID)
		return models.TurnDecision{Reply: replyExtractRetry, State: state}, true
	}
	return models.TurnDecision{Reply: replyQuoteAck, State: state, ToolCall: toolCall}, true
}

// ruleUnboundLeadReference handles UPDATE_EXISTING_LEAD and LOG_MEASUREMENT
// when no lead is bound: the user refers to a project we cannot identify.
func ruleUnboundLeadReference(in TurnInput) (models.TurnDecision, bool) {
	if in.Intent == nil || in.State.LeadID != "" {
		return models.TurnDecision{}, false
	}
	if in.Intent.Intent != models.IntentUpdateExistingLead && in.Intent.Intent != models.IntentLogMeasurement {
		return models.TurnDecision{}, false
	}

	reply := replyWhichProject
	if hint := strings.TrimSpace(in.Intent.LeadHint); hint != "" {
		reply = fmt.Sprintf("Which project is this for? You mentioned %q.", hint)
	}
	state := in.State
	state.LastIntent = models.StageNew
	return models.TurnDecision{Reply: reply, State: state}, true
}

// ruleLogMeasurement acknowledges a measurement logged against a bound lead.
func ruleLogMeasurement(in TurnInput) (models.TurnDecision, bool) {
	if in.Intent == nil || in.Intent.Intent != models.IntentLogMeasurement || in.State.LeadID == "" {
		return models.TurnDecision{}, false
	}
	state := in.State
	state.LastIntent = models.StageNew
	return models.TurnDecision{Reply: replyMeasurementAck, State: state}, true
}

// ruleTextGreeting catches greeting text the classifier missed (or when no
// classifier output is available at all).
func ruleTextGreeting(in TurnInput) (models.TurnDecision, bool) {
	if !confirm.IsGreeting(in.Text) {
		return models.TurnDecision{}, false
	}
	state := in.State
	state.LastIntent = models.StageGreeting
	return models.TurnDecision{Reply: replyGreeting, State: state}, true
}

// ruleRecapConfirmation resolves yes/no after a recap was issued. The rule is
// armed only while a recap is pending: last intent LEAD_CAPTURED with the lead
// still uncaptured. Ambiguous text declines so the ladder continues.
func ruleRecapConfirmation(in TurnInput) (models.TurnDecision, bool) {
	if in.State.LastIntent != models.StageLeadCaptured || in.State.LeadStatus != models.LeadStatusNew {
		return models.TurnDecision{}, false
	}

	switch confirm.Resolve(in.Text) {
	case confirm.Yes:
		state := in.State
		state.LeadStatus = models.LeadStatusCaptured
		state.LastIntent = models.StageScheduleSiteVisit
		slog.Debug("Orchestrator.ruleRecapConfirmation: lead confirmed", "chatID", in.ChatID)
		return models.TurnDecision{Reply: replyAskVisitSlot, State: state}, true
	case confirm.No:
		state := in.State
		state.LastIntent = models.StageLeadModification
		return models.TurnDecision{Reply: replyAskWhatToChange, State: state}, true
	default:
		return models.TurnDecision{}, false
	}
}

// ruleExtractionFailure turns an extractor failure into a gentle retry prompt
// without touching state.
func ruleExtractionFailure(in TurnInput) (models.TurnDecision, bool) {
	if in.Analysis == nil || in.Analysis.Success {
		return models.TurnDecision{}, false
	}
	slog.Debug("Orchestrator.ruleExtractionFailure: extraction failed",
		"chatID", in.ChatID, "error", in.Analysis.Error)
	return models.TurnDecision{Reply: replyExtractRetry, State: in.State}, true
}

// ruleLeadIntake drives the capture loop from a successful extraction: ask for
// whatever is still missing, or recap the lead and ask for confirmation.
func ruleLeadIntake(in TurnInput) (models.TurnDecision, bool) {
	if in.Analysis == nil || !in.Analysis.Success || in.Analysis.Data == nil {
		return models.TurnDecision{}, false
	}

	var intent models.HighLevelIntent
	if in.Intent != nil {
		intent = in.Intent.Intent
	}
	missing := ComputeMissingFields(in.Analysis.Data, intent)

	if len(missing.Questions) > 0 {
		state := in.State
		state.LeadStatus = models.LeadStatusNew
		state.LastIntent = models.StageNew
		return models.TurnDecision{
			Reply:   strings.Join(missing.Questions, "\n"),
			State:   state,
			Missing: missing.Missing,
		}, true
	}

	if in.State.LeadStatus != models.LeadStatusNew {
		// Already captured; nothing to recap. Let later rules decide.
		return models.TurnDecision{}, false
	}

	state := in.State
	state.LastIntent = models.StageLeadCaptured
	return models.TurnDecision{Reply: buildRecap(in.Analysis.Data), State: state}, true
}

// ruleVisitScheduling keeps prompting for a visit slot once a captured lead
// has entered scheduling.
func ruleVisitScheduling(in TurnInput) (models.TurnDecision, bool) {
	if in.State.LastIntent != models.StageScheduleSiteVisit || in.State.LeadStatus != models.LeadStatusCaptured {
		return models.TurnDecision{}, false
	}
	return models.TurnDecision{Reply: replyVisitSlotAgain, State: in.State}, true
}

// buildRecap composes the confirmation recap from whatever fields the analysis
// actually has; unknown enum values are omitted rather than echoed.
func buildRecap(a *models.LeadAnalysis) string {
	var lines []string
	lines = append(lines, "Here's what I have so far:")
	if a.CustomerName != "" || a.CustomerPhone != "" {
		contact := a.CustomerName
		if a.CustomerPhone != "" {
			if contact != "" {
				contact += ", "
			}
			contact += a.CustomerPhone
		}
		lines = append(lines, "- Customer: "+contact)
	}
	if a.Location != "" {
		lines = append(lines, "- Location: "+a.Location)
	}
	if a.JobType != "" && a.JobType != models.JobTypeUnknown {
		lines = append(lines, "- Work: "+strings.ReplaceAll(string(a.JobType), "_", " "))
	}
	if a.Urgency != "" && a.Urgency != models.UrgencyUnknown {
		lines = append(lines, "- Timing: "+strings.ReplaceAll(string(a.Urgency), "_", " "))
	}
	lines = append(lines, "Shall I save this as a new job lead? (yes/no)")
	return strings.Join(lines, "\n")
}
