package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PaintKaro/LeadPipe/internal/confirm"
	"github.com/PaintKaro/LeadPipe/internal/models"
)

// StepFlowStartCommand begins (or restarts) the guided site-intake flow.
const StepFlowStartCommand = "/newsite"

// stepQuestion is one slot in the guided flow: a state key and the question
// that fills it.
type stepQuestion struct {
	Key      string
	Question string
}

// stepQuestions is the ordered question script. Adding a question here is the
// only change needed to extend the flow.
var stepQuestions = []stepQuestion{
	{Key: "work_location", Question: "Where is the work site located?"},
	{Key: "rooms_count", Question: "How many rooms need painting?"},
}

const (
	stepAssignQuestion  = "Should I assign resources to this site? (yes/no)"
	stepAssignReprompt  = "Please reply yes or no: should I assign resources to this site?"
	stepFlowIdlePrompt  = "Send " + StepFlowStartCommand + " to start a new site intake."
	stepFlowDonePrefix  = "Site intake complete."
	stepFlowStartPrefix = "Starting a new site intake."
)

// StepFlowResult is the outcome of one step-flow turn. Save is non-nil only on
// the turn that completes the flow.
type StepFlowResult struct {
	Reply string
	Save  *models.StepFlowSave
}

// StepFlow is the deterministic guided intake: a fixed question script followed
// by a yes/no resource-assignment confirmation. All state lives in the
// StateStore; the flow itself holds no per-chat data.
type StepFlow struct {
	stateStore StateStore
}

// NewStepFlow creates a StepFlow backed by the given state store.
func NewStepFlow(stateStore StateStore) *StepFlow {
	return &StepFlow{stateStore: stateStore}
}

// Active reports whether a step-flow session is in progress for the chat.
func (f *StepFlow) Active(ctx context.Context, chatID string) (bool, error) {
	state, err := f.stateStore.GetStepFlowState(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to get step flow state: %w", err)
	}
	return state != nil, nil
}

// Handle advances the flow by one turn. The start command always resets to the
// first question, even mid-flow. An ambiguous answer to the final confirmation
// reprompts without losing collected answers.
func (f *StepFlow) Handle(ctx context.Context, chatID string, text string) (StepFlowResult, error) {
	if chatID == "" {
		return StepFlowResult{}, models.ErrEmptyChatID
	}

	if confirm.Normalize(text) == StepFlowStartCommand {
		return f.start(ctx, chatID)
	}

	state, err := f.stateStore.GetStepFlowState(ctx, chatID)
	if err != nil {
		return StepFlowResult{}, fmt.Errorf("failed to get step flow state: %w", err)
	}
	if state == nil {
		return StepFlowResult{Reply: stepFlowIdlePrompt}, nil
	}

	if state.WaitingForAssignConfirm {
		return f.resolveAssignConfirm(ctx, chatID, state, text)
	}
	return f.recordAnswer(ctx, chatID, state, text)
}

// start resets any in-progress session and asks the first question.
func (f *StepFlow) start(ctx context.Context, chatID string) (StepFlowResult, error) {
	state := models.StepFlowState{Step: 0, Answers: make(map[string]string)}
	if err := f.stateStore.SetStepFlowState(ctx, chatID, state); err != nil {
		return StepFlowResult{}, fmt.Errorf("failed to save step flow state: %w", err)
	}
	slog.Debug("StepFlow.start: session started", "chatID", chatID)
	return StepFlowResult{
		Reply: stepFlowStartPrefix + " " + stepQuestions[0].Question,
	}, nil
}

// recordAnswer stores the answer to the current question and advances; past
// the last question it arms the assignment confirmation.
func (f *StepFlow) recordAnswer(ctx context.Context, chatID string, state *models.StepFlowState, text string) (StepFlowResult, error) {
	if state.Answers == nil {
		state.Answers = make(map[string]string)
	}
	if state.Step < len(stepQuestions) {
		state.Answers[stepQuestions[state.Step].Key] = text
		state.Step++
	}

	if state.Step < len(stepQuestions) {
		if err := f.stateStore.SetStepFlowState(ctx, chatID, *state); err != nil {
			return StepFlowResult{}, fmt.Errorf("failed to save step flow state: %w", err)
		}
		return StepFlowResult{Reply: stepQuestions[state.Step].Question}, nil
	}

	state.WaitingForAssignConfirm = true
	if err := f.stateStore.SetStepFlowState(ctx, chatID, *state); err != nil {
		return StepFlowResult{}, fmt.Errorf("failed to save step flow state: %w", err)
	}
	return StepFlowResult{Reply: stepAssignQuestion}, nil
}

// resolveAssignConfirm resolves the final yes/no and completes the flow.
func (f *StepFlow) resolveAssignConfirm(ctx context.Context, chatID string, state *models.StepFlowState, text string) (StepFlowResult, error) {
	verdict := confirm.Resolve(text)
	if verdict == confirm.Ambiguous {
		return StepFlowResult{Reply: stepAssignReprompt}, nil
	}

	save := &models.StepFlowSave{
		WorkLocation:    state.Answers["work_location"],
		RoomsCount:      state.Answers["rooms_count"],
		AssignResources: verdict == confirm.Yes,
	}
	if err := f.stateStore.DeleteStepFlowState(ctx, chatID); err != nil {
		return StepFlowResult{}, fmt.Errorf("failed to delete step flow state: %w", err)
	}
	slog.Debug("StepFlow.resolveAssignConfirm: session complete",
		"chatID", chatID, "assignResources", save.AssignResources)
	return StepFlowResult{
		Reply: fmt.Sprintf("%s Location: %s, rooms: %s, assign resources: %t.",
			stepFlowDonePrefix, save.WorkLocation, save.RoomsCount, save.AssignResources),
		Save: save,
	}, nil
}
