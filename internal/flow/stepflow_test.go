package flow

import (
	"context"
	"strings"
	"testing"
)

func TestStepFlowHappyPath(t *testing.T) {
	ctx := context.Background()
	sf := NewStepFlow(NewInMemoryStateStore())
	chatID := "chat-1"

	result, err := sf.Handle(ctx, chatID, "/newsite")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !strings.Contains(result.Reply, stepQuestions[0].Question) {
		t.Errorf("Reply = %q, want first question", result.Reply)
	}

	result, err = sf.Handle(ctx, chatID, "Koramangala, Bangalore")
	if err != nil {
		t.Fatalf("answer 1 failed: %v", err)
	}
	if result.Reply != stepQuestions[1].Question {
		t.Errorf("Reply = %q, want second question", result.Reply)
	}

	result, err = sf.Handle(ctx, chatID, "4")
	if err != nil {
		t.Fatalf("answer 2 failed: %v", err)
	}
	if result.Reply != stepAssignQuestion {
		t.Errorf("Reply = %q, want assign question", result.Reply)
	}

	result, err = sf.Handle(ctx, chatID, "haan")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.Save == nil {
		t.Fatal("expected a save on completion")
	}
	if result.Save.WorkLocation != "Koramangala, Bangalore" || result.Save.RoomsCount != "4" {
		t.Errorf("Save = %+v", result.Save)
	}
	if !result.Save.AssignResources {
		t.Error("AssignResources = false, want true")
	}

	// Session is gone; next message gets the idle prompt.
	result, err = sf.Handle(ctx, chatID, "anything")
	if err != nil {
		t.Fatalf("post-completion turn failed: %v", err)
	}
	if result.Reply != stepFlowIdlePrompt {
		t.Errorf("Reply = %q, want idle prompt", result.Reply)
	}
}

func TestStepFlowDeclineAssignment(t *testing.T) {
	ctx := context.Background()
	sf := NewStepFlow(NewInMemoryStateStore())
	chatID := "chat-2"

	mustHandle(t, sf, chatID, "/newsite")
	mustHandle(t, sf, chatID, "Wakad")
	mustHandle(t, sf, chatID, "2")
	result, err := sf.Handle(ctx, chatID, "nahi")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.Save == nil {
		t.Fatal("expected a save")
	}
	if result.Save.AssignResources {
		t.Error("AssignResources = true, want false")
	}
}

func TestStepFlowAmbiguousConfirmReprompts(t *testing.T) {
	ctx := context.Background()
	sf := NewStepFlow(NewInMemoryStateStore())
	chatID := "chat-3"

	mustHandle(t, sf, chatID, "/newsite")
	mustHandle(t, sf, chatID, "Aundh")
	mustHandle(t, sf, chatID, "3")

	result, err := sf.Handle(ctx, chatID, "maybe later")
	if err != nil {
		t.Fatalf("ambiguous turn failed: %v", err)
	}
	if result.Save != nil {
		t.Error("ambiguous confirmation must not complete the flow")
	}
	if result.Reply != stepAssignReprompt {
		t.Errorf("Reply = %q, want reprompt", result.Reply)
	}

	// Collected answers survive the reprompt.
	result, err = sf.Handle(ctx, chatID, "yes")
	if err != nil {
		t.Fatalf("confirm after reprompt failed: %v", err)
	}
	if result.Save == nil || result.Save.WorkLocation != "Aundh" {
		t.Errorf("Save = %+v, want preserved answers", result.Save)
	}
}

func TestStepFlowRestartMidFlow(t *testing.T) {
	ctx := context.Background()
	sf := NewStepFlow(NewInMemoryStateStore())
	chatID := "chat-4"

	mustHandle(t, sf, chatID, "/newsite")
	mustHandle(t, sf, chatID, "Hinjewadi")

	// Restart resets to the first question and drops collected answers.
	result, err := sf.Handle(ctx, chatID, "/newsite")
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if !strings.Contains(result.Reply, stepQuestions[0].Question) {
		t.Errorf("Reply = %q, want first question after restart", result.Reply)
	}

	mustHandle(t, sf, chatID, "Baner")
	mustHandle(t, sf, chatID, "5")
	result, err = sf.Handle(ctx, chatID, "yes")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if result.Save == nil || result.Save.WorkLocation != "Baner" {
		t.Errorf("Save = %+v, want post-restart answers only", result.Save)
	}
}

func TestStepFlowIdleWithoutStart(t *testing.T) {
	sf := NewStepFlow(NewInMemoryStateStore())
	result, err := sf.Handle(context.Background(), "chat-5", "hello")
	if err != nil {
		t.Fatalf("idle turn failed: %v", err)
	}
	if result.Reply != stepFlowIdlePrompt {
		t.Errorf("Reply = %q, want idle prompt", result.Reply)
	}
}

func TestStepFlowActive(t *testing.T) {
	ctx := context.Background()
	sf := NewStepFlow(NewInMemoryStateStore())
	chatID := "chat-6"

	active, err := sf.Active(ctx, chatID)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active {
		t.Error("Active = true before start")
	}

	mustHandle(t, sf, chatID, "/newsite")
	active, err = sf.Active(ctx, chatID)
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if !active {
		t.Error("Active = false after start")
	}
}

func mustHandle(t *testing.T, sf *StepFlow, chatID, text string) StepFlowResult {
	t.Helper()
	result, err := sf.Handle(context.Background(), chatID, text)
	if err != nil {
		t.Fatalf("Handle(%q) failed: %v", text, err)
	}
	return result
}
