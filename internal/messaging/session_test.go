package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/PaintKaro/LeadPipe/internal/flow"
	"github.com/PaintKaro/LeadPipe/internal/genai"
	"github.com/PaintKaro/LeadPipe/internal/models"
	"github.com/PaintKaro/LeadPipe/internal/store"
)

// mockService records sent messages and exposes writable event channels.
type mockService struct {
	sent      []string
	responses chan models.Response
	receipts  chan models.Receipt
}

func newMockService() *mockService {
	return &mockService{
		responses: make(chan models.Response, DefaultChannelBufferSize),
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhoneNumber(recipient)
}

func (m *mockService) SendMessage(ctx context.Context, to string, body string) error {
	m.sent = append(m.sent, body)
	return nil
}

func (m *mockService) Start(ctx context.Context) error   { return nil }
func (m *mockService) Stop() error                       { return nil }
func (m *mockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *mockService) Responses() <-chan models.Response { return m.responses }

// stubGenAI returns canned classification and extraction results.
type stubGenAI struct {
	intent   *models.IntentResult
	analysis *models.LeadAnalysis
}

func (s *stubGenAI) Classify(ctx context.Context, text string) (*models.IntentResult, error) {
	if s.intent == nil {
		return &models.IntentResult{Intent: models.IntentOther}, nil
	}
	return s.intent, nil
}

func (s *stubGenAI) Extract(ctx context.Context, req genai.ExtractRequest) (*models.LeadAnalysis, error) {
	if s.analysis == nil {
		return &models.LeadAnalysis{JobType: models.JobTypeUnknown, Urgency: models.UrgencyUnknown}, nil
	}
	return s.analysis, nil
}

func newTestHandler(g genai.ClientInterface) (*SessionHandler, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	stateStore := flow.NewInMemoryStateStore()
	handler := NewSessionHandler(newMockService(), g, stateStore, st, NewSummaryQuoteExecutor(st), "contractor-1")
	return handler, st
}

func TestSessionHandlerGreeting(t *testing.T) {
	handler, _ := newTestHandler(&stubGenAI{intent: &models.IntentResult{Intent: models.IntentGreeting}})

	reply, err := handler.HandleMessage(context.Background(), "919812345678", "namaste")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "painting contractors") {
		t.Errorf("reply = %q, want greeting", reply)
	}
}

func TestSessionHandlerCapturesLeadOnConfirmation(t *testing.T) {
	ctx := context.Background()
	chatID := "919812345678"
	g := &stubGenAI{
		intent: &models.IntentResult{Intent: models.IntentNewLead},
		analysis: &models.LeadAnalysis{
			CustomerName: "Ravi",
			Location:     "Andheri West",
			JobType:      models.JobTypeRepainting,
			Urgency:      models.UrgencyThisMonth,
		},
	}
	handler, st := newTestHandler(g)

	// Turn 1: complete extraction produces a recap.
	reply, err := handler.HandleMessage(ctx, chatID, "Ravi here, repaint my flat in Andheri West this month")
	if err != nil {
		t.Fatalf("turn 1 failed: %v", err)
	}
	if !strings.Contains(reply, "Ravi") || !strings.Contains(reply, "(yes/no)") {
		t.Errorf("turn 1 reply = %q, want recap", reply)
	}

	// Turn 2: confirmation captures and persists the lead. The stub keeps
	// classifying NEW_LEAD but the pending-recap rule runs first.
	reply, err = handler.HandleMessage(ctx, chatID, "haan")
	if err != nil {
		t.Fatalf("turn 2 failed: %v", err)
	}
	if !strings.Contains(reply, "visit") {
		t.Errorf("turn 2 reply = %q, want visit-slot prompt", reply)
	}

	leads, err := st.ListLeads()
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 captured lead, got %d", len(leads))
	}
	lead := leads[0]
	if lead.CustomerName != "Ravi" || lead.ChatID != chatID || lead.ContractorID != "contractor-1" {
		t.Errorf("lead = %+v", lead)
	}
	if lead.JobType != models.JobTypeRepainting {
		t.Errorf("JobType = %s, want %s", lead.JobType, models.JobTypeRepainting)
	}

	state, err := handler.stateStore.GetConversationState(ctx, chatID)
	if err != nil {
		t.Fatalf("GetConversationState failed: %v", err)
	}
	if state == nil || state.LeadStatus != models.LeadStatusCaptured {
		t.Errorf("state = %+v, want captured", state)
	}
	if state.LeadID != lead.ID {
		t.Errorf("state.LeadID = %q, want %q", state.LeadID, lead.ID)
	}
}

func TestSessionHandlerQuoteWithMeasurements(t *testing.T) {
	ctx := context.Background()
	chatID := "919812345678"
	g := &stubGenAI{intent: &models.IntentResult{Intent: models.IntentGenerateQuoteOptions}}
	handler, st := newTestHandler(g)

	// Seed a captured lead with measurements.
	if err := st.SaveLead(models.Lead{ID: "lead-1", ChatID: chatID, JobType: models.JobTypeRepainting, Urgency: models.UrgencyFlexible}); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}
	sqft := 1000.0
	if err := st.SaveMeasurement(models.Measurement{LeadID: "lead-1", Data: models.MeasurementData{Sqft: &sqft}}); err != nil {
		t.Fatalf("SaveMeasurement failed: %v", err)
	}
	if err := handler.stateStore.SetConversationState(ctx, chatID, models.ConversationState{
		LeadStatus: models.LeadStatusCaptured,
		LeadID:     "lead-1",
	}); err != nil {
		t.Fatalf("SetConversationState failed: %v", err)
	}

	reply, err := handler.HandleMessage(ctx, chatID, "2 options, timeline 5 days")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "Quote options") {
		t.Errorf("reply = %q, want quote options", reply)
	}
	if !strings.Contains(reply, "Economy") || !strings.Contains(reply, "Standard") {
		t.Errorf("reply = %q, want two tiers", reply)
	}
	if strings.Contains(reply, "Premium") {
		t.Errorf("reply = %q, third tier should be omitted for 2 options", reply)
	}
}

func TestSessionHandlerQuoteBlockedWithoutMeasurements(t *testing.T) {
	ctx := context.Background()
	chatID := "919812345678"
	g := &stubGenAI{intent: &models.IntentResult{Intent: models.IntentGenerateQuoteOptions}}
	handler, _ := newTestHandler(g)

	reply, err := handler.HandleMessage(ctx, chatID, "make me a quote")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "which project") || !strings.Contains(reply, "measurements") {
		t.Errorf("reply = %q, want both unmet prerequisites", reply)
	}
}

func TestSessionHandlerRecordsMeasurements(t *testing.T) {
	ctx := context.Background()
	chatID := "919812345678"
	g := &stubGenAI{intent: &models.IntentResult{Intent: models.IntentLogMeasurement}}
	handler, st := newTestHandler(g)

	if err := st.SaveLead(models.Lead{ID: "lead-1", ChatID: chatID, JobType: models.JobTypeTexture, Urgency: models.UrgencyFlexible}); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}
	if err := handler.stateStore.SetConversationState(ctx, chatID, models.ConversationState{
		LeadStatus: models.LeadStatusCaptured,
		LeadID:     "lead-1",
	}); err != nil {
		t.Fatalf("SetConversationState failed: %v", err)
	}

	reply, err := handler.HandleMessage(ctx, chatID, "2 bhk, around 1100 sqft")
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, "logged") {
		t.Errorf("reply = %q, want measurement ack", reply)
	}

	m, err := st.GetMeasurement("lead-1")
	if err != nil {
		t.Fatalf("GetMeasurement failed: %v", err)
	}
	if m == nil || m.Data.BHK == nil || *m.Data.BHK != 2 {
		t.Errorf("measurement = %+v, want BHK 2", m)
	}
	if m.Data.Sqft == nil || *m.Data.Sqft != 1100 {
		t.Errorf("Sqft = %v, want 1100", m.Data.Sqft)
	}
}

func TestSessionHandlerStepFlowRouting(t *testing.T) {
	ctx := context.Background()
	chatID := "919812345678"
	handler, _ := newTestHandler(&stubGenAI{})

	var saved *models.StepFlowSave
	handler.SetStepFlowSaveFunc(func(id string, save models.StepFlowSave) {
		saved = &save
	})

	reply, err := handler.HandleMessage(ctx, chatID, "/newsite")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !strings.Contains(reply, "located") {
		t.Errorf("reply = %q, want first question", reply)
	}

	// While the flow is active every message routes to it, bypassing the
	// turn pipeline entirely.
	if _, err := handler.HandleMessage(ctx, chatID, "Kothrud, Pune"); err != nil {
		t.Fatalf("answer 1 failed: %v", err)
	}
	if _, err := handler.HandleMessage(ctx, chatID, "3"); err != nil {
		t.Fatalf("answer 2 failed: %v", err)
	}
	reply, err = handler.HandleMessage(ctx, chatID, "yes")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !strings.Contains(reply, "complete") {
		t.Errorf("reply = %q, want completion", reply)
	}
	if saved == nil {
		t.Fatal("save callback not invoked")
	}
	if saved.WorkLocation != "Kothrud, Pune" || saved.RoomsCount != "3" || !saved.AssignResources {
		t.Errorf("save = %+v", saved)
	}
}

func TestSessionHandlerProcessResponseSendsReply(t *testing.T) {
	svc := newMockService()
	st := store.NewInMemoryStore()
	handler := NewSessionHandler(svc, &stubGenAI{intent: &models.IntentResult{Intent: models.IntentGreeting}},
		flow.NewInMemoryStateStore(), st, NewSummaryQuoteExecutor(st), "contractor-1")

	err := handler.ProcessResponse(context.Background(), models.Response{
		From: "+91 98123 45678",
		Body: "hello",
		Time: 1700000000,
	})
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	if len(svc.sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(svc.sent))
	}
	if !strings.Contains(svc.sent[0], "painting contractors") {
		t.Errorf("sent = %q, want greeting", svc.sent[0])
	}
}
