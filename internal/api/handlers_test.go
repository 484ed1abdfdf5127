package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/PaintKaro/LeadPipe/internal/flow"
	"github.com/PaintKaro/LeadPipe/internal/genai"
	"github.com/PaintKaro/LeadPipe/internal/messaging"
	"github.com/PaintKaro/LeadPipe/internal/models"
	"github.com/PaintKaro/LeadPipe/internal/store"
)

var testDigitsRegex = regexp.MustCompile(`[^0-9]`)

// stubService satisfies messaging.Service for handler tests.
type stubService struct {
	responses chan models.Response
	receipts  chan models.Receipt
}

func newStubService() *stubService {
	return &stubService{
		responses: make(chan models.Response, 1),
		receipts:  make(chan models.Receipt, 1),
	}
}

func (s *stubService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical := testDigitsRegex.ReplaceAllString(recipient, "")
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid recipient: %s", recipient)
	}
	return canonical, nil
}

func (s *stubService) SendMessage(ctx context.Context, to string, body string) error { return nil }
func (s *stubService) Start(ctx context.Context) error                               { return nil }
func (s *stubService) Stop() error                                                   { return nil }
func (s *stubService) Receipts() <-chan models.Receipt                               { return s.receipts }
func (s *stubService) Responses() <-chan models.Response                             { return s.responses }

// stubGenAI returns a fixed classification and no extraction content.
type stubGenAI struct {
	intent models.HighLevelIntent
}

func (s *stubGenAI) Classify(ctx context.Context, text string) (*models.IntentResult, error) {
	return &models.IntentResult{Intent: s.intent}, nil
}

func (s *stubGenAI) Extract(ctx context.Context, req genai.ExtractRequest) (*models.LeadAnalysis, error) {
	return &models.LeadAnalysis{JobType: models.JobTypeUnknown, Urgency: models.UrgencyUnknown}, nil
}

func newTestServer(t *testing.T, intent models.HighLevelIntent) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	svc := newStubService()
	session := messaging.NewSessionHandler(svc, &stubGenAI{intent: intent},
		flow.NewInMemoryStateStore(), st, messaging.NewSummaryQuoteExecutor(st), "contractor-1")
	return NewServer(session, svc, st), st
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	server, _ := newTestServer(t, models.IntentOther)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != string(models.APIStatusOK) {
		t.Errorf("response = %+v, want ok", resp)
	}
}

func TestTurnHandlerGreeting(t *testing.T) {
	server, _ := newTestServer(t, models.IntentGreeting)

	body := strings.NewReader(`{"chat_id": "+91 98123 45678", "text": "namaste"}`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/turn", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %T, want object", resp.Result)
	}
	reply, _ := result["reply"].(string)
	if !strings.Contains(reply, "painting contractors") {
		t.Errorf("reply = %q, want greeting", reply)
	}
}

func TestTurnHandlerValidation(t *testing.T) {
	server, _ := newTestServer(t, models.IntentOther)
	handler := server.Handler()

	cases := []struct {
		name string
		body string
	}{
		{"missing text", `{"chat_id": "919812345678"}`},
		{"missing chat id", `{"text": "hello"}`},
		{"malformed", `{"chat_id": `},
		{"short chat id", `{"chat_id": "123", "text": "hello"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/turn", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTurnHandlerMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, models.IntentOther)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/turn", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestStepFlowHandlerStartsIntake(t *testing.T) {
	server, _ := newTestServer(t, models.IntentOther)

	body := strings.NewReader(`{"chat_id": "919812345678"}`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stepflow", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	result, _ := resp.Result.(map[string]interface{})
	reply, _ := result["reply"].(string)
	if !strings.Contains(reply, "located") {
		t.Errorf("reply = %q, want first intake question", reply)
	}
}

func TestLeadsHandlers(t *testing.T) {
	server, st := newTestServer(t, models.IntentOther)
	handler := server.Handler()

	if err := st.SaveLead(models.Lead{ID: "lead-1", ChatID: "919812345678", CustomerName: "Ravi",
		JobType: models.JobTypeFreshPainting, Urgency: models.UrgencyImmediate}); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	leads, ok := resp.Result.([]interface{})
	if !ok || len(leads) != 1 {
		t.Fatalf("result = %+v, want one lead", resp.Result)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/lead-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	resp = decodeResponse(t, rec)
	lead, _ := resp.Result.(map[string]interface{})
	if name, _ := lead["customer_name"].(string); name != "Ravi" {
		t.Errorf("customer_name = %q, want Ravi", name)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing lead status = %d, want 404", rec.Code)
	}
}

func TestMeasurementsHandler(t *testing.T) {
	server, st := newTestServer(t, models.IntentOther)
	handler := server.Handler()

	if err := st.SaveLead(models.Lead{ID: "lead-1", ChatID: "919812345678",
		JobType: models.JobTypeRepainting, Urgency: models.UrgencyFlexible}); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	body := strings.NewReader(`{"lead_id": "lead-1", "data": {"bhk": 3, "sqft": 1400}}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/measurements", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp := decodeResponse(t, rec); resp.Status != string(models.APIStatusRecorded) {
		t.Errorf("status = %q, want recorded", resp.Status)
	}

	m, err := st.GetMeasurement("lead-1")
	if err != nil {
		t.Fatalf("GetMeasurement failed: %v", err)
	}
	if m == nil || m.Data.BHK == nil || *m.Data.BHK != 3 || m.Data.Sqft == nil || *m.Data.Sqft != 1400 {
		t.Errorf("measurement = %+v", m)
	}

	// Partial update merges rather than replaces.
	body = strings.NewReader(`{"lead_id": "lead-1", "data": {"paintable_area": 2100}}`)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/measurements", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d", rec.Code)
	}
	m, err = st.GetMeasurement("lead-1")
	if err != nil {
		t.Fatalf("GetMeasurement after merge failed: %v", err)
	}
	if m.Data.BHK == nil || *m.Data.BHK != 3 {
		t.Errorf("BHK lost on merge: %+v", m.Data)
	}
	if m.Data.PaintableArea == nil || *m.Data.PaintableArea != 2100 {
		t.Errorf("PaintableArea = %v, want 2100", m.Data.PaintableArea)
	}

	// Unknown lead is rejected.
	body = strings.NewReader(`{"lead_id": "nope", "data": {"bhk": 2}}`)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/measurements", body))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown lead status = %d, want 404", rec.Code)
	}
}
