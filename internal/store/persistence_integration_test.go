package store

import (
	"path/filepath"
	"testing"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// TestSQLiteStatePersistsAcrossReopen verifies that conversation and step-flow
// state written by one store instance is readable by a fresh instance over the
// same database file.
func TestSQLiteStatePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	state := models.ConversationState{
		LeadStatus: models.LeadStatusCaptured,
		LastIntent: models.StageScheduleSiteVisit,
		LeadID:     "lead-1",
	}
	if err := s1.SaveConversationState("chat-1", state); err != nil {
		t.Fatalf("SaveConversationState failed: %v", err)
	}
	stepState := models.StepFlowState{
		Step:                    2,
		Answers:                 map[string]string{"work_location": "Baner", "rooms_count": "3"},
		WaitingForAssignConfirm: true,
	}
	if err := s1.SaveStepFlowState("chat-1", stepState); err != nil {
		t.Fatalf("SaveStepFlowState failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { s2.Close() })

	got, err := s2.GetConversationState("chat-1")
	if err != nil {
		t.Fatalf("GetConversationState failed: %v", err)
	}
	if got == nil || *got != state {
		t.Errorf("got %+v, want %+v", got, state)
	}

	gotStep, err := s2.GetStepFlowState("chat-1")
	if err != nil {
		t.Fatalf("GetStepFlowState failed: %v", err)
	}
	if gotStep == nil || gotStep.Step != 2 || !gotStep.WaitingForAssignConfirm {
		t.Errorf("got %+v, want %+v", gotStep, stepState)
	}
	if gotStep.Answers["work_location"] != "Baner" || gotStep.Answers["rooms_count"] != "3" {
		t.Errorf("answers not persisted: %+v", gotStep.Answers)
	}
}

// TestSQLiteLeadAndMeasurementRoundTrip verifies leads and measurements survive
// a write-read cycle including nullable columns.
func TestSQLiteLeadAndMeasurementRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	interior := true
	lead := models.Lead{
		ID:            "lead-1",
		ContractorID:  "contractor-1",
		ChatID:        "chat-1",
		CustomerName:  "Asha",
		CustomerPhone: "+919812345678",
		Location:      "Aundh, Pune",
		JobType:       models.JobTypeFreshPainting,
		InteriorScope: &interior,
		Urgency:       models.UrgencyImmediate,
	}
	if err := s.SaveLead(lead); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	got, err := s.GetLead("lead-1")
	if err != nil {
		t.Fatalf("GetLead failed: %v", err)
	}
	if got.CustomerName != "Asha" || got.Location != "Aundh, Pune" {
		t.Errorf("lead fields lost: %+v", got)
	}
	if got.InteriorScope == nil || !*got.InteriorScope {
		t.Errorf("InteriorScope = %v, want true", got.InteriorScope)
	}
	if got.ExteriorScope != nil {
		t.Errorf("ExteriorScope = %v, want nil", got.ExteriorScope)
	}

	leads, err := s.ListLeads()
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}

	sqft := 950.5
	coats := 2
	if err := s.SaveMeasurement(models.Measurement{
		LeadID: "lead-1",
		Data:   models.MeasurementData{Sqft: &sqft, Coats: &coats, PuttyLevel: "full"},
	}); err != nil {
		t.Fatalf("SaveMeasurement failed: %v", err)
	}

	m, err := s.GetMeasurement("lead-1")
	if err != nil {
		t.Fatalf("GetMeasurement failed: %v", err)
	}
	if m == nil || m.Data.Sqft == nil || *m.Data.Sqft != 950.5 {
		t.Errorf("measurement lost: %+v", m)
	}
	if m.Data.PuttyLevel != "full" {
		t.Errorf("PuttyLevel = %q, want %q", m.Data.PuttyLevel, "full")
	}

	// Upsert replaces the data for the same lead.
	area := 800.0
	if err := s.SaveMeasurement(models.Measurement{
		LeadID: "lead-1",
		Data:   models.MeasurementData{PaintableArea: &area},
	}); err != nil {
		t.Fatalf("SaveMeasurement upsert failed: %v", err)
	}
	m, err = s.GetMeasurement("lead-1")
	if err != nil {
		t.Fatalf("GetMeasurement failed: %v", err)
	}
	if m.Data.Sqft != nil || m.Data.PaintableArea == nil || *m.Data.PaintableArea != 800 {
		t.Errorf("upsert did not replace data: %+v", m.Data)
	}
}
