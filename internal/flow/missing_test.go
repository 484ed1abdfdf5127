package flow

import (
	"testing"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

func TestComputeMissingFieldsAllAbsent(t *testing.T) {
	result := ComputeMissingFields(&models.LeadAnalysis{}, models.IntentNewLead)
	for _, key := range []string{"customer_name", "customer_phone", "location", "job_type", "urgency"} {
		if !result.Missing[key] {
			t.Errorf("Missing[%q] = false, want true", key)
		}
	}
	if len(result.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(result.Questions))
	}
	// Fixed presentation order.
	if result.Questions[0] != questionCustomer || result.Questions[3] != questionUrgency {
		t.Errorf("question order wrong: %v", result.Questions)
	}
}

func TestComputeMissingFieldsPhoneSatisfiesCustomer(t *testing.T) {
	analysis := &models.LeadAnalysis{
		CustomerPhone: "+919812345678",
		Location:      "Pune",
		JobType:       models.JobTypeFreshPainting,
		Urgency:       models.UrgencyImmediate,
	}
	result := ComputeMissingFields(analysis, models.IntentNewLead)
	if len(result.Questions) != 0 {
		t.Errorf("expected no questions, got %v", result.Questions)
	}
	if len(result.Missing) != 0 {
		t.Errorf("expected empty missing map, got %v", result.Missing)
	}
}

func TestComputeMissingFieldsUnknownEnumsAreMissing(t *testing.T) {
	analysis := &models.LeadAnalysis{
		CustomerName: "Ravi",
		Location:     "Baner",
		JobType:      models.JobTypeUnknown,
		Urgency:      models.UrgencyUnknown,
	}
	result := ComputeMissingFields(analysis, models.IntentNewLead)
	if !result.Missing["job_type"] || !result.Missing["urgency"] {
		t.Errorf("unknown enums should be missing: %v", result.Missing)
	}
	if len(result.Questions) != 2 {
		t.Errorf("expected 2 questions, got %v", result.Questions)
	}
}

func TestComputeMissingFieldsSuppressedForQuoteIntent(t *testing.T) {
	result := ComputeMissingFields(&models.LeadAnalysis{}, models.IntentGenerateQuoteOptions)
	if len(result.Questions) != 0 || len(result.Missing) != 0 {
		t.Errorf("expected suppression for quote intent, got %v / %v", result.Missing, result.Questions)
	}
}

func TestComputeMissingFieldsNilAnalysis(t *testing.T) {
	result := ComputeMissingFields(nil, models.IntentNewLead)
	if len(result.Questions) != 4 {
		t.Errorf("expected 4 questions for nil analysis, got %d", len(result.Questions))
	}
}
