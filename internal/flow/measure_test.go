package flow

import (
	"testing"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

func TestParseMeasurementText(t *testing.T) {
	m := ParseMeasurementText("2 BHK, around 1100 sqft, 2 coats")
	if m.BHK == nil || *m.BHK != 2 {
		t.Errorf("BHK = %v, want 2", m.BHK)
	}
	if m.Sqft == nil || *m.Sqft != 1100 {
		t.Errorf("Sqft = %v, want 1100", m.Sqft)
	}
	if m.Coats == nil || *m.Coats != 2 {
		t.Errorf("Coats = %v, want 2", m.Coats)
	}
	if m.PaintableArea != nil {
		t.Errorf("PaintableArea = %v, want nil", m.PaintableArea)
	}
}

func TestParseMeasurementTextVariants(t *testing.T) {
	m := ParseMeasurementText("paintable area of 850.5")
	if m.PaintableArea == nil || *m.PaintableArea != 850.5 {
		t.Errorf("PaintableArea = %v, want 850.5", m.PaintableArea)
	}

	m = ParseMeasurementText("roughly 900 sq ft")
	if m.Sqft == nil || *m.Sqft != 900 {
		t.Errorf("Sqft = %v, want 900", m.Sqft)
	}

	m = ParseMeasurementText("nothing useful here")
	if m.HasSignal() {
		t.Errorf("expected no signal, got %+v", m)
	}
}

func TestMergeMeasurements(t *testing.T) {
	bhk := 3
	sqft := 1400.0
	existing := models.MeasurementData{BHK: &bhk, PuttyLevel: "partial"}
	update := models.MeasurementData{Sqft: &sqft}

	merged := MergeMeasurements(existing, update)
	if merged.BHK == nil || *merged.BHK != 3 {
		t.Errorf("BHK = %v, want preserved 3", merged.BHK)
	}
	if merged.Sqft == nil || *merged.Sqft != 1400 {
		t.Errorf("Sqft = %v, want 1400", merged.Sqft)
	}
	if merged.PuttyLevel != "partial" {
		t.Errorf("PuttyLevel = %q, want preserved", merged.PuttyLevel)
	}
}
