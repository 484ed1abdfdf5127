package flow

import (
	"regexp"
	"strconv"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// Measurement text patterns. Sizing fields only; qualitative fields (putty
// level, brand) come in through the measurements API, not chat.
var (
	bhkPattern       = regexp.MustCompile(`(?i)(\d+)\s*bhk`)
	sqftPattern      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:sq\.?\s*ft|sqft|square\s*feet)`)
	paintablePattern = regexp.MustCompile(`(?i)paintable\s*(?:area)?\s*(?:of\s*)?(\d+(?:\.\d+)?)`)
	coatsPattern     = regexp.MustCompile(`(?i)(\d+)\s*coats?`)
)

// ParseMeasurementText scans an utterance for sizing figures. Fields the text
// does not mention stay nil so a later merge never clobbers stored values.
func ParseMeasurementText(text string) models.MeasurementData {
	var m models.MeasurementData

	if match := bhkPattern.FindStringSubmatch(text); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			m.BHK = &n
		}
	}
	if match := sqftPattern.FindStringSubmatch(text); match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil && v > 0 {
			m.Sqft = &v
		}
	}
	if match := paintablePattern.FindStringSubmatch(text); match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil && v > 0 {
			m.PaintableArea = &v
		}
	}
	if match := coatsPattern.FindStringSubmatch(text); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			m.Coats = &n
		}
	}

	return m
}

// MergeMeasurements overlays newer sizing data onto existing data, keeping
// existing fields the update does not mention.
func MergeMeasurements(existing, update models.MeasurementData) models.MeasurementData {
	merged := existing
	if update.BHK != nil {
		merged.BHK = update.BHK
	}
	if update.Sqft != nil {
		merged.Sqft = update.Sqft
	}
	if update.PaintableArea != nil {
		merged.PaintableArea = update.PaintableArea
	}
	if update.Ceilings != nil {
		merged.Ceilings = update.Ceilings
	}
	if update.Coats != nil {
		merged.Coats = update.Coats
	}
	if update.Dampness != nil {
		merged.Dampness = update.Dampness
	}
	if update.PuttyLevel != "" {
		merged.PuttyLevel = update.PuttyLevel
	}
	if update.BrandPreference != "" {
		merged.BrandPreference = update.BrandPreference
	}
	return merged
}
