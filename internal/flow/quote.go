package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/models"
)

// DefaultQuoteOptions is used when the utterance does not name an option count.
const DefaultQuoteOptions = 3

// Dependency messages, joined into the reply when the gate is unsatisfied.
const (
	msgProjectRequired     = "I need to know which project this quote is for. Please share the site details or pick an existing project first."
	msgMeasurementRequired = "I don't have any measurements for this project yet. Please share the BHK, sqft, or paintable area."
	msgSqftRequired        = "I only have the BHK so far. Please share the sqft or paintable area so I can price accurately."
)

// Quote parameter patterns. These intentionally re-parse the raw utterance
// independently of the classifier; all of them live here so the duplication
// stays in one place.
var (
	optionsPattern      = regexp.MustCompile(`(?i)(\d+)\s*options?\b`)
	timelinePattern     = regexp.MustCompile(`(?i)timeline\s*(\d+)\s*(days?|weeks?|months?)`)
	bareTimelinePattern = regexp.MustCompile(`(?i)(\d+)\s*(days?|weeks?|months?)`)
	advanceBefore       = regexp.MustCompile(`(?i)advance(?:\s+payment)?\s*(?:of\s*)?(\d+)\s*%`)
	advanceAfter        = regexp.MustCompile(`(?i)(\d+)\s*%\s*advance(?:\s+payment)?`)
)

// CheckQuoteDependencies evaluates the quote prerequisites for the given state
// and measurement data. All checks run unconditionally so the caller sees the
// full unmet set in one turn; an empty result means the gate is satisfied.
// Order is significant for message composition: PROJECT_REQUIRED before
// MEASUREMENT_REQUIRED before SQFT_REQUIRED.
func CheckQuoteDependencies(state models.ConversationState, measurements *models.MeasurementData) []models.Dependency {
	var deps []models.Dependency

	if state.LeadID == "" {
		deps = append(deps, models.Dependency{
			Type:    models.DependencyProjectRequired,
			Message: msgProjectRequired,
			Action:  "select_project",
		})
	}

	if !measurements.HasSignal() {
		deps = append(deps, models.Dependency{
			Type:    models.DependencyMeasurementRequired,
			Message: msgMeasurementRequired,
			Action:  "log_measurement",
		})
	} else if !measurements.HasArea() {
		deps = append(deps, models.Dependency{
			Type:    models.DependencySqftRequired,
			Message: msgSqftRequired,
			Action:  "log_measurement",
		})
	}

	return deps
}

// JoinDependencyMessages composes the reply text for an unsatisfied gate.
func JoinDependencyMessages(deps []models.Dependency) string {
	msgs := make([]string, 0, len(deps))
	for _, d := range deps {
		msgs = append(msgs, d.Message)
	}
	return strings.Join(msgs, "\n")
}

// ExtractQuoteParams scans the raw utterance (case-insensitive) for quote
// parameters: an options count (default 3), a timeline phrase, an advance
// percentage, and the labour+material flag.
func ExtractQuoteParams(text string) models.QuoteRequirements {
	req := models.QuoteRequirements{Options: DefaultQuoteOptions}

	if m := optionsPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			req.Options = n
		}
	}

	// "timeline N unit" wins over a bare "N unit".
	if m := timelinePattern.FindStringSubmatch(text); m != nil {
		req.Timeline = fmt.Sprintf("%s %s", m[1], strings.ToLower(m[2]))
	} else if m := bareTimelinePattern.FindStringSubmatch(text); m != nil {
		req.Timeline = fmt.Sprintf("%s %s", m[1], strings.ToLower(m[2]))
	}

	if m := advanceBefore.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			req.Advance = &n
		}
	} else if m := advanceAfter.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			req.Advance = &n
		}
	}

	lower := strings.ToLower(text)
	if (strings.Contains(lower, "labour") || strings.Contains(lower, "labor")) && strings.Contains(lower, "material") {
		req.LabourAndMaterial = true
	}

	return req
}

// BuildQuoteToolCall assembles the generate_quote_options tool call for a
// satisfied gate, enriching arguments from the turn's analysis when available.
func BuildQuoteToolCall(state models.ConversationState, analysis *models.LeadAnalysis, text string) (*models.ToolCall, error) {
	args := models.QuoteToolArguments{
		LeadID:       state.LeadID,
		Requirements: ExtractQuoteParams(text),
	}
	if analysis != nil {
		if analysis.JobType != "" && analysis.JobType != models.JobTypeUnknown {
			args.JobType = analysis.JobType
		}
		args.Location = analysis.Location
	}
	return models.NewQuoteToolCall(args)
}
