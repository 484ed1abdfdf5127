package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/models"
	"github.com/PaintKaro/LeadPipe/internal/store"
)

// QuoteExecutor executes a generate_quote_options tool call and returns the
// text to deliver to the user.
type QuoteExecutor interface {
	Execute(ctx context.Context, args *models.QuoteToolArguments) (string, error)
}

// Per-sqft base rates in INR for the summary quote tiers.
const (
	rateEconomy  = 12.0
	rateStandard = 18.0
	ratePremium  = 28.0
)

// bhkApproxSqft approximates paintable area from BHK when no area figure was
// recorded. Conservative carpet-area based estimate.
const bhkApproxSqft = 550.0

// SummaryQuoteExecutor produces deterministic quote option summaries from the
// lead's stored measurements. It stands in for a full pricing engine; the
// numbers are indicative tiers, not binding estimates.
type SummaryQuoteExecutor struct {
	store store.Store
}

// NewSummaryQuoteExecutor creates a SummaryQuoteExecutor backed by the store.
func NewSummaryQuoteExecutor(st store.Store) *SummaryQuoteExecutor {
	return &SummaryQuoteExecutor{store: st}
}

// Execute renders the requested number of quote options for the lead.
func (e *SummaryQuoteExecutor) Execute(ctx context.Context, args *models.QuoteToolArguments) (string, error) {
	if err := args.Validate(); err != nil {
		return "", err
	}

	measurement, err := e.store.GetMeasurement(args.LeadID)
	if err != nil {
		slog.Error("SummaryQuoteExecutor failed to load measurement", "error", err, "leadID", args.LeadID)
		return "", fmt.Errorf("failed to load measurement for lead %s: %w", args.LeadID, err)
	}

	area := estimateArea(measurement)
	if area <= 0 {
		return "", fmt.Errorf("no usable area for lead %s", args.LeadID)
	}

	tiers := []struct {
		name string
		rate float64
	}{
		{"Economy", rateEconomy},
		{"Standard", rateStandard},
		{"Premium", ratePremium},
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Quote options (approx. %.0f sqft):\n", area)
	for i := 0; i < args.Requirements.Options && i < len(tiers); i++ {
		tier := tiers[i]
		fmt.Fprintf(&sb, "%d. %s: ₹%.0f (₹%.0f/sqft)\n", i+1, tier.name, area*tier.rate, tier.rate)
	}
	if args.Requirements.Timeline != "" {
		fmt.Fprintf(&sb, "Timeline: %s\n", args.Requirements.Timeline)
	}
	if args.Requirements.Advance != nil {
		fmt.Fprintf(&sb, "Advance: %d%%\n", *args.Requirements.Advance)
	}
	if args.Requirements.LabourAndMaterial {
		sb.WriteString("Includes labour and material.\n")
	}
	sb.WriteString("Final pricing is confirmed after the site visit.")

	slog.Debug("SummaryQuoteExecutor produced quote options",
		"leadID", args.LeadID, "options", args.Requirements.Options, "area", area)
	return sb.String(), nil
}

// estimateArea picks the best available area figure: paintable area, then
// sqft, then a BHK approximation.
func estimateArea(m *models.Measurement) float64 {
	if m == nil {
		return 0
	}
	if m.Data.PaintableArea != nil {
		return *m.Data.PaintableArea
	}
	if m.Data.Sqft != nil {
		return *m.Data.Sqft
	}
	if m.Data.BHK != nil {
		return float64(*m.Data.BHK) * bhkApproxSqft
	}
	return 0
}
