// Package models defines tool call structures for caller-side execution.
package models

import (
	"encoding/json"
	"fmt"
)

// ToolType identifies an external action the caller can execute.
type ToolType string

const (
	// ToolTypeGenerateQuoteOptions instructs the caller to produce quote options
	// for the bound lead.
	ToolTypeGenerateQuoteOptions ToolType = "generate_quote_options"
)

// QuoteRequirements are the free-text-derived parameters of a quote request.
type QuoteRequirements struct {
	Options           int    `json:"options"`             // number of quote options to produce (default 3)
	Timeline          string `json:"timeline,omitempty"`  // e.g. "5 days"
	Advance           *int   `json:"advance,omitempty"`   // advance payment percentage
	LabourAndMaterial bool   `json:"labour_and_material"` // both labour and material requested
}

// QuoteToolArguments are the arguments of a generate_quote_options tool call.
type QuoteToolArguments struct {
	LeadID       string            `json:"leadId"`
	JobType      JobType           `json:"jobType,omitempty"`
	Location     string            `json:"location,omitempty"`
	Requirements QuoteRequirements `json:"requirements"`
}

// Validate ensures the quote tool arguments are usable by an executor.
func (a *QuoteToolArguments) Validate() error {
	if a.LeadID == "" {
		return fmt.Errorf("quote tool arguments: %w", ErrEmptyLeadID)
	}
	if a.Requirements.Options <= 0 {
		return fmt.Errorf("quote tool arguments: options must be positive, got %d", a.Requirements.Options)
	}
	if a.Requirements.Advance != nil {
		if pct := *a.Requirements.Advance; pct < 0 || pct > 100 {
			return fmt.Errorf("quote tool arguments: advance must be 0-100, got %d", pct)
		}
	}
	return nil
}

// ToolCall is a declarative instruction for the caller to invoke an external
// action. Constructed fresh per turn.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewQuoteToolCall builds a generate_quote_options tool call from arguments.
func NewQuoteToolCall(args QuoteToolArguments) (*ToolCall, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote tool arguments: %w", err)
	}
	return &ToolCall{Name: string(ToolTypeGenerateQuoteOptions), Arguments: raw}, nil
}

// ParseQuoteArguments parses the tool call arguments as QuoteToolArguments.
func (tc *ToolCall) ParseQuoteArguments() (*QuoteToolArguments, error) {
	if tc.Name == "" {
		return nil, ErrEmptyToolName
	}
	if tc.Name != string(ToolTypeGenerateQuoteOptions) {
		return nil, fmt.Errorf("tool %s is not a quote tool", tc.Name)
	}

	var args QuoteToolArguments
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to parse quote tool arguments: %w", err)
	}

	if err := args.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quote tool arguments: %w", err)
	}

	return &args, nil
}
