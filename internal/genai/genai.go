// Package genai wraps the OpenAI API for intent classification and lead
// extraction.
//
// Both calls are prompt-driven: the model is instructed to return a single
// JSON object, and responses are parsed tolerantly so stray prose around the
// JSON does not break the pipeline.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/models"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientInterface defines the language-model operations the session layer
// depends on. Kept small so tests can stub it.
type ClientInterface interface {
	// Classify determines the high-level intent of one utterance.
	Classify(ctx context.Context, text string) (*models.IntentResult, error)

	// Extract produces a structured lead analysis from one utterance.
	Extract(ctx context.Context, req ExtractRequest) (*models.LeadAnalysis, error)
}

// ExtractRequest carries the utterance plus conversation context that improves
// extraction quality.
type ExtractRequest struct {
	Text              string
	ContractorID      string
	DetectedPhone     string
	PreferredLanguage string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for both classification and extraction.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client is the OpenAI-backed implementation of ClientInterface.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not set explicitly.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	slog.Debug("GenAI.NewClient: creating client", "model", model)
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

const classifySystemPrompt = `You classify WhatsApp messages sent to a painting contractor's assistant.
Return only a JSON object of the form:
{"intent": "...", "lead_hint": "...", "topic": "..."}
intent must be one of: GREETING, NEW_LEAD, GENERATE_QUOTE_OPTIONS, UPDATE_EXISTING_LEAD, LOG_MEASUREMENT, GENERAL_QUESTION, OTHER.
lead_hint is the phrase the user used to refer to an existing project, if any.
topic is a short label for general questions. Omit empty fields.
Messages may be in Hindi, Gujarati, Kannada, or English, in native or roman script.`

const extractSystemPrompt = `You extract job lead details from WhatsApp messages sent to a painting contractor's assistant.
Return only a JSON object of the form:
{"customer_name": "...", "customer_phone": "...", "location": "...", "job_type": "...", "interior_scope": true, "exterior_scope": false, "urgency": "...", "preferred_language": "..."}
job_type must be one of: fresh_painting, repainting, waterproofing, texture, unknown.
urgency must be one of: immediate, this_month, flexible, unknown.
Use "unknown" when the message does not say. Omit fields the message does not mention.
Messages may be in Hindi, Gujarati, Kannada, or English, in native or roman script.`

// Classify determines the high-level intent of one utterance.
func (c *Client) Classify(ctx context.Context, text string) (*models.IntentResult, error) {
	content, err := c.complete(ctx, classifySystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}

	var result models.IntentResult
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		slog.Error("GenAI.Classify: failed to parse response", "error", err, "content", content)
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if !models.IsValidIntent(result.Intent) {
		slog.Warn("GenAI.Classify: model returned unknown intent, using OTHER", "intent", result.Intent)
		result.Intent = models.IntentOther
	}
	slog.Debug("GenAI.Classify succeeded", "intent", result.Intent, "leadHint", result.LeadHint)
	return &result, nil
}

// Extract produces a structured lead analysis from one utterance.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*models.LeadAnalysis, error) {
	var sb strings.Builder
	sb.WriteString(req.Text)
	if req.DetectedPhone != "" {
		fmt.Fprintf(&sb, "\n\nSender phone number: %s", req.DetectedPhone)
	}
	if req.PreferredLanguage != "" {
		fmt.Fprintf(&sb, "\nKnown preferred language: %s", req.PreferredLanguage)
	}

	content, err := c.complete(ctx, extractSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	var analysis models.LeadAnalysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &analysis); err != nil {
		slog.Error("GenAI.Extract: failed to parse response", "error", err, "content", content)
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	if analysis.JobType == "" {
		analysis.JobType = models.JobTypeUnknown
	}
	if analysis.Urgency == "" {
		analysis.Urgency = models.UrgencyUnknown
	}
	if analysis.CustomerPhone == "" && req.DetectedPhone != "" {
		analysis.CustomerPhone = req.DetectedPhone
	}
	slog.Debug("GenAI.Extract succeeded", "jobType", analysis.JobType, "urgency", analysis.Urgency)
	return &analysis, nil
}

// complete issues one chat completion and returns the raw message content.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		slog.Error("GenAI completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON returns the substring from the first '{' to the last '}',
// tolerating prose or code fences around the JSON object. Returns the input
// unchanged when no braces are found so the caller surfaces a parse error.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}
