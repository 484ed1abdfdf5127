package genai

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `{"intent":"GREETING"}`, `{"intent":"GREETING"}`},
		{"code fence", "```json\n{\"intent\":\"NEW_LEAD\"}\n```", `{"intent":"NEW_LEAD"}`},
		{"surrounding prose", `Here you go: {"intent":"OTHER"} hope that helps`, `{"intent":"OTHER"}`},
		{"nested braces", `{"a":{"b":1}}`, `{"a":{"b":1}}`},
		{"no json", "sorry, I cannot help", "sorry, I cannot help"},
	}
	for _, c := range cases {
		if got := extractJSON(c.content); got != c.want {
			t.Errorf("%s: extractJSON(%q) = %q, want %q", c.name, c.content, got, c.want)
		}
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when no API key is available")
	}
	if _, err := NewClient(WithAPIKey("test-key")); err != nil {
		t.Errorf("NewClient with explicit key failed: %v", err)
	}
}
