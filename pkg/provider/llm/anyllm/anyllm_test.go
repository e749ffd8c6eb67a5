package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/speakscore/pkg/provider/llm"
)

func TestBuildParams(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "claude-3-5-haiku-latest"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "Return JSON only.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "Text to analyse."}},
		Temperature:  0.2,
		MaxTokens:    256,
	})

	if params.Model != "claude-3-5-haiku-latest" {
		t.Errorf("Model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem || params.Messages[0].ContentString() != "Return JSON only." {
		t.Errorf("first message = %+v, want system prompt", params.Messages[0])
	}
	if params.Messages[1].Role != llm.RoleUser || params.Messages[1].ContentString() != "Text to analyse." {
		t.Errorf("second message = %+v, want user text", params.Messages[1])
	}
	if params.Temperature == nil || *params.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v, want 256", params.MaxTokens)
	}
}

func TestBuildParams_ZeroValuesLeaveDefaults(t *testing.T) {
	t.Parallel()

	params := (&Provider{model: "llama3.1"}).buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if len(params.Messages) != 1 {
		t.Errorf("got %d messages, want 1 without a system prompt", len(params.Messages))
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Error("zero temperature and max tokens must not be sent")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "model"); err == nil {
		t.Error("expected error for empty backend name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	_, err := New("nope", "model")
	if err == nil || !strings.Contains(err.Error(), "unsupported backend") {
		t.Errorf("err = %v, want unsupported backend", err)
	}
}

func TestModelCapabilities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model  string
		window int
	}{
		{"claude-3-5-sonnet-latest", 200_000},
		{"gemini-1.5-pro", 2_097_152},
		{"gemini-2.0-flash", 1_048_576},
		{"llama3.1", 128_000},
	}
	for _, tc := range tests {
		if got := modelCapabilities(tc.model).ContextWindow; got != tc.window {
			t.Errorf("modelCapabilities(%q).ContextWindow = %d, want %d", tc.model, got, tc.window)
		}
	}
}
