// Package judge implements language-model backed grammar and coherence
// judges for spoken TOEFL answers.
//
// [GrammarSource] satisfies grammar.ErrorSource and [CoherenceJudge]
// satisfies coherence.Judge. Both send a single JSON-only prompt through an
// [llm.Provider] and decode the reply leniently: markdown code fences are
// stripped, numbers are kept as [json.Number] for later coercion, and an
// unparseable reply degrades to a fixed message instead of an error. Only
// transport failures and oversized prompts are reported as errors, so that a
// resilience layer can fall back to the offline implementations.
package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

// ErrPromptTooLarge is returned when the estimated prompt does not fit the
// provider's context window.
var ErrPromptTooLarge = errors.New("judge: prompt exceeds model context window")

// Option is a functional option shared by [GrammarSource] and
// [CoherenceJudge].
type Option func(*settings)

type settings struct {
	temperature float64
	maxTokens   int
}

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(s *settings) {
		s.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Default: 1024.
func WithMaxTokens(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{temperature: defaultTemperature, maxTokens: defaultMaxTokens}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// request builds the completion request and rejects prompts that cannot fit
// the model's context window together with the completion budget.
func (s settings) request(p llm.Provider, system, user string) (llm.CompletionRequest, error) {
	req := llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: user}},
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	}
	if window := p.Capabilities().ContextWindow; window > 0 {
		if need := llm.EstimateTokens(req) + s.maxTokens; need > window {
			return req, fmt.Errorf("%w: need ~%d tokens, window %d", ErrPromptTooLarge, need, window)
		}
	}
	return req, nil
}

// decode unmarshals model output into v after removing markdown fences.
// Numbers are decoded as [json.Number].
func decode(content string, v any) error {
	dec := json.NewDecoder(strings.NewReader(stripMarkdown(content)))
	dec.UseNumber()
	return dec.Decode(v)
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
