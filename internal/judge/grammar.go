package judge

import (
	"context"
	"fmt"

	"github.com/MrWong99/speakscore/internal/grammar"
	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// GrammarParseFailure is the feedback returned when the model reply is not
// valid JSON.
const GrammarParseFailure = "Unable to analyze grammar due to an error in processing the response."

const grammarSystemPrompt = "You are a TOEFL grammar expert that analyzes text and returns JSON. Your response MUST be valid JSON and nothing else."

const grammarPromptTemplate = `You are a TOEFL grammar expert. Analyze the following text for grammatical errors:

TEXT: %s

Identify all grammatical errors in the text. For each error, provide:
1. The start and end index of the error in the text
2. The incorrect text
3. The corrected version
4. A brief explanation of the error

IMPORTANT: Your response must be a valid JSON object with the following structure and nothing else:
{
    "errors": [
        {
            "start": <start_index>,
            "end": <end_index>,
            "wrong_version": "<incorrect_text>",
            "correct_version": "<corrected_text>",
            "explanation": "<brief_explanation>"
        }
    ],
    "grammar_feedback": "<overall_feedback_on_grammar>"
}

Ensure that the indices are correct by counting characters from the beginning of the text (0-indexed).
Do not include any text outside the JSON structure. Your entire response should be parseable as JSON.`

type grammarReply struct {
	Errors   []map[string]any `json:"errors"`
	Feedback string           `json:"grammar_feedback"`
}

// GrammarSource asks a language model for grammar errors. It implements
// grammar.ErrorSource and is safe for concurrent use.
type GrammarSource struct {
	llm      llm.Provider
	settings settings
}

var _ grammar.ErrorSource = (*GrammarSource)(nil)

// NewGrammarSource returns a [GrammarSource] backed by provider.
func NewGrammarSource(provider llm.Provider, opts ...Option) *GrammarSource {
	return &GrammarSource{llm: provider, settings: newSettings(opts)}
}

// Name implements grammar.ErrorSource.
func (g *GrammarSource) Name() string { return "llm" }

// Errors implements grammar.ErrorSource. Records are passed through
// undecoded apart from JSON numbers; coercion happens in the checker.
func (g *GrammarSource) Errors(ctx context.Context, text string) (grammar.Report, error) {
	req, err := g.settings.request(g.llm, grammarSystemPrompt, fmt.Sprintf(grammarPromptTemplate, text))
	if err != nil {
		return grammar.Report{}, err
	}

	resp, err := g.llm.Complete(ctx, req)
	if err != nil {
		return grammar.Report{}, fmt.Errorf("judge: grammar: complete: %w", err)
	}
	if resp == nil {
		return grammar.Report{Feedback: GrammarParseFailure}, nil
	}

	var reply grammarReply
	if err := decode(resp.Content, &reply); err != nil {
		return grammar.Report{Feedback: GrammarParseFailure}, nil //nolint:nilerr // unparseable reply degrades gracefully
	}
	if reply.Feedback == "" {
		reply.Feedback = grammar.MissingFeedback
	}
	return grammar.Report{Records: reply.Errors, Feedback: reply.Feedback}, nil
}
