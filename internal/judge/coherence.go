package judge

import (
	"context"
	"fmt"

	"github.com/MrWong99/speakscore/internal/coherence"
	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// CoherenceParseFailure is the feedback returned when the model reply is not
// valid JSON.
const CoherenceParseFailure = "Unable to analyze coherence due to an error in processing the response."

const coherenceSystemPrompt = "You are a TOEFL coherence expert that analyzes text and returns JSON. Your response MUST be valid JSON and nothing else."

const coherencePromptTemplate = `You are a TOEFL coherence expert. Analyze the following text for coherence and flow:

TOPIC: %s
TEXT: %s

Evaluate how well the text flows, whether ideas connect logically, and if the response stays on topic.
Consider:
1. Logical flow between sentences and paragraphs
2. Use of transition words and phrases
3. Overall organization and structure
4. Relevance to the given topic
5. Repetition and redundancy

IMPORTANT: Your response must be a valid JSON object with the following structure and nothing else:
{
    "coherence_feedback": "<detailed_feedback_on_coherence>",
    "score": <coherence_score_between_0_and_1>
}

The coherence_feedback should be detailed enough to help the student improve their writing.
Do not include any text outside the JSON structure. Your entire response should be parseable as JSON.`

type coherenceReply struct {
	Feedback string `json:"coherence_feedback"`
	Score    any    `json:"score"`
}

// CoherenceJudge asks a language model to rate coherence. It implements
// coherence.Judge and is safe for concurrent use. Locally computed metrics
// are not sent to the model.
type CoherenceJudge struct {
	llm      llm.Provider
	settings settings
}

var _ coherence.Judge = (*CoherenceJudge)(nil)

// NewCoherenceJudge returns a [CoherenceJudge] backed by provider.
func NewCoherenceJudge(provider llm.Provider, opts ...Option) *CoherenceJudge {
	return &CoherenceJudge{llm: provider, settings: newSettings(opts)}
}

// Name identifies the judge in logs and metrics.
func (j *CoherenceJudge) Name() string { return "llm" }

// Judge implements coherence.Judge. A reply without a score yields a nil
// Score, which the analyzer coerces to the neutral 0.5.
func (j *CoherenceJudge) Judge(ctx context.Context, text, topic string, _ coherence.Metrics) (coherence.Verdict, error) {
	req, err := j.settings.request(j.llm, coherenceSystemPrompt, fmt.Sprintf(coherencePromptTemplate, topic, text))
	if err != nil {
		return coherence.Verdict{}, err
	}

	resp, err := j.llm.Complete(ctx, req)
	if err != nil {
		return coherence.Verdict{}, fmt.Errorf("judge: coherence: complete: %w", err)
	}
	if resp == nil {
		return coherence.Verdict{Score: coherence.NeutralScore, Feedback: CoherenceParseFailure}, nil
	}

	var reply coherenceReply
	if err := decode(resp.Content, &reply); err != nil {
		return coherence.Verdict{Score: coherence.NeutralScore, Feedback: CoherenceParseFailure}, nil //nolint:nilerr // unparseable reply degrades gracefully
	}
	return coherence.Verdict{Score: reply.Score, Feedback: reply.Feedback}, nil
}
