package coherence

import (
	"context"
	"log/slog"
)

// Fixed messages used when the judge cannot supply feedback.
const (
	FailureFeedback = "Unable to analyze coherence due to an error."
	MissingFeedback = "No coherence feedback available."
)

// Verdict is a raw coherence judgement. Score is left untyped because remote
// judges report it as a number, a numeric string or not at all; it is
// normalised with [CoerceScore].
type Verdict struct {
	Score    any
	Feedback string
}

// Judge rates the coherence of a text. Implementations receive the locally
// computed metrics and may ignore them.
type Judge interface {
	Judge(ctx context.Context, text, topic string, m Metrics) (Verdict, error)
}

// LocalJudge scores text from its lexical metrics alone.
type LocalJudge struct{}

// Judge implements [Judge] using [Aggregate] and [GenerateFeedback].
func (LocalJudge) Judge(_ context.Context, _, _ string, m Metrics) (Verdict, error) {
	score, err := Aggregate(m)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Score: score, Feedback: GenerateFeedback(m, score)}, nil
}

// Result is the outcome of a coherence analysis.
type Result struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	Metrics  Metrics `json:"metrics"`
}

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithJudge replaces the default [LocalJudge].
func WithJudge(j Judge) AnalyzerOption {
	return func(a *Analyzer) {
		if j != nil {
			a.judge = j
		}
	}
}

// WithExtractor sets the signal extractor, typically one built over a
// configured vocabulary.
func WithExtractor(e *Extractor) AnalyzerOption {
	return func(a *Analyzer) {
		if e != nil {
			a.extractor = e
		}
	}
}

// Analyzer computes metrics for a text and asks a [Judge] for the final score
// and feedback. It is safe for concurrent use.
type Analyzer struct {
	judge     Judge
	extractor *Extractor
}

// NewAnalyzer returns an [Analyzer] with the local judge and default
// vocabulary unless overridden.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		judge:     LocalJudge{},
		extractor: defaultExtractor,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze never fails: a judge error yields [NeutralScore] with
// [FailureFeedback], and an empty judge feedback is replaced by
// [MissingFeedback]. Metrics are always populated.
func (a *Analyzer) Analyze(ctx context.Context, text, topic string) Result {
	m := a.extractor.Metrics(text, topic)

	v, err := a.judge.Judge(ctx, text, topic, m)
	if err != nil {
		slog.Warn("coherence: judge failed", "err", err)
		return Result{Score: NeutralScore, Feedback: FailureFeedback, Metrics: m}
	}

	feedback := v.Feedback
	if feedback == "" {
		feedback = MissingFeedback
	}
	return Result{Score: CoerceScore(v.Score), Feedback: feedback, Metrics: m}
}
