package grammar

import (
	"context"
	"log/slog"

	"github.com/MrWong99/speakscore/internal/spans"
)

const (
	// FailureFeedback is returned when the error source fails.
	FailureFeedback = "Unable to analyze grammar due to an error."
	// MissingFeedback stands in for model-backed sources that report
	// errors without any feedback text.
	MissingFeedback = "No grammar feedback available."
)

// Report is the raw output of an [ErrorSource]. Records use the keys start,
// end, wrong_version and correct_version; malformed records are tolerated and
// discarded downstream. Feedback is optional.
type Report struct {
	Records  []map[string]any
	Feedback string
}

// ErrorSource reports grammar errors found in a text.
type ErrorSource interface {
	Name() string
	Errors(ctx context.Context, text string) (Report, error)
}

// Result is the outcome of a grammar check.
type Result struct {
	Errors   []spans.ErrorSpan `json:"errors"`
	Feedback string            `json:"feedback"`
}

// Option configures a [Checker].
type Option func(*Checker)

// WithAnchorer replaces the default span [spans.Anchorer].
func WithAnchorer(a *spans.Anchorer) Option {
	return func(c *Checker) {
		if a != nil {
			c.anchorer = a
		}
	}
}

// Checker runs an [ErrorSource] and normalises its output. It is safe for
// concurrent use when the source is.
type Checker struct {
	source   ErrorSource
	anchorer *spans.Anchorer
}

// NewChecker returns a [Checker] over source. A nil source selects
// [NewRuleSource].
func NewChecker(source ErrorSource, opts ...Option) *Checker {
	if source == nil {
		source = NewRuleSource()
	}
	c := &Checker{
		source:   source,
		anchorer: spans.NewAnchorer(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check never fails. Raw records are coerced, re-anchored against text and
// merged. Feedback comes from the source when it supplies any and is
// generated from the merged errors otherwise. A source error yields an empty
// list with [FailureFeedback].
func (c *Checker) Check(ctx context.Context, text string) Result {
	report, err := c.source.Errors(ctx, text)
	if err != nil {
		slog.Warn("grammar: error source failed", "source", c.source.Name(), "err", err)
		return Result{Errors: []spans.ErrorSpan{}, Feedback: FailureFeedback}
	}

	errs := spans.Merge(c.anchorer.Anchor(text, spans.Coerce(report.Records)))

	feedback := report.Feedback
	if feedback == "" {
		feedback = GenerateFeedback(errs)
	}
	return Result{Errors: errs, Feedback: feedback}
}
