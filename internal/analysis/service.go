// Package analysis runs the grammar and coherence paths over spoken
// transcripts and assembles one result per transcript.
//
// [Service.Analyze] never fails: both paths degrade to fixed feedback when
// their upstream judge is unavailable. [Service.Batch] analyses many
// transcripts with bounded parallelism and preserves input order.
package analysis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/speakscore/internal/coherence"
	"github.com/MrWong99/speakscore/internal/grammar"
	"github.com/MrWong99/speakscore/internal/observe"
	"github.com/MrWong99/speakscore/internal/spans"
)

// Transcript is one spoken answer and the prompt it responds to.
type Transcript struct {
	Topic     string `json:"topic"`
	Paragraph string `json:"paragraph"`
}

// Result is the analysis of one [Transcript].
type Result struct {
	Topic             string            `json:"topic"`
	Errors            []spans.ErrorSpan `json:"errors"`
	GrammarFeedback   string            `json:"grammar_feedback"`
	CoherenceFeedback string            `json:"coherence_feedback"`
	CoherenceScore    float64           `json:"coherence_score"`
	Metrics           coherence.Metrics `json:"metrics"`
	TraceID           string            `json:"trace_id,omitempty"`
}

// Option configures a [Service].
type Option func(*Service)

// WithChecker sets the grammar checker. Default: rule-based.
func WithChecker(c *grammar.Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.checker = c
		}
	}
}

// WithAnalyzer sets the coherence analyzer. Default: local judge.
func WithAnalyzer(a *coherence.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracerProvider sets where analysis spans go. Default: the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = observe.Tracer(tp)
		}
	}
}

// Service analyses transcripts. It is safe for concurrent use.
type Service struct {
	checker  *grammar.Checker
	analyzer *coherence.Analyzer
	metrics  *observe.Metrics
	tracer   trace.Tracer
}

// New returns a [Service]. Without options it runs fully offline.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.checker == nil {
		s.checker = grammar.NewChecker(nil)
	}
	if s.analyzer == nil {
		s.analyzer = coherence.NewAnalyzer()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.tracer == nil {
		s.tracer = observe.Tracer(nil)
	}
	return s
}

// Analyze runs the grammar and coherence paths for t concurrently.
func (s *Service) Analyze(ctx context.Context, t Transcript) Result {
	ctx, span := s.tracer.Start(ctx, "analysis.transcript",
		trace.WithAttributes(
			attribute.String("topic", t.Topic),
			attribute.Int("text.length", len([]rune(t.Paragraph))),
		),
	)
	defer span.End()

	s.metrics.ActiveAnalyses.Add(ctx, 1)
	defer s.metrics.ActiveAnalyses.Add(ctx, -1)
	start := time.Now()

	var (
		gr grammar.Result
		cr coherence.Result
		wg sync.WaitGroup
	)
	wg.Go(func() {
		ctx, span := s.tracer.Start(ctx, "analysis.grammar")
		defer span.End()
		begin := time.Now()
		gr = s.checker.Check(ctx, t.Paragraph)
		s.metrics.RecordStage(ctx, "grammar", time.Since(begin).Seconds())
		span.SetAttributes(attribute.Int("grammar.errors", len(gr.Errors)))
	})
	wg.Go(func() {
		ctx, span := s.tracer.Start(ctx, "analysis.coherence")
		defer span.End()
		begin := time.Now()
		cr = s.analyzer.Analyze(ctx, t.Paragraph, t.Topic)
		s.metrics.RecordStage(ctx, "coherence", time.Since(begin).Seconds())
		span.SetAttributes(attribute.Float64("coherence.score", cr.Score))
	})
	wg.Wait()

	s.recordGrammar(ctx, gr)
	s.metrics.CoherenceScore.Record(ctx, cr.Score)
	s.metrics.RecordStage(ctx, "total", time.Since(start).Seconds())
	st := status(gr, cr)
	s.metrics.RecordTranscript(ctx, st)
	span.SetAttributes(attribute.String("analysis.status", st))

	observe.Logger(ctx).Debug("analysis: transcript done",
		"topic", t.Topic,
		"errors", len(gr.Errors),
		"coherence_score", cr.Score,
		"duration", time.Since(start))

	return Result{
		Topic:             t.Topic,
		Errors:            gr.Errors,
		GrammarFeedback:   gr.Feedback,
		CoherenceFeedback: cr.Feedback,
		CoherenceScore:    cr.Score,
		Metrics:           cr.Metrics,
		TraceID:           observe.TraceID(ctx),
	}
}

func (s *Service) recordGrammar(ctx context.Context, gr grammar.Result) {
	counts := make(map[grammar.Category]int)
	for _, e := range gr.Errors {
		counts[grammar.Classify(e.WrongVersion)]++
	}
	for c, n := range counts {
		s.metrics.RecordGrammarErrors(ctx, c.String(), n)
	}
}

// status labels a result "degraded" when either path fell back to its fixed
// failure message.
func status(gr grammar.Result, cr coherence.Result) string {
	if gr.Feedback == grammar.FailureFeedback || cr.Feedback == coherence.FailureFeedback {
		return "degraded"
	}
	return "ok"
}

// Batch analyses ts with at most concurrency transcripts in flight and
// returns the results in input order. A concurrency below 1 means one at a
// time. If ctx is cancelled, Batch stops scheduling new work and returns the
// context error.
func (s *Service) Batch(ctx context.Context, ts []Transcript, concurrency int) ([]Result, error) {
	results := make([]Result, len(ts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, t := range ts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.Analyze(gctx, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
