package coherence_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/speakscore/internal/coherence"
)

// strongMetrics breaches no threshold.
var strongMetrics = coherence.Metrics{
	SentenceCount: 2, TransitionWordCount: 1,
	TopicRelevance: 0.9, SentenceFlow: 0.9, Repetition: 0.9, AvgSentenceLength: 12,
}

func TestGenerateFeedback_Bands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  string
	}{
		{1, "excellent coherence"},
		{0.8, "excellent coherence"},
		{0.79, "good coherence"},
		{0.6, "good coherence"},
		{0.4, "moderate coherence"},
		{0.39, "lacks coherence"},
		{0, "lacks coherence"},
	}
	for _, tc := range tests {
		got := coherence.GenerateFeedback(strongMetrics, tc.score)
		if strings.Contains(got, "\n") {
			t.Errorf("score %v: expected only the overall assessment, got %q", tc.score, got)
		}
		if !strings.Contains(got, tc.want) {
			t.Errorf("score %v: feedback %q does not mention %q", tc.score, got, tc.want)
		}
	}
}

func TestGenerateFeedback_ThresholdOrder(t *testing.T) {
	t.Parallel()

	m := coherence.Metrics{
		SentenceCount: 2, FillerPhraseCount: 2,
		TopicRelevance: 0.4, SentenceFlow: 0.4, Repetition: 0.5, AvgSentenceLength: 30,
	}
	lines := strings.Split(coherence.GenerateFeedback(m, 0.5), "\n")
	wantPrefixes := []string{
		"The response has moderate coherence.",
		"Consider using more transition words",
		"Reduce the use of filler words",
		"Try to stay more focused",
		"Work on creating smoother transitions",
		"Avoid repeating the same words",
		"Consider breaking up some longer sentences",
	}
	if len(lines) != len(wantPrefixes) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(wantPrefixes), strings.Join(lines, "\n"))
	}
	for i, p := range wantPrefixes {
		if !strings.HasPrefix(lines[i], p) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], p)
		}
	}
}

func TestGenerateFeedback_ShortSentences(t *testing.T) {
	t.Parallel()

	m := strongMetrics
	m.AvgSentenceLength = 5
	got := coherence.GenerateFeedback(m, 0.9)
	if !strings.HasSuffix(got, "Try combining some short sentences to create more complex and sophisticated sentence structures.") {
		t.Errorf("expected combine advice, got %q", got)
	}
	if strings.Contains(got, "breaking up") {
		t.Error("split and combine advice must be mutually exclusive")
	}
}

type stubJudge struct {
	verdict coherence.Verdict
	err     error
	calls   int
}

func (s *stubJudge) Judge(context.Context, string, string, coherence.Metrics) (coherence.Verdict, error) {
	s.calls++
	return s.verdict, s.err
}

func TestAnalyzer_LocalJudge(t *testing.T) {
	t.Parallel()

	text := "Technology helps students. However, technology can distract students."
	topic := "technology and students"
	res := coherence.NewAnalyzer().Analyze(context.Background(), text, topic)

	m := coherence.ComputeMetrics(text, topic)
	want, err := coherence.Aggregate(m)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !approx(res.Score, want) {
		t.Errorf("Score = %v, want %v", res.Score, want)
	}
	if res.Feedback != coherence.GenerateFeedback(m, want) {
		t.Errorf("Feedback = %q, want locally generated feedback", res.Feedback)
	}
	if res.Metrics != m {
		t.Errorf("Metrics = %+v, want %+v", res.Metrics, m)
	}
}

func TestAnalyzer_JudgeFailure(t *testing.T) {
	t.Parallel()

	judge := &stubJudge{err: errors.New("upstream down")}
	res := coherence.NewAnalyzer(coherence.WithJudge(judge)).Analyze(context.Background(), "Some text.", "topic")

	if judge.calls != 1 {
		t.Errorf("judge calls = %d, want 1", judge.calls)
	}
	if res.Score != coherence.NeutralScore || res.Feedback != coherence.FailureFeedback {
		t.Errorf("got (%v, %q), want neutral failure result", res.Score, res.Feedback)
	}
	if res.Metrics.SentenceCount != 1 {
		t.Errorf("metrics must still be computed, got %+v", res.Metrics)
	}
}

func TestAnalyzer_RemoteVerdictCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		verdict      coherence.Verdict
		wantScore    float64
		wantFeedback string
	}{
		{"string score no feedback", coherence.Verdict{Score: "0.9"}, 0.9, coherence.MissingFeedback},
		{"missing score", coherence.Verdict{Feedback: "Nice."}, 0.5, "Nice."},
		{"out of range", coherence.Verdict{Score: 7.0, Feedback: "Great."}, 1, "Great."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := coherence.NewAnalyzer(coherence.WithJudge(&stubJudge{verdict: tc.verdict}))
			res := a.Analyze(context.Background(), "Text.", "topic")
			if !approx(res.Score, tc.wantScore) || res.Feedback != tc.wantFeedback {
				t.Errorf("got (%v, %q), want (%v, %q)", res.Score, res.Feedback, tc.wantScore, tc.wantFeedback)
			}
		})
	}
}
