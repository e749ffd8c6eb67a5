package coherence

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Signal weights. The filler weight applies to the filler density
// (1 - normalised filler score), so more fillers always lower the score.
const (
	weightTransition = 0.2
	weightFiller     = 0.15
	weightRelevance  = 0.25
	weightFlow       = 0.25
	weightRepetition = 0.15
)

// NeutralScore is used whenever a score cannot be determined.
const NeutralScore = 0.5

// ErrInvalidMetrics is returned by [Aggregate] for metrics that hold
// non-finite or negative values.
var ErrInvalidMetrics = errors.New("coherence: invalid metrics")

// Aggregate combines m into a single coherence score in [0, 1].
//
// Counts are normalised against the sentence count first: transitions
// against the number of sentence boundaries, fillers against two per
// sentence. Callers are expected to substitute [NeutralScore] when Aggregate
// returns an error.
func Aggregate(m Metrics) (float64, error) {
	if err := validate(m); err != nil {
		return NeutralScore, err
	}

	sentences := float64(m.SentenceCount)
	transition := min(1.0, float64(m.TransitionWordCount)/max(1, sentences-1))
	filler := max(0.0, 1-float64(m.FillerPhraseCount)/max(1, sentences*2))

	score := transition*weightTransition -
		(1-filler)*weightFiller +
		m.TopicRelevance*weightRelevance +
		m.SentenceFlow*weightFlow +
		m.Repetition*weightRepetition

	return clamp01(score), nil
}

func validate(m Metrics) error {
	var errs []error
	for name, v := range map[string]float64{
		"topic_relevance":     m.TopicRelevance,
		"sentence_flow":       m.SentenceFlow,
		"repetition":          m.Repetition,
		"avg_sentence_length": m.AvgSentenceLength,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%w: %s is not finite", ErrInvalidMetrics, name))
		}
	}
	if m.TransitionWordCount < 0 || m.FillerPhraseCount < 0 || m.SentenceCount < 0 {
		errs = append(errs, fmt.Errorf("%w: negative count", ErrInvalidMetrics))
	}
	return errors.Join(errs...)
}

// CoerceScore converts a raw score reported by an upstream judge to a value
// in [0, 1]. Numbers and numeric strings are accepted and clamped; anything
// else, including NaN, yields [NeutralScore].
func CoerceScore(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if err != nil {
			return NeutralScore
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return NeutralScore
		}
		f = parsed
	default:
		return NeutralScore
	}
	if math.IsNaN(f) {
		return NeutralScore
	}
	return clamp01(f)
}
