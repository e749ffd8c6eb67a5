package coherence_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/speakscore/internal/coherence"
)

func TestAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    coherence.Metrics
		want float64
	}{
		{
			name: "all zero",
			m:    coherence.Metrics{},
			want: 0,
		},
		{
			name: "best possible signals",
			m: coherence.Metrics{
				SentenceCount: 3, TransitionWordCount: 5,
				TopicRelevance: 1, SentenceFlow: 1, Repetition: 1,
			},
			want: 0.2 + 0.25 + 0.25 + 0.15,
		},
		{
			name: "fillers lower the score",
			m: coherence.Metrics{
				SentenceCount: 2, FillerPhraseCount: 2,
				TopicRelevance: 1, SentenceFlow: 1, Repetition: 1,
			},
			want: -0.15*0.5 + 0.25 + 0.25 + 0.15,
		},
		{
			name: "filler flood clamps at zero",
			m:    coherence.Metrics{SentenceCount: 1, FillerPhraseCount: 100},
			want: 0,
		},
		{
			name: "empty text defaults",
			m:    coherence.ComputeMetrics("", ""),
			want: 0.25*0.5 + 0.25 + 0.15,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := coherence.Aggregate(tc.m)
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}
			if !approx(got, tc.want) {
				t.Errorf("Aggregate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAggregate_FillersStrictlyLowerScore(t *testing.T) {
	t.Parallel()

	base := coherence.Metrics{SentenceCount: 4, TransitionWordCount: 1, TopicRelevance: 0.7, SentenceFlow: 0.6, Repetition: 0.9}
	prev, _ := coherence.Aggregate(base)
	for fillers := 1; fillers <= 8; fillers++ {
		m := base
		m.FillerPhraseCount = fillers
		got, err := coherence.Aggregate(m)
		if err != nil {
			t.Fatalf("Aggregate returned error: %v", err)
		}
		if got >= prev {
			t.Fatalf("fillers=%d: score %v did not drop below %v", fillers, got, prev)
		}
		prev = got
	}
}

func TestAggregate_Bounded(t *testing.T) {
	t.Parallel()

	signals := []float64{0, 0.25, 0.5, 1}
	counts := []int{0, 1, 3, 50}
	for _, sc := range counts {
		for _, tw := range counts {
			for _, fp := range counts {
				for _, s := range signals {
					m := coherence.Metrics{
						SentenceCount: sc, TransitionWordCount: tw, FillerPhraseCount: fp,
						TopicRelevance: s, SentenceFlow: 1 - s, Repetition: s,
					}
					got, err := coherence.Aggregate(m)
					if err != nil {
						t.Fatalf("Aggregate(%+v) returned error: %v", m, err)
					}
					if got < 0 || got > 1 {
						t.Fatalf("Aggregate(%+v) = %v, out of [0, 1]", m, got)
					}
				}
			}
		}
	}
}

func TestAggregate_InvalidMetrics(t *testing.T) {
	t.Parallel()

	tests := []coherence.Metrics{
		{SentenceCount: 1, TopicRelevance: math.NaN()},
		{SentenceCount: 1, SentenceFlow: math.Inf(1)},
		{SentenceCount: 1, AvgSentenceLength: math.Inf(-1)},
		{SentenceCount: 1, FillerPhraseCount: -1},
	}
	for _, m := range tests {
		got, err := coherence.Aggregate(m)
		if !errors.Is(err, coherence.ErrInvalidMetrics) {
			t.Errorf("Aggregate(%+v) error = %v, want ErrInvalidMetrics", m, err)
		}
		if got != coherence.NeutralScore {
			t.Errorf("Aggregate(%+v) = %v, want neutral score", m, got)
		}
	}
}

func TestCoerceScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 0.7, 0.7},
		{"int", 1, 1},
		{"numeric string", " 0.3 ", 0.3},
		{"json number", json.Number("0.25"), 0.25},
		{"above range", 1.5, 1},
		{"below range", -2, 0},
		{"garbage string", "abc", 0.5},
		{"nil", nil, 0.5},
		{"nan", math.NaN(), 0.5},
		{"wrong type", []int{1}, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := coherence.CoerceScore(tc.in); !approx(got, tc.want) {
				t.Errorf("CoerceScore(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestQuickScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"I like dogs. I like cats.", 0.7},
		// lengths 4 and 3; one distinct transition over two sentences.
		{"However I like dogs. I like cats.", (1-0.5/3.5)*0.7 + 0.5*0.3},
	}
	for _, tc := range tests {
		if got := coherence.QuickScore(tc.text); !approx(got, tc.want) {
			t.Errorf("QuickScore(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
