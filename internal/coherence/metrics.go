// Package coherence measures how well a spoken answer stays on topic and
// hangs together. It extracts lexical signals from the raw text, combines
// them into a bounded score and turns score and signals into advisory
// feedback.
//
// Every exported function is pure: results depend only on the arguments and
// the immutable vocabulary tables, so analyses may run concurrently.
package coherence

import "strings"

// Metrics is the set of coherence signals extracted from one text.
type Metrics struct {
	// SentenceCount is the number of non-empty sentences, never below 1.
	SentenceCount int `json:"sentence_count"`

	TransitionWordCount int `json:"transition_word_count"`
	FillerPhraseCount   int `json:"filler_phrase_count"`

	// TopicRelevance, SentenceFlow and Repetition lie in [0, 1].
	TopicRelevance float64 `json:"topic_relevance"`
	SentenceFlow   float64 `json:"sentence_flow"`
	Repetition     float64 `json:"repetition"`

	// AvgSentenceLength is the mean number of whitespace-separated words per
	// sentence.
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// Metrics computes every coherence signal for text against topic.
func (e *Extractor) Metrics(text, topic string) Metrics {
	sentences := SplitSentences(text)

	words := 0
	for _, s := range sentences {
		words += len(strings.Fields(s))
	}
	count := max(1, len(sentences))

	return Metrics{
		SentenceCount:       count,
		TransitionWordCount: e.TransitionCount(text),
		FillerPhraseCount:   e.FillerCount(text),
		TopicRelevance:      e.TopicRelevance(text, topic),
		SentenceFlow:        e.SentenceFlow(sentences),
		Repetition:          e.Repetition(text),
		AvgSentenceLength:   float64(words) / float64(count),
	}
}

// ComputeMetrics is [Extractor.Metrics] with the default vocabulary.
func ComputeMetrics(text, topic string) Metrics {
	return defaultExtractor.Metrics(text, topic)
}
