package coherence

import (
	"regexp"
	"strings"

	"github.com/MrWong99/speakscore/internal/lexicon"
)

var (
	sentenceDelims = regexp.MustCompile(`[.!?]+`)
	wordRun        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	asciiWord      = regexp.MustCompile(`^[a-zA-Z]{3,}$`)
)

// Extractor computes the lexical coherence signals of a text. Each signal is
// a pure function of its inputs and the injected [lexicon.Lexicon]; an
// Extractor is safe for concurrent use.
type Extractor struct {
	lex *lexicon.Lexicon
}

// NewExtractor returns an [Extractor] using lex. A nil lex selects
// [lexicon.Default].
func NewExtractor(lex *lexicon.Lexicon) *Extractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Extractor{lex: lex}
}

var defaultExtractor = NewExtractor(nil)

// SplitSentences splits text on runs of '.', '!' and '?', trims each
// fragment and drops the empty ones.
func SplitSentences(text string) []string {
	parts := sentenceDelims.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// contentWords returns the lower-cased words of at least three ASCII letters
// in text. Word boundaries are Unicode-aware, so "café" yields nothing.
func contentWords(text string) []string {
	var words []string
	for _, w := range wordRun.FindAllString(text, -1) {
		if asciiWord.MatchString(w) {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// TransitionCount counts transition-word occurrences in text.
func (e *Extractor) TransitionCount(text string) int {
	return e.lex.CountTransitions(text)
}

// FillerCount counts filler-phrase occurrences in text.
func (e *Extractor) FillerCount(text string) int {
	return e.lex.CountFillers(text)
}

// TopicRelevance measures how much of the topic vocabulary the text covers,
// in [0, 1]. Topic keywords longer than three letters that the text uses more
// than once add a capped bonus. A topic without usable words yields the
// neutral 0.5.
func (e *Extractor) TopicRelevance(text, topic string) float64 {
	topicWords := make(map[string]struct{})
	for _, w := range contentWords(topic) {
		if !e.lex.IsTopicStopWord(w) {
			topicWords[w] = struct{}{}
		}
	}
	if len(topicWords) == 0 {
		return 0.5
	}

	textCounts := make(map[string]int)
	for _, w := range contentWords(text) {
		if !e.lex.IsTopicStopWord(w) {
			textCounts[w]++
		}
	}

	overlap := 0
	boost := 0.0
	for w := range topicWords {
		count := textCounts[w]
		if count > 0 {
			overlap++
		}
		if len(w) > 3 && count > 1 {
			boost += min(0.2, 0.05*float64(count))
		}
	}

	relevance := clamp01(float64(overlap) / float64(max(1, len(topicWords))))
	return clamp01(relevance + boost)
}

// SentenceFlow scores how smoothly consecutive sentences connect, in [0, 1].
// It blends length consistency (0.3), lexical overlap (0.5) and the share of
// sentences after the first that open with a transition word (0.2). Zero or
// one sentence scores 1.
func (e *Extractor) SentenceFlow(sentences []string) float64 {
	if len(sentences) <= 1 {
		return 1.0
	}

	pairs := float64(len(sentences) - 1)
	var lengthDiff, overlap float64
	for i := 1; i < len(sentences); i++ {
		prev, curr := sentences[i-1], sentences[i]
		lengthDiff += float64(abs(len(strings.Fields(curr)) - len(strings.Fields(prev))))
		overlap += pairOverlap(prev, curr)
	}
	lengthScore := max(0, 1-(lengthDiff/pairs)/10)

	flow := lengthScore*0.3 + (overlap/pairs)*0.5 + e.transitionStartRatio(sentences)*0.2
	return clamp01(flow)
}

// transitionStartRatio is the fraction of sentences after the first whose
// text opens with a transition word.
func (e *Extractor) transitionStartRatio(sentences []string) float64 {
	if len(sentences) <= 1 {
		return 0
	}
	starts := 0
	for _, s := range sentences[1:] {
		if e.lex.StartsWithTransition(s) {
			starts++
		}
	}
	return float64(starts) / float64(len(sentences)-1)
}

// pairOverlap is the share of the smaller sentence's distinct content words
// that also occur in the other sentence. It is 0.5 when either sentence has
// no content words.
func pairOverlap(a, b string) float64 {
	setA := wordSet(contentWords(a))
	setB := wordSet(contentWords(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0.5
	}
	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	return min(1.0, float64(shared)/float64(min(len(setA), len(setB))))
}

// Repetition scores lexical variety in [0, 1]; higher means less repetitive.
// Repetition stop words are left out of the frequency table but still count
// toward the total. Text without content words scores 1.
func (e *Extractor) Repetition(text string) float64 {
	words := contentWords(text)
	if len(words) == 0 {
		return 1.0
	}

	counts := make(map[string]int)
	maxCount := 0
	for _, w := range words {
		if e.lex.IsRepetitionStopWord(w) {
			continue
		}
		counts[w]++
		maxCount = max(maxCount, counts[w])
	}
	if len(counts) == 0 {
		return 1.0
	}

	total := float64(len(words))
	uniqueRatio := float64(len(counts)) / total
	return clamp01(uniqueRatio*0.7 + (1 - (float64(maxCount)/total)*0.3))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func clamp01(v float64) float64 {
	return min(1.0, max(0.0, v))
}
