package coherence

import "strings"

// QuickScore is a lightweight coherence estimate in [0, 1] that needs no
// topic. It rewards consistent sentence lengths (0.7) and the presence of
// distinct transition words (0.3). Text without sentences scores 0.
func (e *Extractor) QuickScore(text string) float64 {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}

	lengths := make([]float64, len(sentences))
	var total float64
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
		total += lengths[i]
	}
	n := float64(len(sentences))
	avg := total / n

	var deviation float64
	for _, l := range lengths {
		deviation += max(l-avg, avg-l)
	}
	variation := max(0, 1-(deviation/n)/avg)

	lower := strings.ToLower(text)
	present := 0
	for _, w := range e.lex.TransitionWords() {
		if strings.Contains(lower, w) {
			present++
		}
	}
	density := min(1.0, float64(present)/n)

	return clamp01(variation*0.7 + density*0.3)
}

// QuickScore is [Extractor.QuickScore] with the default vocabulary.
func QuickScore(text string) float64 {
	return defaultExtractor.QuickScore(text)
}
