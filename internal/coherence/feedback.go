package coherence

import "strings"

// Score bands, lower bound inclusive.
const (
	bandExcellent = 0.8
	bandGood      = 0.6
	bandModerate  = 0.4
)

// Signal thresholds below (or above) which a targeted advisory is added.
const (
	minTransitionsPerSentence = 0.3
	maxFillersPerSentence     = 0.5
	minTopicRelevance         = 0.5
	minSentenceFlow           = 0.5
	minRepetition             = 0.6
	maxAvgSentenceLength      = 25
	minAvgSentenceLength      = 8
)

// GenerateFeedback turns m and the aggregated score into newline-joined
// advisory sentences: one overall assessment, then one sentence per breached
// signal threshold in a fixed order.
func GenerateFeedback(m Metrics, score float64) string {
	parts := []string{overallAssessment(score)}

	sentences := float64(max(1, m.SentenceCount))
	if float64(m.TransitionWordCount)/sentences < minTransitionsPerSentence {
		parts = append(parts, "Consider using more transition words/phrases (like 'however', 'therefore', 'in addition') to improve the flow between ideas.")
	}
	if float64(m.FillerPhraseCount)/sentences > maxFillersPerSentence {
		parts = append(parts, "Reduce the use of filler words and phrases (like 'um', 'uh', 'like', 'you know') to make your response more concise and clear.")
	}
	if m.TopicRelevance < minTopicRelevance {
		parts = append(parts, "Try to stay more focused on the main topic. Some parts of your response seem to drift away from the central theme.")
	}
	if m.SentenceFlow < minSentenceFlow {
		parts = append(parts, "Work on creating smoother transitions between sentences. Some sentences seem disconnected from those before or after them.")
	}
	if m.Repetition < minRepetition {
		parts = append(parts, "Avoid repeating the same words or phrases too frequently. Using synonyms and varied expressions will make your response more engaging.")
	}
	switch {
	case m.AvgSentenceLength > maxAvgSentenceLength:
		parts = append(parts, "Consider breaking up some longer sentences to improve clarity and readability.")
	case m.AvgSentenceLength < minAvgSentenceLength:
		parts = append(parts, "Try combining some short sentences to create more complex and sophisticated sentence structures.")
	}

	return strings.Join(parts, "\n")
}

func overallAssessment(score float64) string {
	switch {
	case score >= bandExcellent:
		return "The response demonstrates excellent coherence and flow. Ideas are well-connected and logically organized."
	case score >= bandGood:
		return "The response shows good coherence overall. The ideas generally flow well, though there are some areas for improvement."
	case score >= bandModerate:
		return "The response has moderate coherence. While some ideas connect logically, there are noticeable issues with flow and organization."
	default:
		return "The response lacks coherence. Ideas appear disconnected, and the overall organization needs significant improvement."
	}
}
