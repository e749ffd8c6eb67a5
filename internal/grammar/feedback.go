package grammar

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MrWong99/speakscore/internal/spans"
)

const maxAdvisedCategories = 3

var categoryAdvice = map[Category]string{
	SubjectVerbAgreement: "- Subject-verb agreement: Make sure the verb form matches the subject (singular/plural).",
	ArticleUsage:         "- Article usage: Pay attention to when to use 'a', 'an', or 'the'.",
	VerbTense:            "- Verb tense: Maintain consistent verb tenses throughout your response.",
	Prepositions:         "- Preposition usage: Review the correct prepositions to use with specific words.",
	WordChoice:           "- Word choice: Some words are used incorrectly or inappropriately in context.",
	Punctuation:          "- Punctuation: Pay attention to proper punctuation usage.",
	SentenceStructure:    "- Sentence structure: Some sentences are structured incorrectly.",
}

// GenerateFeedback summarises errs as newline-joined advisory sentences: an
// overall tier chosen by error count followed by advice for up to three of
// the most frequent categories.
func GenerateFeedback(errs []spans.ErrorSpan) string {
	if len(errs) == 0 {
		return "The grammar in this response is excellent. No significant errors were found."
	}

	var parts []string
	switch n := len(errs); {
	case n <= 2:
		parts = append(parts, "The grammar in this response is generally good with only a few minor errors.")
	case n <= 5:
		parts = append(parts, "The grammar in this response is acceptable but has several errors that could be improved.")
	default:
		parts = append(parts, "The grammar in this response needs significant improvement as there are multiple errors.")
	}

	top := TopCategories(errs, maxAdvisedCategories)
	if len(top) > 0 {
		parts = append(parts, "The main areas for improvement are:")
		for _, c := range top {
			if advice, ok := categoryAdvice[c]; ok {
				parts = append(parts, advice)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// TopCategories returns up to limit categories with at least one error,
// ordered by descending count. Ties keep declaration order.
func TopCategories(errs []spans.ErrorSpan, limit int) []Category {
	var counts [Other + 1]int
	for _, e := range errs {
		counts[Classify(e.WrongVersion)]++
	}

	var cats []Category
	for c, n := range counts {
		if n > 0 {
			cats = append(cats, Category(c))
		}
	}
	slices.SortStableFunc(cats, func(a, b Category) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if limit >= 0 && len(cats) > limit {
		cats = cats[:limit]
	}
	return cats
}
