// Package grammar turns raw grammar-error reports into a cleaned, ordered
// list of [spans.ErrorSpan] values and summarises them as advisory feedback.
//
// Errors come from an [ErrorSource]: either the offline [RuleSource] or a
// language-model backed source. The [Checker] coerces, re-anchors and merges
// whatever the source reports.
package grammar

import (
	"slices"
	"strings"
)

// Category is a coarse grammar-error class used for feedback.
type Category int

// Categories in declaration order. Ties in feedback ranking follow this order.
const (
	SubjectVerbAgreement Category = iota
	ArticleUsage
	VerbTense
	Prepositions
	WordChoice
	Punctuation
	SentenceStructure
	Other
)

var categoryNames = [...]string{
	SubjectVerbAgreement: "subject-verb agreement",
	ArticleUsage:         "article usage",
	VerbTense:            "verb tense",
	Prepositions:         "prepositions",
	WordChoice:           "word choice",
	Punctuation:          "punctuation",
	SentenceStructure:    "sentence structure",
	Other:                "other",
}

// String returns the human-readable category name.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// classifier is one (predicate, category) pair. Predicates receive the
// lower-cased wrong text.
type classifier struct {
	category Category
	match    func(lower string) bool
}

var (
	copulas      = []string{"is", "are", "am", "was", "were"}
	articles     = []string{"a", "an", "the"}
	tenseSuffix  = []string{"ed", "ing", "es", "s"}
	prepositions = []string{"in", "on", "at", "to", "for", "with", "by"}
)

// classifiers are evaluated top to bottom; the first match wins and
// [WordChoice] is the fallback. Containment is plain substring matching,
// so "cat" counts as article usage and "this" as subject-verb agreement.
var classifiers = []classifier{
	{SubjectVerbAgreement, containsAny(copulas)},
	{ArticleUsage, containsAny(articles)},
	{VerbTense, func(lower string) bool {
		return slices.ContainsFunc(tenseSuffix, func(suf string) bool {
			return strings.HasSuffix(lower, suf)
		})
	}},
	{Prepositions, containsAny(prepositions)},
	{Punctuation, func(lower string) bool {
		return strings.ContainsAny(lower, ",.;")
	}},
}

func containsAny(set []string) func(string) bool {
	return func(lower string) bool {
		return slices.ContainsFunc(set, func(w string) bool {
			return strings.Contains(lower, w)
		})
	}
}

// Classify assigns the wrong text of an error to a [Category].
func Classify(wrong string) Category {
	lower := strings.TrimSpace(strings.ToLower(wrong))
	for _, c := range classifiers {
		if c.match(lower) {
			return c.category
		}
	}
	return WordChoice
}
