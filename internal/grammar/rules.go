package grammar

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// detector flags every match of pattern. correct receives the submatches
// (index 0 is the full match) and returns the suggested replacement; a
// replacement equal to the match, ignoring case, means "no error".
type detector struct {
	pattern *regexp.Regexp
	correct func(m []string) string
}

func fixed(s string) func([]string) string {
	return func([]string) string { return s }
}

var (
	// Words ending in "s" that are not regular plurals.
	notPlural = []string{
		"is", "was", "has", "does", "this", "its", "his", "us", "yes", "plus",
		"thus", "always", "perhaps", "sometimes", "besides", "news", "series",
		"species", "means", "bus", "class", "business", "process", "focus",
		"bonus", "status", "basis", "analysis", "crisis",
	}
	// Words that follow a plural quantifier without needing an "s".
	notCountable = []string{
		"of", "more", "other", "people", "children", "men", "women", "police",
		"than", "and", "or", "to", "in", "are", "were", "have", "had", "will",
		"can", "would", "could", "should", "do", "did", "the", "such",
		"different", "new", "good", "important", "great", "small", "big",
		"little", "very", "really", "hundred", "thousand", "million", "who",
		"that", "which", "a",
	}
	irregularPlurals = []string{"people", "children", "men", "women", "police"}
	// Vowel-initial words pronounced with a leading consonant sound.
	consonantSoundPrefixes = []string{"uni", "use", "usu", "uti", "eu", "one", "once", "ur"}
	silentH                = []string{"hour", "honest", "honor", "honour", "heir"}
	definitePlaces         = []string{"university", "hospital", "school", "airport", "mall", "office", "bank", "store"}
)

var singularVerb = map[string]string{"are": "is", "were": "was", "have": "has"}

var pluralVerb = map[string]string{"is": "are", "was": "were", "has": "have"}

var agreementDetectors = []detector{
	{
		pattern: regexp.MustCompile(`(?i)\b(a|an|the|this|that|each|every|one)\s+([a-z]+)\s+(are|were|have)\b`),
		correct: func(m []string) string {
			det, noun := strings.ToLower(m[1]), strings.ToLower(m[2])
			if slices.Contains(irregularPlurals, noun) || (det == "the" && strings.HasSuffix(noun, "s")) {
				return m[0]
			}
			return m[1] + " " + m[2] + " " + singularVerb[strings.ToLower(m[3])]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(these|those|many|several|few|two|three|four|five)\s+([a-z]+s)\s+(is|was|has)\b`),
		correct: func(m []string) string {
			return m[1] + " " + m[2] + " " + pluralVerb[strings.ToLower(m[3])]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(one|a|an|each|every)\s+([a-z]+s)\b`),
		correct: func(m []string) string {
			noun := strings.ToLower(m[2])
			if slices.Contains(notPlural, noun) || strings.HasSuffix(noun, "ss") || strings.HasSuffix(noun, "us") {
				return m[0]
			}
			return m[1] + " " + m[2][:len(m[2])-1]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(many|several|few|two|three|four|five)\s+([a-z]+)\b`),
		correct: func(m []string) string {
			noun := strings.ToLower(m[2])
			if strings.HasSuffix(noun, "s") || slices.Contains(notCountable, noun) {
				return m[0]
			}
			return m[1] + " " + m[2] + "s"
		},
	},
}

var articleDetectors = []detector{
	{
		pattern: regexp.MustCompile(`(?i)\b(go to|at|in)\s+([a-z]+)(\s+|\.|,|;|:)`),
		correct: func(m []string) string {
			if !slices.Contains(definitePlaces, strings.ToLower(m[2])) {
				return m[0]
			}
			return m[1] + " the " + m[2] + m[3]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\ba\s+([aeiou][a-z]*)\b`),
		correct: func(m []string) string {
			word := strings.ToLower(m[1])
			for _, p := range consonantSoundPrefixes {
				if strings.HasPrefix(word, p) {
					return m[0]
				}
			}
			return "an " + m[1]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\ban\s+([bcdfghjklmnpqrstvwxyz][a-z]*)\b`),
		correct: func(m []string) string {
			word := strings.ToLower(m[1])
			for _, p := range silentH {
				if strings.HasPrefix(word, p) {
					return m[0]
				}
			}
			return "a " + m[1]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(a|an)\s+(information|advice|knowledge|furniture|news|equipment|traffic|weather|homework|luggage|money)\b`),
		correct: func(m []string) string { return m[2] },
	},
}

var prepositionDetectors = []detector{
	{regexp.MustCompile(`(?i)\barrived\s+to\b`), fixed("arrived at")},
	{regexp.MustCompile(`(?i)\bdifferent\s+than\b`), fixed("different from")},
	{regexp.MustCompile(`(?i)\bin\s+a\s+(morning|afternoon|evening|night)\b`), func(m []string) string { return "in the " + m[1] }},
	{regexp.MustCompile(`(?i)\bmarried\s+with\b`), fixed("married to")},
	{regexp.MustCompile(`(?i)\bcomposed\s+of\s+by\b`), fixed("composed of")},
	{regexp.MustCompile(`(?i)\bconsist\s+in\b`), fixed("consist of")},
	{regexp.MustCompile(`(?i)\bdepend\s+of\b`), fixed("depend on")},
	{regexp.MustCompile(`(?i)\binterested\s+about\b`), fixed("interested in")},
	{regexp.MustCompile(`(?i)\blistening\s+music\b`), fixed("listening to music")},
	{regexp.MustCompile(`(?i)\bpay\s+attention\s+in\b`), fixed("pay attention to")},
	{regexp.MustCompile(`(?i)\bsimilar\s+like\b`), fixed("similar to")},
	{regexp.MustCompile(`(?i)\bwait\s+you\b`), fixed("wait for you")},
	{regexp.MustCompile(`(?i)\bon\s+weekend\b`), fixed("on the weekend")},
	{regexp.MustCompile(`(?i)\bin\s+television\b`), fixed("on television")},
	{regexp.MustCompile(`(?i)\bon\s+last\s+(month|year|week)\b`), func(m []string) string { return "last " + m[1] }},
	{regexp.MustCompile(`(?i)\bin\s+next\s+(month|year|week)\b`), func(m []string) string { return "next " + m[1] }},
}

// RuleSource is an offline [ErrorSource] built from pattern detectors for
// agreement, article and preposition mistakes. It never fails and supplies
// no feedback of its own.
type RuleSource struct {
	detectors []detector
}

// NewRuleSource returns a [RuleSource] with all built-in detectors.
func NewRuleSource() *RuleSource {
	all := slices.Concat(agreementDetectors, articleDetectors, prepositionDetectors)
	return &RuleSource{detectors: all}
}

// Name implements [ErrorSource].
func (r *RuleSource) Name() string { return "rules" }

// Errors implements [ErrorSource]. Offsets in the returned records are rune
// offsets into text.
func (r *RuleSource) Errors(ctx context.Context, text string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	var records []map[string]any
	for _, d := range r.detectors {
		for _, idx := range d.pattern.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(idx)/2)
			for g := range groups {
				if idx[2*g] >= 0 {
					groups[g] = text[idx[2*g]:idx[2*g+1]]
				}
			}
			correction := d.correct(groups)
			if strings.EqualFold(correction, groups[0]) {
				continue
			}
			start := utf8.RuneCountInString(text[:idx[0]])
			records = append(records, map[string]any{
				"start":           start,
				"end":             start + utf8.RuneCountInString(groups[0]),
				"wrong_version":   groups[0],
				"correct_version": correction,
			})
		}
	}
	return Report{Records: records}, nil
}
