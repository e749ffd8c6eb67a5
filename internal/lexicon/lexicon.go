// Package lexicon provides the read-only vocabulary tables used by the
// coherence signal extractors: discourse markers, disfluency markers and the
// stop words excluded from topic and repetition analysis.
//
// A [Lexicon] is built once with [New] and never mutated afterwards, so a
// single value can be shared by any number of concurrent analyses.
package lexicon

import (
	"regexp"
	"slices"
	"strings"
)

// DefaultTransitionWords are discourse markers that signal a logical relation
// between clauses or sentences.
var DefaultTransitionWords = []string{
	"however", "therefore", "furthermore", "moreover", "in addition",
	"consequently", "as a result", "for instance", "for example",
	"in conclusion", "finally", "thus", "hence", "accordingly",
	"nevertheless", "on the other hand", "in contrast", "similarly",
	"additionally", "first of all", "secondly", "meanwhile", "to sum up",
}

// DefaultFillerPhrases are disfluency markers common in spoken answers.
var DefaultFillerPhrases = []string{
	"um", "uh", "er", "ah", "hmm", "like", "basically", "actually",
	"literally", "you know", "i mean", "sort of", "kind of", "i guess",
	"you see",
}

// DefaultTopicStopWords are removed from both topic and text before their
// vocabularies are intersected.
var DefaultTopicStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"with", "by", "about", "as", "of", "is", "are", "was", "were",
}

// DefaultRepetitionStopWords are left out of the word-frequency table used by
// the repetition signal. They still count toward the token total.
var DefaultRepetitionStopWords = []string{"the", "and", "that", "this", "with", "from"}

// Option overrides one of the default tables.
type Option func(*config)

type config struct {
	transitions    []string
	fillers        []string
	topicStop      []string
	repetitionStop []string
}

// WithTransitionWords replaces the transition-word vocabulary. An empty list
// keeps the default.
func WithTransitionWords(words []string) Option {
	return func(c *config) {
		if len(words) > 0 {
			c.transitions = words
		}
	}
}

// WithFillerPhrases replaces the filler-phrase vocabulary. An empty list
// keeps the default.
func WithFillerPhrases(phrases []string) Option {
	return func(c *config) {
		if len(phrases) > 0 {
			c.fillers = phrases
		}
	}
}

// WithTopicStopWords replaces the topic-relevance stop words.
func WithTopicStopWords(words []string) Option {
	return func(c *config) {
		if len(words) > 0 {
			c.topicStop = words
		}
	}
}

// WithRepetitionStopWords replaces the repetition stop words.
func WithRepetitionStopWords(words []string) Option {
	return func(c *config) {
		if len(words) > 0 {
			c.repetitionStop = words
		}
	}
}

// filler is a disfluency marker with its matching strategy resolved up front.
type filler struct {
	phrase string
	// word is non-nil for single-word entries, which match on word boundaries.
	word *regexp.Regexp
}

// Lexicon is an immutable set of vocabulary tables. The zero value is not
// usable; construct one with [New] or [Default].
type Lexicon struct {
	transitions    []string
	fillers        []filler
	topicStop      map[string]struct{}
	repetitionStop map[string]struct{}
}

// New builds a [Lexicon] from the defaults and opts. Entries are lower-cased
// and trimmed; blank entries are discarded.
func New(opts ...Option) *Lexicon {
	c := &config{
		transitions:    DefaultTransitionWords,
		fillers:        DefaultFillerPhrases,
		topicStop:      DefaultTopicStopWords,
		repetitionStop: DefaultRepetitionStopWords,
	}
	for _, o := range opts {
		o(c)
	}

	l := &Lexicon{
		transitions:    normalise(c.transitions),
		topicStop:      toSet(c.topicStop),
		repetitionStop: toSet(c.repetitionStop),
	}
	for _, p := range normalise(c.fillers) {
		f := filler{phrase: p}
		if len(strings.Fields(p)) == 1 {
			f.word = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
		}
		l.fillers = append(l.fillers, f)
	}
	return l
}

var defaultLexicon = New()

// Default returns the shared [Lexicon] built from the package defaults.
func Default() *Lexicon {
	return defaultLexicon
}

// TransitionWords returns a copy of the transition vocabulary.
func (l *Lexicon) TransitionWords() []string {
	return slices.Clone(l.transitions)
}

// CountTransitions counts substring occurrences of every transition word in
// text, case-insensitively. Occurrences of different entries may overlap
// ("in addition" and "additionally" are counted independently).
func (l *Lexicon) CountTransitions(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range l.transitions {
		n += strings.Count(lower, w)
	}
	return n
}

// StartsWithTransition reports whether sentence, lower-cased and trimmed,
// begins with any transition word.
func (l *Lexicon) StartsWithTransition(sentence string) bool {
	s := strings.TrimSpace(strings.ToLower(sentence))
	for _, w := range l.transitions {
		if strings.HasPrefix(s, w) {
			return true
		}
	}
	return false
}

// CountFillers counts disfluency markers in text, case-insensitively.
// Single-word entries match whole words only; multi-word entries are counted
// as substrings.
func (l *Lexicon) CountFillers(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, f := range l.fillers {
		if f.word != nil {
			n += len(f.word.FindAllStringIndex(lower, -1))
			continue
		}
		n += strings.Count(lower, f.phrase)
	}
	return n
}

// IsTopicStopWord reports whether w (already lower-cased) is ignored by the
// topic-relevance signal.
func (l *Lexicon) IsTopicStopWord(w string) bool {
	_, ok := l.topicStop[w]
	return ok
}

// IsRepetitionStopWord reports whether w (already lower-cased) is left out of
// the repetition frequency table.
func (l *Lexicon) IsRepetitionStopWord(w string) bool {
	_, ok := l.repetitionStop[w]
	return ok
}

func normalise(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range normalise(words) {
		set[w] = struct{}{}
	}
	return set
}
