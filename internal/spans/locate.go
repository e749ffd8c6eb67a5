package spans

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const defaultFuzzyThreshold = 0.88

// Locate returns the rune offsets of the first occurrence of fragment in
// text. An exact match is preferred; otherwise the first case-insensitive
// match is returned. When fragment does not occur, Locate returns -1, -1.
func Locate(text, fragment string) (start, end int) {
	return locateNear(text, fragment, 0)
}

// locateNear is Locate, but among several equally good occurrences it picks
// the one whose start is closest to hint.
func locateNear(text, fragment string, hint int) (int, int) {
	hay := []rune(text)
	needle := []rune(fragment)
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1, -1
	}

	best, bestFold := -1, -1
	for i := 0; i+len(needle) <= len(hay); i++ {
		window := hay[i : i+len(needle)]
		switch {
		case string(window) == fragment:
			if best < 0 || distance(i, hint) < distance(best, hint) {
				best = i
			}
		case bestFold < 0 || distance(i, hint) < distance(bestFold, hint):
			if strings.EqualFold(string(window), fragment) {
				bestFold = i
			}
		}
	}
	if best < 0 {
		best = bestFold
	}
	if best < 0 {
		return -1, -1
	}
	return best, best + len(needle)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// AnchorOption configures an [Anchorer].
type AnchorOption func(*Anchorer)

// WithFuzzyThreshold sets the minimum Jaro-Winkler similarity a word window
// must reach to be accepted as the location of a span whose text cannot be
// found verbatim. Default: 0.88.
func WithFuzzyThreshold(threshold float64) AnchorOption {
	return func(a *Anchorer) {
		a.threshold = threshold
	}
}

// Anchorer re-aligns spans whose offsets disagree with their WrongVersion.
// Upstream language models routinely miscount character offsets while
// quoting the erroneous text correctly, so the quoted text is the better
// signal. Anchorer is read-only after construction and safe for concurrent
// use.
type Anchorer struct {
	threshold float64
}

// NewAnchorer returns an [Anchorer] configured with opts.
func NewAnchorer(opts ...AnchorOption) *Anchorer {
	a := &Anchorer{threshold: defaultFuzzyThreshold}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Anchor returns spans re-aligned against text. For each span, in order:
//
//  1. Offsets inside text whose slice equals WrongVersion are kept.
//  2. An exact or case-insensitive occurrence of WrongVersion (closest to the
//     reported start) replaces the offsets.
//  3. The word window most similar to WrongVersion by Jaro-Winkler replaces
//     the offsets when it reaches the threshold.
//  4. A span still inside text is kept as reported.
//  5. Anything else is dropped.
//
// Re-anchored spans carry the text actually found at their new offsets.
func (a *Anchorer) Anchor(text string, errs []ErrorSpan) []ErrorSpan {
	runes := []rune(text)
	out := make([]ErrorSpan, 0, len(errs))
	for _, e := range errs {
		inRange := e.Valid() && e.End <= len(runes)
		if inRange && string(runes[e.Start:e.End]) == e.WrongVersion {
			out = append(out, e)
			continue
		}
		if start, end := locateNear(text, e.WrongVersion, e.Start); start >= 0 {
			out = append(out, Format(text, start, end, e.CorrectVersion))
			continue
		}
		if start, end, ok := a.fuzzy(runes, e.WrongVersion); ok {
			out = append(out, Format(text, start, end, e.CorrectVersion))
			continue
		}
		if inRange {
			out = append(out, e)
			continue
		}
		slog.Debug("spans: dropping span that cannot be anchored",
			"start", e.Start, "end", e.End, "wrong_version", e.WrongVersion)
	}
	return out
}

type wordPos struct {
	start, end int
}

// fuzzy scans windows of as many words as fragment holds and returns the
// best-scoring window at or above the threshold.
func (a *Anchorer) fuzzy(runes []rune, fragment string) (int, int, bool) {
	n := len(strings.Fields(fragment))
	if n == 0 {
		return 0, 0, false
	}
	words := wordPositions(runes)
	target := strings.ToLower(strings.TrimSpace(fragment))

	bestScore := 0.0
	var best wordPos
	for i := 0; i+n <= len(words); i++ {
		w := wordPos{start: words[i].start, end: words[i+n-1].end}
		candidate := strings.ToLower(string(runes[w.start:w.end]))
		score := matchr.JaroWinkler(candidate, target, false)
		if score > bestScore {
			bestScore, best = score, w
		}
	}
	if bestScore < a.threshold {
		return 0, 0, false
	}
	return best.start, best.end, true
}

// wordPositions returns the rune offsets of each whitespace-separated word,
// with leading and trailing punctuation trimmed off.
func wordPositions(runes []rune) []wordPos {
	var words []wordPos
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		s, e := start, i
		for s < e && unicode.IsPunct(runes[s]) {
			s++
		}
		for e > s && unicode.IsPunct(runes[e-1]) {
			e--
		}
		if e > s {
			words = append(words, wordPos{start: s, end: e})
		}
	}
	return words
}
