// Package spans holds the character-offset error ranges reported against a
// transcript and the operations that clean them up before they reach a
// caller: coercion of loosely typed upstream records, re-anchoring against
// the source text, and merging of overlapping ranges.
//
// Offsets are rune offsets into a single source text. Spans produced for one
// text must never be compared with spans produced for another.
package spans

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ErrorSpan is a range [Start, End) of the source text flagged as incorrect,
// together with the offending text and its suggested replacement.
type ErrorSpan struct {
	Start          int    `json:"start"`
	End            int    `json:"end"`
	WrongVersion   string `json:"wrong_version"`
	CorrectVersion string `json:"correct_version"`
}

// Valid reports whether s satisfies 0 <= Start < End.
func (s ErrorSpan) Valid() bool {
	return s.Start >= 0 && s.End > s.Start
}

// Merge collapses overlapping spans into an ordered, non-overlapping
// sequence. Spans that share a boundary (next.Start == current.End) count as
// overlapping.
//
// The merge is positional only: a merged span keeps the WrongVersion and
// CorrectVersion of the earliest span in the run. The input slice is not
// modified. Merge is idempotent.
func Merge(errs []ErrorSpan) []ErrorSpan {
	if len(errs) == 0 {
		return []ErrorSpan{}
	}

	sorted := slices.Clone(errs)
	slices.SortStableFunc(sorted, func(a, b ErrorSpan) int {
		return cmp.Compare(a.Start, b.Start)
	})

	merged := make([]ErrorSpan, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= current.End {
			current.End = max(current.End, next.End)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// Coerce converts raw upstream error records (typically decoded JSON
// objects) into spans. A record is dropped when any of start, end,
// wrong_version or correct_version is missing, when an offset cannot be
// coerced to an integer, or when the resulting span is not [ErrorSpan.Valid].
// Keys other than the four above are ignored.
func Coerce(records []map[string]any) []ErrorSpan {
	out := make([]ErrorSpan, 0, len(records))
	for i, rec := range records {
		span, ok := coerceRecord(rec)
		if !ok {
			slog.Debug("spans: dropping malformed error record", "index", i)
			continue
		}
		out = append(out, span)
	}
	return out
}

func coerceRecord(rec map[string]any) (ErrorSpan, bool) {
	if rec == nil {
		return ErrorSpan{}, false
	}
	start, ok := coerceInt(rec["start"])
	if !ok {
		return ErrorSpan{}, false
	}
	end, ok := coerceInt(rec["end"])
	if !ok {
		return ErrorSpan{}, false
	}
	wrong, ok := rec["wrong_version"].(string)
	if !ok {
		return ErrorSpan{}, false
	}
	correct, ok := rec["correct_version"].(string)
	if !ok {
		return ErrorSpan{}, false
	}
	span := ErrorSpan{Start: start, End: end, WrongVersion: wrong, CorrectVersion: correct}
	return span, span.Valid()
}

// coerceInt accepts the numeric shapes a JSON decoder or a hand-built map can
// produce. Floats are truncated toward zero; strings must hold a base-10
// integer.
func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return coerceInt(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return coerceInt(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// Format builds a span for text[start:end] (rune offsets) with the given
// correction. Out-of-range offsets are clipped to the text.
func Format(text string, start, end int, correction string) ErrorSpan {
	runes := []rune(text)
	start = min(max(start, 0), len(runes))
	end = min(max(end, start), len(runes))
	return ErrorSpan{
		Start:          start,
		End:            end,
		WrongVersion:   string(runes[start:end]),
		CorrectVersion: correction,
	}
}
