package spans_test

import (
	"testing"

	"github.com/MrWong99/speakscore/internal/spans"
)

func TestLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		fragment  string
		wantStart int
		wantEnd   int
	}{
		{"exact", "I goes to school.", "goes", 2, 6},
		{"case-insensitive", "He Have a car.", "have", 3, 7},
		{"first occurrence", "a cat and a cat", "cat", 2, 5},
		{"absent", "nothing here", "missing", -1, -1},
		{"empty fragment", "text", "", -1, -1},
		{"longer than text", "ab", "abc", -1, -1},
		{"runes", "Ünïcode wörds", "wörds", 8, 13},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			start, end := spans.Locate(tc.text, tc.fragment)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("Locate(%q, %q) = (%d, %d), want (%d, %d)",
					tc.text, tc.fragment, start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestAnchorer_Anchor(t *testing.T) {
	t.Parallel()

	text := "Yesterday I goed to the libary and I goed home."
	a := spans.NewAnchorer()

	in := []spans.ErrorSpan{
		// Correct offsets.
		{Start: 12, End: 16, WrongVersion: "goed", CorrectVersion: "went"},
		// Wrong offsets; the second "goed" is closest to the reported start.
		{Start: 40, End: 44, WrongVersion: "goed", CorrectVersion: "went"},
		// Fuzzy: the model quoted a slightly different spelling.
		{Start: 0, End: 3, WrongVersion: "the librari", CorrectVersion: "the library"},
		// Offsets in range, text nowhere to be found: kept as reported.
		{Start: 0, End: 9, WrongVersion: "zzzz qqqq", CorrectVersion: "x"},
		// Out of range and unlocatable: dropped.
		{Start: 100, End: 110, WrongVersion: "zzzz qqqq", CorrectVersion: "x"},
	}

	got := a.Anchor(text, in)
	if len(got) != 4 {
		t.Fatalf("Anchor returned %d spans, want 4: %+v", len(got), got)
	}

	if got[0] != in[0] {
		t.Errorf("got[0] = %+v, want unchanged %+v", got[0], in[0])
	}
	if got[1].Start != 37 || got[1].End != 41 || got[1].WrongVersion != "goed" {
		t.Errorf("got[1] = %+v, want [37,41) goed", got[1])
	}
	if got[2].WrongVersion != "the libary" || got[2].CorrectVersion != "the library" {
		t.Errorf("got[2] = %+v, want fuzzy anchor on %q", got[2], "the libary")
	}
	if got[3] != in[3] {
		t.Errorf("got[3] = %+v, want unchanged %+v", got[3], in[3])
	}
}

func TestAnchorer_FuzzyThreshold(t *testing.T) {
	t.Parallel()

	text := "the libary was closed"
	in := []spans.ErrorSpan{{Start: 50, End: 60, WrongVersion: "librari", CorrectVersion: "library"}}

	strict := spans.NewAnchorer(spans.WithFuzzyThreshold(0.999))
	if got := strict.Anchor(text, in); len(got) != 0 {
		t.Errorf("strict Anchor = %+v, want none", got)
	}

	loose := spans.NewAnchorer(spans.WithFuzzyThreshold(0.5))
	got := loose.Anchor(text, in)
	if len(got) != 1 || got[0].WrongVersion != "libary" {
		t.Errorf("loose Anchor = %+v, want one span on %q", got, "libary")
	}
}
