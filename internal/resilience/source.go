package resilience

import (
	"context"

	"github.com/MrWong99/speakscore/internal/coherence"
	"github.com/MrWong99/speakscore/internal/grammar"
)

// SourceFallback is a grammar.ErrorSource that walks a [FallbackGroup] of
// sources. The usual arrangement is one or more model-backed sources followed
// by the offline rule source.
type SourceFallback struct {
	group *FallbackGroup[grammar.ErrorSource]
}

var _ grammar.ErrorSource = (*SourceFallback)(nil)

// NewSourceFallback creates a [SourceFallback] with primary as the preferred
// source. The entry name is taken from primary.Name().
func NewSourceFallback(primary grammar.ErrorSource, cfg FallbackConfig) *SourceFallback {
	return &SourceFallback{group: NewFallbackGroup(primary, primary.Name(), cfg)}
}

// AddFallback registers src after the existing entries.
func (f *SourceFallback) AddFallback(src grammar.ErrorSource) {
	f.group.AddFallback(src.Name(), src)
}

// Name reports the primary source's name.
func (f *SourceFallback) Name() string { return f.group.entries[0].name }

// Group exposes the underlying group, mainly for inspecting breakers.
func (f *SourceFallback) Group() *FallbackGroup[grammar.ErrorSource] { return f.group }

// Errors implements grammar.ErrorSource.
func (f *SourceFallback) Errors(ctx context.Context, text string) (grammar.Report, error) {
	report, _, err := ExecuteWithResult(f.group, func(src grammar.ErrorSource) (grammar.Report, error) {
		return src.Errors(ctx, text)
	})
	return report, err
}

// NamedJudge is a coherence.Judge with a label for logs and breaker names.
type NamedJudge interface {
	coherence.Judge
	Name() string
}

type localJudge struct{ coherence.LocalJudge }

func (localJudge) Name() string { return "local" }

// LocalJudge returns the offline coherence judge as a [NamedJudge].
func LocalJudge() NamedJudge { return localJudge{} }

// JudgeFallback is a coherence.Judge that walks a [FallbackGroup] of judges.
type JudgeFallback struct {
	group *FallbackGroup[NamedJudge]
}

var _ coherence.Judge = (*JudgeFallback)(nil)

// NewJudgeFallback creates a [JudgeFallback] with primary as the preferred
// judge.
func NewJudgeFallback(primary NamedJudge, cfg FallbackConfig) *JudgeFallback {
	return &JudgeFallback{group: NewFallbackGroup(primary, primary.Name(), cfg)}
}

// AddFallback registers j after the existing entries.
func (f *JudgeFallback) AddFallback(j NamedJudge) {
	f.group.AddFallback(j.Name(), j)
}

// Name reports the primary judge's name.
func (f *JudgeFallback) Name() string { return f.group.entries[0].name }

// Group exposes the underlying group, mainly for inspecting breakers.
func (f *JudgeFallback) Group() *FallbackGroup[NamedJudge] { return f.group }

// Judge implements coherence.Judge.
func (f *JudgeFallback) Judge(ctx context.Context, text, topic string, m coherence.Metrics) (coherence.Verdict, error) {
	v, _, err := ExecuteWithResult(f.group, func(j NamedJudge) (coherence.Verdict, error) {
		return j.Judge(ctx, text, topic, m)
	})
	return v, err
}
