// Package app wires the speakscore subsystems from a [config.Config].
//
// New builds the vocabulary, span anchorer, grammar source, coherence judge
// and analysis service in dependency order. Remote judges are instrumented
// and, when configured, wrapped in fallback groups whose circuit breakers
// report into the shared metrics. Tests inject providers through
// [Providers] and metrics through [WithMetrics].
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/speakscore/internal/analysis"
	"github.com/MrWong99/speakscore/internal/coherence"
	"github.com/MrWong99/speakscore/internal/config"
	"github.com/MrWong99/speakscore/internal/grammar"
	"github.com/MrWong99/speakscore/internal/health"
	"github.com/MrWong99/speakscore/internal/judge"
	"github.com/MrWong99/speakscore/internal/lexicon"
	"github.com/MrWong99/speakscore/internal/observe"
	"github.com/MrWong99/speakscore/internal/resilience"
	"github.com/MrWong99/speakscore/internal/spans"
	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
)

// NamedProvider is a language model backend with its configured name.
type NamedProvider struct {
	Name     string
	Provider llm.Provider
}

// Providers holds the language model backends. A nil Primary.Provider means
// no model is configured. Populated by main.go via [BuildProviders].
type Providers struct {
	Primary   NamedProvider
	Fallbacks []NamedProvider
}

// BuildProviders instantiates the backends named in cfg through reg. Nothing
// is built when cfg does not need a model. A fallback that cannot be built is
// logged and skipped; a primary that cannot be built is an error.
func BuildProviders(cfg *config.Config, reg *config.Registry) (*Providers, error) {
	p := &Providers{}
	if !cfg.NeedsLLM() {
		return p, nil
	}

	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("app: build providers: %w", err)
	}
	p.Primary = NamedProvider{Name: cfg.Providers.LLM.Name, Provider: primary}

	for _, entry := range cfg.Providers.LLMFallbacks {
		fb, err := reg.CreateLLM(entry)
		if err != nil {
			slog.Warn("app: skipping llm fallback", "name", entry.Name, "err", err)
			continue
		}
		p.Fallbacks = append(p.Fallbacks, NamedProvider{Name: entry.Name, Provider: fb})
	}
	return p, nil
}

// App owns the configured analysis pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	model    llm.Provider
	service  *analysis.Service
	breakers map[string][]*resilience.CircuitBreaker
}

// Option is a functional option for New.
type Option func(*App)

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. providers may be nil
// when cfg needs no language model.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		breakers:  make(map[string][]*resilience.CircuitBreaker),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if cfg.NeedsLLM() && providers.Primary.Provider == nil {
		return nil, errors.New("app: config selects an llm judge but no provider was supplied")
	}
	a.model = a.buildModel()

	lex := lexicon.New(
		lexicon.WithTransitionWords(cfg.Lexicon.TransitionWords),
		lexicon.WithFillerPhrases(cfg.Lexicon.FillerPhrases),
	)
	anchorer := spans.NewAnchorer(spans.WithFuzzyThreshold(cfg.Grammar.LocateThreshold))
	checker := grammar.NewChecker(a.buildSource(), grammar.WithAnchorer(anchorer))
	analyzer := coherence.NewAnalyzer(
		coherence.WithJudge(a.buildJudge()),
		coherence.WithExtractor(coherence.NewExtractor(lex)),
	)

	a.service = analysis.New(
		analysis.WithChecker(checker),
		analysis.WithAnalyzer(analyzer),
		analysis.WithMetrics(a.metrics),
	)

	slog.Info("app: pipeline ready",
		"grammar", cfg.Grammar.Source,
		"coherence", cfg.Coherence.Judge,
		"llm", providers.Primary.Name,
		"llm_fallbacks", len(providers.Fallbacks))
	return a, nil
}

// buildModel instruments every configured backend and groups them behind a
// fallback when more than one exists. It returns nil when none is configured.
func (a *App) buildModel() llm.Provider {
	p := a.providers
	if p.Primary.Provider == nil {
		return nil
	}
	primary := observe.InstrumentLLM(p.Primary.Provider, p.Primary.Name, a.metrics)
	if len(p.Fallbacks) == 0 {
		return primary
	}

	fb := resilience.NewLLMFallback(primary, p.Primary.Name, a.fallbackConfig("llm"))
	for _, np := range p.Fallbacks {
		fb.AddFallback(np.Name, observe.InstrumentLLM(np.Provider, np.Name, a.metrics))
	}
	a.track("llm", fb.Group().Names(), fb.Group().Breaker)
	return fb
}

func (a *App) judgeOptions() []judge.Option {
	var opts []judge.Option
	if t := a.cfg.Judge.Temperature; t != 0 {
		opts = append(opts, judge.WithTemperature(t))
	}
	if n := a.cfg.Judge.MaxTokens; n > 0 {
		opts = append(opts, judge.WithMaxTokens(n))
	}
	return opts
}

func (a *App) buildSource() grammar.ErrorSource {
	if a.cfg.Grammar.Source != config.GrammarLLM {
		return grammar.NewRuleSource()
	}
	src := judge.NewGrammarSource(a.model, a.judgeOptions()...)
	if a.cfg.Grammar.Fallback != config.GrammarRules {
		return src
	}
	sf := resilience.NewSourceFallback(src, a.fallbackConfig("grammar"))
	sf.AddFallback(grammar.NewRuleSource())
	a.track("grammar", sf.Group().Names(), sf.Group().Breaker)
	return sf
}

func (a *App) buildJudge() coherence.Judge {
	if a.cfg.Coherence.Judge != config.JudgeLLM {
		return coherence.LocalJudge{}
	}
	j := judge.NewCoherenceJudge(a.model, a.judgeOptions()...)
	if a.cfg.Coherence.Fallback != config.JudgeLocal {
		return j
	}
	jf := resilience.NewJudgeFallback(j, a.fallbackConfig("coherence"))
	jf.AddFallback(resilience.LocalJudge())
	a.track("coherence", jf.Group().Names(), jf.Group().Breaker)
	return jf
}

// fallbackConfig returns the breaker template for one component. Breaker
// transitions and failovers are logged and counted.
func (a *App) fallbackConfig(component string) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  a.cfg.Resilience.MaxFailures,
			ResetTimeout: a.cfg.Resilience.ResetTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("app: circuit breaker changed state",
					"component", component, "entry", name, "from", from, "to", to)
				a.metrics.RecordBreakerTransition(context.Background(), component+"/"+name, to.String())
			},
		},
		OnFailover: func(name string, err error) {
			slog.Debug("app: failing over", "component", component, "entry", name, "err", err)
			a.metrics.RecordFallback(context.Background(), component, name)
		},
	}
}

func (a *App) track(component string, names []string, breaker func(string) *resilience.CircuitBreaker) {
	for _, n := range names {
		if cb := breaker(n); cb != nil {
			a.breakers[component] = append(a.breakers[component], cb)
		}
	}
}

// Service returns the configured analysis service.
func (a *App) Service() *analysis.Service { return a.service }

// Run analyses ts with the configured batch concurrency.
func (a *App) Run(ctx context.Context, ts []analysis.Transcript) ([]analysis.Result, error) {
	results, err := a.service.Batch(ctx, ts, a.cfg.Batch.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("app: run: %w", err)
	}
	slog.Info("app: batch complete", "transcripts", len(results), "concurrency", a.cfg.Batch.Concurrency)
	return results, nil
}

// Ready reports an error for each component whose every fallback entry is
// behind an open circuit breaker.
func (a *App) Ready(context.Context) error {
	var errs []error
	for component, cbs := range a.breakers {
		open := 0
		for _, cb := range cbs {
			if cb.State() == resilience.StateOpen {
				open++
			}
		}
		if open == len(cbs) {
			errs = append(errs, fmt.Errorf("%s: all %d entries unavailable", component, open))
		}
	}
	return errors.Join(errs...)
}

// HealthCheckers returns the readiness checks for the ops endpoint.
func (a *App) HealthCheckers() []health.Checker {
	return []health.Checker{{Name: "judges", Check: a.Ready}}
}
