// Package config provides the configuration schema, loader, watcher and
// provider registry for speakscore.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// GrammarSource selects where grammar errors come from.
type GrammarSource string

const (
	// GrammarRules uses the offline pattern detectors.
	GrammarRules GrammarSource = "rules"

	// GrammarLLM asks the configured language model.
	GrammarLLM GrammarSource = "llm"

	// GrammarNone disables the fallback. Only valid for grammar.fallback.
	GrammarNone GrammarSource = "none"
)

// CoherenceJudge selects who produces the coherence score.
type CoherenceJudge string

const (
	// JudgeLocal aggregates the lexical metrics.
	JudgeLocal CoherenceJudge = "local"

	// JudgeLLM asks the configured language model.
	JudgeLLM CoherenceJudge = "llm"

	// JudgeNone disables the fallback. Only valid for coherence.fallback.
	JudgeNone CoherenceJudge = "none"
)

// Defaults applied by [Config.ApplyDefaults].
const (
	DefaultLocateThreshold = 0.88
	DefaultConcurrency     = 4
	DefaultMaxFailures     = 5
	DefaultResetTimeout    = 30 * time.Second
	DefaultServiceName     = "speakscore"
)

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Grammar    GrammarConfig    `yaml:"grammar"`
	Coherence  CoherenceConfig  `yaml:"coherence"`
	Judge      JudgeConfig      `yaml:"judge"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Batch      BatchConfig      `yaml:"batch"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ProvidersConfig declares the language model backends. LLM is the primary;
// LLMFallbacks are tried in order when it fails.
type ProvidersConfig struct {
	LLM          ProviderEntry   `yaml:"llm"`
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ProviderEntry is the configuration block of one backend. Name selects the
// constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "openai",
	// "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g. "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the fields above.
	Options map[string]any `yaml:"options"`
}

// GrammarConfig selects the grammar error source.
type GrammarConfig struct {
	// Source is rules or llm. Default: rules.
	Source GrammarSource `yaml:"source"`

	// Fallback is used when Source is llm and the model is unavailable.
	// rules or none. Default: rules.
	Fallback GrammarSource `yaml:"fallback"`

	// LocateThreshold is the Jaro-Winkler similarity a fuzzy match needs to
	// re-anchor a misplaced span. Default: 0.88.
	LocateThreshold float64 `yaml:"locate_threshold"`
}

// CoherenceConfig selects the coherence judge.
type CoherenceConfig struct {
	// Judge is local or llm. Default: local.
	Judge CoherenceJudge `yaml:"judge"`

	// Fallback is used when Judge is llm and the model is unavailable.
	// local or none. Default: local.
	Fallback CoherenceJudge `yaml:"fallback"`
}

// JudgeConfig tunes the model prompts. Zero values keep the judge defaults.
type JudgeConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LexiconConfig overrides the built-in vocabularies. A non-empty list
// replaces the corresponding default.
type LexiconConfig struct {
	TransitionWords []string `yaml:"transition_words"`
	FillerPhrases   []string `yaml:"filler_phrases"`
}

// BatchConfig controls batch analysis.
type BatchConfig struct {
	// Concurrency is the number of transcripts analysed in parallel.
	// Default: 4.
	Concurrency int `yaml:"concurrency"`
}

// ResilienceConfig tunes the circuit breakers around remote judges.
type ResilienceConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// TelemetryConfig configures the OpenTelemetry resource.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Grammar.Source == "" {
		c.Grammar.Source = GrammarRules
	}
	if c.Grammar.Fallback == "" {
		c.Grammar.Fallback = GrammarRules
	}
	if c.Grammar.LocateThreshold == 0 {
		c.Grammar.LocateThreshold = DefaultLocateThreshold
	}
	if c.Coherence.Judge == "" {
		c.Coherence.Judge = JudgeLocal
	}
	if c.Coherence.Fallback == "" {
		c.Coherence.Fallback = JudgeLocal
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = DefaultConcurrency
	}
	if c.Resilience.MaxFailures == 0 {
		c.Resilience.MaxFailures = DefaultMaxFailures
	}
	if c.Resilience.ResetTimeout == 0 {
		c.Resilience.ResetTimeout = DefaultResetTimeout
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// NeedsLLM reports whether any component is configured to call a model.
func (c *Config) NeedsLLM() bool {
	return c.Grammar.Source == GrammarLLM || c.Coherence.Judge == JudgeLLM
}
