package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMNames lists the language model backends registered by default.
// Used by [Validate] to warn about unrecognised provider names.
var ValidLLMNames = []string{"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like [Load] but returns [Default] when path is empty
// or the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. Defaults are
// expected to be applied already. It returns a joined error listing every
// failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	switch cfg.Grammar.Source {
	case GrammarRules, GrammarLLM:
	default:
		errs = append(errs, fmt.Errorf("grammar.source %q is invalid; valid values: rules, llm", cfg.Grammar.Source))
	}
	switch cfg.Grammar.Fallback {
	case GrammarRules, GrammarNone:
	default:
		errs = append(errs, fmt.Errorf("grammar.fallback %q is invalid; valid values: rules, none", cfg.Grammar.Fallback))
	}
	if t := cfg.Grammar.LocateThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("grammar.locate_threshold %.2f is out of range (0, 1]", t))
	}

	switch cfg.Coherence.Judge {
	case JudgeLocal, JudgeLLM:
	default:
		errs = append(errs, fmt.Errorf("coherence.judge %q is invalid; valid values: local, llm", cfg.Coherence.Judge))
	}
	switch cfg.Coherence.Fallback {
	case JudgeLocal, JudgeNone:
	default:
		errs = append(errs, fmt.Errorf("coherence.fallback %q is invalid; valid values: local, none", cfg.Coherence.Fallback))
	}

	if cfg.Judge.Temperature < 0 || cfg.Judge.Temperature > 2 {
		errs = append(errs, fmt.Errorf("judge.temperature %.2f is out of range [0, 2]", cfg.Judge.Temperature))
	}
	if cfg.Judge.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("judge.max_tokens %d must not be negative", cfg.Judge.MaxTokens))
	}

	if cfg.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.concurrency %d must be at least 1", cfg.Batch.Concurrency))
	}
	if cfg.Resilience.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("resilience.max_failures %d must be at least 1", cfg.Resilience.MaxFailures))
	}
	if cfg.Resilience.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("resilience.reset_timeout %s must not be negative", cfg.Resilience.ResetTimeout))
	}

	for i, w := range cfg.Lexicon.TransitionWords {
		if w == "" {
			errs = append(errs, fmt.Errorf("lexicon.transition_words[%d] is empty", i))
		}
	}
	for i, w := range cfg.Lexicon.FillerPhrases {
		if w == "" {
			errs = append(errs, fmt.Errorf("lexicon.filler_phrases[%d] is empty", i))
		}
	}

	if cfg.NeedsLLM() && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required when grammar.source or coherence.judge is llm"))
	}
	if !cfg.NeedsLLM() && cfg.Providers.LLM.Name != "" {
		slog.Warn("providers.llm is configured but no component uses it", "name", cfg.Providers.LLM.Name)
	}
	validateProviderName("providers.llm", cfg.Providers.LLM.Name)
	for i, fb := range cfg.Providers.LLMFallbacks {
		field := fmt.Sprintf("providers.llm_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", field))
			continue
		}
		validateProviderName(field, fb.Name)
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not one of
// [ValidLLMNames].
func validateProviderName(field, name string) {
	if name == "" || slices.Contains(ValidLLMNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a custom registration",
		"field", field,
		"name", name,
		"known", ValidLLMNames,
	)
}
