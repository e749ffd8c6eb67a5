package main

import (
	"fmt"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/speakscore/internal/config"
	llm "github.com/MrWong99/speakscore/pkg/provider/llm"
	"github.com/MrWong99/speakscore/pkg/provider/llm/anyllm"
	"github.com/MrWong99/speakscore/pkg/provider/llm/openai"
)

// anyLLMBackends share the same pattern: optional APIKey + optional BaseURL.
var anyLLMBackends = []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

// registerBuiltinProviders wires all built-in LLM factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if raw := optString(entry.Options, "timeout"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("options.timeout: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, name := range anyLLMBackends {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(name, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// optString extracts a string value from a provider Options map. Returns ""
// if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
