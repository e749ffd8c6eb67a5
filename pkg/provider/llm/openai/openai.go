// Package openai provides an LLM provider backed by the OpenAI chat
// completions API. Any OpenAI-compatible endpoint can be targeted with
// [WithBaseURL].
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/speakscore/pkg/provider/llm"
)

// Provider implements llm.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs an OpenAI-backed Provider for model.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: build params: %w", err)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.model)
}

func modelCapabilities(model string) llm.ModelCapabilities {
	caps := llm.ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 4_096}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt-4o"), strings.HasPrefix(lower, "gpt-4.1"):
		caps.MaxOutputTokens = 16_384
	case strings.HasPrefix(lower, "gpt-4-turbo"):
	case strings.HasPrefix(lower, "gpt-4"):
		caps.ContextWindow = 8_192
	case strings.HasPrefix(lower, "gpt-3.5-turbo"):
		caps.ContextWindow = 16_385
	case strings.HasPrefix(lower, "o1-mini"):
		caps.MaxOutputTokens = 65_536
	case strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"):
		caps.ContextWindow = 200_000
		caps.MaxOutputTokens = 100_000
	}
	return caps
}

func (p *Provider) buildParams(req llm.CompletionRequest) (oai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return oai.ChatCompletionNewParams{}, fmt.Errorf("request has no messages")
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		msg, err := convertMessage(m)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, msg)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params, nil
}

func convertMessage(m llm.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case llm.RoleSystem:
		return oai.SystemMessage(m.Content), nil
	case llm.RoleUser:
		return oai.UserMessage(m.Content), nil
	case llm.RoleAssistant:
		return oai.AssistantMessage(m.Content), nil
	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: unknown message role %q", m.Role)
	}
}
