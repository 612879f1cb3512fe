package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/compozy/coursepilot/engine/core"
)

// Provider enumerates supported completion backends.
type Provider string

const (
	ProviderGoogleAI Provider = "googleai"
	ProviderOpenAI   Provider = "openai"
)

// Config captures the settings needed to build an LLM client.
type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
}

// Client wraps a langchaingo model behind a single-prompt completion call.
// Failures are wrapped onto core.ErrGeneration.
type Client struct {
	provider    Provider
	model       string
	impl        llms.Model
	temperature float64
	maxTokens   int
}

// NewClient constructs a provider-backed client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	impl, err := buildProviderModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, impl), nil
}

// Wrap constructs a client around an existing langchaingo model.
// Used by tests and callers that build their own implementation.
func Wrap(cfg *Config, impl llms.Model) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm config is required")
	}
	if impl == nil {
		return nil, errors.New("llm implementation is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return newClient(cfg, impl), nil
}

func newClient(cfg *Config, impl llms.Model) *Client {
	return &Client{
		provider:    cfg.Provider,
		model:       cfg.Model,
		impl:        impl,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate runs a single-prompt completion and returns the raw text answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("llm: prompt is empty: %w", core.ErrGeneration)
	}
	opts := []llms.CallOption{
		llms.WithTemperature(c.temperature),
	}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	answer, err := llms.GenerateFromSinglePrompt(ctx, c.impl, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("llm %s/%s: %w: %w", c.provider, c.model, core.ErrGeneration, err)
	}
	return answer, nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errors.New("llm provider is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("llm model is required")
	}
	return nil
}

func buildProviderModel(ctx context.Context, cfg *Config) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderGoogleAI:
		googleOpts := []googleai.Option{
			googleai.WithDefaultModel(cfg.Model),
		}
		if cfg.APIKey != "" {
			googleOpts = append(googleOpts, googleai.WithAPIKey(cfg.APIKey))
		}
		client, err := googleai.New(ctx, googleOpts...)
		if err != nil {
			return nil, fmt.Errorf("llm: initialize googleai client: %w", err)
		}
		return client, nil
	case ProviderOpenAI:
		openaiOpts := []openai.Option{
			openai.WithModel(cfg.Model),
		}
		if cfg.APIKey != "" {
			openaiOpts = append(openaiOpts, openai.WithToken(cfg.APIKey))
		}
		client, err := openai.New(openaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("llm: initialize openai client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("llm: provider %q is not supported", cfg.Provider)
	}
}
