package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoProvider is returned when synthesis is attempted without a
	// configured provider, e.g. because no API key was set.
	ErrNoProvider = errors.New("no AI provider configured")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty model response")
)

// AIProvider is the interface that all LLM providers must implement.
type AIProvider interface {
	// Generate sends a system and a user prompt to the model and returns the
	// raw text of its answer.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name identifies the provider and model in logs.
	Name() string
}

// ProviderConfig holds the configuration needed to create an AI provider.
type ProviderConfig struct {
	Provider string // "gemini" | "anthropic" | "openai"
	APIKey   string
	Model    string
	Timeout  time.Duration

	// BaseURL overrides the HTTP endpoint of the anthropic and openai
	// providers. Empty means the public API.
	BaseURL string
}

// NewProvider creates the appropriate provider based on config.
func NewProvider(cfg ProviderConfig) (AIProvider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.Timeout, cfg.BaseURL), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

const defaultTimeout = 60 * time.Second
