package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hoanghai1803/trendpost/internal/models"
)

// FallbackDigest replaces the model's answer whenever synthesis fails, so the
// pipeline always has digest text to deliver.
const FallbackDigest = "Could not summarize articles."

// Synthesizer turns harvested articles into a digest using an AIProvider.
type Synthesizer struct {
	provider AIProvider
}

// NewSynthesizer creates a Synthesizer. A nil provider is allowed: every
// Synthesize call then yields the fallback digest.
func NewSynthesizer(provider AIProvider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Synthesize asks the model for a digest of the given articles and returns
// its raw text. On any failure it returns FallbackDigest together with the
// error, so the returned string is never empty.
func (s *Synthesizer) Synthesize(ctx context.Context, articles []models.Article) (string, error) {
	if s == nil || s.provider == nil {
		return FallbackDigest, ErrNoProvider
	}

	systemPrompt, userPrompt := DigestPrompt(articles)

	slog.Info("requesting digest", "provider", s.provider.Name(), "articles", len(articles), "prompt_chars", len(userPrompt))

	text, err := s.provider.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return FallbackDigest, fmt.Errorf("%s synthesize: %w", s.provider.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return FallbackDigest, fmt.Errorf("%s synthesize: %w", s.provider.Name(), ErrEmptyResponse)
	}

	return text, nil
}
