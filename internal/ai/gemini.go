package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Compile-time interface check.
var _ AIProvider = (*GeminiProvider)(nil)

// GeminiProvider implements AIProvider using the Google Generative Language
// API through the official Go SDK.
type GeminiProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
	opts    []option.ClientOption
}

// NewGeminiProvider creates a GeminiProvider. Extra client options are
// appended after the API key option.
func NewGeminiProvider(apiKey, model string, timeout time.Duration, opts ...option.ClientOption) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		opts:    opts,
	}
}

// Name returns the provider and model identifier.
func (p *GeminiProvider) Name() string { return "gemini/" + p.model }

// Generate opens a short-lived SDK client, sends the prompts, and returns the
// concatenated text parts of the first candidate.
func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	slog.Debug("calling Gemini API", "model", p.model)

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	return responseText(resp)
}

// responseText joins the text parts of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrEmptyResponse)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked (%v)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
	}
	return "", fmt.Errorf("%w: no text candidates", ErrEmptyResponse)
}
