package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeRecommender implements Recommender using Anthropic's Claude
type ClaudeRecommender struct {
	client *anthropic.Client
	model  string
}

// NewClaudeRecommender creates a new Claude recommender
func NewClaudeRecommender(s Settings) (*ClaudeRecommender, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("WEBEXPLORE_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	// Retries are a session-level concern; one attempt per call.
	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := s.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeRecommender{
		client: &client,
		model:  model,
	}, nil
}

// Name returns the provider tag
func (p *ClaudeRecommender) Name() string {
	return ProviderClaude
}

// Recommend sends one Messages API request and returns the first text block
func (p *ClaudeRecommender) Recommend(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		pe := &ProviderError{Provider: ProviderClaude, Err: err}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			pe.StatusCode = apiErr.StatusCode
		}
		return "", pe
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: empty response from Claude", ErrMalformedResponse)
}
