package ai

import (
	"context"
	"fmt"
	"math"

	"github.com/roelfdiedericks/xai-go"
)

const defaultXAIModel = "grok-4-1-fast-non-reasoning"

// XAIRecommender implements Recommender using xAI's Grok models
type XAIRecommender struct {
	client *xai.Client
	model  string
}

// NewXAIRecommender creates a new Grok recommender
func NewXAIRecommender(s Settings) (*XAIRecommender, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("WEBEXPLORE_XAI_KEY or XAI_API_KEY environment variable required")
	}

	client, err := xai.New(xai.Config{
		APIKey: xai.NewSecureString(s.APIKey),
	})
	if err != nil {
		return nil, fmt.Errorf("create xai client: %w", err)
	}

	model := s.Model
	if model == "" {
		model = defaultXAIModel
	}

	return &XAIRecommender{client: client, model: model}, nil
}

// Name returns the provider tag
func (p *XAIRecommender) Name() string {
	return ProviderGrok
}

// Recommend sends one non-streaming chat request
func (p *XAIRecommender) Recommend(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CompleteChat(ctx, p.chatRequest(req))
	if err != nil {
		return "", &ProviderError{Provider: ProviderGrok, Err: err}
	}
	if resp.Content == "" {
		return "", fmt.Errorf("%w: empty response from Grok", ErrMalformedResponse)
	}
	return resp.Content, nil
}

func (p *XAIRecommender) chatRequest(req Request) *xai.ChatRequest {
	maxTokens := req.MaxTokens
	if maxTokens > math.MaxInt32 {
		maxTokens = math.MaxInt32
	}

	chat := xai.NewChatRequest().
		WithModel(p.model).
		WithMaxTokens(int32(maxTokens)).
		WithTemperature(float32(req.Temperature))
	chat.SystemMessage(xai.SystemContent{Text: req.System})
	chat.UserMessage(xai.UserContent{Text: req.Prompt})
	return chat
}
