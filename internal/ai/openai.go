package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o"
	defaultOllamaModel = "llama3.1"
	defaultOllamaURL   = "http://localhost:11434/v1"
)

// OpenAIRecommender implements Recommender for OpenAI and any
// OpenAI-compatible endpoint (Ollama, LM Studio, OpenRouter).
type OpenAIRecommender struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIRecommender creates a recommender for api.openai.com, or for
// s.BaseURL when set.
func NewOpenAIRecommender(s Settings) (*OpenAIRecommender, error) {
	if s.APIKey == "" && s.BaseURL == "" {
		return nil, fmt.Errorf("WEBEXPLORE_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}
	if s.Model == "" {
		s.Model = defaultOpenAIModel
	}
	return newOpenAICompatible(ProviderOpenAI, s), nil
}

// NewOllamaRecommender creates a recommender for a local Ollama server. It
// needs no credentials.
func NewOllamaRecommender(s Settings) (*OpenAIRecommender, error) {
	if s.BaseURL == "" {
		s.BaseURL = defaultOllamaURL
	}
	if s.Model == "" {
		s.Model = defaultOllamaModel
	}
	return newOpenAICompatible(ProviderOllama, s), nil
}

func newOpenAICompatible(name string, s Settings) *OpenAIRecommender {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = "not-needed" // local servers ignore auth
	}

	config := openai.DefaultConfig(apiKey)
	if s.BaseURL != "" {
		baseURL := strings.TrimSuffix(s.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		config.BaseURL = baseURL
	}

	return &OpenAIRecommender{
		client: openai.NewClientWithConfig(config),
		model:  s.Model,
		name:   name,
	}
}

// Name returns the provider tag
func (p *OpenAIRecommender) Name() string {
	return p.name
}

// Recommend sends one chat completion request
func (p *OpenAIRecommender) Recommend(ctx context.Context, req Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: req.System,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
		},
	)
	if err != nil {
		return "", p.wrapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response from %s", ErrMalformedResponse, p.name)
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIRecommender) wrapError(err error) error {
	pe := &ProviderError{Provider: p.name, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
	}
	return pe
}
