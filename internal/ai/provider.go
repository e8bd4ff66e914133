package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider tags.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGrok   = "grok"
	ProviderOllama = "ollama"
)

// DefaultProvider is the local, keyless provider used when nothing else is
// configured or detectable.
const DefaultProvider = ProviderOllama

// Request is the provider-agnostic shape of one recommender call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Recommender is one remote model. Recommend performs exactly one attempt
// and returns the raw text of the answer; parsing happens in the Engine.
type Recommender interface {
	Name() string
	Recommend(ctx context.Context, req Request) (string, error)
}

// Settings selects and configures a Recommender.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewRecommender creates a Recommender for the canonical provider tag in s.
func NewRecommender(s Settings) (Recommender, error) {
	switch CanonicalProvider(s.Provider) {
	case ProviderClaude:
		return NewClaudeRecommender(s)
	case ProviderOpenAI:
		return NewOpenAIRecommender(s)
	case ProviderOllama:
		return NewOllamaRecommender(s)
	case ProviderGrok:
		return NewXAIRecommender(s)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai, grok, ollama)", s.Provider)
	}
}

// CanonicalProvider maps aliases onto provider tags. Unknown names are
// returned lowercased so NewRecommender can report them.
func CanonicalProvider(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "claude", "anthropic":
		return ProviderClaude
	case "openai", "gpt":
		return ProviderOpenAI
	case "grok", "xai":
		return ProviderGrok
	case "ollama", "local":
		return ProviderOllama
	default:
		return n
	}
}

// credentialEnv lists, per provider, the env vars holding its API key in
// lookup order.
var credentialEnv = map[string][]string{
	ProviderClaude: {"WEBEXPLORE_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
	ProviderOpenAI: {"WEBEXPLORE_OPENAI_KEY", "OPENAI_API_KEY"},
	ProviderGrok:   {"WEBEXPLORE_XAI_KEY", "XAI_API_KEY"},
}

// detectionOrder is the order in which credentials are probed.
var detectionOrder = []string{ProviderClaude, ProviderOpenAI, ProviderGrok}

// APIKey returns the first non-empty credential for provider.
func APIKey(provider string, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range credentialEnv[CanonicalProvider(provider)] {
		if v := getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ResolveProvider picks the provider tag for a session: an explicit override
// wins, then the configuration file, then whichever provider has
// credentials in the environment, then DefaultProvider.
func ResolveProvider(override, configured string, getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	if override != "" {
		return CanonicalProvider(override)
	}
	if env := getenv("WEBEXPLORE_PROVIDER"); env != "" {
		return CanonicalProvider(env)
	}
	if configured != "" {
		return CanonicalProvider(configured)
	}
	for _, p := range detectionOrder {
		if APIKey(p, getenv) != "" {
			return p
		}
	}
	return DefaultProvider
}
