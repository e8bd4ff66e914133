package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name       string
		override   string
		configured string
		env        map[string]string
		want       string
	}{
		{"flag override wins", "gpt", "claude", map[string]string{"ANTHROPIC_API_KEY": "k"}, ProviderOpenAI},
		{"env override", "", "claude", map[string]string{"WEBEXPLORE_PROVIDER": "xai"}, ProviderGrok},
		{"config file", "", "anthropic", map[string]string{"OPENAI_API_KEY": "k"}, ProviderClaude},
		{"anthropic credentials", "", "", map[string]string{"ANTHROPIC_API_KEY": "k", "OPENAI_API_KEY": "k"}, ProviderClaude},
		{"openai credentials", "", "", map[string]string{"WEBEXPLORE_OPENAI_KEY": "k"}, ProviderOpenAI},
		{"xai credentials", "", "", map[string]string{"XAI_API_KEY": "k"}, ProviderGrok},
		{"default local", "", "", nil, ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveProvider(tt.override, tt.configured, env(tt.env)))
		})
	}
}

func TestAPIKeyPrefersToolSpecificVariable(t *testing.T) {
	getenv := env(map[string]string{
		"WEBEXPLORE_ANTHROPIC_KEY": "specific",
		"ANTHROPIC_API_KEY":        "generic",
	})
	assert.Equal(t, "specific", APIKey("anthropic", getenv))
	assert.Equal(t, "", APIKey(ProviderOllama, getenv))
}

func TestNewRecommender(t *testing.T) {
	_, err := NewRecommender(Settings{Provider: "bard"})
	assert.ErrorContains(t, err, "unknown provider: bard")

	_, err = NewRecommender(Settings{Provider: "claude"})
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = NewRecommender(Settings{Provider: "openai"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = NewRecommender(Settings{Provider: "grok"})
	assert.ErrorContains(t, err, "XAI_API_KEY")

	r, err := NewRecommender(Settings{Provider: "local"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, r.Name())

	r, err = NewRecommender(Settings{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, r.Name())
}
