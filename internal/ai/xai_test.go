package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXAIChatRequestCarriesSettings(t *testing.T) {
	p := &XAIRecommender{model: "grok-test"}

	built := p.chatRequest(Request{
		System:      "system",
		Prompt:      "pick one",
		Temperature: 0.2,
		MaxTokens:   256,
	}).Build(defaultXAIModel)

	assert.Equal(t, "grok-test", built.GetModel())
	assert.Equal(t, int32(256), built.GetMaxTokens())
	assert.InDelta(t, 0.2, float64(built.GetTemperature()), 1e-6)
	assert.Len(t, built.GetMessages(), 2)
}
