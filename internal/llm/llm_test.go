package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.0, calculateCost(0, 0, 1, 1), 1e-12)
	assert.InDelta(t, 0.1+0.8, calculateCost(1_000_000, 2_000_000, 0.10, 0.40), 1e-12)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	gen, err := New(ctx, Options{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, gen)

	_, err = New(ctx, Options{Provider: "claude"})
	assert.ErrorContains(t, err, "unknown llm provider")

	_, err = New(ctx, Options{Provider: "openai"})
	assert.ErrorContains(t, err, "api key is empty")

	gen, err = New(ctx, Options{Provider: " OpenAI ", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, gen.Name())
}
