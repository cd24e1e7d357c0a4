package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerator_GenerateText(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "` + "```json\\n{\\\"queries\\\": []}\\n```" + `"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator("sk-test", server.URL+"/v1", "")
	require.NoError(t, err)

	text, err := gen.GenerateText(context.Background(), "白 シャツ")
	require.NoError(t, err)
	assert.Equal(t, `{"queries": []}`, text)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "白 シャツ", messages[1].(map[string]any)["content"])
	assert.Equal(t, "json_object", captured["response_format"].(map[string]any)["type"])
}

func TestOpenAIGenerator_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "choices": [], "usage": {}}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator("sk-test", server.URL+"/v1", "custom-model")
	require.NoError(t, err)

	_, err = gen.GenerateText(context.Background(), "prompt")
	assert.ErrorContains(t, err, "empty response from openai")
}

func TestOpenAIGenerator_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator("sk-test", server.URL+"/v1", "")
	require.NoError(t, err)

	_, err = gen.GenerateText(context.Background(), "prompt")
	assert.ErrorContains(t, err, "openai query generation failed")
}
