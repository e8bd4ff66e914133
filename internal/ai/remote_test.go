package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama3.1",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": %s},
    "finish_reason": "stop"
  }]
}`

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	quoted, _ := json.Marshal(content)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(fmt.Sprintf(chatCompletion, string(quoted))))
}

func TestOllamaRecommender(t *testing.T) {
	var gotPath, gotModel string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		writeCompletion(w, `{"elementIndex": 0, "reasoning": "only option", "expectedOutcome": "next page"}`)
	})

	r, err := NewOllamaRecommender(Settings{BaseURL: srv.URL})
	require.NoError(t, err)

	e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)
	rec := e.Decide(context.Background(), PageContext{Elements: buttons(1)})

	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.ElementIndex)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, defaultOllamaModel, gotModel)
}

func TestOpenAICompatibleErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantHint string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`, HintGeneric},
		{"missing model", http.StatusNotFound, `{"error": {"message": "model \"llama9\" not found, try pulling it first", "type": "not_found"}}`, HintModelMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			r, err := NewOllamaRecommender(Settings{BaseURL: srv.URL + "/v1/"})
			require.NoError(t, err)
			e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)

			_, err = e.Recommend(context.Background(), PageContext{Elements: buttons(2)})
			require.ErrorIs(t, err, ErrRecommenderUnavailable)

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantHint, FailureHint(err))
		})
	}
}

func TestOpenAICompatibleEmptyChoice(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "")
	})

	r, err := NewOpenAIRecommender(Settings{BaseURL: srv.URL})
	require.NoError(t, err)
	e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)

	_, err = e.Recommend(context.Background(), PageContext{Elements: buttons(2)})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestSlowRecommenderFallsBackWithinTimeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	r, err := NewOllamaRecommender(Settings{BaseURL: srv.URL})
	require.NoError(t, err)
	e := NewEngine(r, EngineOptions{Timeout: 100 * time.Millisecond}, nil, nil)

	start := time.Now()
	_, err = e.Recommend(context.Background(), PageContext{Elements: buttons(2)})

	require.ErrorIs(t, err, ErrRecommenderUnavailable)
	assert.Equal(t, HintUnreachable, FailureHint(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestUnreachableRecommender(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r, err := NewOllamaRecommender(Settings{BaseURL: url})
	require.NoError(t, err)
	e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)

	_, err = e.Recommend(context.Background(), PageContext{Elements: buttons(2)})
	require.ErrorIs(t, err, ErrRecommenderUnavailable)
	assert.Equal(t, HintUnreachable, FailureHint(err))
}

const anthropicMessage = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [{"type": "text", "text": %s}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 12, "output_tokens": 8}
}`

func TestClaudeRecommender(t *testing.T) {
	answer, err := json.Marshal("```json\n{\"elementIndex\": 1, \"reasoning\": \"pricing page\", \"expectedOutcome\": \"pricing\"}\n```")
	require.NoError(t, err)

	var gotKey string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fmt.Sprintf(anthropicMessage, string(answer))))
	})

	r, err := NewClaudeRecommender(Settings{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)

	rec := e.Decide(context.Background(), PageContext{Elements: buttons(2)})
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.ElementIndex)
	assert.Equal(t, "pricing page", rec.Reasoning)
	assert.Equal(t, "test-key", gotKey)
}

func TestClaudeRecommenderMakesSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "api_error", "message": "overloaded"}}`))
	})

	r, err := NewClaudeRecommender(Settings{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	e := NewEngine(r, EngineOptions{Timeout: 5 * time.Second}, nil, nil)

	_, err = e.Recommend(context.Background(), PageContext{Elements: buttons(2)})
	require.ErrorIs(t, err, ErrRecommenderUnavailable)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
