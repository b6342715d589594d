package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"gen-1",
			"model":"test-model",
			"choices":[{"message":{"role":"assistant","content":"  The answer is 42.  "},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":100,"completion_tokens":8,"total_tokens":108}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	answer, err := client.Complete(context.Background(), []Message{
		{Role: "user", Content: "What is the answer?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", answer.Text)
	assert.Equal(t, "test-model", answer.Model)
	assert.Equal(t, 108, answer.TokensUsed)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestCompleteNonRetryableError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "400 responses must not be retried")
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{
			"id":"gen-3",
			"model":"test-model",
			"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],
			"usage":{"total_tokens":12}
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Retry:   &RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
	require.NoError(t, err)

	answer, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.NoError(t, err)

	assert.Equal(t, "ok", answer.Text)
	assert.Equal(t, 2, calls, "the 429 must be retried exactly once")
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"gen-2","choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "q"}})
	assert.Error(t, err)
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(http.StatusTooManyRequests))
	assert.True(t, shouldRetry(http.StatusServiceUnavailable))
	assert.False(t, shouldRetry(http.StatusBadRequest))
	assert.False(t, shouldRetry(http.StatusUnauthorized))
}

func TestPromptBuilderDocumentQA(t *testing.T) {
	b := NewPromptBuilder("")

	prompt := b.BuildDocumentQA("DOC BODY", "What is in table 1?")

	assert.Contains(t, prompt, "DOC BODY")
	assert.Contains(t, prompt, "Question: What is in table 1?")
	assert.Contains(t, prompt, "Answer based only on the provided document.")
}

func TestPromptBuilderChatMessages(t *testing.T) {
	b := NewPromptBuilder("custom role")

	msgs := b.ChatMessages([]Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}, "how are you?")

	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "custom role", msgs[0].Content)
	assert.Equal(t, "how are you?", msgs[3].Content)
}
