package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"faq-assistant/config"
	apperrors "faq-assistant/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		LLMBaseURL: baseURL,
		LLMAPIKey:  "test-key",
		ModelID:    "test/model",
		LLMReferer: "http://localhost",
		LLMTitle:   "FAQ Assistant",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}
}

func TestCompleteSendsOpenRouterRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "FAQ Assistant", r.Header.Get("X-Title"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test/model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, Message{Role: "user", Content: "Где парк?"}, req.Messages[0])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"В центре."}}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL+"/"), zap.NewNop())
	answer, err := client.Complete(context.Background(), "Где парк?")

	require.NoError(t, err)
	assert.Equal(t, "В центре.", answer)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "401"},
		{"error body with 200", http.StatusOK, `{"error":{"message":"rate limited","code":429}}`, "rate limited"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no response choices"},
		{"not json", http.StatusOK, `<html>`, "decode chat response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(testConfig(srv.URL), zap.NewNop()).Complete(context.Background(), "q")
			require.Error(t, err)
			assert.True(t, apperrors.IsLLMCommunication(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCompleteSingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), zap.NewNop()).Complete(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteRetriesOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 3
	answer, err := New(cfg, zap.NewNop()).Complete(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(testConfig(url), zap.NewNop()).Complete(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, apperrors.IsLLMCommunication(err))
}

func TestCompleteCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(srv.URL), zap.NewNop()).Complete(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embedding", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query: парк", req.Content)
		w.Write([]byte(`[{"index":0,"embedding":[[0.5,0.25,-1]]}]`))
	}))
	defer srv.Close()

	vector, err := New(testConfig(""), zap.NewNop()).Embed(context.Background(), srv.URL, "query: парк")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, -1}, vector)
}

func TestEmbedEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(testConfig(""), zap.NewNop()).Embed(context.Background(), srv.URL, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}
