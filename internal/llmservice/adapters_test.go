package llmservice

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

func staticKey(key string) func() string {
	return func() string { return key }
}

func TestGroqAdapterCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req groqRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "the prompt", req.Messages[1].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "raw plan text"}},
			},
		})
	}))
	defer server.Close()

	a := NewGroqAdapter(server.Client(), staticKey("test-key"))
	a.baseURL = server.URL

	got, err := a.Call(context.Background(), "the prompt", "llama-3.3-70b-versatile")
	require.NoError(t, err)
	assert.Equal(t, "raw plan text", got)
}

func TestGroqAdapterErrors(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		a := NewGroqAdapter(http.DefaultClient, staticKey(""))
		_, err := a.Call(context.Background(), "p", "m")
		var credErr *CredentialError
		assert.ErrorAs(t, err, &credErr)
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
		}))
		defer server.Close()

		a := NewGroqAdapter(server.Client(), staticKey("k"))
		a.baseURL = server.URL

		_, err := a.Call(context.Background(), "p", "m")
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.Equal(t, http.StatusTooManyRequests, transport.Status)
		assert.Contains(t, transport.Error(), "rate limited")
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer server.Close()

		a := NewGroqAdapter(server.Client(), staticKey("k"))
		a.baseURL = server.URL

		_, err := a.Call(context.Background(), "p", "m")
		var provErr *ProviderError
		assert.ErrorAs(t, err, &provErr)
	})
}

func TestGeminiAdapterCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var payload geminiPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Contents, 1)
		assert.Equal(t, "the prompt", payload.Contents[0].Parts[0].Text)

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "gemini text"}}}},
			},
		})
	}))
	defer server.Close()

	a := NewGeminiAdapter(server.Client(), staticKey("test-key"))
	a.baseURL = server.URL

	got, err := a.Call(context.Background(), "the prompt", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini text", got)
}

func TestGeminiAdapterNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	a := NewGeminiAdapter(server.Client(), staticKey("k"))
	a.baseURL = server.URL

	_, err := a.Call(context.Background(), "p", "gemini-pro")
	var provErr *ProviderError
	assert.ErrorAs(t, err, &provErr)
}

func TestHuggingFaceAdapterCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta-llama/Llama-3.3-70B-Instruct", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req huggingFaceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the prompt", req.Inputs)
		assert.False(t, req.Parameters.ReturnFullText)

		json.NewEncoder(w).Encode([]map[string]any{{"generated_text": "hf text"}})
	}))
	defer server.Close()

	a := NewHuggingFaceAdapter(server.Client(), staticKey("test-key"))
	a.baseURL = server.URL

	got, err := a.Call(context.Background(), "the prompt", "meta-llama/Llama-3.3-70B-Instruct")
	require.NoError(t, err)
	assert.Equal(t, "hf text", got)
}

func TestHuggingFaceAdapterErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model is loading"})
	}))
	defer server.Close()

	a := NewHuggingFaceAdapter(server.Client(), staticKey("k"))
	a.baseURL = server.URL

	_, err := a.Call(context.Background(), "p", "m")
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "model is loading")
}

func TestReplicateAdapterPollsToSuccess(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/models/meta/meta-llama-3-70b-instruct/predictions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id": "pred-1", "status": "starting",
			"urls": map[string]any{"get": server.URL + "/predictions/pred-1"},
		})
	})
	mux.HandleFunc("/predictions/pred-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		polls++
		if polls < 3 {
			json.NewEncoder(w).Encode(map[string]any{
				"id": "pred-1", "status": "processing",
				"urls": map[string]any{"get": server.URL + "/predictions/pred-1"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "pred-1", "status": "succeeded",
			"output": []string{"part one ", "part two"},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	a := NewReplicateAdapter(server.Client(), staticKey("test-key"))
	a.baseURL = server.URL
	a.pollInterval = time.Millisecond

	got, err := a.Call(context.Background(), "the prompt", "meta/meta-llama-3-70b-instruct")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", got)
	assert.Equal(t, 3, polls)
}

func TestReplicateAdapterFailedPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "pred-2", "status": "failed", "error": "out of capacity",
		})
	}))
	defer server.Close()

	a := NewReplicateAdapter(server.Client(), staticKey("k"))
	a.baseURL = server.URL
	a.pollInterval = time.Millisecond

	_, err := a.Call(context.Background(), "p", "meta/meta-llama-3-70b-instruct")
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "out of capacity")
}

func TestReplicateAdapterPollBudgetExhausted(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "pred-3", "status": "processing",
			"urls": map[string]any{"get": server.URL + "/poll"},
		})
	}))
	defer server.Close()

	a := NewReplicateAdapter(server.Client(), staticKey("k"))
	a.baseURL = server.URL
	a.pollInterval = time.Millisecond
	a.maxPolls = 3

	_, err := a.Call(context.Background(), "p", "meta/meta-llama-3-70b-instruct")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Contains(t, transport.Error(), "after 3 polls")
}

func TestNewAdaptersRegistersAllProviders(t *testing.T) {
	adapters := NewAdapters(http.DefaultClient, func(string) string { return "" })
	for _, desc := range DefaultProviders() {
		_, ok := adapters[desc.Provider]
		assert.True(t, ok, "no adapter registered for %q", desc.Provider)
	}
}
