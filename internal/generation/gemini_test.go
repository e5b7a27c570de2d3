package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": `{"a": 1}`}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := newGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	out, err := client.generate(context.Background(), "system part", "user part", 0.1, true)
	require.NoError(t, err)

	assert.Equal(t, `{"a": 1}`, out)
	assert.Equal(t, "/v1beta/models/"+DefaultGeminiModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "system part\n\nuser part", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMimeType)
}

func TestGeminiGenerate_UnwrapsFencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "```json\n{\"a\": 1}\n```"}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := newGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.generate(context.Background(), "s", "u", 0, false)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, out)
}

func TestGeminiGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer server.Close()

	client, err := newGeminiClient(GeminiConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.generate(context.Background(), "s", "u", 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := newGeminiClient(GeminiConfig{})
	assert.Error(t, err)
}
