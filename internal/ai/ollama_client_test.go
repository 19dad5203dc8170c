package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "hello from ollama"},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llava:latest", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	require.NoError(t, err)
	txt, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello from ollama", txt)
	assert.NotEmpty(t, resp.RequestID)
}

func TestOllamaForwardsImages(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "chart story"},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{
		Model: "llava:latest",
		Messages: []Message{{Role: "user", Parts: []ContentPart{
			TextPart("describe"),
			ImagePart("image/png", []byte("png")),
		}}},
	})
	require.NoError(t, err)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "describe", captured.Messages[0].Content)
	assert.Equal(t, []string{"cG5n"}, captured.Messages[0].Images)
}

func TestOllamaGenerateBadRequest(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad request"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llava:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	var bre *BadRequestError
	require.ErrorAs(t, err, &bre)
	assert.Contains(t, err.Error(), "bad request")
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llava:latest", Messages: []Message{}})
	require.EqualError(t, err, "messages cannot be empty")
}

func TestRuntimeRegistry(t *testing.T) {
	rt, ok := GetRuntime("OpenAI", RuntimeConfig{APIKey: "k"})
	require.True(t, ok)
	assert.IsType(t, &Client{}, rt)

	rt, ok = GetRuntime(ProviderOllama, RuntimeConfig{})
	require.True(t, ok)
	assert.IsType(t, &OllamaClient{}, rt)

	_, ok = GetRuntime("nope", RuntimeConfig{})
	assert.False(t, ok)

	assert.True(t, RequiresAPIKey(ProviderOpenAI))
	assert.False(t, RequiresAPIKey(ProviderLocal))
}
