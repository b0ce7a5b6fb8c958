package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-rag/internal/core/ai/provider"
	"recipe-rag/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"m","choices":[{"message":{"role":"assistant","content":"Nama Masakan: Soto"}}],"usage":{"completion_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewClient(config.GeneratorConfig{
		BaseURL:           srv.URL,
		APIKey:            "key",
		Model:             "qwen",
		MaxTokens:         700,
		Temperature:       0.3,
		RepetitionPenalty: 1.2,
		Stop:              []string{"### Instruction:"},
		Timeout:           5 * time.Second,
	})
	defer c.Close()

	resp, err := c.Generate(context.Background(), &provider.Request{Messages: provider.UserPrompt("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Nama Masakan: Soto", resp.Content)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)

	assert.Equal(t, "qwen", got["model"])
	assert.Equal(t, 700.0, got["max_tokens"])
	assert.Equal(t, 1.2, got["repetition_penalty"])
	assert.Equal(t, []interface{}{"### Instruction:"}, got["stop"])
	assert.Equal(t, "qwen", c.GetModel())
	assert.Equal(t, 5*time.Second, c.GetTimeout())
}

func TestClient_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   string
	}{
		"api error":     {http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, "rate limited"},
		"no choices":    {http.StatusOK, `{"choices":[]}`, "no choices"},
		"empty content": {http.StatusOK, `{"choices":[{"message":{"content":""}}]}`, "empty content"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(config.GeneratorConfig{BaseURL: srv.URL, Model: "m"})
			_, err := c.Generate(context.Background(), &provider.Request{Messages: provider.UserPrompt("hi")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
