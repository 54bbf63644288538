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

	"sqlchat-go/internal/config"
)

func TestComplete_SendsRequestAndParsesContent(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1;"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{
		APIKey:         "k",
		BaseURL:        srv.URL + "/",
		Model:          "m",
		TimeoutSeconds: 5,
		Generation:     config.LLMGenerationConfig{Temperature: 0.3, MaxTokens: 100},
	})

	out, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", out)

	assert.Equal(t, "m", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 100, *got.MaxTokens)
	assert.Nil(t, got.TopP)
}

func TestComplete_ExplicitParamsOverrideConfig(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Generation: config.LLMGenerationConfig{Temperature: 0.9}})
	zero := 0.0
	_, err := c.Complete(context.Background(), nil, &GenerationParams{Temperature: &zero})
	require.NoError(t, err)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.0, *got.Temperature)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewClient(config.LLMConfig{BaseURL: srv.URL}).Complete(context.Background(), nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(config.LLMConfig{BaseURL: srv.URL}).Complete(ctx, nil, nil)
	assert.Error(t, err)
}
