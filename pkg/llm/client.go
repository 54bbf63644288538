// Package llm provides a client for OpenAI-compatible chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sqlchat-go/internal/config"
)

// ErrEmptyCompletion 表示接口返回成功但没有任何内容。
var ErrEmptyCompletion = errors.New("empty chat completion")

// Client defines the interface for an LLM client.
// 每次调用都是独立的一次性对话，不保留任何上下文。
type Client interface {
	Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为，nil 字段使用配置中的默认值。
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAICompatClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client for an OpenAI-compatible endpoint
// (DeepSeek 等)。超时由 cfg.TimeoutSeconds 决定。
func NewClient(cfg config.LLMConfig) Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &openAICompatClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *openAICompatClient) Complete(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	reqBody := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
	}
	// 传参优先，否则从配置注入（若非零值）
	if gen != nil {
		reqBody.Temperature = gen.Temperature
		reqBody.TopP = gen.TopP
		reqBody.MaxTokens = gen.MaxTokens
	}
	if reqBody.Temperature == nil && c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if reqBody.TopP == nil && c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if reqBody.MaxTokens == nil && c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return parsed.Choices[0].Message.Content, nil
}
