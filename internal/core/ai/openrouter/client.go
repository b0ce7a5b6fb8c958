package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"recipe-rag/internal/core/ai/provider"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client OpenRouter（或任何 chat completions 相容端點）客戶端
type Client struct {
	client *resty.Client
	config config.GeneratorConfig
}

var _ provider.Provider = (*Client)(nil)

// completionResponse chat completions 響應結構
type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      provider.Message `json:"message"`
		FinishReason string           `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg config.GeneratorConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://recipe-rag.local").
		SetHeader("X-Title", "Recipe RAG")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))
	}

	return &Client{client: client, config: cfg}
}

// Generate 生成回應；未指定的解碼參數使用設定值
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := *req
	if body.Model == "" {
		body.Model = c.config.Model
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.config.MaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = c.config.Temperature
	}
	if body.TopP == 0 {
		body.TopP = c.config.TopP
	}
	if body.RepetitionPenalty == 0 {
		body.RepetitionPenalty = c.config.RepetitionPenalty
	}
	if len(body.Stop) == 0 {
		body.Stop = c.config.Stop
	}

	common.LogDebug("Sending request to generator",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
		zap.Int("max_tokens", body.MaxTokens),
	)

	var result completionResponse
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", provider.ErrEmptyResponse)
	}
	content := result.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", provider.ErrEmptyResponse)
	}

	return &provider.Response{
		Content: content,
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}

// GetModel 模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 請求超時
func (c *Client) GetTimeout() time.Duration {
	return c.client.GetClient().Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
