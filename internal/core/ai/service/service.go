package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-rag/internal/core/ai/cache"
	"recipe-rag/internal/core/ai/provider"
	"recipe-rag/internal/core/ai/queue"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// ResponseMarker 指令模板的回應標記，模型回顯 prompt 時只保留其後文字
const ResponseMarker = "### Response:"

// Service AI 服務：快取 → 隊列 → 提供者
type Service struct {
	config   config.GeneratorConfig
	provider provider.Provider
	cache    cache.Store
	queue    *queue.Manager
}

// NewService 創建 AI 服務；store 可為 nil（停用快取）
func NewService(cfg config.GeneratorConfig, p provider.Provider, store cache.Store, q *queue.Manager) *Service {
	return &Service{
		config:   cfg,
		provider: p,
		cache:    store,
		queue:    q,
	}
}

// Generate 以 prompt 生成原始文字。錯誤一律包裝為 common.ErrGenerationFailed。
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, prompt); err == nil {
			return val, nil
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("快取讀取失敗", zap.Error(err))
		}
	}

	content, err := s.queue.Submit(ctx, s.job(prompt))
	if err != nil {
		return "", common.ErrGenerationFailed.Wrap(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, prompt, content); err != nil {
			common.LogWarn("快取寫入失敗", zap.Error(err))
		}
	}
	return content, nil
}

func (s *Service) job(prompt string) queue.Job {
	return func(ctx context.Context) (string, error) {
		timeout := s.config.Timeout
		if timeout <= 0 {
			timeout = s.provider.GetTimeout()
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := s.provider.Generate(ctx, &provider.Request{
			Messages:          provider.UserPrompt(prompt),
			MaxTokens:         s.config.MaxTokens,
			Temperature:       s.config.Temperature,
			TopP:              s.config.TopP,
			RepetitionPenalty: s.config.RepetitionPenalty,
			Stop:              s.config.Stop,
		})
		common.LogAICall(s.provider.GetModel(), time.Since(start), err, requestIDFrom(ctx))
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}

		common.LogDebug("AI 原始回應",
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("length", len(resp.Content)),
		)
		return StripEcho(resp.Content), nil
	}
}

// StripEcho 若回應包含回應標記，只保留最後一個標記之後的文字
func StripEcho(text string) string {
	if i := strings.LastIndex(text, ResponseMarker); i >= 0 {
		return strings.TrimSpace(text[i+len(ResponseMarker):])
	}
	return text
}

// QueueStatus 隊列狀態
func (s *Service) QueueStatus() *queue.Status {
	return s.queue.GetQueueStatus()
}

// CacheStats 快取統計；停用時為 nil
func (s *Service) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return nil
	}
	return s.cache.GetStats()
}

// Close 關閉隊列、快取與提供者
func (s *Service) Close() error {
	s.queue.Close()
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.provider.Close())
	return errors.Join(errs...)
}

type requestIDKey struct{}

// WithRequestID 將 request id 放入 context，供生成日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
