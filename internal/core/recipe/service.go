package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// Generator 生成能力：單次阻塞呼叫，ctx 取消時中止
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service 食譜生成流程：檢索 → prompt → 生成 → 清理
type Service struct {
	loader    *ResourceLoader
	generator Generator
	sanitizer *Sanitizer
	topK      int
}

// NewService 創建食譜服務
func NewService(loader *ResourceLoader, generator Generator, sanitizer *Sanitizer, topK int) *Service {
	if sanitizer == nil {
		sanitizer = NewSanitizer(DefaultSanitizerConfig())
	}
	return &Service{
		loader:    loader,
		generator: generator,
		sanitizer: sanitizer,
		topK:      topK,
	}
}

// Ready 資源是否已載入
func (s *Service) Ready() bool {
	return s.loader.Ready()
}

// Resources 目前的資源，尚未載入時為 nil
func (s *Service) Resources() *Resources {
	return s.loader.Current()
}

// GenerateRecipe 依食材與模式生成食譜。每一種失敗都轉為帶狀態的 Result，不會回傳 error。
func (s *Service) GenerateRecipe(ctx context.Context, ingredients, mode string) *Result {
	start := time.Now()
	m := ParseMode(mode)
	query := strings.TrimSpace(ingredients)

	res, err := s.loader.Get(ctx)
	if err != nil {
		common.LogError("資源未就緒", zap.Error(err))
		return &Result{Status: StatusNotReady, Message: msgNotReady, Mode: m, Err: err}
	}

	notFound := &Result{Status: StatusNotFound, Message: fmt.Sprintf(msgNotFoundFormat, ingredients), Mode: m, Err: ErrNoCandidates}
	if query == "" {
		return notFound
	}

	best, err := NewRetriever(res, s.topK).Retrieve(ctx, query, m)
	if errors.Is(err, ErrNoCandidates) {
		common.LogWarn("找不到相符的食譜", zap.String("query", query))
		return notFound
	}
	if err != nil {
		return s.generationError(m, err, "檢索失敗")
	}

	prompt := BuildPrompt(query, m, FormatContext(best.Record))
	common.LogDebug("prompt 已建立", zap.String("prompt", prompt))

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return s.generationError(m, fmt.Errorf("%w: %w", ErrGeneration, err), "生成失敗")
	}

	clean := s.sanitizer.Clean(raw)
	if IsDegenerate(clean) {
		return s.generationError(m, ErrMalformedOutput, "生成內容無法使用")
	}

	common.LogInfo("食譜生成完成",
		zap.String("query", query),
		zap.String("mode", string(m)),
		zap.String("reference", best.Record.Title),
		zap.Int("raw_length", len(raw)),
		zap.Int("clean_length", len(clean)),
		zap.Duration("耗時", time.Since(start)),
	)

	return &Result{
		Status:    StatusOK,
		Recipe:    clean,
		Mode:      m,
		Reference: best.Record.Title,
	}
}

func (s *Service) generationError(m Mode, err error, msg string) *Result {
	common.LogError(msg, zap.Error(err))
	return &Result{Status: StatusGenerationError, Message: msgGenerationError, Mode: m, Err: err}
}
