package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HTTPEmbedder 呼叫 OpenAI 相容的 /embeddings 端點
// （text-embeddings-inference、Ollama、OpenRouter 等皆可）
type HTTPEmbedder struct {
	client      *resty.Client
	model       string
	batchSize   int
	concurrency int

	mu         sync.RWMutex
	dimensions int
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewHTTPEmbedder 創建 HTTP Embedder
func NewHTTPEmbedder(cfg config.EmbeddingConfig) *HTTPEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &HTTPEmbedder{
		client:      client,
		model:       cfg.Model,
		batchSize:   batchSize,
		concurrency: concurrency,
		dimensions:  cfg.Dimensions,
	}
}

// Encode 依 batchSize 切批並行送出，結果依原始位置放回
func (e *HTTPEmbedder) Encode(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	out := make([]pgvector.Vector, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		start, end := start, min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.post(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding: batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(texts) > e.batchSize {
		common.LogDebug("批次編碼完成",
			zap.Int("texts", len(texts)),
			zap.Int("batch_size", e.batchSize),
			zap.String("model", e.model),
		)
	}
	return out, nil
}

// EncodeOne 編碼單一字串
func (e *HTTPEmbedder) EncodeOne(ctx context.Context, text string) (pgvector.Vector, error) {
	return encodeOne(ctx, e, text)
}

// Dimensions 向量維度（設定為 0 時以第一次回應為準）
func (e *HTTPEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimensions
}

// Model 模型名稱
func (e *HTTPEmbedder) Model() string {
	return e.model
}

func (e *HTTPEmbedder) post(ctx context.Context, batch []string) ([]pgvector.Vector, error) {
	var result embeddingResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: e.model, Input: batch}).
		SetResult(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if len(result.Data) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(result.Data))
	}

	vecs := make([]pgvector.Vector, len(batch))
	filled := make([]bool, len(batch))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(batch) || filled[d.Index] {
			return nil, fmt.Errorf("invalid embedding index %d", d.Index)
		}
		if err := e.checkDimensions(len(d.Embedding)); err != nil {
			return nil, err
		}
		vecs[d.Index] = pgvector.NewVector(d.Embedding)
		filled[d.Index] = true
	}
	return vecs, nil
}

func (e *HTTPEmbedder) checkDimensions(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions == 0 {
		e.dimensions = n
		return nil
	}
	if n != e.dimensions {
		return fmt.Errorf("embedding dimension mismatch: want %d, got %d", e.dimensions, n)
	}
	return nil
}
