package embedding

import (
	"context"
	"fmt"

	"recipe-rag/internal/infrastructure/config"

	"github.com/pgvector/pgvector-go"
)

// Embedder 文字轉向量能力。相同模型下，相同輸入必須得到相同向量。
type Embedder interface {
	// Encode 批次編碼，回傳順序與輸入一致
	Encode(ctx context.Context, texts []string) ([]pgvector.Vector, error)

	// EncodeOne 編碼單一字串
	EncodeOne(ctx context.Context, text string) (pgvector.Vector, error)

	// Dimensions 向量維度
	Dimensions() int

	// Model 模型名稱
	Model() string
}

// New 依設定建立 Embedder
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "http":
		return NewHTTPEmbedder(cfg), nil
	case "hash":
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

func encodeOne(ctx context.Context, e Embedder, text string) (pgvector.Vector, error) {
	vecs, err := e.Encode(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(vecs) != 1 {
		return pgvector.Vector{}, fmt.Errorf("embedding: expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}
