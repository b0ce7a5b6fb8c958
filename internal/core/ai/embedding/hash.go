package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/pgvector/pgvector-go"
)

// HashEmbedder 以 feature hashing 產生的決定性向量，離線部署與測試使用。
// 詞彙權重 1，字元 trigram 權重 0.5，最後做 L2 正規化。
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder 創建 HashEmbedder
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Encode 批次編碼
func (e *HashEmbedder) Encode(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	out := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = pgvector.NewVector(e.vector(text))
	}
	return out, nil
}

// EncodeOne 編碼單一字串
func (e *HashEmbedder) EncodeOne(ctx context.Context, text string) (pgvector.Vector, error) {
	return encodeOne(ctx, e, text)
}

// Dimensions 向量維度
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Model 模型名稱
func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", e.dimensions)
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, tok := range tokens {
		e.add(vec, "w:"+tok, 1)
		runes := []rune("#" + tok + "#")
		for i := 0; i+3 <= len(runes); i++ {
			e.add(vec, "c:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}
