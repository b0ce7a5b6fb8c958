package recipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"recipe-rag/internal/core/ai/embedding"
	"recipe-rag/internal/core/corpus"
	"recipe-rag/internal/core/index"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// Resources 啟動時建立一次的唯讀資源；建立後可被多個請求並行讀取
type Resources struct {
	Corpus   *corpus.Corpus
	Index    *index.FlatL2
	Embedder embedding.Embedder
}

// NewResources 組合資源並檢查索引與資料集位置對齊
func NewResources(c *corpus.Corpus, idx *index.FlatL2, emb embedding.Embedder) (*Resources, error) {
	if c == nil || idx == nil || emb == nil {
		return nil, errors.New("recipe: incomplete resources")
	}
	if idx.Len() != c.Len() {
		return nil, fmt.Errorf("recipe: index has %d vectors for %d recipes", idx.Len(), c.Len())
	}
	return &Resources{Corpus: c, Index: idx, Embedder: emb}, nil
}

// LoadResources 讀取資料集、編碼 SearchText 並建立索引
func LoadResources(ctx context.Context, cfg config.DatasetConfig, emb embedding.Embedder) (*Resources, error) {
	start := time.Now()

	c, err := corpus.Load(cfg.RecipePath, cfg.NutritionPath)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("recipe: dataset %s has no recipes", cfg.RecipePath)
	}

	vectors, err := emb.Encode(ctx, c.SearchTexts())
	if err != nil {
		return nil, fmt.Errorf("recipe: encoding dataset: %w", err)
	}

	idx, err := index.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("recipe: building index: %w", err)
	}

	res, err := NewResources(c, idx, emb)
	if err != nil {
		return nil, err
	}

	common.LogInfo("資源已就緒",
		zap.Int("recipes", c.Len()),
		zap.Int("dimensions", idx.Dimensions()),
		zap.String("embedding_model", emb.Model()),
		zap.Duration("耗時", time.Since(start)),
	)
	return res, nil
}

// LoadFunc 建立資源的函式
type LoadFunc func(ctx context.Context) (*Resources, error)

// ResourceLoader 第一次需要時載入資源；載入失敗時下次請求會重試
type ResourceLoader struct {
	mu   sync.Mutex
	load LoadFunc
	res  atomic.Pointer[Resources]
}

// NewResourceLoader 創建資源載入器
func NewResourceLoader(load LoadFunc) *ResourceLoader {
	return &ResourceLoader{load: load}
}

// NewStaticLoader 以已建立的資源建立載入器
func NewStaticLoader(res *Resources) *ResourceLoader {
	l := &ResourceLoader{load: func(context.Context) (*Resources, error) { return res, nil }}
	if res != nil {
		l.res.Store(res)
	}
	return l
}

// Get 取得資源，必要時同步載入
func (l *ResourceLoader) Get(ctx context.Context) (*Resources, error) {
	if res := l.res.Load(); res != nil {
		return res, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if res := l.res.Load(); res != nil {
		return res, nil
	}

	res, err := l.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	if res == nil {
		return nil, ErrNotReady
	}
	l.res.Store(res)
	return res, nil
}

// Ready 資源是否已載入
func (l *ResourceLoader) Ready() bool {
	return l.res.Load() != nil
}

// Current 目前的資源，尚未載入時為 nil
func (l *ResourceLoader) Current() *Resources {
	return l.res.Load()
}
