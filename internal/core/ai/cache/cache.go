package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 生成結果快取，以 prompt 為 key。未命中回傳 common.ErrCacheMiss。
type Store interface {
	Get(ctx context.Context, prompt string) (string, error)
	Set(ctx context.Context, prompt, value string) error
	GetStats() map[string]interface{}
	Close() error
}

// New 依 backend 建立快取；停用時回傳 nil
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case "", "memory":
		return NewManager(cfg), nil
	case "redis":
		store, err := NewRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}

// Key 生成緩存鍵
func Key(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return "text:" + hex.EncodeToString(hash[:])
}

func logStored(backend, key string) {
	common.LogDebug("快取已儲存",
		zap.String("backend", backend),
		zap.String("鍵", key),
	)
}
