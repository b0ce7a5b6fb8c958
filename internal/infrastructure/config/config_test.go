package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, validateConfig(cfg))

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, 700, cfg.Generator.MaxTokens)
	assert.Equal(t, 0.3, cfg.Generator.Temperature)
	assert.Equal(t, 0.9, cfg.Generator.TopP)
	assert.Equal(t, 1.2, cfg.Generator.RepetitionPenalty)
	assert.Equal(t, 120*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, DefaultStop, cfg.Generator.Stop)
	assert.Equal(t, 15, cfg.Retrieval.TopK)
	assert.Equal(t, 0.85, cfg.Sanitizer.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Sanitizer.Window)
	assert.Equal(t, 10, cfg.Sanitizer.MinLoopLength)
	assert.Equal(t, DefaultKillSwitch, cfg.Sanitizer.KillSwitch)
	assert.Equal(t, DefaultNutritionKeywords, cfg.Sanitizer.NutritionKeywords)
	assert.Equal(t, 1, cfg.Queue.Workers)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test-123456")
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("RATE_LIMIT_WINDOW", "30m")
	t.Setenv("APP_RETRIEVAL_TOP_K", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sk-or-test-123456", cfg.Generator.APIKey)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"missing port":           func(c *Config) { c.Server.Port = 0 },
		"missing recipe path":    func(c *Config) { c.Dataset.RecipePath = "" },
		"unknown embedding":      func(c *Config) { c.Embedding.Provider = "faiss" },
		"http without base url":  func(c *Config) { c.Embedding.BaseURL = "" },
		"zero batch size":        func(c *Config) { c.Embedding.BatchSize = 0 },
		"zero top k":             func(c *Config) { c.Retrieval.TopK = 0 },
		"threshold above one":    func(c *Config) { c.Sanitizer.SimilarityThreshold = 1.5 },
		"zero window":            func(c *Config) { c.Sanitizer.Window = 0 },
		"unknown cache backend":  func(c *Config) { c.Cache.Backend = "memcached" },
		"redis without address":  func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" },
		"zero cache ttl":         func(c *Config) { c.Cache.TTL = 0 },
		"zero queue workers":     func(c *Config) { c.Queue.Workers = 0 },
		"zero queue size":        func(c *Config) { c.Queue.MaxSize = 0 },
		"hash without dimension": func(c *Config) { c.Embedding.Provider = "hash"; c.Embedding.Dimensions = 0 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig(t)
			mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}

	t.Run("disabled cache skips cache checks", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Cache.Enabled = false
		cfg.Cache.Backend = "memcached"
		assert.NoError(t, validateConfig(cfg))
	})
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", MaskAPIKey("short"))
	assert.Equal(t, "sk-o...3456", MaskAPIKey("sk-or-test-123456"))
}
