package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Generator   GeneratorConfig `mapstructure:"generator"`
	Embedding   EmbeddingConfig `mapstructure:"embedding"`
	Dataset     DatasetConfig   `mapstructure:"dataset"`
	Retrieval   RetrievalConfig `mapstructure:"retrieval"`
	Sanitizer   SanitizerConfig `mapstructure:"sanitizer"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Queue       QueueConfig     `mapstructure:"queue"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Auth        AuthConfig      `mapstructure:"auth"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// RequestTimeout 單一請求（含生成）的上限
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// GeneratorConfig 語言模型（chat completions 相容端點）設定
type GeneratorConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	TopP              float64       `mapstructure:"top_p"`
	RepetitionPenalty float64       `mapstructure:"repetition_penalty"`
	Stop              []string      `mapstructure:"stop"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig 向量編碼設定
type EmbeddingConfig struct {
	// Provider "http" 或 "hash"
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Dimensions  int           `mapstructure:"dimensions"`
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DatasetConfig 資料集路徑
type DatasetConfig struct {
	RecipePath    string `mapstructure:"recipe_path"`
	NutritionPath string `mapstructure:"nutrition_path"`
}

// RetrievalConfig 檢索設定
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// SanitizerConfig 輸出清理設定
type SanitizerConfig struct {
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`
	Window              int      `mapstructure:"window"`
	MinLoopLength       int      `mapstructure:"min_loop_length"`
	KillSwitch          []string `mapstructure:"kill_switch"`
	NutritionKeywords   []string `mapstructure:"nutrition_keywords"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend "memory" 或 "redis"
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// QueueConfig 生成隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AuthConfig API Key 驗證設定
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DefaultStop 模型開始重寫 prompt 模板時停止生成
var DefaultStop = []string{"### Instruction:", "### Input:"}

// DefaultKillSwitch 生成結尾的閒聊片語，出現後其後內容全部捨棄
var DefaultKillSwitch = []string{
	"Tips:", "Tips :", "Note:", "Note :", "Catatan:", "P.S.",
	"Selamat mencoba", "Happy cooking", "Semoga bermanfaat",
	"Untuk mengetahui nutrisinya", "Data nutrisi ini",
	"Kalau mau disajikan", "Sajikan hangat",
}

// DefaultNutritionKeywords 營養區段允許保留的關鍵字（小寫比對）
var DefaultNutritionKeywords = []string{"kalori", "protein", "karbo", "lemak", "kcal", "gram", "g="}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 非必要
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	v.BindEnv("server.port", "PORT")
	v.BindEnv("generator.base_url", "GENERATOR_BASE_URL")
	v.BindEnv("generator.api_key", "GENERATOR_API_KEY", "OPENROUTER_API_KEY")
	v.BindEnv("generator.model", "GENERATOR_MODEL", "OPENROUTER_MODEL")
	v.BindEnv("generator.max_tokens", "MODEL_MAX_TOKENS")
	v.BindEnv("embedding.provider", "EMBEDDING_PROVIDER")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	v.BindEnv("embedding.model", "EMBEDDING_MODEL")
	v.BindEnv("dataset.recipe_path", "DATA_RESEP_PATH")
	v.BindEnv("dataset.nutrition_path", "DATA_NUTRISI_PATH")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	v.BindEnv("cache.redis_password", "REDIS_PASSWORD")
	v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("auth.enabled", "AUTH_ENABLED")
	v.BindEnv("auth.api_key", "API_KEY")
	v.BindEnv("dedup_window", "DEDUP_WINDOW")
	v.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "generator_api_key:", maskAPIKey(v.GetString("generator.api_key")), "generator_model:", v.GetString("generator.model"))

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-rag")

	// 伺服器設定
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 生成模型設定
	v.SetDefault("generator.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("generator.model", "qwen/qwen-2-7b-instruct")
	v.SetDefault("generator.max_tokens", 700)
	v.SetDefault("generator.temperature", 0.3)
	v.SetDefault("generator.top_p", 0.9)
	v.SetDefault("generator.repetition_penalty", 1.2)
	v.SetDefault("generator.stop", DefaultStop)
	v.SetDefault("generator.timeout", "120s")

	// 向量編碼設定
	v.SetDefault("embedding.provider", "http")
	v.SetDefault("embedding.base_url", "http://localhost:8081/v1")
	v.SetDefault("embedding.model", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.batch_size", 64)
	v.SetDefault("embedding.concurrency", 4)
	v.SetDefault("embedding.timeout", "60s")

	// 資料集
	v.SetDefault("dataset.recipe_path", "data/Indonesian_Food_Recipes.csv")
	v.SetDefault("dataset.nutrition_path", "data/nutrition.csv")

	// 檢索與清理
	v.SetDefault("retrieval.top_k", 15)
	v.SetDefault("sanitizer.similarity_threshold", 0.85)
	v.SetDefault("sanitizer.window", 5)
	v.SetDefault("sanitizer.min_loop_length", 10)
	v.SetDefault("sanitizer.kill_switch", DefaultKillSwitch)
	v.SetDefault("sanitizer.nutrition_keywords", DefaultNutritionKeywords)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	// 隊列設定：同一模型實例一次只生成一份
	v.SetDefault("queue.workers", 1)
	v.SetDefault("queue.max_size", 20)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 50)
	v.SetDefault("rate_limit.window", "1h")

	v.SetDefault("auth.enabled", true)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Dataset.RecipePath == "" {
		return fmt.Errorf("dataset recipe path is required")
	}

	switch config.Embedding.Provider {
	case "http":
		if config.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding base url is required for http provider")
		}
	case "hash":
		if config.Embedding.Dimensions <= 0 {
			return fmt.Errorf("invalid embedding dimensions")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", config.Embedding.Provider)
	}
	if config.Embedding.BatchSize <= 0 {
		return fmt.Errorf("invalid embedding batch size")
	}

	if config.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid retrieval top_k")
	}

	if t := config.Sanitizer.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("invalid sanitizer similarity threshold")
	}
	if config.Sanitizer.Window <= 0 {
		return fmt.Errorf("invalid sanitizer window")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required for redis cache")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
