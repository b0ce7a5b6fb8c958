package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-rag/internal/api"
	"recipe-rag/internal/core/ai/cache"
	"recipe-rag/internal/core/ai/embedding"
	"recipe-rag/internal/core/ai/openrouter"
	"recipe-rag/internal/core/ai/queue"
	aiservice "recipe-rag/internal/core/ai/service"
	"recipe-rag/internal/core/recipe"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("generator_model", cfg.Generator.Model),
		zap.String("generator_key", config.MaskAPIKey(cfg.Generator.APIKey)),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// 向量編碼器
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		common.LogFatal("Failed to initialize embedder", zap.Error(err))
	}

	// 資料集與索引在啟動時建立一次
	loader := recipe.NewResourceLoader(func(ctx context.Context) (*recipe.Resources, error) {
		return recipe.LoadResources(ctx, cfg.Dataset, emb)
	})
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Minute)
	_, err = loader.Get(loadCtx)
	cancelLoad()
	if err != nil {
		common.LogFatal("Failed to load recipe resources", zap.Error(err))
	}

	// 快取；只在開啟但初始化失敗時才 Fatal
	store, err := cache.New(cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	// 生成隊列
	queueManager := queue.NewManager(cfg.Queue)
	queueManager.Start()

	aiService := aiservice.NewService(cfg.Generator, openrouter.NewClient(cfg.Generator), store, queueManager)
	defer func() {
		if err := aiService.Close(); err != nil {
			common.LogError("Failed to close AI service", zap.Error(err))
		}
	}()

	sanitizer := recipe.NewSanitizer(recipe.SanitizerConfigFrom(cfg.Sanitizer))
	recipeService := recipe.NewService(loader, aiService, sanitizer, cfg.Retrieval.TopK)

	// 設置路由
	router := api.SetupRouter(cfg, api.Services{
		Recipes:   recipeService,
		Readiness: recipeService,
		Stats:     aiService,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("ready", recipeService.Ready()),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
