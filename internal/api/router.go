package api

import (
	"time"

	"recipe-rag/internal/api/handlers/health"
	recipeHandler "recipe-rag/internal/api/handlers/recipe"
	"recipe-rag/internal/api/middleware"
	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services 路由需要的服務
type Services struct {
	Recipes   recipeHandler.Generator
	Readiness health.Readiness
	Stats     health.GeneratorStats
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.APIKeyHeader, "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	// 請求體大小限制與逾時
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, svc.Readiness, svc.Stats)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/api/health", healthHandler.HealthCheck)

	// 生成端點共用的中間件
	guards := []gin.HandlerFunc{}
	if cfg.RateLimit.Enabled {
		guards = append(guards, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	guards = append(guards,
		middleware.Deduplication(cfg.DedupWindow),
		middleware.APIKey(cfg.Auth),
	)

	handler := recipeHandler.NewHandler(svc.Recipes)
	generate := append(guards, handler.HandleGenerate)

	// API 路由組
	api := router.Group("/api/v1")
	{
		recipeGroup := api.Group("/recipe")
		{
			// 使用食材生成食譜
			recipeGroup.POST("/generate", generate...)
		}
	}

	// 舊版路徑
	router.POST("/api/generate", generate...)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
