package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-rag/internal/core/ai/queue"
	"recipe-rag/internal/core/recipe"
	"recipe-rag/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// Readiness 資源載入狀態
type Readiness interface {
	Ready() bool
	Resources() *recipe.Resources
}

// GeneratorStats 生成隊列與快取狀態
type GeneratorStats interface {
	QueueStatus() *queue.Status
	CacheStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Resources *ResourceStatus        `json:"resources"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// ResourceStatus 資料集與索引狀態
type ResourceStatus struct {
	Loaded     bool   `json:"loaded"`
	Recipes    int    `json:"recipes"`
	Dimensions int    `json:"dimensions,omitempty"`
	Model      string `json:"embedding_model,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	cfg       *config.Config
	readiness Readiness
	stats     GeneratorStats
}

// NewHandler 創建健康檢查處理器，stats 可為 nil
func NewHandler(cfg *config.Config, readiness Readiness, stats GeneratorStats) *Handler {
	return &Handler{cfg: cfg, readiness: readiness, stats: stats}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Resources: h.resourceStatus(),
	}
	if !resp.Resources.Loaded {
		resp.Status = "degraded"
	}

	if h.stats != nil {
		resp.Queue = h.stats.QueueStatus()
		resp.Cache = h.stats.CacheStats()
	}

	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck 資料集與索引載入後才回 200
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if !h.readiness.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (h *Handler) resourceStatus() *ResourceStatus {
	res := h.readiness.Resources()
	if res == nil {
		return &ResourceStatus{}
	}
	return &ResourceStatus{
		Loaded:     true,
		Recipes:    res.Corpus.Len(),
		Dimensions: res.Index.Dimensions(),
		Model:      res.Embedder.Model(),
	}
}
