package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"recipe-rag/internal/infrastructure/config"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("queue manager is closed")

// Job 由 worker 執行的生成工作
type Job func(ctx context.Context) (string, error)

// Request 隊列請求
type Request struct {
	Context    context.Context
	Job        Job
	Result     chan Result
	EnqueuedAt time.Time
}

// Result 處理結果
type Result struct {
	Content string
	Error   error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	Active         int   `json:"active"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 有界隊列 + 固定數量 worker；預設單一 worker，一次只跑一個生成
type Manager struct {
	config    config.QueueConfig
	queue     chan *Request
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	active    int32
	processed int64
	failed    int64
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize < 0 {
		cfg.MaxSize = 0
	}
	return &Manager{
		config: cfg,
		queue:  make(chan *Request, cfg.MaxSize),
		done:   make(chan struct{}),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.Workers; i++ {
			m.wg.Add(1)
			go m.worker(i)
		}
		common.LogInfo("生成隊列已啟動",
			zap.Int("workers", m.config.Workers),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
	})
}

// Enqueue 將請求加入隊列；隊列已滿時立即回傳 common.ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, job Job) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}

	req := &Request{
		Context:    ctx,
		Job:        job,
		Result:     make(chan Result, 1),
		EnqueuedAt: time.Now(),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return req.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrClosed
	default:
		common.LogWarn("生成隊列已滿", zap.Int("max_queue_size", m.config.MaxSize))
		return nil, common.ErrQueueFull
	}
}

// Submit 加入隊列並等待結果；ctx 取消時放棄等待
func (m *Manager) Submit(ctx context.Context, job Job) (string, error) {
	resultCh, err := m.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}
	select {
	case res := <-resultCh:
		return res.Content, res.Error
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			m.drain()
			return
		case req := <-m.queue:
			m.process(id, req)
		}
	}
}

func (m *Manager) process(id int, req *Request) {
	// 等待期間已被呼叫端放棄的請求不再執行
	if err := req.Context.Err(); err != nil {
		req.Result <- Result{Error: err}
		atomic.AddInt64(&m.failed, 1)
		return
	}

	atomic.AddInt32(&m.active, 1)
	defer atomic.AddInt32(&m.active, -1)

	common.LogDebug("Worker processing request",
		zap.Int("worker", id),
		zap.Duration("waited", time.Since(req.EnqueuedAt)),
	)

	content, err := req.Job(req.Context)
	req.Result <- Result{Content: content, Error: err}
	if err != nil {
		atomic.AddInt64(&m.failed, 1)
		return
	}
	atomic.AddInt64(&m.processed, 1)
}

// drain 關閉時回覆仍在隊列中的請求
func (m *Manager) drain() {
	for {
		select {
		case req := <-m.queue:
			req.Result <- Result{Error: ErrClosed}
		default:
			return
		}
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		Active:         int(atomic.LoadInt32(&m.active)),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止 worker，等待進行中的工作結束
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		m.drain()
		common.LogInfo("生成隊列已關閉",
			zap.Int64("processed", atomic.LoadInt64(&m.processed)),
			zap.Int64("failed", atomic.LoadInt64(&m.failed)),
		)
	})
}
