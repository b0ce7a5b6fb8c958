package middleware

import (
	"fmt"
	"sync"
	"time"

	"recipe-rag/internal/api/response"
	"recipe-rag/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return newRateLimiter(requests, window, time.Now())
}

func newRateLimiter(requests int, window time.Duration, now time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	return rl.allowAt(time.Now())
}

func (rl *RateLimiter) allowAt(now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	// 補充令牌（保留小數，慢速補充也不會被捨去）
	if elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// idleFor 距離上次請求的時間
func (rl *RateLimiter) idleFor(now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return now.Sub(rl.lastTime)
}

// clientLimiters 每個來源 IP 一個令牌桶；數量超過 pruneThreshold 時移除閒置超過一個時間窗的桶
type clientLimiters struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	limiters map[string]*RateLimiter
}

func newClientLimiters(requests int, window time.Duration) *clientLimiters {
	return &clientLimiters{
		requests: requests,
		window:   window,
		limiters: make(map[string]*RateLimiter),
	}
}

func (cl *clientLimiters) get(key string, now time.Time) *RateLimiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if l, ok := cl.limiters[key]; ok {
		return l
	}

	if len(cl.limiters) >= pruneThreshold {
		cl.prune(now)
	}
	l := newRateLimiter(cl.requests, cl.window, now)
	cl.limiters[key] = l
	return l
}

// prune 閒置超過一個時間窗的桶已經補滿，與新建的桶相同
func (cl *clientLimiters) prune(now time.Time) {
	for k, l := range cl.limiters {
		if l.idleFor(now) >= cl.window {
			delete(cl.limiters, k)
		}
	}
}

// RateLimit 依來源 IP 限流的中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiters := newClientLimiters(requests, window)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Fail(c, response.CodeTooManyRequests, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
