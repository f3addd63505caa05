/**
 * 限流中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: 按客户端IP的令牌桶限流，扫描接口会对外发起大量连接，需要限制调用频率
 */
package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 每秒请求数限制，<=0 关闭限流
	RequestsPerSecond float64 `json:"requests_per_second"`

	// 突发请求数限制
	BurstSize int `json:"burst_size"`

	// 跳过限流的路径
	SkipPaths []string `json:"skip_paths"`
}

// RateLimitMiddleware 限流中间件
type RateLimitMiddleware struct {
	config   *RateLimitConfig
	limiters map[string]*rate.Limiter
	mutex    sync.Mutex
}

// NewRateLimitMiddleware 创建限流中间件
func NewRateLimitMiddleware(config *RateLimitConfig) *RateLimitMiddleware {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	return &RateLimitMiddleware{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler 限流处理器
func (m *RateLimitMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.RequestsPerSecond <= 0 || m.shouldSkip(c.Request.URL.Path) {
			c.Next()
			return
		}
		if !m.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// limiter 每个客户端一个令牌桶
func (m *RateLimitMiddleware) limiter(key string) *rate.Limiter {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize)
		m.limiters[key] = l
	}
	return l
}

func (m *RateLimitMiddleware) shouldSkip(path string) bool {
	for _, p := range m.config.SkipPaths {
		if p == path {
			return true
		}
	}
	return false
}
