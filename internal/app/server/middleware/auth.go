/**
 * 认证中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: API Key 认证；未配置 Key 时放行
 */
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"neorecon/internal/pkg/logger"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// API Key，为空时关闭认证
	APIKey string `json:"-"`

	// API Key 请求头
	APIKeyHeader string `json:"api_key_header"`

	// 跳过认证的路径前缀
	SkipPaths []string `json:"skip_paths"`
}

// AuthMiddleware 认证中间件
type AuthMiddleware struct {
	config *AuthConfig
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(config *AuthConfig) *AuthMiddleware {
	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}
	return &AuthMiddleware{config: config}
}

// Handler 认证处理器
func (m *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.APIKey == "" || m.shouldSkipAuth(c.Request.URL.Path) {
			c.Next()
			return
		}

		if ok, authError := m.validateAPIKey(c); !ok {
			logger.WithField("client_ip", c.ClientIP()).Warnf("Authentication failed: %s", authError)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": authError,
			})
			return
		}
		c.Next()
	}
}

// shouldSkipAuth 检查是否应该跳过认证
func (m *AuthMiddleware) shouldSkipAuth(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// validateAPIKey 验证API Key
func (m *AuthMiddleware) validateAPIKey(c *gin.Context) (bool, string) {
	apiKey := c.GetHeader(m.config.APIKeyHeader)
	if apiKey == "" {
		return false, "missing api key"
	}
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.config.APIKey)) != 1 {
		return false, "invalid api key"
	}
	return true, ""
}
