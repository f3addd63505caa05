/**
 * 健康检查处理器
 * @author: sun977
 * @date: 2025.10.21
 * @description: 健康检查、存活检查、版本信息，不需要认证
 */
package monitor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neorecon/internal/handler"
	"neorecon/internal/pkg/monitor"
	"neorecon/internal/pkg/version"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	service string
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

// Health 健康检查，附带扫描节点资源指标
func (h *HealthHandler) Health(c *gin.Context) {
	handler.Success(c, "healthy", gin.H{
		"service": h.service,
		"version": version.GetVersion(),
		"host":    monitor.GetHostInfo(),
		"metrics": monitor.GetSystemMetrics(),
	})
}

// Ping 存活检查
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Version 版本信息
func (h *HealthHandler) Version(c *gin.Context) {
	handler.Success(c, "ok", version.GetInfo())
}
