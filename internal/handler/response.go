/**
 * 处理器通用响应
 * @author: sun977
 * @date: 2026.02.12
 * @description: serve 模式统一响应格式 {status, message, timestamp, data}
 */
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"neorecon/internal/core/model"
)

// Success 200 响应
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   message,
		"timestamp": model.FormatScanTime(time.Now()),
		"data":      data,
	})
}

// Fail 错误响应
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"status":    "error",
		"message":   message,
		"timestamp": model.FormatScanTime(time.Now()),
	})
}
