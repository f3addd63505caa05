/**
 * 扫描处理器
 * @author: sun977
 * @date: 2026.02.12
 * @description: POST /scans 同步执行扫描并落库，GET /scans/:id 按批次查询
 */
package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/handler"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/store"
)

// Scanner 扫描引擎 (pipeline.Engine)
type Scanner interface {
	Scan(ctx context.Context, cfg *model.ScanConfig) ([]model.ScanResult, error)
	QuickScan(ctx context.Context, target string, cfg *model.ScanConfig) model.ScanResult
	OTScan(ctx context.Context, target string, cfg *model.ScanConfig) model.ScanResult
}

// ScanHandler 扫描处理器
type ScanHandler struct {
	scanner Scanner
	repo    store.ResultRepository
}

// NewScanHandler 创建扫描处理器
func NewScanHandler(scanner Scanner, repo store.ResultRepository) *ScanHandler {
	return &ScanHandler{scanner: scanner, repo: repo}
}

// RunScan 执行扫描
// 请求体与 `scan run` 参数一致；type 支持 full/quick/ot
func (h *ScanHandler) RunScan(c *gin.Context) {
	opts := options.NewScanRunOptions()
	if err := c.ShouldBindJSON(opts); err != nil {
		handler.Fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := opts.Validate(); err != nil {
		handler.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	cfg := opts.ToConfig()
	ctx := c.Request.Context()

	var results []model.ScanResult
	switch cfg.Type {
	case model.ScanTypeFull:
		var err error
		results, err = h.scanner.Scan(ctx, cfg)
		if err != nil {
			handler.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
	case model.ScanTypeQuick:
		results = nonEmpty(h.scanner.QuickScan(ctx, cfg.Target, cfg))
	case model.ScanTypeOT:
		results = nonEmpty(h.scanner.OTScan(ctx, cfg.Target, cfg))
	default:
		handler.Fail(c, http.StatusBadRequest, fmt.Sprintf("unsupported scan type: %s", cfg.Type))
		return
	}

	if err := h.repo.Save(ctx, cfg.ID, results); err != nil {
		logger.LogError(err, "ScanHandler", map[string]interface{}{"scan_id": cfg.ID})
		handler.Fail(c, http.StatusInternalServerError, "failed to store scan results")
		return
	}

	if results == nil {
		results = []model.ScanResult{}
	}
	handler.Success(c, "scan completed", gin.H{
		"scan_id": cfg.ID,
		"hosts":   len(results),
		"results": results,
	})
}

// GetScan 查询扫描结果
func (h *ScanHandler) GetScan(c *gin.Context) {
	id := c.Param("id")
	results, err := h.repo.FindByScanID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			handler.Fail(c, http.StatusNotFound, "scan not found: "+id)
			return
		}
		handler.Fail(c, http.StatusInternalServerError, "failed to load scan results")
		return
	}
	handler.Success(c, "ok", gin.H{
		"scan_id": id,
		"hosts":   len(results),
		"results": results,
	})
}

// nonEmpty 单主机变体只保留有开放端口的结果，与 Scan 保持一致
func nonEmpty(r model.ScanResult) []model.ScanResult {
	if len(r.OpenPorts) == 0 {
		return nil
	}
	return []model.ScanResult{r}
}
