/**
 * 路由注册
 * @author: sun977
 * @date: 2025.10.21
 * @description: serve 模式路由注册，统一管理中间件与处理器
 */
package router

import (
	"github.com/gin-gonic/gin"

	"neorecon/internal/app/server/middleware"
	"neorecon/internal/handler/cve"
	"neorecon/internal/handler/monitor"
	"neorecon/internal/handler/scan"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/store"
)

// RouterConfig 路由配置
type RouterConfig struct {
	// 运行模式 (debug/release/test)
	Mode string `json:"mode"`

	// API版本
	APIVersion string `json:"api_version"`

	// 路由前缀
	Prefix string `json:"prefix"`

	// 中间件配置
	Auth      *middleware.AuthConfig      `json:"auth"`
	Logging   *middleware.LoggingConfig   `json:"logging"`
	RateLimit *middleware.RateLimitConfig `json:"rate_limit"`
}

// Deps 处理器依赖
type Deps struct {
	Scanner scan.Scanner
	Results store.ResultRepository
	CVE     cve.Lookuper
}

// Router 路由器
type Router struct {
	engine *gin.Engine
	config *RouterConfig

	healthHandler *monitor.HealthHandler
	scanHandler   *scan.ScanHandler
	cveHandler    *cve.CVEHandler
}

// NewRouter 创建新的路由器
func NewRouter(config *RouterConfig, deps Deps) *Router {
	if config == nil {
		config = &RouterConfig{Mode: gin.ReleaseMode, APIVersion: "v1", Prefix: "/api"}
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	r := &Router{
		engine:        gin.New(),
		config:        config,
		healthHandler: monitor.NewHealthHandler("neoRecon"),
		scanHandler:   scan.NewScanHandler(deps.Scanner, deps.Results),
		cveHandler:    cve.NewCVEHandler(deps.CVE),
	}
	r.registerRoutes()
	return r
}

// GetEngine 获取gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// APIBase API路由组前缀，如 /api/v1
func (r *Router) APIBase() string {
	return r.config.Prefix + "/" + r.config.APIVersion
}

// registerRoutes 注册路由
func (r *Router) registerRoutes() {
	r.registerGlobalMiddleware()
	r.setupHealthRoutes()

	apiGroup := r.engine.Group(r.APIBase())
	r.setupScanRoutes(apiGroup)
	r.setupCVERoutes(apiGroup)
}

// registerGlobalMiddleware 注册全局中间件
func (r *Router) registerGlobalMiddleware() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.NewLoggingMiddleware(r.config.Logging).Handler())
	if r.config.RateLimit != nil {
		r.engine.Use(middleware.NewRateLimitMiddleware(r.config.RateLimit).Handler())
	}
	if r.config.Auth != nil {
		r.engine.Use(middleware.NewAuthMiddleware(r.config.Auth).Handler())
	}
}

// setupHealthRoutes 健康检查路由（不需要认证）
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/ping", r.healthHandler.Ping)
	r.engine.GET("/version", r.healthHandler.Version)
	logger.Debugf("Health routes registered")
}

// setupScanRoutes 扫描路由
func (r *Router) setupScanRoutes(apiGroup *gin.RouterGroup) {
	scanGroup := apiGroup.Group("/scans")
	{
		scanGroup.POST("", r.scanHandler.RunScan)   // 同步执行扫描
		scanGroup.GET("/:id", r.scanHandler.GetScan) // 按批次查询结果
	}
	logger.Debugf("Scan routes registered under %s/scans", r.APIBase())
}

// setupCVERoutes CVE 查询路由
func (r *Router) setupCVERoutes(apiGroup *gin.RouterGroup) {
	apiGroup.GET("/cve/:id", r.cveHandler.GetCVE)
	logger.Debugf("CVE routes registered under %s/cve", r.APIBase())
}
