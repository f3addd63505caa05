/**
 * serve 模式应用
 * @author: sun977
 * @date: 2025.10.21
 * @description: 装配路由与 HTTP 服务器，负责启动与优雅关闭
 */
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"neorecon/internal/app/server/middleware"
	"neorecon/internal/app/server/router"
	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

// 关闭时等待进行中扫描请求的最长时间
const shutdownTimeout = 30 * time.Second

// App serve 模式应用
type App struct {
	router     *router.Router
	httpServer *http.Server
	config     *config.ServerConfig
}

// NewApp 创建应用
func NewApp(cfg *config.ServerConfig, deps router.Deps) *App {
	r := router.NewRouter(routerConfig(cfg), deps)
	return &App{
		router: r,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r.GetEngine(),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config: cfg,
	}
}

// routerConfig 将服务配置转换为路由与中间件配置
func routerConfig(cfg *config.ServerConfig) *router.RouterConfig {
	rc := &router.RouterConfig{
		Mode:       cfg.Mode,
		APIVersion: cfg.APIVersion,
		Prefix:     cfg.Prefix,
		Logging: &middleware.LoggingConfig{
			SkipPaths:            []string{"/health", "/ping"},
			SlowRequestThreshold: 5 * time.Minute,
		},
	}
	if cfg.RateLimit > 0 {
		rc.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit,
			BurstSize:         cfg.RateBurst,
			SkipPaths:         []string{"/health", "/ping", "/version"},
		}
	}
	if cfg.APIKey != "" {
		rc.Auth = &middleware.AuthConfig{
			APIKey:    cfg.APIKey,
			SkipPaths: []string{"/health", "/ping", "/version"},
		}
	}
	return rc
}

// Handler 供测试直接驱动
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run 启动服务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.LogSystemEvent("Server", "start", "HTTP server listening on "+a.httpServer.Addr, logger.InfoLevel, map[string]interface{}{
			"api_base": a.router.APIBase(),
		})
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.LogSystemEvent("Server", "stop", "HTTP server stopped", logger.InfoLevel, nil)
	return nil
}
