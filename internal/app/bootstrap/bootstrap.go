/**
 * 运行环境装配
 * @author: sun977
 * @date: 2025.10.22
 * @description: CLI 与 serve 模式共用的配置加载、日志初始化、引擎与存储装配
 */
package bootstrap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"neorecon/internal/config"
	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/options"
	"neorecon/internal/core/pipeline"
	"neorecon/internal/core/vuln/intel"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/store"
)

// Env 一次进程运行的共享环境
// 由根命令 PersistentPreRunE 调用 Load 填充，子命令按需取引擎与存储
type Env struct {
	ConfigFile string // --config
	LogLevel   string // --log-level
	ProxyURL   string // --proxy

	Config *config.Config
	Logger *logger.LoggerManager

	once   sync.Once
	engine *pipeline.Engine
	err    error

	redis *redis.Client
	db    *gorm.DB
}

// Load 加载 .env 与配置文件，命令行参数覆盖配置项
func (e *Env) Load() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if e.ConfigFile != "" {
		cfg, err = config.LoadConfigFromFile(e.ConfigFile)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return err
	}

	if e.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(e.LogLevel)
	}
	if e.ProxyURL != "" {
		proxyOpts := options.ProxyOptions{URL: e.ProxyURL}
		if err := proxyOpts.Validate(); err != nil {
			return err
		}
		cfg.Proxy = proxyOpts.ToProxyConfig()
	}

	e.Config = cfg
	return nil
}

// InitLogger 按当前配置初始化全局日志
func (e *Env) InitLogger() error {
	lm, err := logger.InitLogger(e.Config.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	e.Logger = lm
	return nil
}

// ApplyDialer 按代理配置替换全局拨号器
func (e *Env) ApplyDialer(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.Config.Scan.Timeout
	}
	d, err := dialer.FromConfig(e.Config.Proxy, timeout)
	if err != nil {
		return err
	}
	dialer.SetGlobalDialer(d)
	if e.Config.Proxy != nil && e.Config.Proxy.Enabled {
		logger.LogSystemEvent("Dialer", "proxy", "scan traffic routed through proxy", logger.InfoLevel, nil)
	}
	return nil
}

// Engine 首次调用时装配扫描引擎，之后复用
// 必须在 ApplyDialer 之后调用
func (e *Env) Engine() (*pipeline.Engine, error) {
	e.once.Do(func() {
		e.engine, e.err = pipeline.NewEngine(e.Config, intel.NewCache(e.cacheTier()))
	})
	return e.engine, e.err
}

// cacheTier redis 不可用时退化为纯内存缓存
func (e *Env) cacheTier() intel.Tier {
	st := e.Config.Store
	if st == nil || st.Redis == nil || !st.Redis.Enabled {
		return nil
	}
	client, err := store.NewRedisConnection(st.Redis)
	if err != nil {
		logger.LogError(err, "Bootstrap", map[string]interface{}{"addr": st.Redis.Addr})
		logger.Warnf("CVE cache falls back to memory only")
		return nil
	}
	e.redis = client
	return store.NewRedisTier(client, st.Redis.Prefix)
}

// Repository store.enabled 时使用 MySQL，否则使用进程内存储
func (e *Env) Repository() (store.ResultRepository, error) {
	st := e.Config.Store
	if st == nil || !st.Enabled {
		return store.NewMemoryRepository(), nil
	}
	db, err := store.NewMySQLConnection(st.Database, e.Config.App != nil && e.Config.App.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to connect result store: %w", err)
	}
	e.db = db
	return store.NewResultRepository(db), nil
}

// Close 释放外部连接
func (e *Env) Close() {
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			logger.LogError(err, "Bootstrap", nil)
		}
	}
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
