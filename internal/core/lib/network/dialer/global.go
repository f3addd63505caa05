package dialer

import (
	"fmt"
	"time"

	"neorecon/internal/config"
)

// 全局拨号器，CLI 启动时按 proxy 配置替换
var globalDialer Dialer = NewDefaultDialer(3 * time.Second)

// SetGlobalDialer 替换全局拨号器
func SetGlobalDialer(d Dialer) {
	globalDialer = d
}

// Get 获取全局拨号器
func Get() Dialer {
	return globalDialer
}

// FromConfig 按代理配置构建拨号器，未启用代理时返回直连
func FromConfig(cfg *config.ProxyConfig, timeout time.Duration) (Dialer, error) {
	if cfg == nil || !cfg.Enabled {
		return NewDefaultDialer(timeout), nil
	}
	d, err := NewProxyDialer(cfg.URL, timeout)
	if err != nil {
		return nil, fmt.Errorf("build proxy dialer: %w", err)
	}
	return d, nil
}
