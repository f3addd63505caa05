package protocol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"neorecon/internal/core/scanner/credential"
	"neorecon/internal/pkg/version"
)

// ClickHouseChecker ClickHouse native 协议登录检查
type ClickHouseChecker struct{}

// NewClickHouseChecker 创建 ClickHouse 检查器
func NewClickHouseChecker() *ClickHouseChecker {
	return &ClickHouseChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *ClickHouseChecker) Name() string {
	return "clickhouse"
}

// Mode 用户名 + 密码，默认账户 default 常为空密码
func (c *ClickHouseChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check Ping 成功即视为凭据有效
func (c *ClickHouseChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// native 协议 (默认 9000)，Open 不建连，只校验选项
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{hostPort(host, port)},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: auth.Username,
			Password: auth.Password,
		},
		// 服务端 system.query_log 中可见的客户端标识
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "neorecon", Version: version.GetVersion()},
			},
		},
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		return false, fmt.Errorf("invalid config: %w", err)
	}
	defer conn.Close()

	// 握手 + 认证在首次 Ping 时完成
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		return false, c.classify(err)
	}
	return true, nil
}

// classify 按服务端异常码归类
// Code: 516 AUTHENTICATION_FAILED，Code: 192 UNKNOWN_USER，老版本只有文本提示
func (c *ClickHouseChecker) classify(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if containsAny(lower, "code: 516", "code: 192", "authentication failed", "unknown user") {
		return nil
	}
	if isNetworkError(msg) {
		return credential.ErrConnectionFailed
	}
	return credential.ErrProtocolError
}
