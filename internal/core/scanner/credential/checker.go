package credential

import (
	"context"
	"errors"
)

// AuthMode 认证模式
type AuthMode int

const (
	AuthModeUserPass AuthMode = iota // 用户名 + 密码 (SSH, MySQL)
	AuthModeOnlyPass                 // 仅密码/团体名 (Redis, SNMP)
	AuthModeNone                     // 无需认证即可访问
)

// Auth 待验证凭据
type Auth struct {
	Username string
	Password string
	Other    map[string]string // 协议扩展参数 (如 Oracle service name)
}

// Checker 协议认证检查器
//
// Check 返回 (true, nil) 表示凭据被接受；明确的认证失败返回 (false, nil)，
// 其他情况返回下方哨兵错误之一。
type Checker interface {
	Name() string
	Mode() AuthMode
	Check(ctx context.Context, host string, port int, auth Auth) (bool, error)
}

var (
	// ErrAuthFailed 认证失败，继续下一组凭据
	ErrAuthFailed = errors.New("auth failed")

	// ErrConnectionFailed 连接失败 (超时/拒绝/重置)，限流器收缩并停止该端口
	ErrConnectionFailed = errors.New("connection failed")

	// ErrProtocolError 非预期响应，视为协议不匹配
	ErrProtocolError = errors.New("protocol error")
)
