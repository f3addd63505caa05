package protocol

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/scanner/credential"
)

// RedisChecker Redis 认证检查，密码为空时不发送 AUTH
type RedisChecker struct{}

// NewRedisChecker 创建 Redis 检查器
func NewRedisChecker() *RedisChecker {
	return &RedisChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *RedisChecker) Name() string {
	return "redis"
}

// Mode 只需要密码；6.0 以上的 ACL 账户会额外带上用户名
func (c *RedisChecker) Mode() credential.AuthMode {
	return credential.AuthModeOnlyPass
}

// Check PING 返回 PONG 即视为凭据有效；空密码用于检测未授权访问
func (c *RedisChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// 每次检查一个独立客户端，连接池只有一条连接
	client := redis.NewClient(&redis.Options{
		Addr:     hostPort(host, port),
		Username: auth.Username, // 6.0+ ACL
		Password: auth.Password, // 为空时 go-redis 不发送 AUTH
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Get().DialContext(ctx, network, addr)
		},
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   -1, // 不重试
		PoolSize:     1,
	})
	defer client.Close()

	// 建连与 AUTH 在首个命令时完成，未授权的实例对 PING 返回 NOAUTH
	if err := client.Ping(ctx).Err(); err != nil {
		return false, c.classify(err)
	}
	return true, nil
}

// classify 区分认证失败、连接失败与非 Redis 服务
func (c *RedisChecker) classify(err error) error {
	msg := strings.ToLower(err.Error())

	// ERR invalid password / WRONGPASS / NOAUTH Authentication required
	if containsAny(msg, "invalid password", "wrongpass", "noauth", "authentication required") {
		return nil
	}
	// go-redis 的拨号与连接池错误、服务端断开
	if isNetworkError(msg) || containsAny(msg, "failed to dial", "connection pool", "eof") {
		return credential.ErrConnectionFailed
	}
	// 非 Redis 服务，如 HTTP 响应: "redis: invalid response" / "reading length: expected '$'"
	return credential.ErrProtocolError
}
