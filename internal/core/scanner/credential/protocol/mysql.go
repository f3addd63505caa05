package protocol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"neorecon/internal/core/scanner/credential"
)

// MySQLChecker MySQL 登录检查
type MySQLChecker struct{}

// NewMySQLChecker 创建 MySQL 检查器
func NewMySQLChecker() *MySQLChecker {
	return &MySQLChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *MySQLChecker) Name() string {
	return "mysql"
}

// Mode 用户名 + 密码
func (c *MySQLChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check Ping 成功即视为凭据有效
func (c *MySQLChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// DSN: user:pass@tcp(host:port)/?params
	// 不指定库名，连接到账户默认库；timeout 控制 TCP 建连，readTimeout 控制握手读取
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/?timeout=3s&readTimeout=3s", auth.Username, auth.Password, hostPort(host, port))

	// sql.Open 只校验驱动与 DSN，真正建连发生在 Ping
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return false, c.classify(err)
	}
	defer db.Close()

	// 每次检查只用一条连接，结束后不保留空闲连接
	db.SetConnMaxLifetime(5 * time.Second)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	if err := db.PingContext(ctx); err != nil {
		return false, c.classify(err)
	}
	return true, nil
}

// classify 优先按服务端错误号判断，文本匹配兜底
func (c *MySQLChecker) classify(err error) error {
	var driverErr *mysql.MySQLError
	if errors.As(err, &driverErr) && (driverErr.Number == 1045 || driverErr.Number == 1044) {
		return nil // 1045 Access denied for user / 1044 Access denied to database
	}

	msg := strings.ToLower(err.Error())
	// 驱动在握手阶段返回的认证错误不一定是 *MySQLError
	if strings.Contains(msg, "access denied") {
		return nil
	}
	if errors.Is(err, mysql.ErrInvalidConn) || strings.Contains(msg, "bad connection") || isNetworkError(msg) {
		return credential.ErrConnectionFailed
	}
	return credential.ErrProtocolError
}
