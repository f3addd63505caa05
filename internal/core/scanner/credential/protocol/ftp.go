package protocol

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/scanner/credential"
)

// FTPChecker FTP 登录检查
type FTPChecker struct{}

// NewFTPChecker 创建 FTP 检查器
func NewFTPChecker() *FTPChecker {
	return &FTPChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *FTPChecker) Name() string {
	return "ftp"
}

// Mode 用户名 + 密码，匿名登录用 anonymous 账户覆盖
func (c *FTPChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check 登录成功即视为凭据有效
func (c *FTPChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// DialWithContext 负责取消，DialWithTimeout 限制建连与控制连接的读写
	// 拨号函数换成全局拨号器，使代理配置对 FTP 同样生效
	conn, err := ftp.Dial(hostPort(host, port),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(5*time.Second),
		ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			return dialer.Get().DialContext(ctx, network, address)
		}),
	)
	if err != nil {
		// 建连失败或欢迎语不是 220
		return false, credential.ErrConnectionFailed
	}
	defer conn.Quit()

	// USER + PASS
	if err := conn.Login(auth.Username, auth.Password); err != nil {
		return c.classify(err)
	}
	return true, nil
}

// classify 按 FTP 响应码归类
// 错误文本以三位响应码开头，例如 "530 Login incorrect."
func (c *FTPChecker) classify(err error) (bool, error) {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "530"): // Login incorrect / Not logged in
		return false, nil
	case strings.HasPrefix(msg, "421"): // 服务不可用 / 单 IP 连接数过多，应降速而不是判定失败
		return false, credential.ErrConnectionFailed
	case strings.HasPrefix(msg, "EOF"), isNetworkError(msg):
		return false, credential.ErrConnectionFailed
	}
	return false, credential.ErrProtocolError
}
