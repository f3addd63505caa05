package protocol

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/scanner/credential"
)

// SSHChecker SSH 密码认证检查
type SSHChecker struct{}

// NewSSHChecker 创建 SSH 检查器
func NewSSHChecker() *SSHChecker {
	return &SSHChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *SSHChecker) Name() string {
	return "ssh"
}

// Mode 用户名 + 密码
func (c *SSHChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check 尝试一次密码登录，握手成功即视为凭据有效
func (c *SSHChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	cfg := &ssh.ClientConfig{
		User:            auth.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(auth.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // 目标主机密钥未知
		Timeout:         3 * time.Second, // 握手超时，总时长另由 conn deadline 控制
	}

	addr := hostPort(host, port)

	// 1. 经全局拨号器建立 TCP 连接，走代理时也生效，并受 ctx 取消控制
	conn, err := dialer.Get().DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, c.classify(err)
	}
	defer conn.Close()

	// 2. 整个握手 + 认证过程的截止时间，ctx 没有 deadline 时给 5s
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	_ = conn.SetDeadline(deadline)

	// 3. 在已有连接上做协议握手与密码认证
	cConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return false, c.classify(err)
	}
	defer cConn.Close()

	// 只验证认证，通道与请求直接丢弃
	go ssh.DiscardRequests(reqs)
	go func() {
		for ch := range chans {
			_ = ch.Reject(ssh.Prohibited, "no channels")
		}
	}()
	return true, nil
}

// classify 把 x/crypto/ssh 的错误归到凭据扫描的三类结果
// 认证失败返回 nil，由调用方记为 (false, nil)
func (c *SSHChecker) classify(err error) error {
	msg := err.Error()
	// ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]
	if strings.Contains(msg, "unable to authenticate") {
		return nil
	}
	// 服务端在认证阶段直接断开 (MaxAuthTries、fail2ban) 也归为连接失败
	if isNetworkError(msg) || strings.Contains(msg, "EOF") {
		return credential.ErrConnectionFailed
	}
	// 版本串不匹配等握手错误
	return credential.ErrProtocolError
}
