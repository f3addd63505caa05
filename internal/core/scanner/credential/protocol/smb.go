package protocol

import (
	"context"
	"strings"

	"github.com/stacktitan/smb/smb"

	"neorecon/internal/core/scanner/credential"
)

// SMBChecker SMB 登录检查
type SMBChecker struct{}

// NewSMBChecker 创建 SMB 检查器
func NewSMBChecker() *SMBChecker {
	return &SMBChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *SMBChecker) Name() string {
	return "smb"
}

// Mode 用户名 + 密码，Other["domain"] 指定域
func (c *SMBChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// smbOutcome 会话协商结果
type smbOutcome struct {
	ok  bool
	err error
}

// Check NTLM 会话建立且已认证即视为凭据有效
func (c *SMBChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	opts := smb.Options{
		Host:     host,
		Port:     port,
		User:     auth.Username,
		Password: auth.Password,
		Domain:   auth.Other["domain"], // 为空时按本地账户认证
	}

	// smb 库不支持 context，放到 goroutine 中等待
	// ctx 先结束时 goroutine 仍会跑完，结果写入带缓冲的 channel 后退出
	done := make(chan smbOutcome, 1)
	go func() {
		session, err := smb.NewSession(opts, false)
		if err != nil {
			done <- smbOutcome{err: err}
			return
		}
		defer session.Close()
		done <- smbOutcome{ok: session.IsAuthenticated}
	}()

	select {
	case <-ctx.Done():
		return false, credential.ErrConnectionFailed
	case out := <-done:
		if out.ok {
			return true, nil
		}
		// 协商成功但未认证
		if out.err == nil {
			return false, nil
		}
		return false, c.classify(out.err)
	}
}

// classify NTSTATUS 登录失败码归为凭据无效
func (c *SMBChecker) classify(err error) error {
	msg := err.Error()
	if containsAny(msg, "STATUS_LOGON_FAILURE", "STATUS_WRONG_PASSWORD", "login failed", "Logon failed") {
		return nil
	}
	if isNetworkError(msg) || strings.Contains(msg, "EOF") {
		return credential.ErrConnectionFailed
	}
	return credential.ErrProtocolError
}
