package protocol

import (
	"context"
	"regexp"
	"time"

	"github.com/ziutek/telnet"

	"neorecon/internal/core/scanner/credential"
)

// 提示符匹配，大小写不敏感并允许结尾带冒号与空白
var (
	reLoginPrompt    = regexp.MustCompile(`(?i)(login|user\s*name|username|user)[\s:]*$`)
	rePasswordPrompt = regexp.MustCompile(`(?i)(password|pass)[\s:]*$`)
	reShellPrompt    = regexp.MustCompile(`[#$>%]\s*$`)
	reLoginFailed    = regexp.MustCompile(`(?i)(incorrect|failed|denied|bad|invalid)`)
)

// TelnetChecker 基于提示符的 Telnet 登录检查
type TelnetChecker struct {
	stepTimeout time.Duration // 每一步交互 (等提示符、等登录结果) 的读超时
}

// NewTelnetChecker 创建 Telnet 检查器，单步超时 3s
func NewTelnetChecker() *TelnetChecker {
	return &TelnetChecker{stepTimeout: 3 * time.Second}
}

// Name 协议名称
func (c *TelnetChecker) Name() string {
	return "telnet"
}

// Mode 用户名 + 密码；只要密码的设备会跳过用户名步骤
func (c *TelnetChecker) Mode() credential.AuthMode {
	return credential.AuthModeUserPass
}

// Check 按 登录提示 -> 用户名 -> 密码提示 -> 密码 -> 结果 的顺序交互
// 交互中途超时或断开视为凭据无效，只有建连失败算连接错误
func (c *TelnetChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// 建连超时取 ctx 剩余时间，没有 deadline 时 5s
	dialTimeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
		if dialTimeout <= 0 {
			return false, credential.ErrConnectionFailed
		}
	}

	conn, err := telnet.DialTimeout("tcp", hostPort(host, port), dialTimeout)
	if err != nil {
		return false, credential.ErrConnectionFailed
	}
	defer conn.Close()

	// 1. 等待登录或密码提示符，telnet.Conn 会自动处理 IAC 选项协商
	c.extend(conn)
	prompt, err := readUntil(conn, reLoginPrompt, rePasswordPrompt)
	if err != nil {
		return false, credential.ErrConnectionFailed
	}

	// 部分设备直接要求密码
	if !rePasswordPrompt.Match(prompt) {
		if err := sendLine(conn, auth.Username); err != nil {
			return false, credential.ErrConnectionFailed
		}
		c.extend(conn)
		if _, err := readUntil(conn, rePasswordPrompt); err != nil {
			return false, nil
		}
	}

	// 2. 发送密码并判断登录结果
	if err := sendLine(conn, auth.Password); err != nil {
		return false, credential.ErrConnectionFailed
	}
	c.extend(conn)

	ok, err := loginResult(conn)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// extend 为下一步交互重置读写截止时间
func (c *TelnetChecker) extend(conn *telnet.Conn) {
	_ = conn.SetDeadline(time.Now().Add(c.stepTimeout))
}

// readUntil 逐字节读取直到任一提示符命中
func readUntil(conn *telnet.Conn, res ...*regexp.Regexp) ([]byte, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := conn.Read(b)
		if n > 0 {
			buf = append(buf, b[0])
			for _, re := range res {
				if re.Match(buf) {
					return buf, nil
				}
			}
		}
		if err != nil {
			return buf, err
		}
	}
}

// sendLine 以 CRLF 结尾，兼容只认 \r\n 的嵌入式设备
func sendLine(conn *telnet.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// loginResult 失败提示或再次出现登录提示判为失败，出现 shell 提示符判为成功
func loginResult(conn *telnet.Conn) (bool, error) {
	var buf []byte
	b := make([]byte, 256)
	for {
		n, err := conn.Read(b)
		if n > 0 {
			buf = append(buf, b[:n]...)
			switch {
			case reLoginFailed.Match(buf), reLoginPrompt.Match(buf):
				return false, nil
			case reShellPrompt.Match(buf):
				return true, nil
			}
		}
		if err != nil {
			return false, err
		}
	}
}
