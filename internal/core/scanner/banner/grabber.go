/**
 * Banner 抓取
 * @author: sun977
 * @date: 2025.10.22
 * @description: TCP connect 判断端口开放，随后按端口发送探测载荷读取一次响应
 */
package banner

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/pkg/logger"
)

// NoBanner 端口开放但没有读到任何数据
const NoBanner = "No banner"

// MinBufferSize 单次读取缓冲区下限
const MinBufferSize = 2048

// Grabber 端口探测 + banner 抓取
type Grabber struct {
	dialer     dialer.Dialer
	bufferSize int
	probes     map[int][]byte
}

// NewGrabber d 为空时使用全局拨号器
func NewGrabber(d dialer.Dialer, bufferSize int) *Grabber {
	if d == nil {
		d = dialer.Get()
	}
	if bufferSize < MinBufferSize {
		bufferSize = MinBufferSize
	}
	return &Grabber{dialer: d, bufferSize: bufferSize, probes: defaultProbes()}
}

// Payload 返回发往该端口的探测数据
func (g *Grabber) Payload(port int) []byte {
	if httpPorts[port] {
		return []byte(httpProbe)
	}
	if p, ok := g.probes[port]; ok {
		return p
	}
	return []byte(defaultProbe)
}

// Open 仅判断端口是否开放
func (g *Grabber) Open(ctx context.Context, ip net.IP, port int, timeout time.Duration) bool {
	conn, err := g.dial(ctx, ip, port, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Probe 连接失败 (拒绝/超时) 视为关闭；连接成功后的任何读写错误只影响 banner
func (g *Grabber) Probe(ctx context.Context, ip net.IP, port int, timeout time.Duration) (bool, string) {
	conn, err := g.dial(ctx, ip, port, timeout)
	if err != nil {
		return false, ""
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(g.Payload(port)); err != nil {
		logger.Debugf("write probe to %s:%d failed: %v", ip, port, err)
		return true, NoBanner
	}

	buf := make([]byte, g.bufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			logger.Debugf("read banner from %s:%d failed: %v", ip, port, err)
		}
		return true, NoBanner
	}

	return true, decode(buf[:n])
}

func (g *Grabber) dial(ctx context.Context, ip net.IP, port int, timeout time.Duration) (net.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.dialer.DialContext(dctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
}

// decode 非法 UTF-8 字节替换为 U+FFFD 后去除首尾空白
func decode(raw []byte) string {
	s := strings.TrimSpace(strings.ToValidUTF8(string(raw), "�"))
	if s == "" {
		return NoBanner
	}
	return s
}
