/**
 * 主机存活判断
 * @author: sun977
 * @date: 2025.10.21
 * @description: is_online = ICMP 成功 || 常见端口 TCP 连接成功
 */
package alive

import (
	"context"
	"net"
	"time"

	"neorecon/internal/core/lib/network/dialer"
)

// Options 存活探测参数
type Options struct {
	PrivilegedPing bool
	PingTimeout    time.Duration // ICMP 超时，默认 1s
	Ports          []int         // TCP 回退端口，默认 DefaultLivenessPorts
	Dialer         dialer.Dialer
}

// Checker 存活判断
type Checker struct {
	prober      Prober
	pingTimeout time.Duration
}

// NewChecker 组合 ICMP 与 TCP 探测
func NewChecker(opts Options) *Checker {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = time.Second
	}
	return &Checker{
		prober: NewMultiProber(
			&timeoutOverride{NewIcmpProber(opts.PrivilegedPing), opts.PingTimeout},
			NewTcpConnectProber(opts.Ports, opts.Dialer),
		),
		pingTimeout: opts.PingTimeout,
	}
}

// NewCheckerWith 使用自定义探测器 (测试注入)
func NewCheckerWith(p Prober) *Checker {
	return &Checker{prober: p, pingTimeout: time.Second}
}

// IsOnline timeout 为 TCP 连接超时
func (c *Checker) IsOnline(ctx context.Context, ip net.IP, timeout time.Duration) bool {
	if timeout < c.pingTimeout {
		timeout = c.pingTimeout
	}
	res, _ := c.prober.Probe(ctx, ip, timeout)
	return res != nil && res.Alive
}

// timeoutOverride ICMP 使用固定超时，不跟随扫描超时
type timeoutOverride struct {
	Prober
	timeout time.Duration
}

func (t *timeoutOverride) Probe(ctx context.Context, ip net.IP, _ time.Duration) (*ProbeResult, error) {
	return t.Prober.Probe(ctx, ip, t.timeout)
}
