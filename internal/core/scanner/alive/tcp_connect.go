package alive

import (
	"context"
	"net"
	"strconv"
	"time"

	"neorecon/internal/core/lib/network/dialer"
)

// DefaultLivenessPorts 主机大概率开放的端口
var DefaultLivenessPorts = []int{80, 443, 22, 445, 3389, 8080, 23}

// TcpConnectProber 基于 TCP Full Connect 的探测器
type TcpConnectProber struct {
	Ports  []int
	dialer dialer.Dialer
}

// NewTcpConnectProber ports 为空时使用 DefaultLivenessPorts，d 为空时使用全局拨号器
func NewTcpConnectProber(ports []int, d dialer.Dialer) *TcpConnectProber {
	if len(ports) == 0 {
		ports = DefaultLivenessPorts
	}
	if d == nil {
		d = dialer.Get()
	}
	return &TcpConnectProber{Ports: ports, dialer: d}
}

// Probe 并发连接全部端口，只要有一个通就算活
func (p *TcpConnectProber) Probe(ctx context.Context, ip net.IP, timeout time.Duration) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan time.Duration, len(p.Ports))
	for _, port := range p.Ports {
		go func(port int) {
			start := time.Now()
			conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
			if err != nil {
				resultChan <- 0
				return
			}
			conn.Close()
			// 本地回环可能测得 0，至少记 1ns 以区分失败
			if rtt := time.Since(start); rtt > 0 {
				resultChan <- rtt
			} else {
				resultChan <- time.Nanosecond
			}
		}(port)
	}

	for i := 0; i < len(p.Ports); i++ {
		select {
		case latency := <-resultChan:
			if latency > 0 {
				return NewProbeResult("tcp", latency, 0), nil
			}
		case <-ctx.Done():
			return &ProbeResult{}, nil
		}
	}
	return &ProbeResult{}, nil
}
