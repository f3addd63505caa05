package alive

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"neorecon/internal/pkg/logger"
)

// IcmpProber ICMP Echo 探测
// 优先使用 pro-bing；socket 无权限时 (未配置 ping_group_range 且非 root) 回退到系统 ping 命令
type IcmpProber struct {
	Privileged bool
	systemPing func(ctx context.Context, ip string, timeout time.Duration) (*ProbeResult, error)
}

func NewIcmpProber(privileged bool) *IcmpProber {
	return &IcmpProber{Privileged: privileged, systemPing: systemPing}
}

// Probe 发送 1 个 Echo 请求
func (p *IcmpProber) Probe(ctx context.Context, ip net.IP, timeout time.Duration) (*ProbeResult, error) {
	pinger, err := probing.NewPinger(ip.String())
	if err != nil {
		return &ProbeResult{}, nil
	}

	// Windows 只支持特权模式
	pinger.SetPrivileged(p.Privileged || runtime.GOOS == "windows")
	pinger.Count = 1
	pinger.Timeout = timeout

	if err := pinger.RunWithContext(ctx); err != nil {
		logger.Debugf("pro-bing failed for %s, falling back to system ping: %v", ip, err)
		if p.systemPing == nil {
			return &ProbeResult{}, nil
		}
		return p.systemPing(ctx, ip.String(), timeout)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return &ProbeResult{}, nil
	}
	return NewProbeResult("icmp", stats.AvgRtt, 0), nil
}

// systemPing 调用系统 ping 命令
func systemPing(ctx context.Context, ip string, timeout time.Duration) (*ProbeResult, error) {
	var cmd *exec.Cmd
	var stdout bytes.Buffer

	if runtime.GOOS == "windows" {
		// -w 单位毫秒
		timeoutMs := int(timeout.Milliseconds())
		if timeoutMs < 1 {
			timeoutMs = 1000
		}
		cmd = exec.CommandContext(ctx, "ping", "-n", "1", "-w", fmt.Sprint(timeoutMs), ip)
	} else {
		// -W 单位秒
		timeoutSec := int(timeout.Seconds())
		if timeoutSec < 1 {
			timeoutSec = 1
		}
		bin := "ping"
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() == nil {
			bin = "ping6"
		}
		cmd = exec.CommandContext(ctx, bin, "-c", "1", "-W", fmt.Sprint(timeoutSec), ip)
	}

	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return &ProbeResult{}, nil
	}

	latency, ttl := parsePingOutput(stdout.String(), runtime.GOOS)
	return NewProbeResult("icmp", latency, ttl), nil
}

var (
	// Windows: "Reply from 1.1.1.1: bytes=32 time=13ms TTL=56"，兼容中文 "时间<1ms"
	winTimeRe = regexp.MustCompile(`[<>=]([\d\.]+) ?ms`)
	winTTLRe  = regexp.MustCompile(`TTL=(\d+)`)
	// Linux: "64 bytes from 1.1.1.1: icmp_seq=1 ttl=56 time=13.5 ms"
	unixTimeRe = regexp.MustCompile(`time=([\d\.]+) ms`)
	unixTTLRe  = regexp.MustCompile(`ttl=(\d+)`)
)

func parsePingOutput(output string, osType string) (time.Duration, int) {
	timeRe, ttlRe := unixTimeRe, unixTTLRe
	if osType == "windows" {
		timeRe, ttlRe = winTimeRe, winTTLRe
	}

	var latency time.Duration
	var ttl int
	if m := timeRe.FindStringSubmatch(output); len(m) > 1 {
		if ms, err := strconv.ParseFloat(m[1], 64); err == nil {
			latency = time.Duration(ms * float64(time.Millisecond))
		}
	}
	if m := ttlRe.FindStringSubmatch(output); len(m) > 1 {
		if t, err := strconv.Atoi(m[1]); err == nil {
			ttl = t
		}
	}
	return latency, ttl
}
