package target

import (
	"context"
	"net"
	"strings"
	"time"
)

// HostnameResolver ip -> 尽力而为的主机名，拿不到时返回 IP 字符串
type HostnameResolver interface {
	Lookup(ctx context.Context, ip net.IP) string
}

// NameSource 主机名来源之一
type NameSource interface {
	Name(ctx context.Context, ip net.IP) (string, bool)
}

// ChainResolver 依次尝试各来源 (反向 DNS -> NetBIOS)，全部失败返回 IP
type ChainResolver struct {
	sources []NameSource
}

// NewChainResolver 创建链式主机名解析器
func NewChainResolver(sources ...NameSource) *ChainResolver {
	return &ChainResolver{sources: sources}
}

// DefaultHostnameResolver 反向 DNS + 系统 NetBIOS 查询
func DefaultHostnameResolver(dnsResolver *DNSResolver) *ChainResolver {
	return NewChainResolver(dnsResolver, NewNetBIOSResolver(3*time.Second))
}

// Lookup 实现 HostnameResolver
func (c *ChainResolver) Lookup(ctx context.Context, ip net.IP) string {
	for _, src := range c.sources {
		if src == nil {
			continue
		}
		if name, ok := src.Name(ctx, ip); ok && name != "" {
			return name
		}
	}
	return ip.String()
}

// StaticResolver 固定返回 IP，测试与 --no-resolve 使用
type StaticResolver struct{}

// Lookup 实现 HostnameResolver
func (StaticResolver) Lookup(_ context.Context, ip net.IP) string {
	return ip.String()
}

// NetBIOSResolver 通过系统命令查询 NetBIOS 名 (nmblookup -A / nbtstat -A)
type NetBIOSResolver struct {
	timeout time.Duration
	run     func(ctx context.Context, ip string) ([]byte, error)
}

// NewNetBIOSResolver 创建 NetBIOS 查询器
func NewNetBIOSResolver(timeout time.Duration) *NetBIOSResolver {
	return &NetBIOSResolver{timeout: timeout, run: runNetBIOSQuery}
}

// Name 实现 NameSource
func (n *NetBIOSResolver) Name(ctx context.Context, ip net.IP) (string, bool) {
	if ip.To4() == nil {
		return "", false
	}
	qctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	out, err := n.run(qctx, ip.String())
	if err != nil && len(out) == 0 {
		return "", false
	}
	return parseNetBIOSName(string(out))
}

// parseNetBIOSName 取第一条 <00> 唯一名记录
// nmblookup:  "	WORKSTATION     <00> -         B <ACTIVE>"
// nbtstat:    "    WORKSTATION    <00>  UNIQUE      Registered"
func parseNetBIOSName(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "<00>") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "<00>" || isGroup(fields) {
			continue
		}
		return fields[0], true
	}
	return "", false
}

func isGroup(fields []string) bool {
	for _, f := range fields[1:] {
		if f == "GROUP" || f == "<GROUP>" {
			return true
		}
	}
	return false
}
