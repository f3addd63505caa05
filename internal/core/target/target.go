/**
 * 目标解析
 * @author: sun977
 * @date: 2025.10.21
 * @description: 将用户输入 (单 IP / 域名 / CIDR / IP 段 / 文件 / 逗号列表) 展开为具体 IP 列表
 */
package target

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"neorecon/internal/pkg/logger"
)

// MaxExpansion 单个地址段 (a-b) 最多展开的地址数，超出直接拒绝；CIDR 不受限
const MaxExpansion = 65536

var (
	// ErrInvalidTarget CIDR / IP 段格式错误或超出上限
	ErrInvalidTarget = errors.New("invalid target")
	// ErrUnresolved 域名解析失败
	ErrUnresolved = errors.New("target could not be resolved")
)

// HostLookup 正向解析能力 (A/AAAA)
type HostLookup interface {
	LookupHost(ctx context.Context, host string) ([]net.IP, error)
}

// Resolver 目标展开器
type Resolver struct {
	dns HostLookup
}

// NewResolver 创建目标展开器，dns 为空时使用系统 resolv.conf
func NewResolver(dns HostLookup) *Resolver {
	if dns == nil {
		dns = NewDNSResolver(nil)
	}
	return &Resolver{dns: dns}
}

// Expand 展开单个目标
// 1. 含 "/" 按 IPv4 CIDR 处理
// 2. 含 "-" 且两端都是 IPv4 按 IP 段处理，否则继续按字面量/域名处理
// 3. IP 字面量
// 4. DNS 解析
func (r *Resolver) Expand(ctx context.Context, target string) ([]net.IP, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	if strings.Contains(target, "/") {
		return expandCIDR(target)
	}

	if strings.Contains(target, "-") {
		if start, end, ok := splitRange(target); ok {
			return expandRange(start, end)
		}
	}

	if ip := net.ParseIP(target); ip != nil {
		return []net.IP{normalize(ip)}, nil
	}

	ips, err := r.dns.LookupHost(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnresolved, target, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, target)
	}
	return ips, nil
}

// ExpandAll 展开逗号分隔列表或目标文件 (每行一个，# 开头为注释)，结果去重并保持首次出现顺序
// 单个条目失败只记录日志，全部失败才返回错误
func (r *Resolver) ExpandAll(ctx context.Context, input string) ([]net.IP, error) {
	entries, err := splitEntries(input)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []net.IP
	var firstErr error
	for _, entry := range entries {
		ips, err := r.Expand(ctx, entry)
		if err != nil {
			logger.Warnf("Skipping invalid target %s: %v", entry, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, ip := range ips {
			key := ip.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ip)
		}
	}

	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func splitEntries(input string) ([]string, error) {
	input = strings.TrimSpace(input)

	// 目标文件
	if fi, err := os.Stat(input); err == nil && !fi.IsDir() {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open target file %s: %w", input, err)
		}
		defer f.Close()

		var entries []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			entries = append(entries, line)
		}
		return entries, scanner.Err()
	}

	var entries []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			entries = append(entries, part)
		}
	}
	return entries, nil
}

func expandCIDR(cidr string) ([]net.IP, error) {
	addr, prefix, ok := strings.Cut(cidr, "/")
	if !ok {
		return nil, fmt.Errorf("%w: malformed CIDR %q", ErrInvalidTarget, cidr)
	}
	ip := net.ParseIP(strings.TrimSpace(addr)).To4()
	if ip == nil {
		return nil, fmt.Errorf("%w: only IPv4 CIDR is supported: %q", ErrInvalidTarget, cidr)
	}
	ones, err := strconv.Atoi(strings.TrimSpace(prefix))
	if err != nil || ones < 0 || ones > 32 {
		return nil, fmt.Errorf("%w: bad prefix length in %q", ErrInvalidTarget, cidr)
	}

	mask := ^uint32(0) << (32 - ones)
	network := binary.BigEndian.Uint32(ip) & mask
	broadcast := network | ^mask

	start, end := network, broadcast
	// /31 与 /32 没有网络地址和广播地址
	if ones <= 30 {
		start, end = network+1, broadcast-1
	}
	return enumerate(start, end), nil
}

func splitRange(s string) (net.IP, net.IP, bool) {
	a, b, ok := strings.Cut(s, "-")
	if !ok || strings.Contains(b, "-") {
		return nil, nil, false
	}
	start := net.ParseIP(strings.TrimSpace(a)).To4()
	end := net.ParseIP(strings.TrimSpace(b)).To4()
	if start == nil || end == nil {
		return nil, nil, false
	}
	return start, end, true
}

func expandRange(startIP, endIP net.IP) ([]net.IP, error) {
	start := binary.BigEndian.Uint32(startIP)
	end := binary.BigEndian.Uint32(endIP)
	if end < start {
		return nil, fmt.Errorf("%w: range end %s is before start %s", ErrInvalidTarget, endIP, startIP)
	}
	if uint64(end-start)+1 > MaxExpansion {
		return nil, fmt.Errorf("%w: range %s-%s exceeds %d addresses", ErrInvalidTarget, startIP, endIP, MaxExpansion)
	}
	return enumerate(start, end), nil
}

// enumerate 所有地址共用一块底层内存，/8 也只有一次大分配
func enumerate(start, end uint32) []net.IP {
	n := int(uint64(end)-uint64(start)) + 1
	buf := make([]byte, n*net.IPv4len)
	out := make([]net.IP, n)
	for i := 0; i < n; i++ {
		off := i * net.IPv4len
		ip := net.IP(buf[off : off+net.IPv4len : off+net.IPv4len])
		binary.BigEndian.PutUint32(ip, start+uint32(i))
		out[i] = ip
	}
	return out
}

func normalize(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}
