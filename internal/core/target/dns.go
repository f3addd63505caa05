package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	forwardTimeout  = 5 * time.Second
	forwardAttempts = 2
	reverseTimeout  = 3 * time.Second
	fallbackServer  = "8.8.8.8:53"
)

// DNSResolver 基于 miekg/dns 的正反向解析
type DNSResolver struct {
	servers []string
	client  *dns.Client
}

// NewDNSResolver nameservers 为空时读取 /etc/resolv.conf，读取失败使用 8.8.8.8
func NewDNSResolver(nameservers []string) *DNSResolver {
	servers := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		servers = append(servers, withPort(ns, "53"))
	}

	if len(servers) == 0 {
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
			for _, s := range conf.Servers {
				servers = append(servers, net.JoinHostPort(s, conf.Port))
			}
		}
	}
	if len(servers) == 0 {
		servers = []string{fallbackServer}
	}

	return &DNSResolver{
		servers: servers,
		client:  &dns.Client{Net: "udp"},
	}
}

// Servers 当前使用的上游
func (r *DNSResolver) Servers() []string {
	return r.servers
}

// LookupHost 查询 A 与 AAAA 记录
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]net.IP, error) {
	var ips []net.IP
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answers, err := r.query(ctx, dns.Fqdn(host), qtype, forwardTimeout, forwardAttempts)
		if err != nil {
			lastErr = err
			continue
		}
		for _, rr := range answers {
			switch v := rr.(type) {
			case *dns.A:
				ips = append(ips, v.A.To4())
			case *dns.AAAA:
				ips = append(ips, v.AAAA)
			}
		}
	}

	if len(ips) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no A/AAAA records")
		}
		return nil, lastErr
	}
	return ips, nil
}

// Name 反向解析 (PTR)，单次尝试
func (r *DNSResolver) Name(ctx context.Context, ip net.IP) (string, bool) {
	arpa, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return "", false
	}
	answers, err := r.query(ctx, arpa, dns.TypePTR, reverseTimeout, 1)
	if err != nil {
		return "", false
	}
	for _, rr := range answers {
		if ptr, ok := rr.(*dns.PTR); ok {
			if name := strings.TrimSuffix(ptr.Ptr, "."); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16, timeout time.Duration, attempts int) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		for _, server := range r.servers {
			qctx, cancel := context.WithTimeout(ctx, timeout)
			resp, _, err := r.client.ExchangeContext(qctx, msg, server)
			cancel()
			if err != nil {
				lastErr = err
				continue
			}
			if resp.Rcode == dns.RcodeNameError {
				return nil, fmt.Errorf("%s: NXDOMAIN", name)
			}
			if resp.Rcode != dns.RcodeSuccess {
				lastErr = fmt.Errorf("%s: rcode %s", name, dns.RcodeToString[resp.Rcode])
				continue
			}
			return resp.Answer, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func withPort(server, port string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, port)
}
