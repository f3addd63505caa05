package pipeline

import (
	"context"
	"net"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
	"neorecon/internal/core/scanner/alive"
	"neorecon/internal/core/scanner/banner"
	"neorecon/internal/core/target"
	"neorecon/internal/core/vuln"
)

// TargetExpander 目标展开 (target.Resolver)
type TargetExpander interface {
	Expand(ctx context.Context, target string) ([]net.IP, error)
	ExpandAll(ctx context.Context, input string) ([]net.IP, error)
}

// LivenessChecker 主机存活判断 (alive.Checker)
type LivenessChecker interface {
	IsOnline(ctx context.Context, ip net.IP, timeout time.Duration) bool
}

// PortProber 端口开放判断 + banner (banner.Grabber)
type PortProber interface {
	Probe(ctx context.Context, ip net.IP, port int, timeout time.Duration) (bool, string)
}

// Detector 端口级漏洞检测 (detector.Registry)
type Detector interface {
	Detect(ctx context.Context, service, banner string, offline bool) []model.Vulnerability
}

// CredentialAuditor 弱口令 / 未授权访问检测 (credential.Scanner)
type CredentialAuditor interface {
	CheckMisconfigurations(ctx context.Context, host string, port int, service string) []model.Vulnerability
	CheckDefaultCredentials(ctx context.Context, host string, port int, service string) []model.Vulnerability
}

// Components 编排器依赖，未设置的字段使用默认实现
type Components struct {
	Targets     TargetExpander
	Hostnames   target.HostnameResolver
	Liveness    LivenessChecker
	Prober      PortProber
	Basic       Detector // EnhancedDetection 关闭时使用
	Enhanced    Detector // 为空时回退到 Basic
	Credentials CredentialAuditor
}

// Orchestrator 扫描编排器，可并发复用
type Orchestrator struct {
	targets   TargetExpander
	hostnames target.HostnameResolver
	liveness  LivenessChecker
	prober    PortProber
	dispatch  *serviceDispatcher
}

// NewOrchestrator 创建编排器
func NewOrchestrator(c Components) *Orchestrator {
	if c.Targets == nil {
		c.Targets = target.NewResolver(nil)
	}
	if c.Hostnames == nil {
		c.Hostnames = target.StaticResolver{}
	}
	if c.Liveness == nil {
		c.Liveness = alive.NewChecker(alive.Options{Dialer: dialer.Get()})
	}
	if c.Prober == nil {
		c.Prober = banner.NewGrabber(nil, banner.MinBufferSize)
	}
	if c.Basic == nil {
		c.Basic = CorrelatorDetector{Correlator: vuln.NewCorrelator(nil)}
	}
	if c.Enhanced == nil {
		c.Enhanced = c.Basic
	}
	return &Orchestrator{
		targets:   c.Targets,
		hostnames: c.Hostnames,
		liveness:  c.Liveness,
		prober:    c.Prober,
		dispatch:  newServiceDispatcher(c.Basic, c.Enhanced, c.Credentials),
	}
}

// CorrelatorDetector 把 vuln.Correlator 适配为 Detector
type CorrelatorDetector struct {
	Correlator *vuln.Correlator
}

// Detect 实现 Detector
func (d CorrelatorDetector) Detect(ctx context.Context, service, banner string, offline bool) []model.Vulnerability {
	return d.Correlator.Correlate(ctx, service, banner, !offline)
}
