package pipeline

import (
	"fmt"

	"neorecon/internal/config"
	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/scanner/alive"
	"neorecon/internal/core/scanner/banner"
	"neorecon/internal/core/scanner/credential"
	"neorecon/internal/core/scanner/credential/protocol"
	"neorecon/internal/core/target"
	"neorecon/internal/core/vuln"
	"neorecon/internal/core/vuln/detector"
	"neorecon/internal/core/vuln/intel"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/pkg/version"
)

// Engine 按配置装配好的扫描引擎，CLI 与 HTTP 服务共用
type Engine struct {
	*Orchestrator
	Detectors   *detector.Registry
	Intel       *intel.Service
	Credentials *credential.Scanner
}

// NewEngine 根据配置装配全部组件；cache 由调用方创建并注入
// 拨号器使用全局拨号器，代理需在调用前通过 dialer.SetGlobalDialer 设置
func NewEngine(cfg *config.Config, cache *intel.Cache) (*Engine, error) {
	if cfg == nil || cfg.Scan == nil || cfg.Intel == nil {
		return nil, fmt.Errorf("scan and intel config are required")
	}

	var sigs []vuln.Signature
	if cfg.Scan.SignatureFile != "" {
		loaded, err := vuln.LoadSignatures(cfg.Scan.SignatureFile)
		if err != nil {
			return nil, fmt.Errorf("load signatures: %w", err)
		}
		sigs = loaded
		logger.Infof("Loaded %d extra signatures from %s", len(sigs), cfg.Scan.SignatureFile)
	}

	d := dialer.Get()
	dns := target.NewDNSResolver(cfg.Scan.Nameservers)

	intelSvc := intel.NewService(cfg.Intel, cache)
	correlator := vuln.NewCorrelator(intelSvc, sigs...)

	ua := cfg.Intel.UserAgent
	if ua == "" {
		ua = version.GetUserAgent()
	}
	registry := detector.NewRegistry(correlator, intelSvc, intel.NewCirclSource(cfg.Intel.CirclURL, ua, cfg.Intel.Timeout))

	creds := credential.NewScanner(cfg.Scan.CredentialLimit, protocol.All()...)

	orch := NewOrchestrator(Components{
		Targets:   target.NewResolver(dns),
		Hostnames: target.DefaultHostnameResolver(dns),
		Liveness: alive.NewChecker(alive.Options{
			PrivilegedPing: cfg.Scan.PrivilegedPing,
			PingTimeout:    cfg.Scan.PingTimeout,
			Dialer:         d,
		}),
		Prober:      banner.NewGrabber(d, cfg.Scan.BannerBufferSize),
		Basic:       CorrelatorDetector{Correlator: correlator},
		Enhanced:    registry,
		Credentials: creds,
	})

	logger.LogSystemEvent("Engine", "init", "scan engine ready", logger.InfoLevel, map[string]interface{}{
		"detectors":   len(registry.Enabled()),
		"nameservers": dns.Servers(),
	})
	return &Engine{Orchestrator: orch, Detectors: registry, Intel: intelSvc, Credentials: creds}, nil
}
