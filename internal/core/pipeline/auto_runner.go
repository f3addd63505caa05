package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"sort"
	"sync"
	"time"

	"neorecon/internal/core/attackpath"
	"neorecon/internal/core/model"
	"neorecon/internal/core/scanner/service"
	"neorecon/internal/core/summary"
	"neorecon/internal/pkg/logger"
)

// scanRun 单次扫描共享状态
// hosts 与 ports 是两个独立的信号量，大小都等于 Threads；
// 主机 worker 持有 hosts 槽位时端口任务从 ports 取槽位，避免嵌套占用同一信号量导致死锁
type scanRun struct {
	cfg   *model.ScanConfig
	hosts chan struct{}
	ports chan struct{}
}

func newScanRun(cfg *model.ScanConfig) *scanRun {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	return &scanRun{
		cfg:   cfg,
		hosts: make(chan struct{}, threads),
		ports: make(chan struct{}, threads),
	}
}

// Scan 完整扫描：展开目标 -> 存活 -> 端口 -> banner/服务 -> 漏洞 -> 汇总/攻击路径
// 只返回存在开放端口的主机；目标无法展开时返回错误
func (o *Orchestrator) Scan(ctx context.Context, cfg *model.ScanConfig) ([]model.ScanResult, error) {
	start := time.Now()
	ips, err := o.resolveTargets(ctx, cfg.Target, cfg.Randomize)
	if err != nil {
		logger.LogScanOperation(cfg.ID, "resolve", cfg.Target, "failed", 0, err.Error(), time.Since(start), nil)
		return nil, fmt.Errorf("resolve target %s: %w", cfg.Target, err)
	}
	logger.LogScanOperation(cfg.ID, "resolve", cfg.Target, "completed", 100,
		fmt.Sprintf("%d hosts", len(ips)), time.Since(start), nil)

	run := newScanRun(cfg)
	results := make(chan model.ScanResult)
	collected := make(chan []model.ScanResult, 1)

	// 单一聚合 goroutine
	go func() {
		var out []model.ScanResult
		for r := range results {
			out = append(out, r)
		}
		collected <- out
	}()

	var wg sync.WaitGroup
dispatch:
	for _, ip := range ips {
		if ctx.Err() != nil {
			break
		}
		select {
		case run.hosts <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()
			defer func() { <-run.hosts }()

			res := o.scanHost(ctx, run, ip, o.portsFor(cfg))
			if len(res.OpenPorts) > 0 {
				results <- res
			}
		}(ip)
	}
	wg.Wait()
	close(results)
	out := <-collected

	logger.LogScanOperation(cfg.ID, "scan", cfg.Target, "completed", 100,
		fmt.Sprintf("%d hosts with open ports", len(out)), time.Since(start), nil)
	return out, nil
}

// portsFor 端口列表为空时使用常用端口表
func (o *Orchestrator) portsFor(cfg *model.ScanConfig) []int {
	ports := cfg.Ports
	if len(ports) == 0 {
		ports = service.CommonPorts()
	} else {
		ports = append([]int(nil), ports...)
	}
	if cfg.Randomize {
		shuffle(ports)
	}
	return ports
}

// scanHost 单主机流水线；离线主机在未开启 ScanOfflineHosts 时直接返回空结果
func (o *Orchestrator) scanHost(ctx context.Context, run *scanRun, ip net.IP, ports []int) model.ScanResult {
	cfg := run.cfg
	host := ip.String()
	start := time.Now()

	res := model.ScanResult{
		ScanID:   cfg.ID,
		Host:     host,
		Hostname: o.hostnames.Lookup(ctx, ip),
		IsOnline: o.liveness.IsOnline(ctx, ip, cfg.Timeout),
	}
	if !res.IsOnline && !cfg.ScanOfflineHosts {
		logger.Debugf("[%s] Target is not alive.", host)
		res.ScanTime = model.FormatScanTime(time.Now())
		return res
	}

	res.OpenPorts = o.scanPorts(ctx, run, ip, ports)
	res.ScanTime = model.FormatScanTime(time.Now())
	if len(res.OpenPorts) == 0 {
		logger.Debugf("[%s] No open ports found.", host)
		return res
	}

	var banners []string
	var vulns []model.Vulnerability
	for _, p := range res.OpenPorts {
		banners = append(banners, p.Banner)
		vulns = append(vulns, p.Vulnerabilities...)
	}
	res.OSInfo = service.FingerprintOS(banners)

	if cfg.AssessAttackSurface {
		res.Summary = summary.Summarize(vulns)
	}
	if cfg.AttackPathAnalysis {
		res.AttackPaths = attackpath.Synthesize(vulns)
	}

	logger.LogScanOperation(cfg.ID, "host", host, "completed", 100,
		fmt.Sprintf("%d open ports, %d findings", len(res.OpenPorts), len(vulns)), time.Since(start), nil)
	return res
}

// scanPorts 端口并发探测，结果经 channel 汇总后按端口升序
func (o *Orchestrator) scanPorts(ctx context.Context, run *scanRun, ip net.IP, ports []int) []model.PortResult {
	results := make(chan model.PortResult)
	collected := make(chan []model.PortResult, 1)
	go func() {
		var out []model.PortResult
		for r := range results {
			out = append(out, r)
		}
		collected <- out
	}()

	var wg sync.WaitGroup
dispatch:
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		select {
		case run.ports <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			defer func() { <-run.ports }()
			if pr, ok := o.scanPort(ctx, run.cfg, ip, port); ok {
				results <- pr
			}
		}(port)
	}
	wg.Wait()
	close(results)

	out := <-collected
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// scanPort 端口关闭时返回 false
func (o *Orchestrator) scanPort(ctx context.Context, cfg *model.ScanConfig, ip net.IP, port int) (model.PortResult, bool) {
	open, bannerText := o.prober.Probe(ctx, ip, port, cfg.Timeout)
	if !open {
		return model.PortResult{}, false
	}
	svc := service.Identify(port, bannerText)
	logger.Debugf("[%s] Port %d open, service identified: %s", ip, port, svc)

	return model.PortResult{
		Port:            port,
		Service:         svc,
		Banner:          bannerText,
		Vulnerabilities: o.dispatch.Dispatch(ctx, cfg, ip.String(), port, svc, bannerText),
	}, true
}

func shuffle[T any](s []T) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
