package pipeline

import (
	"bytes"
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"neorecon/internal/core/model"
	"neorecon/internal/core/scanner/service"
)

// QuickScan 单主机常用端口扫描；目标无法解析时返回离线的空结果
func (o *Orchestrator) QuickScan(ctx context.Context, target string, cfg *model.ScanConfig) model.ScanResult {
	return o.singleHost(ctx, target, cfg.WithPorts(service.CommonPorts()))
}

// OTScan 单主机工控协议端口扫描
func (o *Orchestrator) OTScan(ctx context.Context, target string, cfg *model.ScanConfig) model.ScanResult {
	return o.singleHost(ctx, target, cfg.WithPorts(service.OTPorts()))
}

func (o *Orchestrator) singleHost(ctx context.Context, target string, cfg *model.ScanConfig) model.ScanResult {
	ip, ok := o.resolveSingle(ctx, target)
	if !ok {
		return model.ScanResult{
			ScanID:   cfg.ID,
			Host:     target,
			Hostname: target,
			ScanTime: model.FormatScanTime(time.Now()),
		}
	}
	run := newScanRun(cfg)
	return o.scanHost(ctx, run, ip, o.portsFor(cfg))
}

// ScanPortRange 只判断端口开放，不抓 banner 也不做漏洞关联；结果升序
func (o *Orchestrator) ScanPortRange(ctx context.Context, target string, start, end int, cfg *model.ScanConfig) []int {
	ip, ok := o.resolveSingle(ctx, target)
	if !ok || start < 1 || end > 65535 || start > end {
		return nil
	}
	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	if cfg.Randomize {
		shuffle(ports)
	}

	run := newScanRun(cfg)
	var (
		mu   sync.Mutex
		open []int
		wg   sync.WaitGroup
	)
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
			if ok, _ := o.prober.Probe(ctx, ip, port, cfg.Timeout); ok {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
			}
		}(port)
	}
	wg.Wait()
	sort.Ints(open)
	return open
}

// DiscoverHosts 主机发现，只返回在线主机，按 IP 排序
func (o *Orchestrator) DiscoverHosts(ctx context.Context, target string, cfg *model.ScanConfig) []model.HostInfo {
	ips, err := o.resolveTargets(ctx, target, false)
	if err != nil {
		return nil
	}

	run := newScanRun(cfg)
	results := make(chan model.HostInfo)
	collected := make(chan []model.HostInfo, 1)
	go func() {
		var out []model.HostInfo
		for h := range results {
			out = append(out, h)
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
			if !o.liveness.IsOnline(ctx, ip, cfg.Timeout) {
				return
			}
			results <- model.HostInfo{IP: ip.String(), Hostname: o.hostnames.Lookup(ctx, ip), IsOnline: true}
		}(ip)
	}
	wg.Wait()
	close(results)

	out := <-collected
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(net.ParseIP(out[i].IP).To16(), net.ParseIP(out[j].IP).To16()) < 0
	})
	return out
}

// CheckVulnerability 针对单端口执行完整检测，返回指定 ID 的记录
func (o *Orchestrator) CheckVulnerability(ctx context.Context, target string, port int, id string, cfg *model.ScanConfig) (*model.Vulnerability, bool) {
	ip, ok := o.resolveSingle(ctx, target)
	if !ok {
		return nil, false
	}
	pr, open := o.scanPort(ctx, cfg, ip, port)
	if !open {
		return nil, false
	}
	for i := range pr.Vulnerabilities {
		if pr.Vulnerabilities[i].ID == id {
			v := pr.Vulnerabilities[i]
			return &v, true
		}
	}
	return nil, false
}
