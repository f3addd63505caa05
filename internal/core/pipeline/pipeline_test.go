package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
	"neorecon/internal/core/target"
	"neorecon/internal/pkg/logger"
)

func init() {
	logger.InitWriter(io.Discard, "debug")
}

type stubLiveness struct {
	online map[string]bool
	all    bool
}

func (s stubLiveness) IsOnline(_ context.Context, ip net.IP, _ time.Duration) bool {
	return s.all || s.online[ip.String()]
}

type stubProber struct {
	banners map[int]string
}

func (s stubProber) Probe(_ context.Context, _ net.IP, port int, _ time.Duration) (bool, string) {
	b, ok := s.banners[port]
	return ok, b
}

type stubDetector struct {
	mu    sync.Mutex
	id    string
	calls int
}

func (s *stubDetector) Detect(_ context.Context, service, _ string, _ bool) []model.Vulnerability {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return []model.Vulnerability{{ID: s.id + "-" + service, Severity: model.String(model.SeverityHigh), CVSSScore: model.Float(7.5)}}
}

type stubCredentials struct {
	mu       sync.Mutex
	defaults int
}

func (s *stubCredentials) CheckMisconfigurations(_ context.Context, _ string, port int, _ string) []model.Vulnerability {
	if port != 6379 {
		return nil
	}
	return []model.Vulnerability{{ID: "MISCONFIG-REDIS-NOAUTH", Severity: model.String(model.SeverityCritical)}}
}

func (s *stubCredentials) CheckDefaultCredentials(context.Context, string, int, string) []model.Vulnerability {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults++
	return nil
}

type failingTargets struct{}

func (failingTargets) Expand(context.Context, string) ([]net.IP, error) {
	return nil, errors.New("no such host")
}

func (failingTargets) ExpandAll(context.Context, string) ([]net.IP, error) {
	return nil, errors.New("no such host")
}

func newConfig(target string, ports ...int) *model.ScanConfig {
	cfg := model.NewScanConfig(target)
	cfg.Ports = ports
	cfg.OfflineMode = true
	cfg.Timeout = 2 * time.Second
	return cfg
}

// startSSHStub 在随机端口上模拟 SSH 服务，返回端口号
func startSSHStub(t *testing.T, banner string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = c.Write([]byte(banner + "\r\n"))
				_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
				_, _ = io.Copy(io.Discard, c)
			}(c)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestScan_EndToEndSSHStub(t *testing.T) {
	port := startSSHStub(t, "SSH-2.0-OpenSSH_5.3")

	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}, Hostnames: target.StaticResolver{}})
	cfg := newConfig("127.0.0.1", port)

	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, cfg.ID, res.ScanID)
	assert.Equal(t, "127.0.0.1", res.Host)
	assert.Equal(t, "127.0.0.1", res.Hostname)
	assert.True(t, res.IsOnline)
	assert.NotEmpty(t, res.ScanTime)

	require.Len(t, res.OpenPorts, 1)
	pr := res.OpenPorts[0]
	assert.Equal(t, port, pr.Port)
	assert.Equal(t, "ssh", pr.Service)
	assert.Equal(t, "SSH-2.0-OpenSSH_5.3", pr.Banner)

	var ids []string
	for _, v := range pr.Vulnerabilities {
		ids = append(ids, v.ID)
	}
	assert.Contains(t, ids, "CVE-2020-14145")

	require.NotNil(t, res.Summary)
	assert.Equal(t, len(pr.Vulnerabilities), res.Summary.Total)
	assert.NotEmpty(t, res.AttackPaths)
}

func TestScan_ClosedPortsYieldNoResult(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}})
	results, err := o.Scan(context.Background(), newConfig("127.0.0.1", port))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScan_OfflineHosts(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-OpenSSH_8.9"}}
	o := NewOrchestrator(Components{Liveness: stubLiveness{}, Prober: prober})

	cfg := newConfig("10.1.1.1", 22)
	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, results)

	cfg.ScanOfflineHosts = true
	results, err = o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsOnline)
}

func TestScan_PortsSorted(t *testing.T) {
	prober := stubProber{banners: map[int]string{443: "No banner", 22: "SSH-2.0-x", 80: "HTTP/1.1 200 OK"}}
	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}, Prober: prober})

	cfg := newConfig("10.1.1.1", 443, 80, 22, 8080)
	cfg.Randomize = true
	cfg.Threads = 2

	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var ports []int
	for _, p := range results[0].OpenPorts {
		ports = append(ports, p.Port)
	}
	assert.Equal(t, []int{22, 80, 443}, ports)
}

func TestScan_MultipleHosts(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x"}}
	o := NewOrchestrator(Components{
		Liveness: stubLiveness{online: map[string]bool{"10.0.0.1": true, "10.0.0.2": true}},
		Prober:   prober,
	})
	cfg := newConfig("10.0.0.0/30", 22)
	cfg.Threads = 1

	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestScan_DetectorSelection(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x"}}
	basic := &stubDetector{id: "BASIC"}
	enhanced := &stubDetector{id: "ENHANCED"}
	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}, Prober: prober, Basic: basic, Enhanced: enhanced})

	cfg := newConfig("10.1.1.1", 22)
	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ENHANCED-ssh", results[0].OpenPorts[0].Vulnerabilities[0].ID)

	cfg.EnhancedDetection = false
	results, err = o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "BASIC-ssh", results[0].OpenPorts[0].Vulnerabilities[0].ID)
	assert.Equal(t, 1, basic.calls)
	assert.Equal(t, 1, enhanced.calls)
}

func TestScan_Toggles(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x", 6379: "No banner"}}
	creds := &stubCredentials{}
	o := NewOrchestrator(Components{
		Liveness:    stubLiveness{all: true},
		Prober:      prober,
		Basic:       &stubDetector{id: "SIG"},
		Credentials: creds,
	})

	cfg := newConfig("10.1.1.1", 22, 6379)
	results, err := o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)

	redis := results[0].OpenPorts[1]
	assert.Equal(t, 6379, redis.Port)
	require.Len(t, redis.Vulnerabilities, 2)
	assert.Equal(t, "MISCONFIG-REDIS-NOAUTH", redis.Vulnerabilities[1].ID)
	assert.NotEmpty(t, redis.Vulnerabilities[0].MitreTactics)
	assert.Zero(t, creds.defaults)
	assert.NotNil(t, results[0].Summary)
	assert.NotEmpty(t, results[0].AttackPaths)

	cfg.CheckMisconfigurations = false
	cfg.CheckDefaultCreds = true
	cfg.MitreMapping = false
	cfg.AssessAttackSurface = false
	cfg.AttackPathAnalysis = false
	results, err = o.Scan(context.Background(), cfg)
	require.NoError(t, err)
	redis = results[0].OpenPorts[1]
	require.Len(t, redis.Vulnerabilities, 1)
	assert.Empty(t, redis.Vulnerabilities[0].MitreTactics)
	assert.Equal(t, 2, creds.defaults)
	assert.Nil(t, results[0].Summary)
	assert.Nil(t, results[0].AttackPaths)
}

func TestScan_InvalidTarget(t *testing.T) {
	o := NewOrchestrator(Components{Targets: failingTargets{}})
	_, err := o.Scan(context.Background(), newConfig("nope.invalid"))
	assert.Error(t, err)
}

func TestScan_CancelledContext(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x"}}
	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}, Prober: prober})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := o.Scan(ctx, newConfig("10.1.1.1", 22))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuickAndOTScan(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x", 502: "No banner", 31337: "x"}}
	o := NewOrchestrator(Components{Liveness: stubLiveness{all: true}, Prober: prober, Basic: &stubDetector{id: "S"}})
	cfg := newConfig("10.1.1.1", 31337)

	// 常用端口表包含工控端口
	quick := o.QuickScan(context.Background(), "10.1.1.1", cfg)
	require.Len(t, quick.OpenPorts, 2)
	assert.Equal(t, 22, quick.OpenPorts[0].Port)
	assert.Equal(t, 502, quick.OpenPorts[1].Port)

	ot := o.OTScan(context.Background(), "10.1.1.1", cfg)
	require.Len(t, ot.OpenPorts, 1)
	assert.Equal(t, 502, ot.OpenPorts[0].Port)
	assert.Equal(t, "modbus", ot.OpenPorts[0].Service)

	// 原配置不受影响
	assert.Equal(t, []int{31337}, cfg.Ports)
}

func TestQuickScan_Unresolvable(t *testing.T) {
	o := NewOrchestrator(Components{Targets: failingTargets{}})
	res := o.QuickScan(context.Background(), "nope.invalid", newConfig("nope.invalid"))
	assert.Equal(t, "nope.invalid", res.Host)
	assert.Equal(t, "nope.invalid", res.Hostname)
	assert.False(t, res.IsOnline)
	assert.Empty(t, res.OpenPorts)
}

func TestScanPortRange(t *testing.T) {
	prober := stubProber{banners: map[int]string{21: "", 23: "", 99: ""}}
	o := NewOrchestrator(Components{Prober: prober})
	cfg := newConfig("10.1.1.1")
	cfg.Randomize = true

	assert.Equal(t, []int{21, 23}, o.ScanPortRange(context.Background(), "10.1.1.1", 20, 25, cfg))
	assert.Nil(t, o.ScanPortRange(context.Background(), "10.1.1.1", 30, 20, cfg))
}

func TestDiscoverHosts(t *testing.T) {
	o := NewOrchestrator(Components{
		Liveness:  stubLiveness{online: map[string]bool{"10.0.0.2": true, "10.0.0.1": true}},
		Hostnames: target.StaticResolver{},
	})
	hosts := o.DiscoverHosts(context.Background(), "10.0.0.0/29", newConfig("10.0.0.0/29"))
	require.Len(t, hosts, 2)
	assert.Equal(t, "10.0.0.1", hosts[0].IP)
	assert.Equal(t, "10.0.0.2", hosts[1].IP)
	assert.True(t, hosts[0].IsOnline)
}

func TestCheckVulnerability(t *testing.T) {
	prober := stubProber{banners: map[int]string{22: "SSH-2.0-x"}}
	o := NewOrchestrator(Components{Prober: prober, Basic: &stubDetector{id: "CHK"}})
	cfg := newConfig("10.1.1.1", 22)

	v, ok := o.CheckVulnerability(context.Background(), "10.1.1.1", 22, "CHK-ssh", cfg)
	require.True(t, ok)
	assert.Equal(t, "CHK-ssh", v.ID)

	_, ok = o.CheckVulnerability(context.Background(), "10.1.1.1", 22, "CVE-0000-0000", cfg)
	assert.False(t, ok)

	_, ok = o.CheckVulnerability(context.Background(), "10.1.1.1", 80, "CHK-ssh", cfg)
	assert.False(t, ok)
}
