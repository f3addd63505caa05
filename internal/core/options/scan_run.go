package options

import (
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// ScanRunOptions 定义 scan run/quick/ot 命令的参数 (Core Level)
// 同时作为 POST /api/v1/scans 的请求体
type ScanRunOptions struct {
	Type      model.ScanType `json:"type"`
	Target    string         `json:"target"`
	Ports     string         `json:"ports"`      // -p 22,80,1-1000
	Threads   int            `json:"threads"`    // --threads
	TimeoutMs int            `json:"timeout_ms"` // --timeout
	Randomize bool           `json:"randomize"`
	Verbose   bool           `json:"verbose"`

	Offline     bool `json:"offline"`      // --offline
	ScanOffline bool `json:"scan_offline"` // --scan-offline

	// 增强检测开关，默认全部开启 (默认口令检测除外)
	NoEnhanced      bool `json:"no_enhanced"`
	NoAttackSurface bool `json:"no_attack_surface"`
	NoMisconfig     bool `json:"no_misconfig"`
	DefaultCreds    bool `json:"default_creds"`
	NoMitre         bool `json:"no_mitre"`
	NoAttackPath    bool `json:"no_attack_path"`

	Output OutputOptions `json:"-"`

	ports []int
}

func NewScanRunOptions() *ScanRunOptions {
	return &ScanRunOptions{
		Type:      model.ScanTypeFull,
		Threads:   10,
		TimeoutMs: 1000,
		Output:    OutputOptions{Format: model.FormatText},
	}
}

func (o *ScanRunOptions) Validate() error {
	o.Target = strings.TrimSpace(o.Target)
	if o.Target == "" {
		return invalid("target is required")
	}
	if err := validateThreads(o.Threads); err != nil {
		return err
	}
	if err := validateTimeout(o.TimeoutMs); err != nil {
		return err
	}
	ports, err := ParsePortList(o.Ports)
	if err != nil {
		return err
	}
	o.ports = ports
	o.Output.Normalize()
	return nil
}

// ToConfig 必须在 Validate 成功后调用
func (o *ScanRunOptions) ToConfig() *model.ScanConfig {
	cfg := model.NewScanConfig(o.Target)
	if o.Type != "" {
		cfg.Type = o.Type
	}
	cfg.Ports = o.ports
	cfg.Threads = o.Threads
	cfg.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	cfg.Randomize = o.Randomize
	cfg.Verbose = o.Verbose
	cfg.OfflineMode = o.Offline
	cfg.ScanOfflineHosts = o.ScanOffline
	cfg.EnhancedDetection = !o.NoEnhanced
	cfg.AssessAttackSurface = !o.NoAttackSurface
	cfg.CheckMisconfigurations = !o.NoMisconfig
	cfg.CheckDefaultCreds = o.DefaultCreds
	cfg.MitreMapping = !o.NoMitre
	cfg.AttackPathAnalysis = !o.NoAttackPath
	cfg.OutputFormat = o.Output.Format
	return cfg
}

func validateThreads(n int) error {
	if n < MinThreads || n > MaxThreads {
		return invalid("thread count must be between %d and %d", MinThreads, MaxThreads)
	}
	return nil
}

func validateTimeout(ms int) error {
	if ms < MinTimeoutMs || ms > MaxTimeoutMs {
		return invalid("timeout must be between %dms and %dms", MinTimeoutMs, MaxTimeoutMs)
	}
	return nil
}
