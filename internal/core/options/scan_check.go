package options

import (
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// CheckOptions scan check 参数：对单个端口验证某个漏洞 ID
type CheckOptions struct {
	Target    string
	Port      int
	VulnID    string
	TimeoutMs int
	Offline   bool
}

func NewCheckOptions() *CheckOptions {
	return &CheckOptions{TimeoutMs: 3000}
}

func (o *CheckOptions) Validate() error {
	o.Target = strings.TrimSpace(o.Target)
	o.VulnID = strings.ToUpper(strings.TrimSpace(o.VulnID))
	if o.Target == "" {
		return invalid("target is required")
	}
	if o.Port < 1 || o.Port > 65535 {
		return invalid("port must be between 1 and 65535")
	}
	if o.VulnID == "" {
		return invalid("vulnerability id is required")
	}
	return validateTimeout(o.TimeoutMs)
}

func (o *CheckOptions) ToConfig() *model.ScanConfig {
	cfg := model.NewScanConfig(o.Target)
	cfg.Ports = []int{o.Port}
	cfg.Threads = 1
	cfg.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	cfg.OfflineMode = o.Offline
	cfg.ScanOfflineHosts = true
	return cfg
}
