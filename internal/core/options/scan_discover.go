package options

import (
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// DiscoverOptions scan discover 参数，只做主机存活探测
type DiscoverOptions struct {
	Target    string
	Threads   int
	TimeoutMs int
}

func NewDiscoverOptions() *DiscoverOptions {
	return &DiscoverOptions{Threads: 50, TimeoutMs: 1000}
}

func (o *DiscoverOptions) Validate() error {
	o.Target = strings.TrimSpace(o.Target)
	if o.Target == "" {
		return invalid("target is required")
	}
	if err := validateThreads(o.Threads); err != nil {
		return err
	}
	return validateTimeout(o.TimeoutMs)
}

func (o *DiscoverOptions) ToConfig() *model.ScanConfig {
	cfg := model.NewScanConfig(o.Target)
	cfg.Type = model.ScanTypeDiscover
	cfg.Threads = o.Threads
	cfg.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	return cfg
}
