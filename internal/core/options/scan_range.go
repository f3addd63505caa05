package options

import (
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// RangeOptions scan range 参数：单主机连续端口区间，只判断开放
type RangeOptions struct {
	Target    string
	Start     int
	End       int
	Threads   int
	TimeoutMs int
	Randomize bool
}

func NewRangeOptions() *RangeOptions {
	return &RangeOptions{Start: 1, End: 1024, Threads: 100, TimeoutMs: 1000}
}

func (o *RangeOptions) Validate() error {
	o.Target = strings.TrimSpace(o.Target)
	if o.Target == "" {
		return invalid("target is required")
	}
	if o.Start < 1 || o.End > 65535 || o.Start > o.End {
		return invalid("invalid port range %d-%d", o.Start, o.End)
	}
	if err := validateThreads(o.Threads); err != nil {
		return err
	}
	return validateTimeout(o.TimeoutMs)
}

func (o *RangeOptions) ToConfig() *model.ScanConfig {
	cfg := model.NewScanConfig(o.Target)
	cfg.Type = model.ScanTypeRange
	cfg.Threads = o.Threads
	cfg.Timeout = time.Duration(o.TimeoutMs) * time.Millisecond
	cfg.Randomize = o.Randomize
	return cfg
}
