package alive

import "time"

// ProbeResult 探测结果
type ProbeResult struct {
	Alive   bool
	Method  string // icmp / tcp
	Latency time.Duration
	TTL     int
}

// NewProbeResult 创建存活结果
func NewProbeResult(method string, latency time.Duration, ttl int) *ProbeResult {
	return &ProbeResult{
		Alive:   true,
		Method:  method,
		Latency: latency,
		TTL:     ttl,
	}
}
