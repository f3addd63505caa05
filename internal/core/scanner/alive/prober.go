package alive

import (
	"context"
	"net"
	"time"
)

// Prober 存活探测器
type Prober interface {
	// Probe 探测单个 IP；探测失败不返回 error，只有 ctx 取消时返回
	Probe(ctx context.Context, ip net.IP, timeout time.Duration) (*ProbeResult, error)
}

// MultiProber 组合探测器：并发执行，任意一个存活即存活
type MultiProber struct {
	probers []Prober
}

func NewMultiProber(probers ...Prober) *MultiProber {
	return &MultiProber{probers: probers}
}

// Probe 实现 Prober
func (m *MultiProber) Probe(ctx context.Context, ip net.IP, timeout time.Duration) (*ProbeResult, error) {
	// 每个子探测器自带超时，这里额外留出进程启动等开销
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	resultChan := make(chan *ProbeResult, len(m.probers))
	for _, p := range m.probers {
		go func(prober Prober) {
			res, _ := prober.Probe(ctx, ip, timeout)
			resultChan <- res
		}(p)
	}

	for i := 0; i < len(m.probers); i++ {
		select {
		case res := <-resultChan:
			if res != nil && res.Alive {
				return res, nil
			}
		case <-ctx.Done():
			return &ProbeResult{}, ctx.Err()
		}
	}
	return &ProbeResult{}, nil
}
