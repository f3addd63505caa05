package qos

import (
	"sync"
	"time"
)

const (
	defaultInitialRTO = 1 * time.Second        // 还没有样本时的超时，与默认登录超时一致
	minRTO            = 100 * time.Millisecond // 下限，局域网内极快的响应也不会把超时压到这以下
	maxRTO            = 10 * time.Second       // 上限，慢速服务最多等这么久
	alpha             = 0.125                  // SRTT 平滑系数 1/8 (RFC 6298)
	beta              = 0.25                   // RTTVAR 平滑系数 1/4 (RFC 6298)
)

// RttEstimator 按 RFC 6298 估算重传超时 (RTO)
// 凭据探测用它记录每次登录往返耗时，再据此放宽单次登录的超时
type RttEstimator struct {
	srtt   time.Duration // 平滑往返时间 SRTT，0 表示还没有样本
	rttvar time.Duration // 往返时间波动 RTTVAR
	rto    time.Duration // 当前建议超时
	mu     sync.RWMutex  // 同一目标的多个 worker 并发读写
}

// NewRttEstimator 创建估算器，初始 RTO 1s
func NewRttEstimator() *RttEstimator {
	return &RttEstimator{rto: defaultInitialRTO}
}

// Update 记录一次 RTT 样本
// rtt: 一次完整登录尝试 (建连 + 认证) 的耗时
func (e *RttEstimator) Update(rtt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.srtt == 0 {
		// 首个样本 (RFC 6298 2.2)
		// SRTT = R, RTTVAR = R/2
		e.srtt = rtt
		e.rttvar = rtt / 2
	} else {
		// 后续样本 (RFC 6298 2.3)
		// RTTVAR = (1-beta)*RTTVAR + beta*|SRTT-R|
		delta := e.srtt - rtt
		if delta < 0 {
			delta = -delta
		}
		e.rttvar = time.Duration((1-beta)*float64(e.rttvar) + beta*float64(delta))

		// SRTT = (1-alpha)*SRTT + alpha*R
		// 必须在 RTTVAR 之后更新，RTTVAR 用的是旧 SRTT
		e.srtt = time.Duration((1-alpha)*float64(e.srtt) + alpha*float64(rtt))
	}

	// RTO = SRTT + max(G, 4*RTTVAR)
	// 时钟粒度 G 在纳秒级计时下可以忽略
	e.rto = e.srtt + 4*e.rttvar

	// 限制在 [minRTO, maxRTO] (RFC 6298 2.4 / 2.5)
	if e.rto < minRTO {
		e.rto = minRTO
	} else if e.rto > maxRTO {
		e.rto = maxRTO
	}
}

// Timeout 当前 RTO，随样本变化
func (e *RttEstimator) Timeout() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rto
}

// TimeoutAtLeast 取 RTO 与 floor 中较大者
// floor 为用户配置的登录超时，估算值只放宽不收紧
func (e *RttEstimator) TimeoutAtLeast(floor time.Duration) time.Duration {
	if rto := e.Timeout(); rto > floor {
		return rto
	}
	return floor
}
