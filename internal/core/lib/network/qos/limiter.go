package qos

import (
	"context"
	"sync"
	"sync/atomic"
)

// AdaptiveLimiter AIMD 并发控制
// 成功 currentLimit 次加 1，失败乘以 0.7
// 用于弱口令/默认口令探测：目标端限速或丢包时自动收缩并发
type AdaptiveLimiter struct {
	sem             chan struct{} // 令牌
	reductionNeeded int32         // 已借出令牌中待销毁的数量

	currentLimit int
	minLimit     int
	maxLimit     int

	successCount int
	mu           sync.Mutex
}

// NewAdaptiveLimiter 创建限流器，initial 会被修正到 [min, max]
func NewAdaptiveLimiter(initial, min, max int) *AdaptiveLimiter {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}

	l := &AdaptiveLimiter{
		sem:          make(chan struct{}, max),
		currentLimit: initial,
		minLimit:     min,
		maxLimit:     max,
	}
	for i := 0; i < initial; i++ {
		l.sem <- struct{}{}
	}
	return l
}

// Acquire 获取令牌，阻塞直到可用或 ctx 取消
func (l *AdaptiveLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 归还令牌；存在待销毁数量时直接丢弃
func (l *AdaptiveLimiter) Release() {
	for {
		debt := atomic.LoadInt32(&l.reductionNeeded)
		if debt <= 0 {
			break
		}
		if atomic.CompareAndSwapInt32(&l.reductionNeeded, debt, debt-1) {
			return
		}
	}

	select {
	case l.sem <- struct{}{}:
	default:
	}
}

// Do 在令牌保护下执行 fn，并按 congested 的判定反馈成功/失败
// congested 为 nil 时任何错误都视为拥塞
func (l *AdaptiveLimiter) Do(ctx context.Context, fn func() error, congested func(error) bool) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()

	err := fn()
	if err != nil && (congested == nil || congested(err)) {
		l.OnFailure()
	} else {
		l.OnSuccess()
	}
	return err
}

// OnSuccess 加性增
func (l *AdaptiveLimiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successCount++
	if l.successCount >= l.currentLimit {
		l.successCount = 0
		l.resize(l.currentLimit + 1)
	}
}

// OnFailure 乘性减
func (l *AdaptiveLimiter) OnFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := int(float64(l.currentLimit) * 0.7)
	if l.currentLimit-target < 1 {
		target = l.currentLimit - 1
	}
	l.resize(target)
	l.successCount = 0
}

// resize 调整到 target (会被修正到 [min, max])，调用方持有 mu
func (l *AdaptiveLimiter) resize(target int) {
	if target > l.maxLimit {
		target = l.maxLimit
	}
	if target < l.minLimit {
		target = l.minLimit
	}

	diff := target - l.currentLimit
	l.currentLimit = target

	switch {
	case diff > 0:
		for i := 0; i < diff; i++ {
			select {
			case l.sem <- struct{}{}:
			default:
			}
		}
	case diff < 0:
		// 先收回空闲令牌，不够的部分记为待销毁，在 Release 时偿还
		remaining := -diff
		for remaining > 0 {
			select {
			case <-l.sem:
				remaining--
				continue
			default:
			}
			break
		}
		if remaining > 0 {
			atomic.AddInt32(&l.reductionNeeded, int32(remaining))
		}
	}
}

// CurrentLimit 当前并发上限
func (l *AdaptiveLimiter) CurrentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLimit
}
