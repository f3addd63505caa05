package pipeline

import (
	"context"
	"net"

	"neorecon/internal/pkg/logger"
)

// resolveTargets 展开扫描目标，可选打乱顺序
func (o *Orchestrator) resolveTargets(ctx context.Context, input string, randomize bool) ([]net.IP, error) {
	ips, err := o.targets.ExpandAll(ctx, input)
	if err != nil {
		return nil, err
	}
	if randomize {
		shuffle(ips)
	}
	return ips, nil
}

// resolveSingle 单主机变体只取第一个地址
func (o *Orchestrator) resolveSingle(ctx context.Context, input string) (net.IP, bool) {
	ips, err := o.targets.Expand(ctx, input)
	if err != nil || len(ips) == 0 {
		logger.Warnf("Skipping invalid target: %s (%v)", input, err)
		return nil, false
	}
	return ips[0], true
}
