package pipeline

import (
	"context"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln/intel"
	"neorecon/internal/pkg/logger"
)

// serviceDispatcher 开放端口的第二阶段任务分发
// 漏洞关联优先，弱口令检测最后
type serviceDispatcher struct {
	basic       Detector
	enhanced    Detector
	credentials CredentialAuditor
}

func newServiceDispatcher(basic, enhanced Detector, credentials CredentialAuditor) *serviceDispatcher {
	return &serviceDispatcher{basic: basic, enhanced: enhanced, credentials: credentials}
}

// Dispatch 对单个端口执行全部检测，返回漏洞列表
func (d *serviceDispatcher) Dispatch(ctx context.Context, cfg *model.ScanConfig, host string, port int, service, banner string) []model.Vulnerability {
	vulns := d.dispatchHighPriority(ctx, cfg, service, banner)
	vulns = append(vulns, d.dispatchLowPriority(ctx, cfg, host, port, service)...)

	if cfg.MitreMapping {
		for i := range vulns {
			intel.ApplyMitre(&vulns[i])
		}
	}
	for _, v := range vulns {
		logger.LogFinding(host, port, v.ID, v.SeverityLabel(), service)
	}
	return vulns
}

// dispatchHighPriority 离线特征 + 在线情报
func (d *serviceDispatcher) dispatchHighPriority(ctx context.Context, cfg *model.ScanConfig, service, banner string) []model.Vulnerability {
	det := d.basic
	if cfg.EnhancedDetection {
		det = d.enhanced
	}
	return det.Detect(ctx, service, banner, cfg.OfflineMode)
}

// dispatchLowPriority 未授权访问与默认口令
func (d *serviceDispatcher) dispatchLowPriority(ctx context.Context, cfg *model.ScanConfig, host string, port int, service string) []model.Vulnerability {
	if d.credentials == nil {
		return nil
	}
	var out []model.Vulnerability
	if cfg.CheckMisconfigurations {
		out = append(out, d.credentials.CheckMisconfigurations(ctx, host, port, service)...)
	}
	if cfg.CheckDefaultCreds {
		logger.Debugf("[%s:%d] Dispatching default credential checks (%s)", host, port, service)
		out = append(out, d.credentials.CheckDefaultCredentials(ctx, host, port, service)...)
	}
	return out
}
