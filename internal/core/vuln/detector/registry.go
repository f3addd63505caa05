/**
 * 检测器注册表
 * @author: sun977
 * @date: 2025.11.06
 * @description: 固定集合的检测器，按注册顺序执行并按漏洞 ID 去重
 */
package detector

import (
	"context"
	"sort"
	"strings"
	"sync"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
	"neorecon/internal/core/vuln/intel"
)

// Registry 检测器注册表，可并发使用
type Registry struct {
	mu       sync.RWMutex
	order    []Kind
	disabled map[Kind]bool

	correlator *vuln.Correlator
	lookup     vuln.Lookuper // 完整的多源查询链
	circl      intel.Source  // CIRCL 直查，可为空
}

// NewRegistry correlator 不能为空；lookup 为空时所有在线检测器都不产出
func NewRegistry(correlator *vuln.Correlator, lookup vuln.Lookuper, circl intel.Source) *Registry {
	return &Registry{
		order:      append([]Kind(nil), defaultOrder...),
		disabled:   make(map[Kind]bool),
		correlator: correlator,
		lookup:     lookup,
		circl:      circl,
	}
}

// SetEnabled 启用/禁用检测器
func (r *Registry) SetEnabled(k Kind, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[k] = !enabled
}

// Enabled 当前启用的检测器，按注册顺序
func (r *Registry) Enabled() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Kind
	for _, k := range r.order {
		if !r.disabled[k] {
			out = append(out, k)
		}
	}
	return out
}

// Detect 运行所有启用的检测器，结果按 ID 排序去重
func (r *Registry) Detect(ctx context.Context, service, banner string, offline bool) []model.Vulnerability {
	var results []model.Vulnerability
	for _, k := range r.Enabled() {
		results = append(results, r.detect(ctx, k, service, banner, offline)...)
	}
	return dedupe(results)
}

func (r *Registry) detect(ctx context.Context, k Kind, service, banner string, offline bool) []model.Vulnerability {
	switch k {
	case KindNVD:
		if offline || r.lookup == nil {
			return nil
		}
		return r.correlator.Correlate(ctx, service, banner, true)
	case KindSignature:
		return r.correlator.Correlate(ctx, service, banner, false)
	case KindICSCert:
		if offline {
			return nil
		}
		return icsDetect(service)
	default:
		// CIRCL 与 MITRE 只参与编号查询
		return nil
	}
}

// Lookup 按注册顺序查询，第一个成功的检测器胜出
// MITRE 不单独发起查询，启用时只为命中结果补充 ATT&CK 映射
func (r *Registry) Lookup(ctx context.Context, id string) (*model.Vulnerability, bool) {
	kinds := r.Enabled()
	mitre := false
	chainTried := false
	var found *model.Vulnerability

	for _, k := range kinds {
		switch k {
		case KindMitre:
			mitre = true
			continue
		case KindCIRCL:
			// 多源查询链已包含 CIRCL，失败后不再重复请求
			if chainTried {
				continue
			}
		}
		if found != nil {
			continue
		}
		if k == KindNVD && r.lookup != nil {
			chainTried = true
		}
		if v, ok := r.lookupWith(ctx, k, id); ok {
			found = v
		}
	}

	if found == nil {
		return nil, false
	}
	if mitre && strings.HasPrefix(found.ID, "CVE-") {
		intel.ApplyMitre(found)
	}
	return found, true
}

func (r *Registry) lookupWith(ctx context.Context, k Kind, id string) (*model.Vulnerability, bool) {
	switch k {
	case KindNVD:
		if r.lookup == nil {
			return nil, false
		}
		return r.lookup.Lookup(ctx, id)
	case KindCIRCL:
		if r.circl == nil || !strings.HasPrefix(id, "CVE-") {
			return nil, false
		}
		v, err := r.circl.Fetch(ctx, id)
		if err != nil {
			return nil, false
		}
		return v, true
	case KindICSCert:
		return icsLookup(id)
	default:
		return nil, false
	}
}

// dedupe 稳定排序后保留每个 ID 的第一条
func dedupe(vulns []model.Vulnerability) []model.Vulnerability {
	if len(vulns) == 0 {
		return vulns
	}
	sort.SliceStable(vulns, func(i, j int) bool { return vulns[i].ID < vulns[j].ID })
	out := vulns[:1]
	for _, v := range vulns[1:] {
		if v.ID != out[len(out)-1].ID {
			out = append(out, v)
		}
	}
	return out
}
