/**
 * 攻击路径推导
 * @author: sun977
 * @date: 2025.11.10
 * @description: 从单主机漏洞列表推导入口点路径与三类模板场景 (数据外泄/横向移动/工控)
 */
package attackpath

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

// entryCategories 可直接作为初始访问的漏洞分类
var entryCategories = map[string]bool{
	vuln.CategoryRCE:       true,
	vuln.CategoryInjection: true,
	vuln.CategoryAuth:      true,
	vuln.CategoryBypass:    true,
	vuln.CategoryOverflow:  true,
}

// fallbackTop 分类与严重度都选不出入口时，按 CVSS 取前 N 个
const fallbackTop = 3

// Groups 按分类/服务/攻击向量的多维分组，保留输入顺序
type Groups struct {
	ByCategory map[string][]model.Vulnerability
	ByService  map[string][]model.Vulnerability
	ByVector   map[string][]model.Vulnerability
}

// Group 构建分组并收集可作为入口点的漏洞
func Group(vulns []model.Vulnerability) (Groups, []model.Vulnerability) {
	g := Groups{
		ByCategory: make(map[string][]model.Vulnerability),
		ByService:  make(map[string][]model.Vulnerability),
		ByVector:   make(map[string][]model.Vulnerability),
	}
	var entries []model.Vulnerability
	for _, v := range vulns {
		if v.Category != nil {
			g.ByCategory[*v.Category] = append(g.ByCategory[*v.Category], v)
			if entryCategories[*v.Category] {
				entries = append(entries, v)
			}
		}
		if svc, ok := serviceOf(v); ok {
			g.ByService[svc] = append(g.ByService[svc], v)
		}
		if v.AttackVector != nil {
			g.ByVector[*v.AttackVector] = append(g.ByVector[*v.AttackVector], v)
		}
	}
	return g, entries
}

// Synthesize 推导攻击路径；输入为空时返回 nil
// 输出顺序: 各入口点路径 (发现顺序)，然后是数据外泄、横向移动、工控模板
func Synthesize(vulns []model.Vulnerability) []model.AttackPath {
	if len(vulns) == 0 {
		return nil
	}

	_, entries := Group(vulns)
	if len(entries) == 0 {
		entries = fallbackEntries(vulns)
	}

	paths := make([]model.AttackPath, 0, len(entries)+3)
	for _, e := range entries {
		paths = append(paths, entryPath(e))
	}
	for _, tmpl := range scenarios {
		if p, ok := tmpl.build(vulns); ok {
			paths = append(paths, p)
		}
	}
	return paths
}

// fallbackEntries Critical/High 或 CVSS>=7 优先，否则取 CVSS 最高的前三个
func fallbackEntries(vulns []model.Vulnerability) []model.Vulnerability {
	var out []model.Vulnerability
	for _, v := range vulns {
		sev := strings.ToUpper(v.SeverityLabel())
		if sev == model.SeverityCritical || sev == model.SeverityHigh || v.Score() >= 7.0 {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		return out
	}

	sorted := append([]model.Vulnerability(nil), vulns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score() > sorted[j].Score() })
	if len(sorted) > fallbackTop {
		sorted = sorted[:fallbackTop]
	}
	return sorted
}

// Likelihood 入口点被利用的可能性，范围 [0,1]
func Likelihood(v model.Vulnerability) float64 {
	score := v.Score() / 10 * 0.3
	if v.IsActivelyExploited() {
		score += 0.4
	}
	if v.HasExploit() {
		score += 0.2
	}
	vector := v.VectorLabel()
	if strings.Contains(vector, "Web") {
		score += 0.1
	}
	if strings.Contains(vector, "Network") {
		score += 0.05
	}
	if strings.Contains(vector, "Physical") {
		score -= 0.15
	}
	return math.Max(0, math.Min(1, score))
}

// LikelihoodLabel 分数 -> 标签
func LikelihoodLabel(score float64) string {
	switch {
	case score >= 0.8:
		return "High"
	case score >= 0.5:
		return "Medium"
	case score >= 0.3:
		return "Low"
	default:
		return "Very Low"
	}
}

func entryPath(v model.Vulnerability) model.AttackPath {
	entry := v.ID
	if svc, ok := serviceOf(v); ok {
		entry = fmt.Sprintf("%s via %s", v.ID, svc)
	}

	steps := []model.AttackStep{{
		Description:     fmt.Sprintf("Exploit %s to gain initial access", v.ID),
		Vulnerabilities: []string{v.ID},
		MitreTechnique:  inferTechnique(v),
	}}
	seen := map[string]bool{steps[0].Description: true}
	for _, ps := range progression(v) {
		if seen[ps.description] {
			continue
		}
		seen[ps.description] = true
		step := model.AttackStep{Description: ps.description, Vulnerabilities: []string{v.ID}}
		if ps.technique != "" {
			step.MitreTechnique = model.String(ps.technique)
		}
		steps = append(steps, step)
	}

	return model.AttackPath{
		EntryPoint:  entry,
		Steps:       steps,
		Impact:      Impact(v),
		Likelihood:  LikelihoodLabel(Likelihood(v)),
		Mitigations: Mitigations(v),
	}
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
