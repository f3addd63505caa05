/**
 * 漏洞汇总
 * @author: sun977
 * @date: 2025.11.12
 * @description: 单主机漏洞按严重等级、分类、攻击向量、ATT&CK 战术汇总，计算风险评分并给出修复建议
 */
package summary

import (
	"fmt"
	"math"
	"strings"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

const (
	maxRecommendations = 5
	// 在野利用与公开 EXP 的加分上限
	maxModifier = 2.0
)

// 严重等级权重
var weights = map[string]float64{
	model.SeverityCritical: 10,
	model.SeverityHigh:     7,
	model.SeverityMedium:   4,
	model.SeverityLow:      1,
}

// categoryAdvice 分类通用建议，未列出的分类使用 defaultAdvice
var categoryAdvice = map[string]string{
	vuln.CategoryInjection:     "Use parameterized queries and validate all untrusted input",
	vuln.CategoryXSS:           "Encode output and deploy a Content Security Policy",
	vuln.CategoryAuth:          "Enforce strong unique credentials and multi-factor authentication",
	vuln.CategoryRCE:           "Restrict exposure of services vulnerable to remote code execution",
	vuln.CategoryOT:            "Segment OT/ICS networks and restrict industrial protocol access",
	vuln.CategoryMisconfigured: "Disable anonymous access and review service configuration",
	vuln.CategoryWebServer:     "Keep web server software up to date",
	vuln.CategoryDisclosure:    "Remove version banners and verbose error output",
}

const defaultAdvice = "Apply security patches and updates regularly"

// Bucket 返回归一化严重等级 (CRITICAL/HIGH/MEDIUM/LOW)，无法判断时返回空串
// 严重等级不区分大小写，MODERATE 视为 MEDIUM；缺失时按 CVSS 阈值回退
func Bucket(v model.Vulnerability) string {
	switch strings.ToUpper(strings.TrimSpace(v.SeverityLabel())) {
	case model.SeverityCritical:
		return model.SeverityCritical
	case model.SeverityHigh:
		return model.SeverityHigh
	case model.SeverityMedium, "MODERATE":
		return model.SeverityMedium
	case model.SeverityLow:
		return model.SeverityLow
	}
	if v.CVSSScore == nil {
		return ""
	}
	switch cvss := *v.CVSSScore; {
	case cvss >= 9.0:
		return model.SeverityCritical
	case cvss >= 7.0:
		return model.SeverityHigh
	case cvss >= 4.0:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// Summarize 汇总漏洞列表；每次扫描重新计算，不修改输入
func Summarize(vulns []model.Vulnerability) *model.VulnerabilitySummary {
	s := &model.VulnerabilitySummary{
		Total:         len(vulns),
		Categories:    make(map[string]int),
		AttackVectors: make(map[string]int),
		MitreTactics:  make(map[string]int),
	}

	var weighted float64
	for _, v := range vulns {
		bucket := Bucket(v)
		switch bucket {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityHigh:
			s.High++
		case model.SeverityMedium:
			s.Medium++
		case model.SeverityLow:
			s.Low++
		default:
			s.Unknown++
		}
		weighted += weights[bucket]

		if v.IsActivelyExploited() {
			s.ActivelyExploited++
		}
		if v.HasExploit() {
			s.ExploitAvailable++
		}
		if c := v.CategoryLabel(); c != "" {
			s.Categories[c]++
		}
		if av := v.VectorLabel(); av != "" {
			s.AttackVectors[av]++
		}
		for _, t := range v.MitreTactics {
			s.MitreTactics[t]++
		}
	}

	if rated := s.Critical + s.High + s.Medium + s.Low; rated > 0 {
		s.WeightedScore = round1(weighted / float64(rated))
		s.RiskScore = RiskScore(weighted/float64(rated), s.ActivelyExploited, s.ExploitAvailable)
	}
	s.Recommendations = recommendations(vulns)
	return s
}

// RiskScore 加权分 + 利用情况加分，封顶 10，保留一位小数
func RiskScore(weighted float64, exploited, withExploit int) float64 {
	modifier := 0.5*float64(exploited) + 0.25*float64(withExploit)
	if modifier > maxModifier {
		modifier = maxModifier
	}
	return round1(math.Min(10, weighted+modifier))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// recommendations 在野利用 > 高危缓解措施 > 分类建议，去重后最多 5 条
func recommendations(vulns []model.Vulnerability) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(r string) bool {
		if r == "" || seen[r] {
			return len(out) < maxRecommendations
		}
		seen[r] = true
		out = append(out, r)
		return len(out) < maxRecommendations
	}

	for _, v := range vulns {
		if v.IsActivelyExploited() && !add(fmt.Sprintf("Patch actively exploited %s immediately", v.ID)) {
			return out
		}
	}
	for _, v := range vulns {
		b := Bucket(v)
		if (b == model.SeverityCritical || b == model.SeverityHigh) && v.Mitigation != nil {
			if !add(*v.Mitigation) {
				return out
			}
		}
	}
	for _, v := range vulns {
		advice, ok := categoryAdvice[v.CategoryLabel()]
		if !ok {
			advice = defaultAdvice
		}
		if !add(advice) {
			return out
		}
	}
	return out
}
