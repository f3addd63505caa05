package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// 严重等级标签，最高等级为 SeverityCritical
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
)

// Vulnerability 漏洞记录
// 除 ID/Description 外的字段都是可选的，由关联流水线的各个阶段逐步填充
type Vulnerability struct {
	ID                string   `json:"id"`
	Description       string   `json:"description"`
	Severity          *string  `json:"severity,omitempty"`
	CVSSScore         *float64 `json:"cvss_score,omitempty"`
	References        []string `json:"references,omitempty"`
	ActivelyExploited *bool    `json:"actively_exploited,omitempty"`
	ExploitAvailable  *bool    `json:"exploit_available,omitempty"`
	Mitigation        *string  `json:"mitigation,omitempty"`
	Category          *string  `json:"category,omitempty"`
	CWEID             *string  `json:"cwe_id,omitempty"`
	AttackVector      *string  `json:"attack_vector,omitempty"`
	MitreTactics      []string `json:"mitre_tactics,omitempty"`
	MitreTechniques   []string `json:"mitre_techniques,omitempty"`
}

// Clone 深拷贝，缓存读写都通过副本进行，避免共享指针被并发修改
func (v Vulnerability) Clone() Vulnerability {
	cp := v
	cp.Severity = cloneString(v.Severity)
	cp.CVSSScore = cloneFloat(v.CVSSScore)
	cp.ActivelyExploited = cloneBool(v.ActivelyExploited)
	cp.ExploitAvailable = cloneBool(v.ExploitAvailable)
	cp.Mitigation = cloneString(v.Mitigation)
	cp.Category = cloneString(v.Category)
	cp.CWEID = cloneString(v.CWEID)
	cp.AttackVector = cloneString(v.AttackVector)
	cp.References = cloneSlice(v.References)
	cp.MitreTactics = cloneSlice(v.MitreTactics)
	cp.MitreTechniques = cloneSlice(v.MitreTechniques)
	return cp
}

// SeverityLabel 返回严重等级，未设置时返回空串
func (v Vulnerability) SeverityLabel() string {
	if v.Severity == nil {
		return ""
	}
	return *v.Severity
}

// Score 返回 CVSS 分数，未设置时视为 0
func (v Vulnerability) Score() float64 {
	if v.CVSSScore == nil {
		return 0
	}
	return *v.CVSSScore
}

func (v Vulnerability) IsActivelyExploited() bool {
	return v.ActivelyExploited != nil && *v.ActivelyExploited
}

func (v Vulnerability) HasExploit() bool {
	return v.ExploitAvailable != nil && *v.ExploitAvailable
}

// CategoryLabel 返回分类，未设置时返回空串
func (v Vulnerability) CategoryLabel() string {
	if v.Category == nil {
		return ""
	}
	return *v.Category
}

// VectorLabel 返回攻击向量，未设置时返回空串
func (v Vulnerability) VectorLabel() string {
	if v.AttackVector == nil {
		return ""
	}
	return *v.AttackVector
}

// Headers 实现 TabularData 接口
func (v Vulnerability) Headers() []string {
	return []string{"ID", "Severity", "CVSS", "Category", "Description"}
}

// Rows 实现 TabularData 接口
func (v Vulnerability) Rows() [][]string {
	cvss := "N/A"
	if v.CVSSScore != nil {
		cvss = fmt.Sprintf("%.1f", *v.CVSSScore)
	}
	sev := v.SeverityLabel()
	if sev == "" {
		sev = "N/A"
	}
	return [][]string{{v.ID, strings.ToUpper(sev), cvss, v.CategoryLabel(), Truncate(v.Description, 80)}}
}

// Truncate 超过 limit 个字符时截断并以 "..." 结尾，按字符而不是字节计数
func Truncate(s string, limit int) string {
	if limit <= 3 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit-3 {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// String 指针辅助函数，构造可选字段时使用
func String(s string) *string { return &s }

// Float 指针辅助函数
func Float(f float64) *float64 { return &f }

// Bool 指针辅助函数
func Bool(b bool) *bool { return &b }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	f := *p
	return &f
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	b := *p
	return &b
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
