package model

import (
	"strings"
)

// AttackStep 攻击路径中的一步
type AttackStep struct {
	Description     string   `json:"description"`
	Vulnerabilities []string `json:"vulnerabilities"`
	MitreTechnique  *string  `json:"mitre_technique,omitempty"`
}

// AttackPath 由漏洞列表推导出的攻击叙事
type AttackPath struct {
	EntryPoint  string       `json:"entry_point"`
	Steps       []AttackStep `json:"steps"`
	Impact      string       `json:"impact"`
	Likelihood  string       `json:"likelihood"`
	Mitigations []string     `json:"mitigations"`
}

// VulnerabilitySummary 单主机漏洞汇总，每次扫描重新计算
type VulnerabilitySummary struct {
	Total             int            `json:"total"`
	Critical          int            `json:"critical"`
	High              int            `json:"high"`
	Medium            int            `json:"medium"`
	Low               int            `json:"low"`
	Unknown           int            `json:"unknown"`
	ActivelyExploited int            `json:"actively_exploited"`
	ExploitAvailable  int            `json:"exploit_available"`
	WeightedScore     float64        `json:"weighted_score"`
	RiskScore         float64        `json:"overall_risk_score"`
	Recommendations   []string       `json:"recommendations"`
	Categories        map[string]int `json:"categories"`
	AttackVectors     map[string]int `json:"attack_vectors"`
	MitreTactics      map[string]int `json:"mitre_tactics"`
}

// AttackPaths 结果集合，用于实现 TabularData 接口
type AttackPaths []AttackPath

// Headers 实现 TabularData 接口
func (ps AttackPaths) Headers() []string {
	return []string{"Entry Point", "Steps", "Likelihood", "Impact"}
}

// Rows 实现 TabularData 接口
func (ps AttackPaths) Rows() [][]string {
	var rows [][]string
	for _, p := range ps {
		steps := make([]string, 0, len(p.Steps))
		for _, s := range p.Steps {
			steps = append(steps, s.Description)
		}
		rows = append(rows, []string{p.EntryPoint, strings.Join(steps, " -> "), p.Likelihood, p.Impact})
	}
	return rows
}
