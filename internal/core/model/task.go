/**
 * 扫描任务模型定义 (Core Domain)
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 核心扫描配置模型，CLI / HTTP API 最终都转换为 ScanConfig 交给编排器执行。
 */

package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanType 定义扫描类型
type ScanType string

const (
	ScanTypeFull     ScanType = "full"     // 完整扫描 (端口列表或常用端口)
	ScanTypeQuick    ScanType = "quick"    // 快速扫描 (常用端口)
	ScanTypeOT       ScanType = "ot"       // 工控协议端口扫描
	ScanTypeRange    ScanType = "range"    // 端口区间扫描
	ScanTypeDiscover ScanType = "discover" // 主机发现
)

// 输出格式
const (
	FormatText = "TEXT"
	FormatHTML = "HTML"
	FormatJSON = "JSON"
)

// ScanConfig 扫描配置
// 构建后不可变；子扫描 (quick/ot) 通过 WithPorts 克隆并只覆盖端口列表
type ScanConfig struct {
	ID      string        `json:"id"`
	Type    ScanType      `json:"type"`
	Target  string        `json:"target"`          // IP / 域名 / CIDR / A-B 区间
	Ports   []int         `json:"ports,omitempty"` // 为空时使用常用端口表
	Threads int           `json:"threads"`         // 并发度 1-1000
	Timeout time.Duration `json:"timeout"`         // 单次网络操作超时

	Randomize        bool `json:"randomize"`
	Verbose          bool `json:"verbose"`
	OfflineMode      bool `json:"offline_mode"`       // 禁止访问在线漏洞情报源
	ScanOfflineHosts bool `json:"scan_offline_hosts"` // 对不响应存活探测的主机依然扫描

	EnhancedDetection      bool `json:"enhanced_detection"`
	AssessAttackSurface    bool `json:"assess_attack_surface"`
	CheckMisconfigurations bool `json:"check_misconfigurations"`
	CheckDefaultCreds      bool `json:"check_default_credentials"`
	MitreMapping           bool `json:"mitre_mapping"`
	AttackPathAnalysis     bool `json:"attack_path_analysis"`

	OutputFormat string    `json:"output_format"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewScanConfig 创建一个带默认值的扫描配置
func NewScanConfig(target string) *ScanConfig {
	return &ScanConfig{
		ID:                     uuid.NewString(),
		Type:                   ScanTypeFull,
		Target:                 target,
		Threads:                10,
		Timeout:                time.Second,
		EnhancedDetection:      true,
		AssessAttackSurface:    true,
		CheckMisconfigurations: true,
		MitreMapping:           true,
		AttackPathAnalysis:     true,
		OutputFormat:           FormatText,
		CreatedAt:              time.Now(),
	}
}

// Clone 深拷贝配置
func (c *ScanConfig) Clone() *ScanConfig {
	cp := *c
	if c.Ports != nil {
		cp.Ports = append([]int(nil), c.Ports...)
	}
	return &cp
}

// WithPorts 返回只替换端口列表的副本
func (c *ScanConfig) WithPorts(ports []int) *ScanConfig {
	cp := c.Clone()
	cp.Ports = append([]int(nil), ports...)
	return cp
}

// OnlineLookup 是否允许访问在线情报源
func (c *ScanConfig) OnlineLookup() bool {
	return !c.OfflineMode
}
