package model

import (
	"fmt"
	"time"
)

// HostInfo 主机发现结果，生成后不再修改
type HostInfo struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	IsOnline bool   `json:"is_online"`
}

// Headers 实现 TabularData 接口
func (h HostInfo) Headers() []string {
	return []string{"IP", "Status", "Hostname"}
}

// Rows 实现 TabularData 接口
func (h HostInfo) Rows() [][]string {
	status := "DOWN"
	if h.IsOnline {
		status = "UP"
	}
	return [][]string{{h.IP, status, h.Hostname}}
}

// PortResult 单个开放端口的结果
type PortResult struct {
	Port            int             `json:"port"`
	Service         string          `json:"service"`
	Banner          string          `json:"banner"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// ScanResult 单主机扫描结果，交给报告模块输出
type ScanResult struct {
	ScanID      string                `json:"scan_id,omitempty"`
	Host        string                `json:"host"`
	Hostname    string                `json:"hostname"`
	IsOnline    bool                  `json:"is_online"`
	ScanTime    string                `json:"scan_time"`
	OpenPorts   []PortResult          `json:"open_ports"`
	OSInfo      *string               `json:"os_info,omitempty"`
	Summary     *VulnerabilitySummary `json:"vulnerability_summary,omitempty"`
	AttackPaths []AttackPath          `json:"attack_paths,omitempty"`
}

// VulnerabilityCount 汇总所有端口上的漏洞数
func (r ScanResult) VulnerabilityCount() int {
	n := 0
	for _, p := range r.OpenPorts {
		n += len(p.Vulnerabilities)
	}
	return n
}

// Headers 实现 TabularData 接口
// Host      | Port | Service | Vulns | Banner
// 127.0.0.1 | 22   | ssh     | 1     | SSH-2.0-OpenSSH_5.3
func (r ScanResult) Headers() []string {
	return []string{"Host", "Hostname", "Port", "Service", "Vulns", "Banner"}
}

// Rows 实现 TabularData 接口
func (r ScanResult) Rows() [][]string {
	var rows [][]string
	for _, p := range r.OpenPorts {
		banner := Truncate(p.Banner, 60)
		rows = append(rows, []string{
			r.Host,
			r.Hostname,
			fmt.Sprintf("%d", p.Port),
			p.Service,
			fmt.Sprintf("%d", len(p.Vulnerabilities)),
			banner,
		})
	}
	return rows
}

// ScanResults 结果集合，用于一次性打印所有主机
type ScanResults []ScanResult

// Headers 实现 TabularData 接口
func (rs ScanResults) Headers() []string {
	return ScanResult{}.Headers()
}

// Rows 实现 TabularData 接口
func (rs ScanResults) Rows() [][]string {
	var rows [][]string
	for _, r := range rs {
		rows = append(rows, r.Rows()...)
	}
	return rows
}

// FormatScanTime 扫描时间格式
func FormatScanTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
