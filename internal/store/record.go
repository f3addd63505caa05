package store

import (
	"encoding/json"
	"fmt"
	"time"

	"neorecon/internal/core/model"
)

// ScanRecord 单主机扫描结果行
// 完整结果以 JSON 保存在 Payload 中，其余列用于检索与列表展示
type ScanRecord struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement;comment:主键ID"`
	ScanID    string    `json:"scan_id" gorm:"type:varchar(36);index;not null;comment:扫描批次ID"`
	Host      string    `json:"host" gorm:"type:varchar(64);index;not null;comment:主机IP"`
	Hostname  string    `json:"hostname" gorm:"type:varchar(255);comment:主机名"`
	IsOnline  bool      `json:"is_online" gorm:"comment:是否在线"`
	OpenPorts int       `json:"open_ports" gorm:"comment:开放端口数"`
	VulnCount int       `json:"vuln_count" gorm:"comment:漏洞数"`
	RiskScore float64   `json:"risk_score" gorm:"comment:风险评分"`
	ScanTime  string    `json:"scan_time" gorm:"type:varchar(32);comment:扫描时间"`
	Payload   string    `json:"-" gorm:"type:longtext;comment:完整结果JSON"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime;comment:更新时间"`
}

// TableName 结果表名
func (ScanRecord) TableName() string {
	return "recon_scan_results"
}

// ScanBatch 扫描批次，没有主机结果的扫描也有一行
type ScanBatch struct {
	ScanID    string    `json:"scan_id" gorm:"type:varchar(36);primaryKey;comment:扫描批次ID"`
	Hosts     int       `json:"hosts" gorm:"not null;default:0;comment:主机结果数"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;comment:创建时间"`
}

// TableName 批次表名
func (ScanBatch) TableName() string {
	return "recon_scan_batches"
}

// NewScanRecord 由扫描结果构建记录
func NewScanRecord(r model.ScanResult) (*ScanRecord, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode scan result %s: %w", r.Host, err)
	}
	rec := &ScanRecord{
		ScanID:    r.ScanID,
		Host:      r.Host,
		Hostname:  r.Hostname,
		IsOnline:  r.IsOnline,
		OpenPorts: len(r.OpenPorts),
		VulnCount: r.VulnerabilityCount(),
		ScanTime:  r.ScanTime,
		Payload:   string(payload),
	}
	if r.Summary != nil {
		rec.RiskScore = r.Summary.RiskScore
	}
	return rec, nil
}

// Result 还原扫描结果
func (r *ScanRecord) Result() (model.ScanResult, error) {
	var res model.ScanResult
	if err := json.Unmarshal([]byte(r.Payload), &res); err != nil {
		return res, fmt.Errorf("decode scan record %d: %w", r.ID, err)
	}
	return res, nil
}
