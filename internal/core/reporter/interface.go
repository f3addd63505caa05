/**
 * 结果输出接口定义
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 扫描结果输出的通用接口，解耦 Console/File 输出。
 */

package reporter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// TabularData 是一个可以被渲染为表格的数据接口
// 任何想要在控制台漂亮打印的结果都应该实现此接口
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 定义结果输出的行为
type Reporter interface {
	// Report 输出一次扫描的全部主机结果
	Report(ctx context.Context, results []model.ScanResult) error
}

// Renderer 把结果渲染为某种文件格式
type Renderer func(w io.Writer, results []model.ScanResult, generated time.Time) error

// RendererFor 按格式选择渲染器，未知格式回退为 TEXT
func RendererFor(format string) Renderer {
	switch strings.ToUpper(format) {
	case model.FormatHTML:
		return RenderHTML
	case model.FormatJSON:
		return RenderJSON
	default:
		return RenderText
	}
}

// MultiReporter 支持同时向多个目标输出 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

// Report 依次调用所有 Reporter，单个失败不影响其余输出
func (m *MultiReporter) Report(ctx context.Context, results []model.ScanResult) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// severityCounts 按严重等级统计 (大小写不敏感，精确匹配)
type severityCounts struct {
	Hosts, Ports, Total              int
	Critical, High, Medium, Low, Unk int
}

func countSeverities(results []model.ScanResult) severityCounts {
	c := severityCounts{Hosts: len(results)}
	for _, r := range results {
		c.Ports += len(r.OpenPorts)
		for _, p := range r.OpenPorts {
			for _, v := range p.Vulnerabilities {
				c.Total++
				switch strings.ToLower(v.SeverityLabel()) {
				case "critical":
					c.Critical++
				case "high":
					c.High++
				case "medium":
					c.Medium++
				case "low":
					c.Low++
				default:
					c.Unk++
				}
			}
		}
	}
	return c
}

// 每条漏洞最多输出 3 条参考链接
const maxReferences = 3

func topReferences(refs []string) []string {
	if len(refs) > maxReferences {
		return refs[:maxReferences]
	}
	return refs
}
