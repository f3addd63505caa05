package reporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出

	"neorecon/internal/core/model"
)

// ConsoleReporter 控制台输出
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter w 为空时输出到 stdout
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{w: w}
}

// Report 实现 Reporter
func (r *ConsoleReporter) Report(_ context.Context, results []model.ScanResult) error {
	return r.PrintResults(results)
}

// PrintResults 端口总表 + 每台主机的漏洞明细、风险汇总与攻击路径
func (r *ConsoleReporter) PrintResults(results []model.ScanResult) error {
	if len(results) == 0 {
		pterm.Fprintln(r.w, pterm.FgYellow.Sprint("No hosts with open ports found."))
		return nil
	}

	if err := r.PrintTable(model.ScanResults(results)); err != nil {
		return err
	}

	for _, res := range results {
		if res.VulnerabilityCount() == 0 && res.Summary == nil {
			continue
		}
		title := res.Host
		if res.Hostname != res.Host {
			title = fmt.Sprintf("%s (%s)", res.Hostname, res.Host)
		}
		pterm.Fprintln(r.w, "")
		pterm.Fprintln(r.w, pterm.Bold.Sprint("# "+title))

		var rows [][]string
		var headers []string
		for _, p := range res.OpenPorts {
			for _, v := range p.Vulnerabilities {
				if headers == nil {
					headers = append([]string{"Port"}, v.Headers()...)
				}
				for _, row := range v.Rows() {
					rows = append(rows, append([]string{fmt.Sprintf("%d", p.Port)}, row...))
				}
			}
		}
		if err := r.printTableFromData(headers, rows); err != nil {
			return err
		}

		if s := res.Summary; s != nil {
			pterm.Fprintln(r.w, fmt.Sprintf("Risk score: %s  (critical %d, high %d, medium %d, low %d, unknown %d)",
				riskColor(s.RiskScore).Sprintf("%.1f", s.RiskScore), s.Critical, s.High, s.Medium, s.Low, s.Unknown))
			for _, rec := range s.Recommendations {
				pterm.Fprintln(r.w, "  - "+rec)
			}
		}
		if len(res.AttackPaths) > 0 {
			if err := r.PrintTable(model.AttackPaths(res.AttackPaths)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintHosts 主机发现结果
func (r *ConsoleReporter) PrintHosts(hosts []model.HostInfo) error {
	if len(hosts) == 0 {
		pterm.Fprintln(r.w, pterm.FgYellow.Sprint("No live hosts found."))
		return nil
	}
	var rows [][]string
	for _, h := range hosts {
		rows = append(rows, h.Rows()...)
	}
	return r.printTableFromData(model.HostInfo{}.Headers(), rows)
}

// PrintVulnerabilities 单条或多条漏洞记录 (cve lookup / scan check)
func (r *ConsoleReporter) PrintVulnerabilities(vulns []model.Vulnerability) error {
	if len(vulns) == 0 {
		pterm.Fprintln(r.w, pterm.FgYellow.Sprint("No vulnerability information found."))
		return nil
	}
	var rows [][]string
	for _, v := range vulns {
		rows = append(rows, v.Rows()...)
	}
	if err := r.printTableFromData(model.Vulnerability{}.Headers(), rows); err != nil {
		return err
	}
	for _, v := range vulns {
		if v.Mitigation != nil {
			pterm.Fprintln(r.w, fmt.Sprintf("%s mitigation: %s", v.ID, *v.Mitigation))
		}
		for _, ref := range topReferences(v.References) {
			pterm.Fprintln(r.w, fmt.Sprintf("%s reference: %s", v.ID, ref))
		}
	}
	return nil
}

// PrintPorts 端口范围探测结果
func (r *ConsoleReporter) PrintPorts(host string, ports []int) error {
	if len(ports) == 0 {
		pterm.Fprintln(r.w, pterm.FgYellow.Sprint("No open ports found on "+host+"."))
		return nil
	}
	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, []string{host, fmt.Sprintf("%d", p)})
	}
	return r.printTableFromData([]string{"Host", "Port"}, rows)
}

// PrintTable 渲染任意 TabularData
func (r *ConsoleReporter) PrintTable(data TabularData) error {
	return r.printTableFromData(data.Headers(), data.Rows())
}

func (r *ConsoleReporter) printTableFromData(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	// 使用 pterm 渲染表格
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false). // 简洁风格
		WithData(tableData).
		WithWriter(r.w).
		Render()

	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func riskColor(score float64) pterm.Color {
	switch {
	case score >= 9:
		return pterm.FgRed
	case score >= 7:
		return pterm.FgLightRed
	case score >= 4:
		return pterm.FgYellow
	default:
		return pterm.FgGreen
	}
}
