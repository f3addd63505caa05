package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

const textWidth = 80

// RenderText 纯文本报告
func RenderText(w io.Writer, results []model.ScanResult, generated time.Time) error {
	tw := &textWriter{w: w}
	rule := strings.Repeat("=", textWidth)

	tw.line(rule)
	tw.line(center("NETWORK VULNERABILITY SCAN REPORT", textWidth))
	tw.line(center(model.FormatScanTime(generated), textWidth))
	tw.line(rule)
	tw.line("")

	c := countSeverities(results)
	tw.line("SUMMARY")
	tw.linef("Total hosts scanned: %d", c.Hosts)
	tw.linef("Total open ports found: %d", c.Ports)
	tw.linef("Total potential vulnerabilities detected: %d", c.Total)
	tw.line("")

	tw.line("DETAILED RESULTS")
	tw.line("")
	for _, r := range results {
		tw.line(strings.Repeat("-", textWidth))
		if r.Hostname != r.Host {
			tw.linef("Host: %s (%s)", r.Hostname, r.Host)
		} else {
			tw.linef("Host: %s", r.Host)
		}
		tw.linef("Scan Time: %s", r.ScanTime)
		if r.OSInfo != nil {
			tw.linef("OS: %s", *r.OSInfo)
		}
		tw.linef("Open Ports: %d", len(r.OpenPorts))
		tw.line("")

		for _, p := range r.OpenPorts {
			tw.linef("  Port: %d (%s)", p.Port, p.Service)
			tw.linef("  Banner: %s", p.Banner)
			if len(p.Vulnerabilities) == 0 {
				tw.line("  No known vulnerabilities detected")
				tw.line("")
				continue
			}
			tw.line("  Potential Vulnerabilities:")
			for _, v := range p.Vulnerabilities {
				tw.linef("    - %s%s: %s", v.ID, severityInfo(v), v.Description)
				if refs := topReferences(v.References); len(refs) > 0 {
					tw.line("      References:")
					for _, ref := range refs {
						tw.linef("        %s", ref)
					}
				}
			}
			tw.line("")
		}

		if s := r.Summary; s != nil {
			tw.linef("  Risk Score: %.1f (weighted %.1f)", s.RiskScore, s.WeightedScore)
			tw.linef("  Critical: %d  High: %d  Medium: %d  Low: %d  Unknown: %d", s.Critical, s.High, s.Medium, s.Low, s.Unknown)
			for _, rec := range s.Recommendations {
				tw.linef("  * %s", rec)
			}
			tw.line("")
		}
		for i, ap := range r.AttackPaths {
			tw.linef("  Attack Path %d: %s [%s]", i+1, ap.EntryPoint, ap.Likelihood)
			for j, step := range ap.Steps {
				technique := ""
				if step.MitreTechnique != nil {
					technique = " (" + *step.MitreTechnique + ")"
				}
				tw.linef("    %d. %s%s", j+1, step.Description, technique)
			}
			tw.linef("    Impact: %s", ap.Impact)
		}
		if len(r.AttackPaths) > 0 {
			tw.line("")
		}
	}

	tw.line(rule)
	tw.line("End of Report")
	tw.line(rule)
	return tw.err
}

// severityInfo " [HIGH] (CVSS: 7.5)"；严重等级缺失时为空
func severityInfo(v model.Vulnerability) string {
	if v.Severity == nil {
		return ""
	}
	if v.CVSSScore != nil {
		return fmt.Sprintf(" [%s] (CVSS: %.1f)", *v.Severity, *v.CVSSScore)
	}
	return fmt.Sprintf(" [%s]", *v.Severity)
}

func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// textWriter 记录第一个写错误，后续写入直接跳过
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, s+"\n")
}

func (t *textWriter) linef(format string, args ...interface{}) {
	t.line(fmt.Sprintf(format, args...))
}
