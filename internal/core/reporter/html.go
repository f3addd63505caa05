package reporter

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/version"
)

//go:embed templates/report.html
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"severityClass": severityClass,
	"references":    topReferences,
	"cvss":          cvss,
	"isURL":         isURL,
}).Parse(htmlSource))

type htmlReport struct {
	Generated string
	Version   string
	Counts    severityCounts
	Results   []model.ScanResult
}

// RenderHTML 带样式的单页 HTML 报告，所有字段经过模板转义
func RenderHTML(w io.Writer, results []model.ScanResult, generated time.Time) error {
	return htmlTemplate.Execute(w, htmlReport{
		Generated: model.FormatScanTime(generated),
		Version:   version.GetVersion(),
		Counts:    countSeverities(results),
		Results:   results,
	})
}

// cvss 未评分时返回空串
func cvss(v model.Vulnerability) string {
	if v.CVSSScore == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v.CVSSScore)
}

func severityClass(v model.Vulnerability) string {
	switch strings.ToLower(v.SeverityLabel()) {
	case "critical":
		return "critical-severity"
	case "high":
		return "high-severity"
	case "medium":
		return "medium-severity"
	case "low":
		return "low-severity"
	default:
		return "unknown-severity"
	}
}

// isURL 只有 http(s) 引用渲染为链接，其余 (如特征匹配说明) 按文本输出
func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
