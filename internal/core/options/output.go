package options

import (
	"fmt"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// OutputOptions 定义结果输出的通用参数
type OutputOptions struct {
	Format string // -f, --format TEXT|HTML|JSON
	Path   string // -o, --output
}

// Normalize 未知格式回退为 TEXT
func (o *OutputOptions) Normalize() {
	o.Format = strings.ToUpper(strings.TrimSpace(o.Format))
	switch o.Format {
	case model.FormatText, model.FormatHTML, model.FormatJSON:
	default:
		o.Format = model.FormatText
	}
}

// Filename 未指定输出路径时使用 scan_report_<YYYYmmdd_HHMMSS>.<ext>
func (o *OutputOptions) Filename(now time.Time) string {
	if o.Path != "" {
		return o.Path
	}
	return DefaultFilename(o.Format, now)
}

// DefaultFilename 默认报告文件名
func DefaultFilename(format string, now time.Time) string {
	return fmt.Sprintf("scan_report_%s.%s", now.Format("20060102_150405"), strings.ToLower(format))
}
