package reporter

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/pkg/logger"
)

// FileReporter 将结果按指定格式写入文件
type FileReporter struct {
	opts options.OutputOptions
	now  func() time.Time
	path string
}

// NewFileReporter 创建文件输出；格式在这里归一化
func NewFileReporter(opts options.OutputOptions) *FileReporter {
	opts.Normalize()
	return &FileReporter{opts: opts, now: time.Now}
}

// Path 最近一次写入的文件路径
func (r *FileReporter) Path() string {
	return r.path
}

// Report 实现 Reporter
func (r *FileReporter) Report(_ context.Context, results []model.ScanResult) error {
	now := r.now()
	path := r.opts.Filename(now)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := RendererFor(r.opts.Format)(w, results, now); err != nil {
		return fmt.Errorf("render %s report: %w", r.opts.Format, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	r.path = path
	logger.LogSystemEvent("Reporter", "report_saved", "Report saved to "+path, logger.InfoLevel, map[string]interface{}{
		"format": r.opts.Format,
		"hosts":  len(results),
	})
	return nil
}
