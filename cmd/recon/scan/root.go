package scan

import (
	"context"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/core/pipeline"
	"neorecon/internal/core/reporter"
)

// NewScanCmd 创建 scan 父命令
func NewScanCmd(env *bootstrap.Env) *cobra.Command {
	output := &options.OutputOptions{Format: model.FormatText}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "执行扫描任务",
		Long: `执行各类扫描任务，如主机发现、端口探测、服务识别与漏洞关联。
请使用具体的子命令。`,
	}

	// 定义持久化 Flags (所有子命令都可用)
	pFlags := cmd.PersistentFlags()
	pFlags.StringVarP(&output.Format, "format", "f", output.Format, "报告格式 TEXT|HTML|JSON (未知格式按 TEXT 处理)")
	pFlags.StringVarP(&output.Path, "output", "o", "", "报告保存路径 (默认: scan_report_<时间>.<格式>)")

	// 注册子命令
	cmd.AddCommand(newRunCmd(env, output, model.ScanTypeFull))
	cmd.AddCommand(newRunCmd(env, output, model.ScanTypeQuick))
	cmd.AddCommand(newRunCmd(env, output, model.ScanTypeOT))
	cmd.AddCommand(newRangeCmd(env))
	cmd.AddCommand(newDiscoverCmd(env))
	cmd.AddCommand(newCheckCmd(env))

	return cmd
}

// prepareEngine 按本次超时设置拨号器后取引擎
func prepareEngine(env *bootstrap.Env, timeoutMs int) (*pipeline.Engine, error) {
	if err := env.ApplyDialer(time.Duration(timeoutMs) * time.Millisecond); err != nil {
		return nil, err
	}
	return env.Engine()
}

// spin 长耗时阶段的进度提示，结束后清除
func spin(ctx context.Context, text string, fn func(context.Context)) {
	spinner, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
	fn(ctx)
	if err == nil && spinner != nil {
		_ = spinner.Stop()
	}
}

func consoleReporter(cmd *cobra.Command) *reporter.ConsoleReporter {
	return reporter.NewConsoleReporter(cmd.OutOrStdout())
}
