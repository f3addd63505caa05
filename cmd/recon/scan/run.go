package scan

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/core/reporter"
)

var runUsage = map[model.ScanType]struct {
	use, short, long, example string
}{
	model.ScanTypeFull: {
		use:   "run",
		short: "全流程扫描",
		long: `对目标执行完整流程: Target -> Alive -> Port -> Service -> Vuln -> Report。
支持单个 IP、CIDR、IP 范围与主机名；未指定端口时使用常用端口。`,
		example: `  neorecon scan run -t 192.168.1.0/24 -p 22,80,443,8000-8100
  neorecon scan run -t example.com --format HTML -o report.html --default-creds`,
	},
	model.ScanTypeQuick: {
		use:     "quick",
		short:   "单主机常用端口快速扫描",
		long:    "对单个主机扫描常用端口 (含工控端口)，流程与 run 相同。",
		example: `  neorecon scan quick -t 10.0.0.5`,
	},
	model.ScanTypeOT: {
		use:     "ot",
		short:   "单主机工控协议扫描",
		long:    "对单个主机扫描 Modbus/S7/BACnet/EtherNet-IP/DNP3 等工控协议端口。",
		example: `  neorecon scan ot -t 10.0.0.5 --format JSON`,
	},
}

// newRunCmd 创建 scan run / quick / ot 命令，三者共用参数
func newRunCmd(env *bootstrap.Env, output *options.OutputOptions, scanType model.ScanType) *cobra.Command {
	opts := options.NewScanRunOptions()
	opts.Type = scanType
	usage := runUsage[scanType]

	cmd := &cobra.Command{
		Use:     usage.use,
		Short:   usage.short,
		Long:    usage.long,
		Example: usage.example,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Output = *output
			if err := opts.Validate(); err != nil {
				return err
			}
			cfg := opts.ToConfig()

			engine, err := prepareEngine(env, opts.TimeoutMs)
			if err != nil {
				return err
			}

			pterm.Info.Printfln("Starting %s scan on %s (threads: %d, timeout: %s)", scanType, cfg.Target, cfg.Threads, cfg.Timeout)

			var (
				results []model.ScanResult
				scanErr error
			)
			spin(cmd.Context(), "Scanning "+cfg.Target+" ...", func(ctx context.Context) {
				switch scanType {
				case model.ScanTypeQuick:
					results = []model.ScanResult{engine.QuickScan(ctx, cfg.Target, cfg)}
				case model.ScanTypeOT:
					results = []model.ScanResult{engine.OTScan(ctx, cfg.Target, cfg)}
				default:
					results, scanErr = engine.Scan(ctx, cfg)
				}
			})
			if scanErr != nil {
				return scanErr
			}

			file := reporter.NewFileReporter(opts.Output)
			if err := reporter.NewMultiReporter(consoleReporter(cmd), file).Report(cmd.Context(), results); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+] Report saved to %s\n", file.Path())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", "", "扫描目标 (IP/CIDR/Range/Domain)")
	if scanType == model.ScanTypeFull {
		flags.StringVarP(&opts.Ports, "ports", "p", "", "端口列表 (e.g. 22,80,1-1000)，默认常用端口")
	}
	flags.IntVar(&opts.Threads, "threads", opts.Threads, "并发数")
	flags.IntVar(&opts.TimeoutMs, "timeout", opts.TimeoutMs, "单次连接超时 (毫秒)")
	flags.BoolVar(&opts.Randomize, "randomize", false, "随机化主机与端口顺序")
	flags.BoolVar(&opts.Verbose, "verbose", false, "输出详细信息")
	flags.BoolVar(&opts.Offline, "offline", false, "离线模式，只使用内置签名")
	flags.BoolVar(&opts.ScanOffline, "scan-offline", false, "对未响应存活探测的主机同样扫描端口")
	flags.BoolVar(&opts.NoEnhanced, "no-enhanced", false, "关闭增强服务检测")
	flags.BoolVar(&opts.NoAttackSurface, "no-attack-surface", false, "关闭攻击面评估")
	flags.BoolVar(&opts.NoMisconfig, "no-misconfig", false, "关闭错误配置检测")
	flags.BoolVar(&opts.DefaultCreds, "default-creds", false, "启用默认口令检测")
	flags.BoolVar(&opts.NoMitre, "no-mitre", false, "关闭 MITRE ATT&CK 映射")
	flags.BoolVar(&opts.NoAttackPath, "no-attack-path", false, "关闭攻击路径分析")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
