package scan

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/options"
)

func newRangeCmd(env *bootstrap.Env) *cobra.Command {
	opts := options.NewRangeOptions()

	cmd := &cobra.Command{
		Use:     "range",
		Short:   "单主机端口区间探测",
		Long:    "探测单个主机连续端口区间的开放情况，不做服务识别与漏洞关联。",
		Example: `  neorecon scan range -t 10.0.0.5 --start 1 --end 65535 --threads 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			engine, err := prepareEngine(env, opts.TimeoutMs)
			if err != nil {
				return err
			}

			pterm.Info.Printfln("Probing %s ports %d-%d", opts.Target, opts.Start, opts.End)
			var open []int
			spin(cmd.Context(), "Probing ports ...", func(ctx context.Context) {
				open = engine.ScanPortRange(ctx, opts.Target, opts.Start, opts.End, opts.ToConfig())
			})
			return consoleReporter(cmd).PrintPorts(opts.Target, open)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", "", "目标主机 (IP/Domain)")
	flags.IntVar(&opts.Start, "start", opts.Start, "起始端口")
	flags.IntVar(&opts.End, "end", opts.End, "结束端口")
	flags.IntVar(&opts.Threads, "threads", opts.Threads, "并发数")
	flags.IntVar(&opts.TimeoutMs, "timeout", opts.TimeoutMs, "单次连接超时 (毫秒)")
	flags.BoolVar(&opts.Randomize, "randomize", false, "随机化端口顺序")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
