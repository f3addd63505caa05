package scan

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

func newDiscoverCmd(env *bootstrap.Env) *cobra.Command {
	opts := options.NewDiscoverOptions()

	cmd := &cobra.Command{
		Use:     "discover",
		Short:   "主机发现",
		Long:    "对目标网段执行存活探测 (ICMP + TCP 回退)，输出在线主机与主机名。",
		Example: `  neorecon scan discover -t 192.168.1.0/24 --threads 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			engine, err := prepareEngine(env, opts.TimeoutMs)
			if err != nil {
				return err
			}

			pterm.Info.Printfln("Discovering hosts in %s", opts.Target)
			var hosts []model.HostInfo
			spin(cmd.Context(), "Discovering hosts ...", func(ctx context.Context) {
				hosts = engine.DiscoverHosts(ctx, opts.Target, opts.ToConfig())
			})
			return consoleReporter(cmd).PrintHosts(hosts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", "", "扫描目标 (IP/CIDR/Range)")
	flags.IntVar(&opts.Threads, "threads", opts.Threads, "并发数")
	flags.IntVar(&opts.TimeoutMs, "timeout", opts.TimeoutMs, "探测超时 (毫秒)")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
