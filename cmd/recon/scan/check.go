package scan

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

func newCheckCmd(env *bootstrap.Env) *cobra.Command {
	opts := options.NewCheckOptions()

	cmd := &cobra.Command{
		Use:     "check",
		Short:   "验证单个端口是否受指定漏洞影响",
		Long:    "抓取目标端口 banner 并与指定漏洞 ID 关联，判断该服务是否受影响。",
		Example: `  neorecon scan check -t 10.0.0.5 --port 22 --id CVE-2020-14145`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			engine, err := prepareEngine(env, opts.TimeoutMs)
			if err != nil {
				return err
			}

			v, ok := engine.CheckVulnerability(cmd.Context(), opts.Target, opts.Port, opts.VulnID, opts.ToConfig())
			if !ok {
				pterm.Success.Printfln("%s:%d does not appear to be affected by %s", opts.Target, opts.Port, opts.VulnID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[!] %s:%d is affected by %s\n", opts.Target, opts.Port, v.ID)
			return consoleReporter(cmd).PrintVulnerabilities([]model.Vulnerability{*v})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", "", "目标主机 (IP/Domain)")
	flags.IntVar(&opts.Port, "port", 0, "目标端口")
	flags.StringVar(&opts.VulnID, "id", "", "漏洞 ID (e.g. CVE-2021-44228)")
	flags.IntVar(&opts.TimeoutMs, "timeout", opts.TimeoutMs, "连接超时 (毫秒)")
	flags.BoolVar(&opts.Offline, "offline", false, "离线模式，只使用内置签名")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
