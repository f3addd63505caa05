package cve

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/core/reporter"
)

// NewCVECmd 创建 cve 父命令
func NewCVECmd(env *bootstrap.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cve",
		Short: "漏洞情报查询",
	}
	cmd.AddCommand(newLookupCmd(env))
	return cmd
}

func newLookupCmd(env *bootstrap.Env) *cobra.Command {
	opts := &options.CVELookupOptions{Output: options.OutputOptions{Format: model.FormatText}}

	cmd := &cobra.Command{
		Use:   "lookup <CVE-ID>...",
		Short: "查询 CVE 详情",
		Long: `按检测器注册顺序查询 CVE 详情 (NVD、MITRE、CIRCL 查询链，ICS 公告)，并补充 exploit-db、CISA KEV 与 ATT&CK 映射。
--format JSON 时输出 JSON，-o 指定时写入文件。`,
		Example: `  neorecon cve lookup CVE-2021-44228 CVE-2014-0160
  neorecon cve lookup cve-2021-41773 --format JSON -o cve.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.IDs = args
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := env.ApplyDialer(0); err != nil {
				return err
			}
			engine, err := env.Engine()
			if err != nil {
				return err
			}

			var found []model.Vulnerability
			for _, id := range opts.IDs {
				v, ok := engine.Detectors.Lookup(cmd.Context(), id)
				if !ok {
					pterm.Warning.Printfln("%s: no information found", id)
					continue
				}
				found = append(found, *v)
			}

			if opts.Output.Format == model.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), opts.Output.Path, found)
			}
			return reporter.NewConsoleReporter(cmd.OutOrStdout()).PrintVulnerabilities(found)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Output.Format, "format", "f", opts.Output.Format, "输出格式 TEXT|JSON")
	flags.StringVarP(&opts.Output.Path, "output", "o", "", "JSON 输出文件路径 (默认标准输出)")
	return cmd
}

// writeJSON path 为空时写到 stdout
func writeJSON(stdout io.Writer, path string, vulns []model.Vulnerability) error {
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(vulns)
}
