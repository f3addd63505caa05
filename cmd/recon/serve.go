/*
 * @author: Sun977
 * @date: 2026.01.21
 * @description: Serve 模式子命令 (HTTP API)
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"neorecon/internal/app/bootstrap"
	"neorecon/internal/app/server"
	"neorecon/internal/app/server/router"
	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

func newServeCmd(env *bootstrap.Env) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API 服务",
		Long: `以守护进程方式启动 HTTP API，对外提供扫描、结果查询与 CVE 查询接口。

命令行参数优先级高于配置文件；指定 --config 时监听配置文件变化并热加载日志配置。

示例:
  neorecon serve --config configs/config.yaml --port 8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env.Config
			if host != "" {
				cfg.Server.Host = host
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			// serve 模式按配置文件初始化日志，覆盖 CLI 默认日志
			if err := env.InitLogger(); err != nil {
				return err
			}
			if err := env.ApplyDialer(0); err != nil {
				return err
			}

			engine, err := env.Engine()
			if err != nil {
				return err
			}
			repo, err := env.Repository()
			if err != nil {
				return err
			}

			if env.ConfigFile != "" {
				watcher, err := watchConfig(env)
				if err != nil {
					logger.LogError(err, "ConfigWatcher", nil)
				} else {
					defer watcher.Stop()
				}
			}

			app := server.NewApp(cfg.Server, router.Deps{
				Scanner: engine,
				Results: repo,
				CVE:     engine.Detectors,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "[*] NeoRecon API listening on %s\n", cfg.Server.Addr())
			if err := app.Run(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "[*] NeoRecon server stopped.")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&host, "host", "", "监听地址 (默认读取 server.host)")
	flags.IntVar(&port, "port", 0, "监听端口 (默认读取 server.port)")
	return cmd
}

// watchConfig 配置文件变化时热加载日志配置
func watchConfig(env *bootstrap.Env) (*config.ConfigWatcher, error) {
	watcher, err := config.NewConfigWatcher(env.ConfigFile, env.Config)
	if err != nil {
		return nil, err
	}
	watcher.OnError(func(err error) {
		logger.LogError(err, "ConfigWatcher", map[string]interface{}{"file": env.ConfigFile})
	})
	watcher.AddCallback(func(oldCfg, newCfg *config.Config) error {
		if env.Logger == nil {
			return nil
		}
		if err := env.Logger.UpdateConfig(newCfg.Log); err != nil {
			return err
		}
		logger.LogSystemEvent("ConfigWatcher", "reload", "log config reloaded", logger.InfoLevel, nil)
		return nil
	})
	if err := watcher.Start(); err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	return watcher, nil
}
