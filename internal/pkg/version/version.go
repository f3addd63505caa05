// 版本信息，发布时通过 -ldflags "-X neorecon/internal/pkg/version.GitCommit=..." 注入

package version

import "runtime"

var (
	Version    = "1.0.0" // 版本号 -- 发布时候更新版本号
	APIVersion = "v1"
	BuildTime  string
	GitCommit  string
)

// Info 版本详情 (`version` 子命令与 /version 接口共用)
type Info struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time,omitempty"`
	GitCommit  string `json:"git_commit,omitempty"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

func GetVersion() string {
	return Version
}

func GetInfo() Info {
	return Info{
		Version:    Version,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetUserAgent 情报源 HTTP 请求使用的 UA
func GetUserAgent() string {
	return "NeoRecon-Vulnerability-Scanner/" + Version
}
