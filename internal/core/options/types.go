package options

import (
	"errors"

	"neorecon/internal/core/model"
)

// ErrInvalidOptions 参数校验失败，CLI 打印一行错误并以非零码退出
var ErrInvalidOptions = errors.New("invalid options")

// TaskOption 定义所有指令参数结构体必须实现的接口
type TaskOption interface {
	// Validate 验证参数合法性
	Validate() error

	// ToConfig 将参数转换为核心扫描配置
	ToConfig() *model.ScanConfig
}

// 并发与超时边界
const (
	MinThreads   = 1
	MaxThreads   = 1000
	MinTimeoutMs = 100
	MaxTimeoutMs = 60000
)

func invalid(format string, args ...interface{}) error {
	return wrapf(ErrInvalidOptions, format, args...)
}
