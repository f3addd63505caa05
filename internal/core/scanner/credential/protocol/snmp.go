package protocol

import (
	"context"
	"time"

	"github.com/gosnmp/gosnmp"

	"neorecon/internal/core/scanner/credential"
)

// sysDescrOID SNMPv2-MIB::sysDescr.0
const sysDescrOID = "1.3.6.1.2.1.1.1.0"

// SNMPChecker SNMP v2c 团体名检查，团体名通过 Auth.Password 传入
type SNMPChecker struct{}

// NewSNMPChecker 创建 SNMP 检查器
func NewSNMPChecker() *SNMPChecker {
	return &SNMPChecker{}
}

// Name 协议名称，与服务识别结果及默认凭据字典的键一致
func (c *SNMPChecker) Name() string {
	return "snmp"
}

// Mode 只需要团体名
func (c *SNMPChecker) Mode() credential.AuthMode {
	return credential.AuthModeOnlyPass
}

// Check 读取 sysDescr.0 成功即视为团体名有效
func (c *SNMPChecker) Check(ctx context.Context, host string, port int, auth credential.Auth) (bool, error) {
	// 单次请求超时取 2s 与 ctx 剩余时间中较小者
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}
	if timeout <= 0 {
		return false, credential.ErrConnectionFailed
	}

	params := &gosnmp.GoSNMP{
		Target:    host,
		Port:      uint16(port),
		Community: auth.Password,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0, // UDP 下认证失败与丢包表现一致，不重试
		Transport: "udp",
		Context:   ctx,
	}
	// UDP 的 Connect 只创建套接字，不会真正探测对端
	if err := params.Connect(); err != nil {
		return false, credential.ErrConnectionFailed
	}
	defer params.Conn.Close()

	result, err := params.Get([]string{sysDescrOID})
	if err != nil {
		// 团体名错误时代理静默丢包
		return false, nil
	}
	// 只读团体名也能读 sysDescr，有返回值即可
	return result != nil && result.Error == gosnmp.NoError && len(result.Variables) > 0, nil
}
