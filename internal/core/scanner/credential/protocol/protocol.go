/**
 * 协议认证检查器
 * @author: sun977
 * @date: 2025.11.08
 * @description: 每个协议一个 Checker，驱动错误统一归类为 credential 包的哨兵错误
 */
package protocol

import (
	"net"
	"strconv"
	"strings"

	"neorecon/internal/core/scanner/credential"
)

// All 返回全部内置检查器
// 顺序即默认凭据检查顺序，弱口令高发的远程登录协议在前
func All() []credential.Checker {
	return []credential.Checker{
		NewFTPChecker(),
		NewSSHChecker(),
		NewTelnetChecker(),
		NewMySQLChecker(),
		NewPostgresChecker(),
		NewMSSQLChecker(),
		NewOracleChecker(),
		NewClickHouseChecker(),
		NewMongoChecker(),
		NewRedisChecker(),
		NewSNMPChecker(),
		NewSMBChecker(),
		NewElasticsearchChecker(),
	}
}

// networkMarkers 连接层错误关键字 (小写)
var networkMarkers = []string{
	"timeout",
	"connection refused",
	"no route to host",
	"network is unreachable",
	"connection reset",
	"no such host",
	"broken pipe",
	"context deadline exceeded",
	"target machine actively refused", // Windows
	"connectex",
}

// isNetworkError 错误文本命中任一连接层关键字
func isNetworkError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range networkMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// containsAny 区分大小写，调用方按需先转小写
func containsAny(msg string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// hostPort IPv6 地址自动加方括号
func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
