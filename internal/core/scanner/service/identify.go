/**
 * 服务识别
 * @author: sun977
 * @date: 2025.10.24
 * @description: 端口表优先，其次 banner 关键字；另外基于 banner 的粗粒度 OS 指纹
 */
package service

import "strings"

// Unknown 无法识别的服务
const Unknown = "unknown"

// bannerRule banner 关键字规则，按顺序匹配，大小写敏感
type bannerRule struct {
	keywords []string
	service  string
}

var bannerRules = []bannerRule{
	{[]string{"SSH", "OpenSSH"}, "ssh"},
	{[]string{"HTTP", "http"}, "http"},
	{[]string{"FTP"}, "ftp"},
	{[]string{"SMTP", "Postfix", "mail"}, "smtp"},
	{[]string{"Telnet"}, "telnet"},
}

// Identify 根据端口与 banner 识别服务名
func Identify(port int, banner string) string {
	if name, ok := Lookup(port); ok {
		return name
	}
	for _, rule := range bannerRules {
		for _, kw := range rule.keywords {
			if strings.Contains(banner, kw) {
				return rule.service
			}
		}
	}
	return Unknown
}

type osRule struct {
	keywords []string
	name     string
}

// windowsRules 命中 "windows" 后细分版本
var windowsRules = []osRule{
	{[]string{"windows 10", "windows server 2019"}, "Windows 10/Server 2019"},
	{[]string{"windows server 2016"}, "Windows Server 2016"},
	{[]string{"windows server 2012"}, "Windows Server 2012"},
	{[]string{"windows 7", "windows server 2008"}, "Windows 7/Server 2008"},
}

var osRules = []osRule{
	{[]string{"ubuntu"}, "Ubuntu Linux"},
	{[]string{"debian"}, "Debian Linux"},
	{[]string{"centos"}, "CentOS Linux"},
	{[]string{"red hat", "rhel"}, "Red Hat Linux"},
	{[]string{"fedora"}, "Fedora Linux"},
	{[]string{"linux"}, "Linux"},
	{[]string{"freebsd"}, "FreeBSD"},
	{[]string{"openbsd"}, "OpenBSD"},
	{[]string{"macos", "mac os"}, "macOS"},
}

// FingerprintOS 从所有端口的 banner 推断操作系统，无法判断时返回 nil
func FingerprintOS(banners []string) *string {
	text := strings.ToLower(strings.Join(banners, " "))
	if text == "" {
		return nil
	}

	if strings.Contains(text, "windows") {
		name := "Windows"
		if n, ok := match(text, windowsRules); ok {
			name = n
		}
		return &name
	}

	if n, ok := match(text, osRules); ok {
		return &n
	}
	return nil
}

func match(text string, rules []osRule) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.name, true
			}
		}
	}
	return "", false
}
