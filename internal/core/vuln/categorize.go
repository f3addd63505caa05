package vuln

import "strings"

// 分类标签
const (
	CategoryInjection     = "Injection"
	CategoryXSS           = "Cross-Site Scripting"
	CategoryAuth          = "Authentication"
	CategoryCSRF          = "Cross-Site Request Forgery"
	CategorySSRF          = "Server-Side Request Forgery"
	CategoryOverflow      = "Buffer Overflow"
	CategoryDoS           = "Denial of Service"
	CategoryBypass        = "Security Bypass"
	CategoryPrivilege     = "Privilege Escalation"
	CategoryDisclosure    = "Information Disclosure"
	CategoryRCE           = "Remote Code Execution"
	CategoryOT            = "OT/ICS Vulnerability"
	CategoryOther         = "Other"
	CategoryWebServer     = "Web Server"
	CategoryMisconfigured = "Misconfiguration"
)

// 攻击向量标签
const (
	VectorWeb          = "Web"
	VectorRemoteAccess = "Remote Access"
	VectorFileTransfer = "File Transfer"
	VectorNetworkMgmt  = "Network Management"
	VectorIndustrial   = "Industrial Control Protocol"
	VectorDatabase     = "Database"
	VectorEmail        = "Email"
	VectorDNS          = "DNS"
	VectorNetwork      = "Network"
)

type ladderRule struct {
	keywords []string
	label    string
}

// categoryLadder 顺序即优先级，第一个命中的关键字胜出
var categoryLadder = []ladderRule{
	{[]string{"SQL", "INJECT"}, CategoryInjection},
	{[]string{"XSS", "CROSS-SITE"}, CategoryXSS},
	{[]string{"AUTH"}, CategoryAuth},
	{[]string{"CSRF", "FORGERY"}, CategoryCSRF},
	{[]string{"SSRF"}, CategorySSRF},
	{[]string{"OVERFLOW", "BUFFER"}, CategoryOverflow},
	{[]string{"DOS", "DENIAL"}, CategoryDoS},
	{[]string{"BYPASS"}, CategoryBypass},
	{[]string{"PRIV", "ESCALATION"}, CategoryPrivilege},
	{[]string{"INFO", "DISCLOSURE"}, CategoryDisclosure},
	{[]string{"RCE", "EXEC"}, CategoryRCE},
	{[]string{"OT-", "ICS"}, CategoryOT},
}

// Categorize 根据漏洞 ID 推断分类
func Categorize(id string) string {
	upper := strings.ToUpper(id)
	if label, ok := climb(upper, categoryLadder); ok {
		return label
	}
	return CategoryOther
}

// vectorLadder 针对小写服务名与 banner
var vectorLadder = []ladderRule{
	{[]string{"http", "web"}, VectorWeb},
	{[]string{"ssh", "telnet", "rdp"}, VectorRemoteAccess},
	{[]string{"ftp", "smb", "cifs"}, VectorFileTransfer},
	{[]string{"snmp", "netflow"}, VectorNetworkMgmt},
	{[]string{"modbus", "bacnet", "dnp3", "ethernet/ip", "s7", "opc"}, VectorIndustrial},
	{[]string{"database", "sql", "oracle", "redis", "mongo", "postgres"}, VectorDatabase},
	{[]string{"email", "smtp", "imap", "pop3"}, VectorEmail},
	{[]string{"dns"}, VectorDNS},
}

// AttackVector 根据服务名推断攻击向量
// 服务名为 unknown 时才参考 banner
func AttackVector(service, banner string) string {
	svc := strings.ToLower(service)
	if label, ok := climb(svc, vectorLadder); ok {
		return label
	}
	if svc == "" || svc == "unknown" {
		if label, ok := climb(strings.ToLower(banner), vectorLadder); ok {
			return label
		}
	}
	return VectorNetwork
}

func climb(text string, ladder []ladderRule) (string, bool) {
	for _, rule := range ladder {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.label, true
			}
		}
	}
	return "", false
}
