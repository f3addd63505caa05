package credential

import "strings"

// defaultDicts 每种协议的出厂默认凭据，只保留最常见的几组
var defaultDicts = map[string][]Auth{
	"ssh": {
		{Username: "root", Password: "root"},
		{Username: "root", Password: "toor"},
		{Username: "admin", Password: "admin"},
		{Username: "pi", Password: "raspberry"},
		{Username: "ubnt", Password: "ubnt"},
	},
	"ftp": {
		{Username: "admin", Password: "admin"},
		{Username: "ftp", Password: "ftp"},
		{Username: "root", Password: "root"},
	},
	"telnet": {
		{Username: "admin", Password: "admin"},
		{Username: "root", Password: "root"},
		{Username: "admin", Password: "password"},
	},
	"mysql": {
		{Username: "root", Password: ""},
		{Username: "root", Password: "root"},
		{Username: "root", Password: "mysql"},
	},
	"postgres": {
		{Username: "postgres", Password: "postgres"},
		{Username: "postgres", Password: ""},
	},
	"mssql": {
		{Username: "sa", Password: ""},
		{Username: "sa", Password: "sa"},
		{Username: "sa", Password: "password"},
	},
	"oracle": {
		{Username: "system", Password: "manager"},
		{Username: "sys", Password: "change_on_install"},
		{Username: "scott", Password: "tiger"},
	},
	"clickhouse": {
		{Username: "default", Password: ""},
	},
	"mongo": {
		{Username: "admin", Password: "admin"},
	},
	"redis": {
		{Password: "redis"},
		{Password: "foobared"},
	},
	"snmp": {
		{Password: "private"},
		{Password: "manager"},
	},
	"smb": {
		{Username: "administrator", Password: ""},
		{Username: "guest", Password: ""},
		{Username: "administrator", Password: "admin"},
	},
	"elasticsearch": {
		{Username: "elastic", Password: "changeme"},
		{Username: "elastic", Password: "elastic"},
	},
}

// DefaultCredentials 协议默认凭据副本
func DefaultCredentials(checker string) []Auth {
	return append([]Auth(nil), defaultDicts[checker]...)
}

// Generate 根据自定义用户名/密码字典生成凭据
// 密码中的 %user% 会被替换为当前用户名；仅密码模式下替换为 admin
func Generate(users, passwords []string, mode AuthMode) []Auth {
	var list []Auth
	switch mode {
	case AuthModeUserPass:
		for _, u := range users {
			for _, p := range passwords {
				list = append(list, Auth{Username: u, Password: strings.ReplaceAll(p, "%user%", u)})
			}
		}
	case AuthModeOnlyPass:
		for _, p := range passwords {
			list = append(list, Auth{Password: strings.ReplaceAll(p, "%user%", "admin")})
		}
	case AuthModeNone:
		list = append(list, Auth{})
	}
	return list
}

// SplitList 逗号分隔的字典参数
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if trim := strings.TrimSpace(p); trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
