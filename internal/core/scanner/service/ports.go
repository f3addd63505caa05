package service

import "sort"

// otPorts 工控协议端口
var otPorts = map[int]string{
	102:   "siemens-s7",
	502:   "modbus",
	1089:  "ff-fms",
	1090:  "ff-fms",
	1091:  "ff-fms",
	1541:  "foxapi",
	2222:  "ethernet/ip",
	4840:  "opc-ua",
	9600:  "omron-fins",
	10000: "codesys",
	18245: "ge-srtp",
	18246: "ge-srtp",
	20000: "dnp3",
	34962: "profinet",
	34963: "profinet",
	34964: "profinet",
	34980: "ethercat",
	44818: "ethernet/ip",
	45678: "schneider",
	47808: "bacnet",
	55000: "fl-net",
	55003: "fl-net",
}

// commonPorts IT 常用端口，初始化时合并 otPorts
var commonPorts = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	88:   "kerberos",
	110:  "pop3",
	111:  "rpc",
	119:  "nntp",
	123:  "ntp",
	135:  "msrpc",
	137:  "netbios-ns",
	138:  "netbios-dgm",
	139:  "netbios-ssn",
	143:  "imap",
	161:  "snmp",
	162:  "snmp-trap",
	389:  "ldap",
	443:  "https",
	445:  "microsoft-ds",
	464:  "kerberos",
	465:  "smtps",
	500:  "isakmp",
	514:  "syslog",
	587:  "smtp-submission",
	636:  "ldaps",
	993:  "imaps",
	995:  "pop3s",
	1080: "socks",
	1433: "mssql",
	1434: "mssql-browser",
	1521: "oracle",
	1723: "pptp",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
	5900: "vnc",
	5901: "vnc",
	5902: "vnc",
	5903: "vnc",
	8080: "http-proxy",
	8443: "https-alt",
}

func init() {
	for port, name := range otPorts {
		commonPorts[port] = name
	}
}

// Lookup 查询端口表
func Lookup(port int) (string, bool) {
	name, ok := commonPorts[port]
	return name, ok
}

// CommonPorts 常用端口列表 (含工控端口)，升序
func CommonPorts() []int {
	return sortedKeys(commonPorts)
}

// OTPorts 工控端口列表，升序
func OTPorts() []int {
	return sortedKeys(otPorts)
}

// IsOTPort 是否为工控协议端口
func IsOTPort(port int) bool {
	_, ok := otPorts[port]
	return ok
}

func sortedKeys(m map[int]string) []int {
	ports := make([]int, 0, len(m))
	for p := range m {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}
