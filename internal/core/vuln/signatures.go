package vuln

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// matchTimeout 单条正则匹配上限，防止异常 banner 触发回溯爆炸
const matchTimeout = 100 * time.Millisecond

// Signature 离线漏洞特征
// 服务名包含 Service 且 banner 匹配 Pattern (忽略大小写) 时命中
type Signature struct {
	Service     string `yaml:"service"`
	Pattern     string `yaml:"pattern"`
	ID          string `yaml:"id"`
	Description string `yaml:"description"`

	re *regexp2.Regexp
}

// Match 判断特征是否命中
func (s *Signature) Match(service, banner string) bool {
	if s.re == nil || !strings.Contains(service, s.Service) {
		return false
	}
	ok, err := s.re.MatchString(banner)
	return err == nil && ok
}

func (s *Signature) compile() error {
	re, err := regexp2.Compile(s.Pattern, regexp2.IgnoreCase)
	if err != nil {
		return fmt.Errorf("compile signature %s pattern %q: %w", s.ID, s.Pattern, err)
	}
	re.MatchTimeout = matchTimeout
	s.re = re
	return nil
}

// builtinSignatures 内置特征表，顺序即输出顺序
var builtinSignatures = []Signature{
	{Service: "ssh", Pattern: `OpenSSH_[1-6]\.`, ID: "CVE-2020-14145",
		Description: "Potential OpenSSH vulnerability in older versions that may leak data or allow MITM attacks"},
	{Service: "apache", Pattern: `apache/2\.[0-3]\.`, ID: "CVE-2017-9798",
		Description: "Apache HTTP Server 2.2.x through 2.3.x vulnerable to Optionsbleed attack"},
	{Service: "nginx", Pattern: `nginx/1\.[0-9]\.`, ID: "CVE-2019-9511",
		Description: "HTTP/2 large amount of data request leads to DOS"},
	{Service: "ftp", Pattern: `vsftpd 2\.`, ID: "CVE-2011-2523",
		Description: "VSFTPD 2.3.4 and older vulnerable to backdoor command execution"},
	{Service: "telnet", Pattern: `telnet`, ID: "TELNET-CLEARTEXT",
		Description: "Telnet transmits all data in cleartext, risking exposure of credentials"},
	{Service: "rdp", Pattern: `windows.*terminal`, ID: "CVE-2019-0708",
		Description: "BlueKeep: Remote desktop vulnerability may allow remote code execution"},

	// OT/ICS
	{Service: "modbus", Pattern: `modbus`, ID: "OT-MODBUS-NOAUTH",
		Description: "Modbus protocol lacks authentication mechanisms, allowing unauthorized control"},
	{Service: "siemens", Pattern: `S7`, ID: "OT-S7-CLEARTEXT",
		Description: "Siemens S7 communication protocols transmit data in cleartext"},
	{Service: "bacnet", Pattern: `bacnet`, ID: "OT-BACNET-NOAUTH",
		Description: "BACnet protocol lacks robust authentication, allowing unauthorized access to building controls"},
	{Service: "ethernet/ip", Pattern: `ethernet/ip`, ID: "OT-EIP-NOAUTH",
		Description: "EtherNet/IP protocol has limited security controls for authentication and authorization"},
}

// BuiltinSignatures 返回编译好的内置特征副本
func BuiltinSignatures() []Signature {
	sigs := make([]Signature, len(builtinSignatures))
	copy(sigs, builtinSignatures)
	for i := range sigs {
		// 内置表在测试中保证可编译
		_ = sigs[i].compile()
	}
	return sigs
}

type signatureFile struct {
	Signatures []Signature `yaml:"signatures"`
}

// LoadSignatures 从 YAML 文件加载扩展特征
//
//	signatures:
//	  - service: http
//	    pattern: 'Jetty\(9\.2'
//	    id: CVE-2017-7657
//	    description: Jetty 9.2 HTTP request smuggling
func LoadSignatures(path string) ([]Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signature file: %w", err)
	}

	var f signatureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse signature file %s: %w", path, err)
	}

	for i := range f.Signatures {
		s := &f.Signatures[i]
		if s.ID == "" || s.Pattern == "" {
			return nil, fmt.Errorf("signature #%d in %s: id and pattern are required", i+1, path)
		}
		if err := s.compile(); err != nil {
			return nil, err
		}
	}
	return f.Signatures, nil
}
