package detector

import (
	"strings"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
	"neorecon/internal/core/vuln/intel"
)

var icsKeywords = []string{
	"modbus", "dnp3", "bacnet", "ethernet/ip", "profinet",
	"s7", "siemens", "rockwell", "allen-bradley", "scada",
	"plc", "hmi", "ics", "industrial",
}

// isICSService 服务名是否属于工控协议
func isICSService(service string) bool {
	s := strings.ToLower(service)
	for _, kw := range icsKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// icsAdvisory 内置 ICS-CERT 通告
type icsAdvisory struct {
	protocol string
	record   model.Vulnerability
}

var icsAdvisories = []icsAdvisory{
	{"modbus", model.Vulnerability{
		ID:                "ICS-VU-923731",
		Description:       "Modbus protocol lacks authentication mechanisms allowing unauthorized commands",
		Severity:          model.String("High"),
		CVSSScore:         model.Float(8.2),
		References:        []string{"https://ics-cert.us-cert.gov/advisories/ICSA-18-240-01"},
		ActivelyExploited: model.Bool(true),
		ExploitAvailable:  model.Bool(true),
		Mitigation:        model.String("Implement Modbus security extensions or use a secure VPN tunnel"),
		Category:          model.String(vuln.CategoryOT),
		CWEID:             model.String("CWE-306"),
		AttackVector:      model.String(vuln.VectorIndustrial),
		MitreTactics:      []string{"Initial Access", "Execution"},
		MitreTechniques:   []string{"T1190", "T1195"},
	}},
	{"bacnet", model.Vulnerability{
		ID:                "ICS-VU-587142",
		Description:       "BACnet protocol allows unauthenticated device discovery and manipulation",
		Severity:          model.String("High"),
		CVSSScore:         model.Float(7.8),
		References:        []string{"https://ics-cert.us-cert.gov/advisories/ICSA-17-138-01"},
		ActivelyExploited: model.Bool(true),
		ExploitAvailable:  model.Bool(true),
		Mitigation:        model.String("Isolate BACnet networks from public networks using firewalls"),
		Category:          model.String(vuln.CategoryOT),
		CWEID:             model.String("CWE-306"),
		AttackVector:      model.String(vuln.VectorIndustrial),
		MitreTactics:      []string{"Discovery", "Lateral Movement"},
		MitreTechniques:   []string{"T1120", "T1210"},
	}},
}

// icsDetect 通告均标记为在野利用，输出前统一走升级规则
func icsDetect(service string) []model.Vulnerability {
	if !isICSService(service) {
		return nil
	}
	s := strings.ToLower(service)
	var out []model.Vulnerability
	for _, adv := range icsAdvisories {
		if strings.Contains(s, adv.protocol) {
			v := adv.record.Clone()
			intel.Escalate(&v)
			out = append(out, v)
		}
	}
	return out
}

// icsLookup 仅响应 ICS-VU- 编号
func icsLookup(id string) (*model.Vulnerability, bool) {
	if !strings.HasPrefix(id, "ICS-VU-") {
		return nil, false
	}
	for _, adv := range icsAdvisories {
		if adv.record.ID == id {
			v := adv.record.Clone()
			intel.Escalate(&v)
			return &v, true
		}
	}
	return nil, false
}
