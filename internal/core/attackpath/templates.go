package attackpath

import (
	"fmt"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

// family 路径模板使用的粗粒度分组
type family int

const (
	familyOther family = iota
	familyWeb
	familyRemote
	familyICS
)

var webCategories = map[string]bool{
	vuln.CategoryInjection: true,
	vuln.CategoryXSS:       true,
	vuln.CategoryCSRF:      true,
	vuln.CategorySSRF:      true,
	vuln.CategoryWebServer: true,
}

// familyOf 分类优先，其次攻击向量
func familyOf(v model.Vulnerability) family {
	cat := v.CategoryLabel()
	switch {
	case webCategories[cat]:
		return familyWeb
	case cat == vuln.CategoryOT:
		return familyICS
	}
	switch v.VectorLabel() {
	case vuln.VectorWeb:
		return familyWeb
	case vuln.VectorRemoteAccess:
		return familyRemote
	case vuln.VectorIndustrial:
		return familyICS
	}
	return familyOther
}

// serviceOf 攻击向量 -> 服务描述
func serviceOf(v model.Vulnerability) (string, bool) {
	switch v.VectorLabel() {
	case vuln.VectorWeb:
		return "Web Service", true
	case vuln.VectorRemoteAccess:
		return "Remote Access Service", true
	case vuln.VectorFileTransfer:
		return "File Transfer Service", true
	case vuln.VectorNetworkMgmt:
		return "Network Management Service", true
	case vuln.VectorIndustrial:
		return "ICS Service", true
	}
	return "", false
}

// Impact 利用后果描述
func Impact(v model.Vulnerability) string {
	if v.CVSSScore != nil {
		switch cvss := *v.CVSSScore; {
		case cvss >= 9.0:
			return "Critical Impact: Potential for complete system compromise and data breach"
		case cvss >= 7.0:
			return "High Impact: Significant security breach and system access"
		case cvss >= 4.0:
			return "Medium Impact: Limited system access or data exposure"
		default:
			return "Low Impact: Minor security implications"
		}
	}
	if v.Category == nil {
		return "Unknown Impact: Insufficient data to determine impact"
	}
	switch familyOf(v) {
	case familyICS:
		return "Critical Impact: Potential for physical damage or operational disruption"
	case familyWeb:
		return "High Impact: Potential for data breach or system compromise"
	case familyRemote:
		return "High Impact: Direct system access for attackers"
	}
	return "Medium Impact: Potential security implications"
}

// Mitigations 漏洞自带的缓解措施在前，其后是分组通用建议
func Mitigations(v model.Vulnerability) []string {
	var out []string
	if v.Mitigation != nil {
		out = append(out, *v.Mitigation)
	}
	switch familyOf(v) {
	case familyWeb:
		out = append(out,
			"Implement input validation and output encoding",
			"Keep web application frameworks and libraries updated",
			"Use a Web Application Firewall (WAF)")
	case familyRemote:
		out = append(out,
			"Implement multi-factor authentication",
			"Use VPN for remote access",
			"Limit access to required users only")
	case familyICS:
		out = append(out,
			"Implement network segmentation for ICS networks",
			"Deploy ICS-specific monitoring and intrusion detection",
			"Implement secure-by-design protocols where possible")
	default:
		out = append(out,
			"Apply security patches and updates regularly",
			"Implement defense-in-depth security controls")
	}
	return out
}

// inferTechnique 漏洞没有 ATT&CK 技术时按分组推断
func inferTechnique(v model.Vulnerability) *string {
	if len(v.MitreTechniques) > 0 {
		return model.String(v.MitreTechniques[0])
	}
	switch familyOf(v) {
	case familyWeb:
		return model.String("T1190 - Exploit Public-Facing Application")
	case familyRemote:
		return model.String("T1133 - External Remote Services")
	case familyICS:
		return model.String("T0831 - Manipulation of Control")
	}
	return nil
}

type progressionStep struct {
	description string
	technique   string
}

// progression 按攻击向量展开的后续步骤
func progression(v model.Vulnerability) []progressionStep {
	vector := v.VectorLabel()
	switch vector {
	case "":
		return nil
	case vuln.VectorWeb:
		steps := []progressionStep{{"Initial Access: Web application vulnerability exploitation", "T1190"}}
		if contains(v.Description, "SQL") {
			steps = append(steps, progressionStep{"Collection: Database data access", "T1213"})
		}
		if contains(v.Description, "XSS") {
			steps = append(steps, progressionStep{"Credential Access: User session hijacking", "T1539"})
		}
		if contains(v.Description, "RCE", "Remote Code") {
			steps = append(steps, progressionStep{"Execution: Remote code execution on web server", "T1203"})
		}
		return steps
	case vuln.VectorRemoteAccess:
		return []progressionStep{
			{"Initial Access: Remote service exploitation", "T1133"},
			{"Execution: Command execution via remote access", "T1059"},
			{"Persistence: Creation of backdoor access", "T1136"},
		}
	case vuln.VectorIndustrial:
		return []progressionStep{
			{"Initial Access: Industrial protocol exploitation", "T0866"},
			{"Discovery: ICS component enumeration", "T0846"},
			{"Impact: Manipulation of industrial processes", "T0831"},
		}
	}
	return []progressionStep{{fmt.Sprintf("Exploitation of %s vulnerability", vector), ""}}
}
