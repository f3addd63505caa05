package credential

import (
	"strings"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

// misconfigProbe 未授权访问探测项
type misconfigProbe struct {
	checker     string
	kind        string
	auth        Auth
	description string
	severity    string
	cvss        float64
	mitigation  string
	cwe         string
}

var misconfigProbes = []misconfigProbe{
	{
		checker: "ftp", kind: "ANONYMOUS",
		auth:        Auth{Username: "anonymous", Password: "anonymous@"},
		description: "FTP server allows anonymous login",
		severity:    model.SeverityMedium, cvss: 5.3,
		mitigation: "Disable anonymous FTP access",
		cwe:        "CWE-287",
	},
	{
		checker: "redis", kind: "NOAUTH",
		description: "Redis accepts commands without authentication",
		severity:    model.SeverityCritical, cvss: 9.8,
		mitigation: "Enable requirepass or ACLs and bind Redis to trusted interfaces",
		cwe:        "CWE-306",
	},
	{
		checker: "mongo", kind: "NOAUTH",
		description: "MongoDB accepts connections without authentication",
		severity:    model.SeverityCritical, cvss: 9.8,
		mitigation: "Enable MongoDB access control (security.authorization)",
		cwe:        "CWE-306",
	},
	{
		checker: "snmp", kind: "PUBLIC",
		auth:        Auth{Password: "public"},
		description: "SNMP agent answers to the default 'public' community string",
		severity:    model.SeverityHigh, cvss: 7.5,
		mitigation: "Change the SNMP community string or migrate to SNMPv3",
		cwe:        "CWE-1392",
	},
	{
		checker: "elasticsearch", kind: "NOAUTH",
		description: "Elasticsearch cluster is readable without authentication",
		severity:    model.SeverityHigh, cvss: 7.5,
		mitigation: "Enable Elasticsearch security features and require authentication",
		cwe:        "CWE-306",
	},
}

// record MISCONFIG-<SERVICE>-<KIND>
func (p misconfigProbe) record(service string) model.Vulnerability {
	return model.Vulnerability{
		ID:               "MISCONFIG-" + strings.ToUpper(p.checker) + "-" + p.kind,
		Description:      p.description,
		Severity:         model.String(p.severity),
		CVSSScore:        model.Float(p.cvss),
		ExploitAvailable: model.Bool(true),
		Mitigation:       model.String(p.mitigation),
		Category:         model.String(vuln.CategoryMisconfigured),
		CWEID:            model.String(p.cwe),
		AttackVector:     model.String(vuln.AttackVector(service, "")),
	}
}
