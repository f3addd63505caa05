package attackpath

import (
	"strings"

	"neorecon/internal/core/model"
)

type scenarioStep struct {
	description string
	technique   string
}

// scenario 基于全量漏洞判断是否触发的模板路径
type scenario struct {
	entryPoint string
	impact     string
	likelihood string
	trigger    func(v model.Vulnerability) bool
	steps      []scenarioStep
}

var scenarios = []scenario{
	{
		entryPoint: "Web Application or Service Vulnerability",
		impact:     "Critical - Data Exfiltration",
		likelihood: "Medium",
		trigger: func(v model.Vulnerability) bool {
			return contains(v.Description, "SQL", "XSS", "RCE", "File Inclusion")
		},
		steps: []scenarioStep{
			{"Initial Access: Exploiting identified vulnerability", "T1190"},
			{"Collection: Data from Local System", "T1005"},
			{"Command and Control: Establish communication channel", "T1071"},
			{"Exfiltration: Data transfer to attacker-controlled system", "T1048"},
		},
	},
	{
		entryPoint: "Remote Service Vulnerability",
		impact:     "Critical - Lateral Movement",
		likelihood: "High",
		trigger: func(v model.Vulnerability) bool {
			return contains(v.Description, "RCE", "Privilege") || v.VectorLabel() == "Remote Access"
		},
		steps: []scenarioStep{
			{"Initial Access: Exploiting vulnerability for system access", "T1190"},
			{"Discovery: Network service scanning", "T1046"},
			{"Lateral Movement: Internal spearphishing or exploitation", "T1534"},
			{"Execution: Remote service exploitation", "T1569"},
		},
	},
	{
		entryPoint: "Industrial Control System Vulnerability",
		impact:     "Critical - Physical Process Manipulation",
		likelihood: "Medium",
		trigger: func(v model.Vulnerability) bool {
			return strings.Contains(v.CategoryLabel(), "Industrial") ||
				strings.Contains(v.VectorLabel(), "Industrial") ||
				contains(v.Description, "PLC", "SCADA", "ICS")
		},
		steps: []scenarioStep{
			{"Initial Access: Exploitation of industrial protocol vulnerability", "T0866"},
			{"Discovery: Enumeration of industrial control devices", "T0846"},
			{"Lateral Movement: Pivot to engineering workstations", "T0859"},
			{"Collection: SCADA data collection", "T0802"},
			{"Impact: Manipulation of industrial process", "T0831"},
		},
	},
}

// build 每一步引用全部触发漏洞；缓解措施按触发漏洞顺序拼接，不去重
func (s scenario) build(vulns []model.Vulnerability) (model.AttackPath, bool) {
	var ids, mitigations []string
	for _, v := range vulns {
		if s.trigger(v) {
			ids = append(ids, v.ID)
			mitigations = append(mitigations, Mitigations(v)...)
		}
	}
	if len(ids) == 0 {
		return model.AttackPath{}, false
	}

	steps := make([]model.AttackStep, 0, len(s.steps))
	for _, st := range s.steps {
		steps = append(steps, model.AttackStep{
			Description:     st.description,
			Vulnerabilities: append([]string(nil), ids...),
			MitreTechnique:  model.String(st.technique),
		})
	}
	return model.AttackPath{
		EntryPoint:  s.entryPoint,
		Steps:       steps,
		Impact:      s.impact,
		Likelihood:  s.likelihood,
		Mitigations: mitigations,
	}, true
}
