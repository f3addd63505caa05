package intel

import (
	"strings"

	"neorecon/internal/core/model"
	"neorecon/internal/core/vuln"
)

// attackMapping ATT&CK 战术 / 技术映射
type attackMapping struct {
	tactics    []string
	techniques []string
}

// categoryMappings 由漏洞编号推断出的分类
var categoryMappings = map[string]attackMapping{
	vuln.CategoryInjection:  {[]string{"Initial Access", "Collection"}, []string{"T1190", "T1005"}},
	vuln.CategoryXSS:        {[]string{"Initial Access", "Credential Access"}, []string{"T1189", "T1539"}},
	vuln.CategoryAuth:       {[]string{"Credential Access", "Initial Access"}, []string{"T1110", "T1078"}},
	vuln.CategoryCSRF:       {[]string{"Execution"}, []string{"T1204"}},
	vuln.CategorySSRF:       {[]string{"Discovery", "Lateral Movement"}, []string{"T1046", "T1210"}},
	vuln.CategoryOverflow:   {[]string{"Execution", "Privilege Escalation"}, []string{"T1203", "T1068"}},
	vuln.CategoryDoS:        {[]string{"Impact"}, []string{"T1499"}},
	vuln.CategoryBypass:     {[]string{"Defense Evasion"}, []string{"T1211"}},
	vuln.CategoryPrivilege:  {[]string{"Privilege Escalation"}, []string{"T1068"}},
	vuln.CategoryDisclosure: {[]string{"Discovery", "Collection"}, []string{"T1040", "T1005"}},
	vuln.CategoryRCE:        {[]string{"Initial Access", "Execution"}, []string{"T1190", "T1203"}},
	vuln.CategoryOT:         {[]string{"Initial Access", "Impair Process Control"}, []string{"T0866", "T0855"}},
}

// phraseMappings CVE 编号不含关键字时按描述短语匹配，顺序即优先级
var phraseMappings = []struct {
	phrases []string
	attackMapping
}{
	{[]string{"REMOTE CODE EXECUTION", "EXECUTE ARBITRARY", "COMMAND EXECUTION", "COMMAND INJECTION"},
		categoryMappings[vuln.CategoryRCE]},
	{[]string{"SQL INJECTION"}, categoryMappings[vuln.CategoryInjection]},
	{[]string{"CROSS-SITE SCRIPTING", "XSS"}, categoryMappings[vuln.CategoryXSS]},
	{[]string{"PRIVILEGE", "ESCALAT"}, categoryMappings[vuln.CategoryPrivilege]},
	{[]string{"AUTHENTICATION", "CREDENTIAL", "PASSWORD"}, categoryMappings[vuln.CategoryAuth]},
	{[]string{"BUFFER OVERFLOW", "OUT-OF-BOUNDS WRITE", "MEMORY CORRUPTION"}, categoryMappings[vuln.CategoryOverflow]},
	{[]string{"DENIAL OF SERVICE", "RESOURCE EXHAUSTION"}, categoryMappings[vuln.CategoryDoS]},
	{[]string{"BYPASS"}, categoryMappings[vuln.CategoryBypass]},
	{[]string{"INFORMATION DISCLOSURE", "SENSITIVE INFORMATION", "CLEARTEXT"}, categoryMappings[vuln.CategoryDisclosure]},
	{[]string{"MODBUS", "BACNET", "DNP3", "PLC", "SCADA"}, categoryMappings[vuln.CategoryOT]},
}

// defaultMapping 无法判断时按面向公网应用的利用处理
var defaultMapping = attackMapping{[]string{"Initial Access"}, []string{"T1190"}}

// MapMitre 计算 ATT&CK 映射，返回新切片
func MapMitre(v *model.Vulnerability) ([]string, []string) {
	m := defaultMapping
	if mapped, ok := categoryMappings[vuln.Categorize(v.ID)]; ok {
		m = mapped
	} else {
		desc := strings.ToUpper(v.Description)
	phrase:
		for _, pm := range phraseMappings {
			for _, p := range pm.phrases {
				if strings.Contains(desc, p) {
					m = pm.attackMapping
					break phrase
				}
			}
		}
	}
	return append([]string(nil), m.tactics...), append([]string(nil), m.techniques...)
}

// ApplyMitre 仅在战术与技术都缺失时填充
func ApplyMitre(v *model.Vulnerability) {
	if len(v.MitreTactics) > 0 || len(v.MitreTechniques) > 0 {
		return
	}
	v.MitreTactics, v.MitreTechniques = MapMitre(v)
}
