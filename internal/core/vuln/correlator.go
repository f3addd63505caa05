/**
 * 漏洞关联
 * @author: sun977
 * @date: 2025.11.03
 * @description: 离线特征 -> 产品版本规则 -> 在线 CVE 查询 三个阶段，最后补齐分类与攻击向量
 */
package vuln

import (
	"context"
	"strings"

	"github.com/dlclark/regexp2"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// 离线特征命中的默认评级
const (
	signatureSeverity = "High"
	signatureCVSS     = 7.5
)

// Lookuper 在线漏洞查询 (intel.Service / detector.Registry 实现)
type Lookuper interface {
	Lookup(ctx context.Context, id string) (*model.Vulnerability, bool)
}

// Correlator 漏洞关联器，构建后只读，可并发使用
type Correlator struct {
	signatures []Signature
	lookup     Lookuper
}

// NewCorrelator lookup 为空时只执行离线阶段
func NewCorrelator(lookup Lookuper, extra ...Signature) *Correlator {
	sigs := BuiltinSignatures()
	sigs = append(sigs, extra...)
	return &Correlator{signatures: sigs, lookup: lookup}
}

// Signatures 当前生效的特征
func (c *Correlator) Signatures() []Signature {
	return c.signatures
}

// Correlate 关联服务与 banner 得到漏洞列表
func (c *Correlator) Correlate(ctx context.Context, service, banner string, online bool) []model.Vulnerability {
	results := c.MatchSignatures(service, banner)
	results = append(results, MatchProducts(banner)...)

	if online && c.lookup != nil {
		results = c.lookupOnline(ctx, banner, results)
	}

	for i := range results {
		fillMetadata(&results[i], service, banner)
	}
	return results
}

// MatchSignatures 阶段 A: 离线特征，同一特征多次命中不去重
func (c *Correlator) MatchSignatures(service, banner string) []model.Vulnerability {
	var results []model.Vulnerability
	for i := range c.signatures {
		sig := &c.signatures[i]
		if !sig.Match(service, banner) {
			continue
		}
		results = append(results, model.Vulnerability{
			ID:           sig.ID,
			Description:  sig.Description,
			Severity:     model.String(signatureSeverity),
			CVSSScore:    model.Float(signatureCVSS),
			References:   []string{"Detected via pattern matching: " + sig.Pattern},
			Category:     model.String(Categorize(sig.ID)),
			AttackVector: model.String(AttackVector(service, banner)),
		})
	}
	return results
}

var apacheVersion = mustCompile(`Apache/(\d+\.\d+\.\d+)`)

// MatchProducts 阶段 B: 产品版本规则，目前只有 Apache 2.4.x
func MatchProducts(banner string) []model.Vulnerability {
	m, err := apacheVersion.FindStringMatch(banner)
	if err != nil || m == nil {
		return nil
	}
	groups := m.Groups()
	if len(groups) < 2 {
		return nil
	}
	version := groups[1].String()
	if !strings.HasPrefix(version, "2.4.") {
		return nil
	}
	return []model.Vulnerability{{
		ID:                "PRODUCT-VULN-APACHE",
		Description:       "Potential vulnerabilities in Apache " + version + " detected",
		Severity:          model.String("MEDIUM"),
		CVSSScore:         model.Float(5.0),
		References:        []string{"https://httpd.apache.org/security/vulnerabilities_24.html"},
		ActivelyExploited: model.Bool(false),
		ExploitAvailable:  model.Bool(true),
		Mitigation:        model.String("Update to the latest Apache version"),
		Category:          model.String(CategoryWebServer),
		AttackVector:      model.String(VectorNetwork),
	}}
}

var cvePattern = mustCompile(`CVE-\d{4}-\d{4,}`)

// ExtractCVEs 提取 banner 中出现的 CVE 编号，保持出现顺序并去重
func ExtractCVEs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	m, err := cvePattern.FindStringMatch(text)
	for err == nil && m != nil {
		id := m.String()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		m, err = cvePattern.FindNextMatch(m)
	}
	return ids
}

// lookupOnline 阶段 C
// 已有的 CVE 结果被在线记录替换并保留原匹配原因；banner 中新出现的 CVE 追加在末尾
func (c *Correlator) lookupOnline(ctx context.Context, banner string, results []model.Vulnerability) []model.Vulnerability {
	for i := range results {
		if !looksLikeCVE(results[i].ID) {
			continue
		}
		detailed, ok := c.lookup.Lookup(ctx, results[i].ID)
		if !ok {
			continue
		}
		reason := results[i].Description
		replaced := detailed.Clone()
		replaced.Description = replaced.Description + " (Match reason: " + reason + ")"
		results[i] = replaced
	}

	for _, id := range ExtractCVEs(banner) {
		if contains(results, id) {
			continue
		}
		detailed, ok := c.lookup.Lookup(ctx, id)
		if !ok {
			logger.Debugf("CVE %s referenced in banner not found in any source", id)
			continue
		}
		results = append(results, detailed.Clone())
	}
	return results
}

func fillMetadata(v *model.Vulnerability, service, banner string) {
	if v.Category == nil {
		v.Category = model.String(Categorize(v.ID))
	}
	if v.AttackVector == nil {
		v.AttackVector = model.String(AttackVector(service, banner))
	}
}

func looksLikeCVE(id string) bool {
	return strings.HasPrefix(id, "CVE-")
}

func contains(vulns []model.Vulnerability, id string) bool {
	for _, v := range vulns {
		if v.ID == id {
			return true
		}
	}
	return false
}

func mustCompile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, 0)
	re.MatchTimeout = matchTimeout
	return re
}
