package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// circlLegacy CIRCL cve-search 旧格式
type circlLegacy struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary"`
	References []string  `json:"references"`
	CVSS       flexFloat `json:"cvss"`
	CVSS3      flexFloat `json:"cvss3"`
}

// CirclSource CIRCL CVE 服务，兼容旧格式与 CVE 5.x 记录
type CirclSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewCirclSource(baseURL, userAgent string, timeout time.Duration) *CirclSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CirclSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *CirclSource) Name() string { return SourceCIRCL }

func (s *CirclSource) Fetch(ctx context.Context, id string) (*model.Vulnerability, error) {
	var raw json.RawMessage
	if err := getJSON(ctx, s.client, s.baseURL+"/"+url.PathEscape(id), s.userAgent, nil, &raw); err != nil {
		return nil, err
	}
	// 未收录时接口返回 null 或 {}
	if trimmed := strings.TrimSpace(string(raw)); trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, ErrNotFound
	}

	var probe struct {
		Containers json.RawMessage `json:"containers"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode circl response: %w", err)
	}
	if len(probe.Containers) > 0 {
		return fromRecord(id, raw)
	}
	return fromLegacy(id, raw)
}

func fromLegacy(id string, raw []byte) (*model.Vulnerability, error) {
	var resp circlLegacy
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode circl response: %w", err)
	}

	v := &model.Vulnerability{ID: id, Description: resp.Summary, References: resp.References}
	if v.Description == "" {
		v.Description = noDescription
	}
	score := resp.CVSS3.ptr()
	if score == nil {
		score = resp.CVSS.ptr()
	}
	if score != nil {
		applyScore(v, *score)
	}
	return v, nil
}

func fromRecord(id string, raw []byte) (*model.Vulnerability, error) {
	var rec cveRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode circl record: %w", err)
	}
	if rec.empty() {
		return nil, ErrNotFound
	}
	v := &model.Vulnerability{
		ID:          id,
		Description: rec.description(),
		References:  rec.references(),
		CWEID:       rec.cwe(),
	}
	if score, _, ok := rec.score(); ok {
		applyScore(v, score)
	}
	return v, nil
}

// applyScore 严重等级固定按分数阈值推导
func applyScore(v *model.Vulnerability, score float64) {
	score = clampScore(score)
	v.CVSSScore = model.Float(score)
	v.Severity = model.String(SeverityFromScore(score))
}
