package intel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"neorecon/internal/core/model"
)

// NVD 公共速率: 无 key 每 30s 5 次，有 key 每 30s 50 次
const nvdWindow = 30 * time.Second

// nvdResponse NVD CVE API 2.0，只保留关联需要的字段
type nvdResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE struct {
			ID           string `json:"id"`
			Descriptions []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"descriptions"`
			Metrics struct {
				CvssMetricV31 []nvdMetricV3 `json:"cvssMetricV31"`
				CvssMetricV30 []nvdMetricV3 `json:"cvssMetricV30"`
				CvssMetricV2  []struct {
					CvssData struct {
						BaseScore float64 `json:"baseScore"`
					} `json:"cvssData"`
					BaseSeverity string `json:"baseSeverity"`
				} `json:"cvssMetricV2"`
			} `json:"metrics"`
			Weaknesses []struct {
				Description []struct {
					Lang  string `json:"lang"`
					Value string `json:"value"`
				} `json:"description"`
			} `json:"weaknesses"`
			References []struct {
				URL string `json:"url"`
			} `json:"references"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdMetricV3 struct {
	CvssData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

// NVDSource NVD REST API
type NVDSource struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNVDSource apiKey 决定速率档位
func NewNVDSource(baseURL, apiKey, userAgent string, timeout time.Duration) *NVDSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	perWindow := 5
	if apiKey != "" {
		perWindow = 50
	}
	return &NVDSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(nvdWindow/time.Duration(perWindow)), perWindow),
	}
}

func (s *NVDSource) Name() string { return SourceNVD }

// Fetch 查询单个 CVE
func (s *NVDSource) Fetch(ctx context.Context, id string) (*model.Vulnerability, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nvd rate limit: %w", err)
	}

	var header map[string]string
	if s.apiKey != "" {
		header = map[string]string{"apiKey": s.apiKey}
	}

	var resp nvdResponse
	reqURL := s.baseURL + "?cveId=" + url.QueryEscape(id)
	if err := getJSON(ctx, s.client, reqURL, s.userAgent, header, &resp); err != nil {
		return nil, err
	}
	if len(resp.Vulnerabilities) == 0 {
		return nil, ErrNotFound
	}

	cve := resp.Vulnerabilities[0].CVE
	v := &model.Vulnerability{ID: id, Description: noDescription}
	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			v.Description = d.Value
			break
		}
	}

	m := cve.Metrics
	switch {
	case len(m.CvssMetricV31) > 0:
		setScore(v, m.CvssMetricV31[0].CvssData.BaseScore, m.CvssMetricV31[0].CvssData.BaseSeverity)
	case len(m.CvssMetricV30) > 0:
		setScore(v, m.CvssMetricV30[0].CvssData.BaseScore, m.CvssMetricV30[0].CvssData.BaseSeverity)
	case len(m.CvssMetricV2) > 0:
		setScore(v, m.CvssMetricV2[0].CvssData.BaseScore, m.CvssMetricV2[0].BaseSeverity)
	}

	// NVD-CWE-Other / NVD-CWE-noinfo 不是真实 CWE
weakness:
	for _, w := range cve.Weaknesses {
		for _, d := range w.Description {
			if strings.HasPrefix(d.Value, "CWE-") {
				v.CWEID = model.String(d.Value)
				break weakness
			}
		}
	}

	for _, r := range cve.References {
		if r.URL != "" {
			v.References = append(v.References, r.URL)
		}
	}
	return v, nil
}

// setScore 严重等级缺失时由分数推导
func setScore(v *model.Vulnerability, score float64, severity string) {
	score = clampScore(score)
	v.CVSSScore = model.Float(score)
	if severity == "" {
		severity = SeverityFromScore(score)
	}
	v.Severity = model.String(strings.ToUpper(severity))
}
