package intel

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// MitreSource MITRE CVE 服务 (cveawg)，只提供描述、引用与 CWE
type MitreSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewMitreSource(baseURL, userAgent string, timeout time.Duration) *MitreSource {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MitreSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *MitreSource) Name() string { return SourceMitre }

func (s *MitreSource) Fetch(ctx context.Context, id string) (*model.Vulnerability, error) {
	var rec cveRecord
	if err := getJSON(ctx, s.client, s.baseURL+"/"+url.PathEscape(id), s.userAgent, nil, &rec); err != nil {
		return nil, err
	}
	if rec.empty() {
		return nil, ErrNotFound
	}
	return &model.Vulnerability{
		ID:          id,
		Description: rec.description(),
		References:  rec.references(),
		CWEID:       rec.cwe(),
	}, nil
}
