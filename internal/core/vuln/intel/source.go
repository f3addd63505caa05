package intel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"neorecon/internal/core/model"
)

// 情报源名称
const (
	SourceNVD   = "nvd"
	SourceMitre = "mitre"
	SourceCIRCL = "circl"
)

// DefaultTimeout 单个情报源请求超时
const DefaultTimeout = 10 * time.Second

const noDescription = "No description available"

// ErrNotFound 情报源没有该编号 (404 或空结果)
var ErrNotFound = errors.New("vulnerability not found")

// Source 单个漏洞情报源
type Source interface {
	Name() string
	Fetch(ctx context.Context, id string) (*model.Vulnerability, error)
}

// getJSON GET 并解码 JSON；非 2xx 统一视为 ErrNotFound
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, header map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// SeverityFromScore CVSS 分数映射严重等级
func SeverityFromScore(score float64) string {
	switch {
	case score >= 9.0:
		return model.SeverityCritical
	case score >= 7.0:
		return model.SeverityHigh
	case score >= 4.0:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// flexFloat 兼容数字与字符串两种编码的分数字段
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// 非法分数按缺失处理
		return nil
	}
	f.v = &x
	return nil
}

func (f flexFloat) ptr() *float64 {
	return f.v
}
