package intel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// DefaultEnrichTimeout 富化请求超时
const DefaultEnrichTimeout = 5 * time.Second

// kevRetryInterval KEV 目录下载失败后的重试间隔
const kevRetryInterval = 30 * time.Second

// ActivelyExploitedPrefix 在野利用标记
const ActivelyExploitedPrefix = "[ACTIVELY EXPLOITED] "

// kevCatalog CISA Known Exploited Vulnerabilities
type kevCatalog struct {
	CatalogVersion  string `json:"catalogVersion"`
	Count           int    `json:"count"`
	Vulnerabilities []struct {
		CVEID string `json:"cveID"`
	} `json:"vulnerabilities"`
}

// Enricher 漏洞富化: exploit-db、KEV、ATT&CK 映射
// 每一项独立尽力而为，失败只保持对应字段为空
type Enricher struct {
	exploitDBURL string
	kevURL       string
	userAgent    string
	client       *http.Client

	kevMu       sync.Mutex
	kevIndex    map[string]struct{} // 只保存成功下载的目录
	kevErr      error               // 最近一次失败原因
	kevFailedAt time.Time
	kevRetry    time.Duration
}

func NewEnricher(exploitDBURL, kevURL, userAgent string, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	return &Enricher{
		exploitDBURL: exploitDBURL,
		kevURL:       kevURL,
		userAgent:    userAgent,
		client:       &http.Client{Timeout: timeout},
		kevRetry:     kevRetryInterval,
	}
}

// Enrich 原地富化
func (e *Enricher) Enrich(ctx context.Context, v *model.Vulnerability) {
	if links, found, err := e.ExploitLinks(ctx, v.ID); err != nil {
		logger.Debugf("exploit-db check for %s failed: %v", v.ID, err)
	} else {
		v.ExploitAvailable = model.Bool(found)
		v.References = appendUnique(v.References, links...)
	}

	if active, err := e.ActivelyExploited(ctx, v.ID); err != nil {
		logger.Debugf("KEV check for %s failed: %v", v.ID, err)
	} else {
		v.ActivelyExploited = model.Bool(active)
	}

	ApplyMitre(v)
	Escalate(v)
}

// ExploitLinks 查询 exploit-db 是否有公开利用
func (e *Enricher) ExploitLinks(ctx context.Context, id string) ([]string, bool, error) {
	if e.exploitDBURL == "" {
		return nil, false, fmt.Errorf("exploit-db url not configured")
	}
	searchURL := e.exploitDBURL + "?cve=" + url.QueryEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request exploit-db: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, false, fmt.Errorf("read exploit-db response: %w", err)
	}

	text := string(body)
	if strings.Contains(text, "No results") || !strings.Contains(text, id) {
		return nil, false, nil
	}
	return []string{searchURL}, true, nil
}

// ActivelyExploited 查询 KEV 目录
// 目录下载成功后进程内复用；失败时在 kevRetry 之后重新下载
func (e *Enricher) ActivelyExploited(ctx context.Context, id string) (bool, error) {
	index, err := e.kevCatalog(ctx)
	if err != nil {
		return false, err
	}
	_, ok := index[id]
	return ok, nil
}

// RecheckKEV 补做此前失败的 KEV 检查，成功时写入标记并按需提升等级
func (e *Enricher) RecheckKEV(ctx context.Context, v *model.Vulnerability) bool {
	active, err := e.ActivelyExploited(ctx, v.ID)
	if err != nil {
		return false
	}
	v.ActivelyExploited = model.Bool(active)
	Escalate(v)
	return true
}

func (e *Enricher) kevCatalog(ctx context.Context) (map[string]struct{}, error) {
	e.kevMu.Lock()
	defer e.kevMu.Unlock()

	if e.kevIndex != nil {
		return e.kevIndex, nil
	}
	if e.kevErr != nil && time.Since(e.kevFailedAt) < e.kevRetry {
		return nil, e.kevErr
	}

	// 目录在整个进程内共享，不跟随单次查询取消
	index, err := e.loadKEV(context.WithoutCancel(ctx))
	if err != nil {
		e.kevErr, e.kevFailedAt = err, time.Now()
		return nil, err
	}
	e.kevIndex, e.kevErr = index, nil
	logger.Infof("KEV catalog loaded: %d entries", len(index))
	return index, nil
}

func (e *Enricher) loadKEV(ctx context.Context) (map[string]struct{}, error) {
	if e.kevURL == "" {
		return nil, fmt.Errorf("kev url not configured")
	}
	var catalog kevCatalog
	if err := getJSON(ctx, e.client, e.kevURL, e.userAgent, nil, &catalog); err != nil {
		return nil, fmt.Errorf("load KEV catalog: %w", err)
	}
	index := make(map[string]struct{}, len(catalog.Vulnerabilities))
	for _, entry := range catalog.Vulnerabilities {
		index[entry.CVEID] = struct{}{}
	}
	return index, nil
}

// Escalate 在野利用的漏洞加前缀并提升到 CRITICAL，重复调用无副作用
func Escalate(v *model.Vulnerability) {
	if !v.IsActivelyExploited() {
		return
	}
	if !strings.HasPrefix(v.Description, ActivelyExploitedPrefix) {
		v.Description = ActivelyExploitedPrefix + v.Description
	}
	if v.Severity == nil || *v.Severity != model.SeverityCritical {
		v.Severity = model.String(model.SeverityCritical)
	}
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range list {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
