package intel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/config"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

func init() {
	logger.InitWriter(io.Discard, "debug")
}

const nvdBody = `{
  "totalResults": 1,
  "vulnerabilities": [{
    "cve": {
      "id": "CVE-2021-44228",
      "descriptions": [
        {"lang": "es", "value": "descripcion"},
        {"lang": "en", "value": "Apache Log4j2 JNDI features allow remote code execution"}
      ],
      "metrics": {
        "cvssMetricV31": [{"cvssData": {"baseScore": 10.0, "baseSeverity": "CRITICAL"}}],
        "cvssMetricV2": [{"cvssData": {"baseScore": 9.3}, "baseSeverity": "HIGH"}]
      },
      "weaknesses": [
        {"description": [{"lang": "en", "value": "NVD-CWE-Other"}]},
        {"description": [{"lang": "en", "value": "CWE-502"}]}
      ],
      "references": [{"url": "https://logging.apache.org/log4j/2.x/security.html"}]
    }
  }]
}`

const mitreBody = `{
  "cveMetadata": {"cveId": "CVE-2020-0001"},
  "containers": {
    "cna": {
      "descriptions": [{"lang": "en", "value": "MITRE description"}],
      "references": [{"url": "https://example.org/advisory"}],
      "problemTypes": [{"descriptions": [{"cweId": "CWE-20"}]}]
    }
  }
}`

// sourceServer 按路径返回固定响应并记录请求次数
type sourceServer struct {
	*httptest.Server
	hits int32
}

func newSourceServer(t *testing.T, status int, body string) *sourceServer {
	t.Helper()
	s := &sourceServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.hits, 1)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sourceServer) count() int {
	return int(atomic.LoadInt32(&s.hits))
}

func TestNVDSource_Fetch(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apiKey")
		gotQuery = r.URL.Query().Get("cveId")
		_, _ = io.WriteString(w, nvdBody)
	}))
	defer srv.Close()

	v, err := NewNVDSource(srv.URL, "secret", "test", time.Second).Fetch(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "CVE-2021-44228", gotQuery)
	assert.Equal(t, "Apache Log4j2 JNDI features allow remote code execution", v.Description)
	assert.Equal(t, "CRITICAL", v.SeverityLabel())
	assert.Equal(t, 10.0, v.Score())
	require.NotNil(t, v.CWEID)
	assert.Equal(t, "CWE-502", *v.CWEID)
	assert.Equal(t, []string{"https://logging.apache.org/log4j/2.x/security.html"}, v.References)
}

func TestNVDSource_FallbackMetrics(t *testing.T) {
	v2Only := `{"vulnerabilities":[{"cve":{"id":"CVE-2010-1","descriptions":[{"lang":"en","value":"old"}],
	  "metrics":{"cvssMetricV2":[{"cvssData":{"baseScore":5.0},"baseSeverity":"MEDIUM"}]}}}]}`
	srv := newSourceServer(t, http.StatusOK, v2Only)

	v, err := NewNVDSource(srv.URL, "", "test", time.Second).Fetch(context.Background(), "CVE-2010-1")
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", v.SeverityLabel())
	assert.Equal(t, 5.0, v.Score())
	assert.Nil(t, v.CWEID)
}

func TestNVDSource_NotFound(t *testing.T) {
	empty := newSourceServer(t, http.StatusOK, `{"totalResults":0,"vulnerabilities":[]}`)
	_, err := NewNVDSource(empty.URL, "", "test", time.Second).Fetch(context.Background(), "CVE-2099-0001")
	assert.ErrorIs(t, err, ErrNotFound)

	missing := newSourceServer(t, http.StatusNotFound, "")
	_, err = NewNVDSource(missing.URL, "", "test", time.Second).Fetch(context.Background(), "CVE-2099-0001")
	assert.ErrorIs(t, err, ErrNotFound)

	broken := newSourceServer(t, http.StatusOK, "{not json")
	_, err = NewNVDSource(broken.URL, "", "test", time.Second).Fetch(context.Background(), "CVE-2099-0001")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMitreSource_Fetch(t *testing.T) {
	srv := newSourceServer(t, http.StatusOK, mitreBody)
	v, err := NewMitreSource(srv.URL, "test", time.Second).Fetch(context.Background(), "CVE-2020-0001")
	require.NoError(t, err)

	assert.Equal(t, "MITRE description", v.Description)
	assert.Equal(t, []string{"https://example.org/advisory"}, v.References)
	assert.Nil(t, v.Severity)
	assert.Nil(t, v.CVSSScore)
	require.NotNil(t, v.CWEID)
	assert.Equal(t, "CWE-20", *v.CWEID)
}

func TestMitreSource_LegacyLayout(t *testing.T) {
	legacy := `{"descriptions":[{"lang":"en","value":"top level"}],"references":[{"url":"https://a"}]}`
	srv := newSourceServer(t, http.StatusOK, legacy)
	v, err := NewMitreSource(srv.URL, "test", time.Second).Fetch(context.Background(), "CVE-2020-0002")
	require.NoError(t, err)
	assert.Equal(t, "top level", v.Description)
	assert.Equal(t, []string{"https://a"}, v.References)
}

func TestCirclSource_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		score    float64
		severity string
	}{
		{"cvss3 preferred", `{"id":"CVE-1","summary":"s","references":["https://r"],"cvss":5.0,"cvss3":9.8}`, 9.8, "CRITICAL"},
		{"cvss fallback", `{"id":"CVE-1","summary":"s","cvss":7.0}`, 7.0, "HIGH"},
		{"string score", `{"id":"CVE-1","summary":"s","cvss":"4.3"}`, 4.3, "MEDIUM"},
		{"low", `{"id":"CVE-1","summary":"s","cvss3":3.9}`, 3.9, "LOW"},
		{"cve 5 record", `{"containers":{"cna":{"descriptions":[{"lang":"en","value":"s"}],"metrics":[{"cvssV3_1":{"baseScore":8.1,"baseSeverity":"HIGH"}}]}}}`, 8.1, "HIGH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newSourceServer(t, http.StatusOK, tt.body)
			v, err := NewCirclSource(srv.URL, "test", time.Second).Fetch(context.Background(), "CVE-1")
			require.NoError(t, err)
			assert.Equal(t, "s", v.Description)
			assert.InDelta(t, tt.score, v.Score(), 1e-9)
			assert.Equal(t, tt.severity, v.SeverityLabel())
		})
	}

	srv := newSourceServer(t, http.StatusOK, "null")
	_, err := NewCirclSource(srv.URL, "test", time.Second).Fetch(context.Background(), "CVE-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeverityFromScore(t *testing.T) {
	assert.Equal(t, "CRITICAL", SeverityFromScore(9.0))
	assert.Equal(t, "HIGH", SeverityFromScore(8.99))
	assert.Equal(t, "HIGH", SeverityFromScore(7.0))
	assert.Equal(t, "MEDIUM", SeverityFromScore(4.0))
	assert.Equal(t, "LOW", SeverityFromScore(3.99))
	assert.Equal(t, "LOW", SeverityFromScore(0))
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(nil)
	ctx := context.Background()
	c.Put(ctx, model.Vulnerability{ID: "CVE-1", Description: "d", References: []string{"a"}})

	v, ok := c.Get(ctx, "CVE-1")
	require.True(t, ok)
	v.Description = "changed"
	v.References[0] = "changed"

	again, ok := c.Get(ctx, "CVE-1")
	require.True(t, ok)
	assert.Equal(t, "d", again.Description)
	assert.Equal(t, []string{"a"}, again.References)

	_, ok = c.Get(ctx, "cve-1")
	assert.False(t, ok, "keys are exact")
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("CVE-2024-%04d", i%10)
			c.Put(ctx, model.Vulnerability{ID: id, Description: "x"})
			_, _ = c.Get(ctx, id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}

type memTier struct {
	mu   sync.Mutex
	data map[string]model.Vulnerability
}

func (m *memTier) Get(_ context.Context, id string) (*model.Vulnerability, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[id]
	if !ok {
		return nil, false
	}
	cp := v.Clone()
	return &cp, true
}

func (m *memTier) Set(_ context.Context, v model.Vulnerability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[v.ID] = v.Clone()
	return nil
}

func TestCache_Tier(t *testing.T) {
	tier := &memTier{data: map[string]model.Vulnerability{"CVE-9": {ID: "CVE-9", Description: "persisted"}}}
	c := NewCache(tier)
	ctx := context.Background()

	v, ok := c.Get(ctx, "CVE-9")
	require.True(t, ok)
	assert.Equal(t, "persisted", v.Description)
	assert.Equal(t, 1, c.Len())

	c.Put(ctx, model.Vulnerability{ID: "CVE-10", Description: "new"})
	_, ok = tier.data["CVE-10"]
	assert.True(t, ok)
}

func TestService_FallbackOrderAndCache(t *testing.T) {
	nvd := newSourceServer(t, http.StatusNotFound, "")
	mitre := newSourceServer(t, http.StatusInternalServerError, "")
	circl := newSourceServer(t, http.StatusOK, `{"id":"CVE-2020-1","summary":"from circl","cvss":6.5}`)

	svc := NewServiceWith(NewCache(nil), nil, true,
		NewNVDSource(nvd.URL, "", "test", time.Second),
		NewMitreSource(mitre.URL, "test", time.Second),
		NewCirclSource(circl.URL, "test", time.Second),
	)

	v, ok := svc.Lookup(context.Background(), "CVE-2020-1")
	require.True(t, ok)
	assert.Equal(t, "from circl", v.Description)
	assert.Equal(t, "MEDIUM", v.SeverityLabel())
	assert.Equal(t, []int{1, 1, 1}, []int{nvd.count(), mitre.count(), circl.count()})

	// 第二次命中缓存，不再访问网络
	v2, ok := svc.Lookup(context.Background(), "CVE-2020-1")
	require.True(t, ok)
	assert.Equal(t, "from circl", v2.Description)
	assert.Equal(t, []int{1, 1, 1}, []int{nvd.count(), mitre.count(), circl.count()})
}

func TestService_AllSourcesFail(t *testing.T) {
	down := newSourceServer(t, http.StatusNotFound, "")
	cache := NewCache(nil)
	svc := NewServiceWith(cache, nil, true,
		NewNVDSource(down.URL, "", "test", time.Second),
		NewMitreSource(down.URL, "test", time.Second),
		NewCirclSource(down.URL, "test", time.Second),
	)

	v, ok := svc.Lookup(context.Background(), "CVE-2099-1")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 3, down.count())
}

func newKEVServer(t *testing.T, ids ...string) *sourceServer {
	entries := make([]string, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, fmt.Sprintf(`{"cveID":%q}`, id))
	}
	return newSourceServer(t, http.StatusOK, `{"catalogVersion":"1","count":1,"vulnerabilities":[`+strings.Join(entries, ",")+`]}`)
}

func TestService_EnrichesAndEscalates(t *testing.T) {
	nvd := newSourceServer(t, http.StatusOK, nvdBody)
	kev := newKEVServer(t, "CVE-2021-44228")
	exploitDB := newSourceServer(t, http.StatusOK, "<html>CVE-2021-44228 exploit</html>")

	enricher := NewEnricher(exploitDB.URL, kev.URL, "test", time.Second)
	svc := NewServiceWith(NewCache(nil), enricher, false, NewNVDSource(nvd.URL, "", "test", time.Second))

	v, ok := svc.Lookup(context.Background(), "CVE-2021-44228")
	require.True(t, ok)

	assert.True(t, v.IsActivelyExploited())
	assert.True(t, v.HasExploit())
	assert.Equal(t, model.SeverityCritical, v.SeverityLabel())
	assert.True(t, strings.HasPrefix(v.Description, ActivelyExploitedPrefix))
	assert.Contains(t, v.References, exploitDB.URL+"?cve=CVE-2021-44228")
	assert.Equal(t, []string{"Initial Access", "Execution"}, v.MitreTactics)
	assert.Equal(t, []string{"T1190", "T1203"}, v.MitreTechniques)
}

func TestService_EnrichmentScope(t *testing.T) {
	circlBody := `{"id":"CVE-2020-2","summary":"circl","cvss":7.5}`

	for _, enrichAll := range []bool{true, false} {
		t.Run(fmt.Sprintf("enrichAll=%v", enrichAll), func(t *testing.T) {
			circl := newSourceServer(t, http.StatusOK, circlBody)
			kev := newKEVServer(t, "CVE-2020-2")
			exploitDB := newSourceServer(t, http.StatusOK, "No results")

			enricher := NewEnricher(exploitDB.URL, kev.URL, "test", time.Second)
			svc := NewServiceWith(NewCache(nil), enricher, enrichAll, NewCirclSource(circl.URL, "test", time.Second))

			v, ok := svc.Lookup(context.Background(), "CVE-2020-2")
			require.True(t, ok)
			if enrichAll {
				assert.True(t, v.IsActivelyExploited())
				require.NotNil(t, v.ExploitAvailable)
				assert.False(t, *v.ExploitAvailable)
				assert.Equal(t, model.SeverityCritical, v.SeverityLabel())
			} else {
				assert.Nil(t, v.ActivelyExploited)
				assert.Nil(t, v.ExploitAvailable)
				assert.Equal(t, "HIGH", v.SeverityLabel())
			}
		})
	}
}

func TestEnricher_KEVDownloadedOnce(t *testing.T) {
	kev := newKEVServer(t, "CVE-1")
	e := NewEnricher("", kev.URL, "test", time.Second)

	for _, id := range []string{"CVE-1", "CVE-2", "CVE-1"} {
		_, err := e.ActivelyExploited(context.Background(), id)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, kev.count())

	active, _ := e.ActivelyExploited(context.Background(), "CVE-2")
	assert.False(t, active)
}

// newFlakyKEVServer 前 failures 次请求返回 503，之后返回正常目录
func newFlakyKEVServer(t *testing.T, failures int, ids ...string) *sourceServer {
	t.Helper()
	healthy := newKEVServer(t, ids...)
	s := &sourceServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(atomic.AddInt32(&s.hits, 1)) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		healthy.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestEnricher_KEVRetriedAfterFailure(t *testing.T) {
	kev := newFlakyKEVServer(t, 1, "CVE-2021-44228")
	e := NewEnricher("", kev.URL, "test", time.Second)
	e.kevRetry = 0

	_, err := e.ActivelyExploited(context.Background(), "CVE-2021-44228")
	require.Error(t, err)

	active, err := e.ActivelyExploited(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	assert.True(t, active)

	// 成功后不再下载
	_, err = e.ActivelyExploited(context.Background(), "CVE-1")
	require.NoError(t, err)
	assert.Equal(t, 2, kev.count())
}

func TestEnricher_KEVFailureWaitsForRetryInterval(t *testing.T) {
	kev := newFlakyKEVServer(t, 1, "CVE-1")
	e := NewEnricher("", kev.URL, "test", time.Second)

	for i := 0; i < 3; i++ {
		_, err := e.ActivelyExploited(context.Background(), "CVE-1")
		require.Error(t, err)
	}
	assert.Equal(t, 1, kev.count())
}

func TestService_CachedRecordRecheckedAfterKEVOutage(t *testing.T) {
	nvd := newSourceServer(t, http.StatusOK, nvdBody)
	kev := newFlakyKEVServer(t, 1, "CVE-2021-44228")
	exploitDB := newSourceServer(t, http.StatusOK, "No results")

	enricher := NewEnricher(exploitDB.URL, kev.URL, "test", time.Second)
	enricher.kevRetry = 0
	cache := NewCache(nil)
	svc := NewServiceWith(cache, enricher, false, NewNVDSource(nvd.URL, "", "test", time.Second))

	v, ok := svc.Lookup(context.Background(), "CVE-2021-44228")
	require.True(t, ok)
	assert.Nil(t, v.ActivelyExploited)

	// 缓存命中时补查 KEV 并写回缓存
	v, ok = svc.Lookup(context.Background(), "CVE-2021-44228")
	require.True(t, ok)
	assert.True(t, v.IsActivelyExploited())
	assert.Equal(t, model.SeverityCritical, v.SeverityLabel())
	assert.True(t, strings.HasPrefix(v.Description, ActivelyExploitedPrefix))

	cached, ok := cache.Get(context.Background(), "CVE-2021-44228")
	require.True(t, ok)
	assert.True(t, cached.IsActivelyExploited())

	_, _ = svc.Lookup(context.Background(), "CVE-2021-44228")
	assert.Equal(t, 1, nvd.count())
	assert.Equal(t, 2, kev.count())
}

func TestEnricher_FailuresLeaveFieldsUnset(t *testing.T) {
	down := newSourceServer(t, http.StatusInternalServerError, "")
	e := NewEnricher("", down.URL, "test", time.Second)

	v := &model.Vulnerability{ID: "CVE-2020-3", Description: "d"}
	e.Enrich(context.Background(), v)

	assert.Nil(t, v.ActivelyExploited)
	assert.Nil(t, v.ExploitAvailable)
	assert.NotEmpty(t, v.MitreTactics)
	assert.Equal(t, "d", v.Description)
}

func TestEscalate_Idempotent(t *testing.T) {
	v := &model.Vulnerability{ID: "CVE-1", Description: "d", Severity: model.String("HIGH"), ActivelyExploited: model.Bool(true)}
	Escalate(v)
	Escalate(v)
	assert.Equal(t, ActivelyExploitedPrefix+"d", v.Description)
	assert.Equal(t, model.SeverityCritical, v.SeverityLabel())

	noSeverity := &model.Vulnerability{ID: "CVE-2", Description: "d", ActivelyExploited: model.Bool(true)}
	Escalate(noSeverity)
	assert.Equal(t, model.SeverityCritical, noSeverity.SeverityLabel())

	quiet := &model.Vulnerability{ID: "CVE-3", Description: "d", Severity: model.String("LOW"), ActivelyExploited: model.Bool(false)}
	Escalate(quiet)
	assert.Equal(t, "d", quiet.Description)
	assert.Equal(t, "LOW", quiet.SeverityLabel())
}

func TestMapMitre(t *testing.T) {
	tests := []struct {
		id, desc   string
		wantTactic string
	}{
		{"OT-MODBUS-NOAUTH", "", "Credential Access"},
		{"OT-S7-CLEARTEXT", "", "Initial Access"},
		{"CVE-2019-0708", "allows remote code execution", "Initial Access"},
		{"CVE-2020-1", "A SQL injection in the login form", "Initial Access"},
		{"CVE-2020-2", "local privilege escalation", "Privilege Escalation"},
		{"CVE-2020-3", "can cause a denial of service", "Impact"},
		{"CVE-2020-4", "something vague", "Initial Access"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			tactics, techniques := MapMitre(&model.Vulnerability{ID: tt.id, Description: tt.desc})
			require.NotEmpty(t, tactics)
			require.NotEmpty(t, techniques)
			assert.Equal(t, tt.wantTactic, tactics[0])
		})
	}

	v := &model.Vulnerability{ID: "CVE-1", MitreTactics: []string{"Custom"}}
	ApplyMitre(v)
	assert.Equal(t, []string{"Custom"}, v.MitreTactics)
	assert.Nil(t, v.MitreTechniques)
}

func TestNewService_FromConfig(t *testing.T) {
	cfg := &config.IntelConfig{
		NVDURL:   "http://127.0.0.1:1/nvd",
		MitreURL: "http://127.0.0.1:1/mitre",
		CirclURL: "http://127.0.0.1:1/circl",
		Timeout:  200 * time.Millisecond,
	}
	svc := NewService(cfg, nil)
	require.Len(t, svc.sources, 3)
	assert.Equal(t, []string{SourceNVD, SourceMitre, SourceCIRCL},
		[]string{svc.sources[0].Name(), svc.sources[1].Name(), svc.sources[2].Name()})
	assert.NotNil(t, svc.Cache())
}
