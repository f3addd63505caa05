/**
 * 漏洞情报查询
 * @author: sun977
 * @date: 2025.11.05
 * @description: 缓存 -> NVD -> MITRE -> CIRCL 依次回退，命中后富化并写回缓存
 */
package intel

import (
	"context"
	"errors"
	"sync"
	"time"

	"neorecon/internal/config"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/pkg/version"
)

// Service 多源漏洞查询，可并发使用
type Service struct {
	cache     *Cache
	sources   []Source
	enricher  *Enricher
	enrichAll bool

	// 富化时 KEV 不可用的漏洞 ID，缓存命中时补查
	kevPending sync.Map
}

// NewService 按配置构建 NVD -> MITRE -> CIRCL 查询链
func NewService(cfg *config.IntelConfig, cache *Cache) *Service {
	ua := cfg.UserAgent
	if ua == "" {
		ua = version.GetUserAgent()
	}
	sources := []Source{
		NewNVDSource(cfg.NVDURL, cfg.NVDAPIKey, ua, cfg.Timeout),
		NewMitreSource(cfg.MitreURL, ua, cfg.Timeout),
		NewCirclSource(cfg.CirclURL, ua, cfg.Timeout),
	}
	enricher := NewEnricher(cfg.ExploitDBURL, cfg.KEVURL, ua, cfg.EnrichTimeout)
	return NewServiceWith(cache, enricher, cfg.EnrichAllSources, sources...)
}

// NewServiceWith 自定义情报源顺序，enricher 可为空
func NewServiceWith(cache *Cache, enricher *Enricher, enrichAll bool, sources ...Source) *Service {
	if cache == nil {
		cache = NewCache(nil)
	}
	return &Service{cache: cache, sources: sources, enricher: enricher, enrichAll: enrichAll}
}

// Cache 注入的缓存
func (s *Service) Cache() *Cache {
	return s.cache
}

// Lookup 查询漏洞详情，所有情报源都失败时返回 false，不写缓存
func (s *Service) Lookup(ctx context.Context, id string) (*model.Vulnerability, bool) {
	if v, ok := s.cache.Get(ctx, id); ok {
		logger.LogLookupOperation(id, "cache", "cached", 0, nil)
		s.recheckKEV(ctx, v)
		return v, true
	}

	for _, src := range s.sources {
		if ctx.Err() != nil {
			return nil, false
		}

		start := time.Now()
		v, err := src.Fetch(ctx, id)
		if err != nil {
			status := "error"
			if errors.Is(err, ErrNotFound) {
				status = "miss"
			}
			logger.LogLookupOperation(id, src.Name(), status, time.Since(start), map[string]interface{}{"error": err.Error()})
			continue
		}
		logger.LogLookupOperation(id, src.Name(), "hit", time.Since(start), nil)

		if s.enricher != nil && (s.enrichAll || src.Name() == SourceNVD) {
			s.enricher.Enrich(ctx, v)
			if v.ActivelyExploited == nil {
				s.kevPending.Store(v.ID, struct{}{})
			}
		}

		s.cache.Put(ctx, *v)
		return v, true
	}
	return nil, false
}

func (s *Service) recheckKEV(ctx context.Context, v *model.Vulnerability) {
	if s.enricher == nil {
		return
	}
	if _, pending := s.kevPending.Load(v.ID); !pending {
		return
	}
	if s.enricher.RecheckKEV(ctx, v) {
		s.kevPending.Delete(v.ID)
		s.cache.Put(ctx, *v)
	}
}
