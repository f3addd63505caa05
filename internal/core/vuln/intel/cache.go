package intel

import (
	"context"
	"sync"

	"neorecon/internal/core/model"
)

// Tier 缓存持久层 (redis)，进程重启后仍可命中
type Tier interface {
	Get(ctx context.Context, id string) (*model.Vulnerability, bool)
	Set(ctx context.Context, v model.Vulnerability) error
}

// Cache CVE 查询结果缓存
// 以 CVE 编号精确匹配为键，进程生命周期内不过期；并发重复拉取允许，后写覆盖
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.Vulnerability
	tier    Tier
}

// NewCache 创建空缓存，tier 可为空
func NewCache(tier Tier) *Cache {
	return &Cache{entries: make(map[string]model.Vulnerability), tier: tier}
}

// Get 返回副本，调用方可以自由修改
func (c *Cache) Get(ctx context.Context, id string) (*model.Vulnerability, bool) {
	c.mu.RLock()
	v, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		cp := v.Clone()
		return &cp, true
	}

	if c.tier == nil {
		return nil, false
	}
	tv, ok := c.tier.Get(ctx, id)
	if !ok || tv == nil {
		return nil, false
	}

	c.mu.Lock()
	c.entries[id] = tv.Clone()
	c.mu.Unlock()
	return tv, true
}

// Put 写入缓存，持久层写失败不影响内存缓存
func (c *Cache) Put(ctx context.Context, v model.Vulnerability) {
	c.mu.Lock()
	c.entries[v.ID] = v.Clone()
	c.mu.Unlock()

	if c.tier != nil {
		_ = c.tier.Set(ctx, v)
	}
}

// Len 内存中的条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
