package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"neorecon/internal/config"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

const defaultCachePrefix = "neorecon:cve:"

// NewRedisConnection 创建Redis连接
func NewRedisConnection(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// RedisTier intel.Cache 的持久层，CVE 记录以 JSON 保存且不过期
type RedisTier struct {
	client redis.Cmdable
	prefix string
}

// NewRedisTier prefix 为空时使用默认前缀
func NewRedisTier(client redis.Cmdable, prefix string) *RedisTier {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	return &RedisTier{client: client, prefix: prefix}
}

// Key CVE 编号对应的缓存键
func (t *RedisTier) Key(id string) string {
	return t.prefix + id
}

// Get 未命中与连接错误都按未命中处理
func (t *RedisTier) Get(ctx context.Context, id string) (*model.Vulnerability, bool) {
	data, err := t.client.Get(ctx, t.Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.LogLookupOperation(id, "redis", "error", 0, map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	var v model.Vulnerability
	if err := json.Unmarshal(data, &v); err != nil || v.ID == "" {
		return nil, false
	}
	logger.LogLookupOperation(id, "redis", "cached", 0, nil)
	return &v, true
}

// Set 写入持久层
func (t *RedisTier) Set(ctx context.Context, v model.Vulnerability) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.ID, err)
	}
	if err := t.client.Set(ctx, t.Key(v.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", v.ID, err)
	}
	return nil
}
