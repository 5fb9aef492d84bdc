package osmapi

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"
	"travelnotes/internal/osmdata"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const cacheKeyPrefix = "tn:overpass:"

// PayloadCache：两级缓存，进程内 LRU 在前，Redis 在后
// 约束：Redis 可为空；Redis 读写失败只记录日志，不影响主流程
type PayloadCache struct {
	mem *expirable.LRU[string, *osmdata.Payload]
	rdb *redis.Client
	ttl time.Duration
}

func NewPayloadCache(size int, ttl time.Duration, rdb *redis.Client) *PayloadCache {
	if size <= 0 {
		size = 256
	}
	return &PayloadCache{
		mem: expirable.NewLRU[string, *osmdata.Payload](size, nil, ttl),
		rdb: rdb,
		ttl: ttl,
	}
}

// CacheKey：查询文本的摘要
func CacheKey(query string) string {
	sum := sha1.Sum([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *PayloadCache) Get(ctx context.Context, key string) (*osmdata.Payload, bool) {
	if c == nil {
		return nil, false
	}
	if p, ok := c.mem.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return p, true
	}
	if c.rdb != nil {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var p osmdata.Payload
			derr := msgpack.Unmarshal(b, &p)
			if derr == nil {
				metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
				c.mem.Add(key, &p)
				return &p, true
			}
			logger.L().Warn("payload_cache_decode_error", "key", key, "err", derr)
		} else if err != redis.Nil {
			logger.L().Warn("payload_cache_redis_error", "key", key, "err", err)
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *PayloadCache) Set(ctx context.Context, key string, p *osmdata.Payload) {
	if c == nil || p == nil {
		return
	}
	c.mem.Add(key, p)
	if c.rdb == nil {
		return
	}
	b, err := msgpack.Marshal(p)
	if err != nil {
		logger.L().Warn("payload_cache_encode_error", "key", key, "err", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.L().Warn("payload_cache_redis_error", "key", key, "err", err)
	}
}
