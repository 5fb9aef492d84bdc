package utils

import (
	"net"
	"os"

	"travelnotes/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisOptionsFromEnv：REDIS_HOST 未配置时 ok=false（仅使用进程内缓存）
// 约束：REDIS_DB 解析失败时回退到 0
func RedisOptionsFromEnv() (opts *redis.Options, ok bool) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil, false
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, envOr("REDIS_PORT", "6379")),
		Password: os.Getenv("REDIS_PASS"),
		DB:       envCount("REDIS_DB", 0),
	}, true
}

// OpenRedisFromEnv：返回 nil 表示未启用 Redis
func OpenRedisFromEnv() *redis.Client {
	opts, ok := RedisOptionsFromEnv()
	if !ok {
		return nil
	}
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)
	return redis.NewClient(opts)
}
