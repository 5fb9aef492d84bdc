package middleware

import (
	"net/http"
	"os"
	"strconv"

	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：图标与地理编码会触发外部 OSM 请求，入口限速避免把外部服务打满；按环境变量开关与速率配置。
// 约束：不做队列排队，仅丢弃并返回 429。
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket：qps 同时作为突发容量
func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(qps), qps)}
}

func (tb *TokenBucket) Allow() bool { return tb.limiter.Allow() }

func (tb *TokenBucket) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			metrics.RateLimitedTotal.Inc()
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：RATE_LIMIT_ENABLED=true 时启用，RATE_LIMIT_QPS 默认 200
func Wrap(next http.Handler) http.Handler {
	if os.Getenv("RATE_LIMIT_ENABLED") != "true" {
		return next
	}
	qps := 200
	if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			qps = n
		}
	}
	logger.L().Info("rate_limit_enabled", "qps", qps)
	return NewTokenBucket(qps).Wrap(next)
}
