package osmapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"
	"travelnotes/internal/osmdata"

	"golang.org/x/time/rate"
)

// Overpass：Overpass API 客户端
// 约束：并发安全；每次请求先过限速器，再查缓存以外的远端
type Overpass struct {
	endpoint  string
	client    *http.Client
	limiter   *rate.Limiter
	cache     *PayloadCache
	userAgent string
}

// Option：客户端可选项
type Option func(*options)

type options struct {
	client    *http.Client
	limiter   *rate.Limiter
	cache     *PayloadCache
	userAgent string
}

func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithRate：每秒请求数，rps<=0 表示不限速
func WithRate(rps float64) Option {
	return func(o *options) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithCache(c *PayloadCache) Option { return func(o *options) { o.cache = c } }

func WithUserAgent(ua string) Option { return func(o *options) { o.userAgent = ua } }

func buildOptions(opts []Option) options {
	o := options{userAgent: "travelnotes/1.0"}
	for _, fn := range opts {
		fn(&o)
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	return o
}

// wait：限速等待；等待会越过 ctx 期限时按超时处理
func wait(ctx context.Context, l *rate.Limiter, service string) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		if _, ok := ctx.Deadline(); ok && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: rate wait: %w", service, ErrFetchTimeout)
		}
		return classify(service, err)
	}
	return nil
}

func NewOverpass(endpoint string, opts ...Option) *Overpass {
	o := buildOptions(opts)
	return &Overpass{endpoint: endpoint, client: o.client, limiter: o.limiter, cache: o.cache, userAgent: o.userAgent}
}

// Fetch：执行 Overpass QL 查询并解析 elements
// 参数：ctx 携带超时；超时返回 ErrFetchTimeout，其余失败返回 *FetchError
func (c *Overpass) Fetch(ctx context.Context, query string) (*osmdata.Payload, error) {
	key := CacheKey(query)
	if p, ok := c.cache.Get(ctx, key); ok {
		logger.L().Debug("overpass_cache_hit", "key", key)
		return p, nil
	}
	if err := wait(ctx, c.limiter, "overpass"); err != nil {
		return nil, err
	}
	u := c.endpoint + "?data=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Service: "overpass", Reason: "bad request", Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	logger.L().Debug("overpass_req", "bytes", len(query))
	resp, err := c.client.Do(req)
	if err != nil {
		logger.L().Error("overpass_http_error", "err", err)
		metrics.OSMRequestsTotal.WithLabelValues("overpass", "error").Inc()
		return nil, classify("overpass", err)
	}
	defer resp.Body.Close()
	metrics.OSMRequestsTotal.WithLabelValues("overpass", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		logger.L().Error("overpass_status_error", "status", resp.StatusCode)
		return nil, &FetchError{Service: "overpass", Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}
	p, err := osmdata.Decode(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify("overpass", ctx.Err())
		}
		logger.L().Error("overpass_decode_error", "err", err)
		return nil, &FetchError{Service: "overpass", Status: resp.StatusCode, Reason: "parse error", Err: err}
	}
	dur := time.Since(t0).Milliseconds()
	metrics.OSMDurationMs.WithLabelValues("overpass").Observe(float64(dur))
	logger.L().Debug("overpass_resp", "elements", len(p.Elements), "duration_ms", dur)
	c.cache.Set(ctx, key, p)
	return p, nil
}
