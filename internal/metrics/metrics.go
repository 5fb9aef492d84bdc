package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 15000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travelnotes_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "travelnotes_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"route"})
	IconBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travelnotes_icon_builds_total",
		Help: "Icon builds by outcome (ok, busy, empty, timeout, fetch_failed, error)",
	}, []string{"outcome"})
	IconBuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "travelnotes_icon_build_duration_ms",
		Help:    "Icon build duration in milliseconds, fetch included",
		Buckets: latencyBuckets,
	})
	NoteEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travelnotes_note_events_total",
		Help: "Note notifications by kind (attached, detached, distance_changed)",
	}, []string{"event"})
	OSMRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travelnotes_osm_requests_total",
		Help: "Outbound OSM requests by service and status",
	}, []string{"service", "status"})
	OSMDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "travelnotes_osm_duration_ms",
		Help:    "Outbound OSM request duration in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"service"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "travelnotes_cache_hits_total",
		Help: "Overpass payload cache hits by tier (memory, redis)",
	}, []string{"tier"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "travelnotes_cache_misses_total",
		Help: "Overpass payload cache misses",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "travelnotes_rate_limited_total",
		Help: "Requests rejected by the inbound rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(IconBuildsTotal)
	prometheus.MustRegister(IconBuildDurationMs)
	prometheus.MustRegister(NoteEventsTotal)
	prometheus.MustRegister(OSMRequestsTotal)
	prometheus.MustRegister(OSMDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
