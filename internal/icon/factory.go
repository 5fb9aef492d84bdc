package icon

import (
	"context"
	"errors"
	"time"

	"travelnotes/internal/config"
	"travelnotes/internal/itinerary"
	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"
	"travelnotes/internal/osmapi"
	"travelnotes/internal/osmdata"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
)

// Fetcher：原始地图数据来源
type Fetcher interface {
	Fetch(ctx context.Context, query string) (*osmdata.Payload, error)
}

// Factory：图标生成入口，持有单飞标志
// 约束：进程内只创建一个实例
type Factory struct {
	guard   Guard
	builder *Builder
	fetcher Fetcher
	cfg     config.Icon
}

func NewFactory(cfg config.Icon, lang string, f Fetcher) *Factory {
	return &Factory{builder: NewBuilder(cfg, lang), fetcher: f, cfg: cfg}
}

// Busy：是否有构建在进行中
func (f *Factory) Busy() bool { return f.guard.Busy() }

// Build：拉取锚点附近的 OSM 数据并生成图标几何
// 约束：已有构建在进行时立即返回 ErrAlreadyInFlight；任何失败都不返回部分结果；标志在所有出口释放
func (f *Factory) Build(ctx context.Context, anchor orb.Point, r *travel.Route) (*Result, error) {
	if !f.guard.TryAcquire() {
		metrics.IconBuildsTotal.WithLabelValues("busy").Inc()
		logger.L().Info("icon_build_rejected", "route", r.ID)
		return nil, ErrAlreadyInFlight
	}
	defer f.guard.Release()

	t0 := time.Now()
	res, err := f.build(ctx, anchor, r)
	metrics.IconBuildDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	metrics.IconBuildsTotal.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		logger.L().Warn("icon_build_failed", "route", r.ID, "err", err)
		return nil, err
	}
	logger.L().Debug("icon_build_done", "route", r.ID, "ways", len(res.Ways), "streets", len(res.Streets), "duration_ms", time.Since(t0).Milliseconds())
	return res, nil
}

func (f *Factory) build(ctx context.Context, anchor orb.Point, r *travel.Route) (*Result, error) {
	if r.Itinerary.Len() == 0 {
		return nil, itinerary.ErrEmptySequence
	}
	logger.L().Debug("icon_build_begin", "route", r.ID, "lat", anchor.Lat(), "lon", anchor.Lon())
	if f.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.FetchTimeout)
		defer cancel()
	}
	p, err := f.fetcher.Fetch(ctx, osmapi.IconQuery(anchor.Lat(), anchor.Lon(), f.cfg))
	if err != nil {
		return nil, err
	}
	return f.builder.Build(anchor, r, osmdata.NewIndex(p.Elements))
}

// Outcome：构建结果分类，用于指标与统计
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyInFlight):
		return "busy"
	case errors.Is(err, itinerary.ErrEmptySequence):
		return "empty"
	case errors.Is(err, osmapi.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, osmapi.ErrFetchFailed):
		return "fetch_failed"
	default:
		return "error"
	}
}
