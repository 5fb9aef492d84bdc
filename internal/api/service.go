package api

import (
	"context"
	"sync"

	"travelnotes/internal/geocoder"
	"travelnotes/internal/icon"
	"travelnotes/internal/metrics"
	"travelnotes/internal/notes"
	"travelnotes/internal/store"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
)

// IconBuilder：图标生成（icon.Factory）
type IconBuilder interface {
	Build(ctx context.Context, anchor orb.Point, r *travel.Route) (*icon.Result, error)
}

// AddressResolver：地理编码（geocoder.Geocoder）
type AddressResolver interface {
	Reverse(ctx context.Context, lat, lon float64) (geocoder.Address, error)
}

// Service：持有唯一的活动行程
// 约束：行程读写串行化；图标生成只在锁内取路线，外部请求在锁外进行
type Service struct {
	mu     sync.Mutex
	travel *travel.Travel
	notes  *notes.Manager

	icons    IconBuilder
	geocoder AddressResolver
	store    *store.Store
	rc       *redis.Client
}

// NewService：st 与 rc 可为空
func NewService(icons IconBuilder, g AddressResolver, st *store.Store, rc *redis.Client) *Service {
	s := &Service{icons: icons, geocoder: g, store: st, rc: rc}
	s.replace(travel.New(""))
	return s
}

func (s *Service) replace(t *travel.Travel) {
	t.Normalize()
	t.ChainDistances()
	s.travel = t
	s.notes = notes.NewManager(t, eventListener{})
}

// eventListener：笔记变更通知计数；日志由 notes 包输出，渲染层通过 GET /travel 拉取最新状态
type eventListener struct{}

func (eventListener) NoteAttached(*travel.Note, *travel.Route) {
	metrics.NoteEventsTotal.WithLabelValues("attached").Inc()
}

func (eventListener) NoteDetached(*travel.Note) {
	metrics.NoteEventsTotal.WithLabelValues("detached").Inc()
}

func (eventListener) NoteDistanceChanged(*travel.Note, *travel.Route) {
	metrics.NoteEventsTotal.WithLabelValues("distance_changed").Inc()
}

// withTravel：在锁内执行
func (s *Service) withTravel(fn func(t *travel.Travel, m *notes.Manager) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.travel, s.notes)
}
