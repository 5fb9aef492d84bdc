// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"travelnotes/internal/collection"
	"travelnotes/internal/geocoder"
	"travelnotes/internal/icon"
	"travelnotes/internal/itinerary"
	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"
	"travelnotes/internal/notes"
	"travelnotes/internal/osmapi"
	"travelnotes/internal/store"
	"travelnotes/internal/travel"

	"github.com/paulmach/orb"
)

// maxTravelBytes：PUT /travel 请求体上限
const maxTravelBytes = 32 << 20

// errBadRequest：参数缺失或格式错误
var errBadRequest = errors.New("bad request")

// statusOf：错误 → HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, icon.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, notes.ErrInvariantViolation):
		return http.StatusInternalServerError
	case errors.Is(err, collection.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, itinerary.ErrEmptySequence), errors.Is(err, collection.ErrEmptyCollection),
		errors.Is(err, notes.ErrOrderedByDistance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, osmapi.ErrFetchTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, osmapi.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		logger.L().Error("api_error", "path", r.URL.Path, "status", code, "err", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func floatParam(r *http.Request, name string) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, fmt.Errorf("%w: missing %s", errBadRequest, name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", errBadRequest, name)
	}
	return f, nil
}

func latLon(r *http.Request) (lat, lon float64, err error) {
	if lat, err = floatParam(r, "lat"); err != nil {
		return 0, 0, err
	}
	if lon, err = floatParam(r, "lon"); err != nil {
		return 0, 0, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: coordinate out of range", errBadRequest)
	}
	return lat, lon, nil
}

// instrument：按路由统计请求数与耗时
func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(route).Inc()
		h(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	}
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(s *Service) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /travel", instrument("travel", func(w http.ResponseWriter, r *http.Request) {
		var b []byte
		err := s.withTravel(func(t *travel.Travel, _ *notes.Manager) error {
			var e error
			b, e = json.Marshal(t)
			return e
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write(b)
	}))

	apiMux.HandleFunc("PUT /travel", instrument("travel", func(w http.ResponseWriter, r *http.Request) {
		t := travel.New("")
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTravelBytes)).Decode(t); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		s.mu.Lock()
		s.replace(t)
		routes, unattached := t.Routes.Len(), t.Notes.Len()
		s.mu.Unlock()
		logger.L().Info("travel_loaded", "travel", t.ID, "routes", routes, "notes", unattached)
		writeJSON(w, http.StatusOK, map[string]any{"objId": t.ID, "routes": routes, "notes": unattached})
	}))

	apiMux.HandleFunc("POST /notes", instrument("notes", func(w http.ResponseWriter, r *http.Request) {
		lat, lon, err := latLon(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		n := travel.NewNote(lat, lon)
		_ = s.withTravel(func(t *travel.Travel, _ *notes.Manager) error {
			t.Notes.Add(n)
			return nil
		})
		writeJSON(w, http.StatusCreated, n)
	}))

	apiMux.HandleFunc("DELETE /notes", instrument("notes", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		err := s.withTravel(func(t *travel.Travel, _ *notes.Manager) error {
			_, route, err := t.FindNote(id)
			if err != nil {
				return err
			}
			if route != nil {
				route.Notes.Remove(id)
			} else {
				t.Notes.Remove(id)
			}
			return nil
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	noteOp := func(name string, op func(t *travel.Travel, m *notes.Manager, r *http.Request) error) {
		apiMux.HandleFunc("POST /notes/"+name, instrument("notes_"+name, func(w http.ResponseWriter, r *http.Request) {
			var out *travel.Note
			err := s.withTravel(func(t *travel.Travel, m *notes.Manager) error {
				if err := op(t, m, r); err != nil {
					return err
				}
				n, _, err := t.FindNote(r.URL.Query().Get("id"))
				out = n
				return err
			})
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		}))
	}
	noteOp("attach", func(_ *travel.Travel, m *notes.Manager, r *http.Request) error {
		return m.Attach(r.URL.Query().Get("id"))
	})
	// 未知 id 属于调用方错误（404），不是集合不变式被破坏
	noteOp("detach", func(t *travel.Travel, m *notes.Manager, r *http.Request) error {
		id := r.URL.Query().Get("id")
		if _, _, err := t.FindNote(id); err != nil {
			return fmt.Errorf("detach %s: %w", id, err)
		}
		return m.Detach(id)
	})
	noteOp("move", func(_ *travel.Travel, m *notes.Manager, r *http.Request) error {
		lat, lon, err := latLon(r)
		if err != nil {
			return err
		}
		return m.Move(r.URL.Query().Get("id"), lat, lon)
	})
	noteOp("reorder", func(_ *travel.Travel, m *notes.Manager, r *http.Request) error {
		q := r.URL.Query()
		return m.Reorder(q.Get("id"), q.Get("target"), q.Get("before") != "false")
	})
	noteOp("swap", func(_ *travel.Travel, m *notes.Manager, r *http.Request) error {
		q := r.URL.Query()
		return m.Swap(q.Get("id"), q.Get("up") != "false")
	})

	apiMux.HandleFunc("GET /icon", instrument("icon", func(w http.ResponseWriter, r *http.Request) {
		lat, lon, err := latLon(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		routeID := r.URL.Query().Get("route")
		var route *travel.Route
		err = s.withTravel(func(t *travel.Travel, _ *notes.Manager) error {
			var e error
			route, e = t.Routes.Get(routeID)
			return e
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		t0 := time.Now()
		res, err := s.icons.Build(r.Context(), orb.Point{lon, lat}, route)
		s.recordBuild(r, route.ID, lat, lon, res, err, time.Since(t0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}))

	apiMux.HandleFunc("GET /geocode", instrument("geocode", func(w http.ResponseWriter, r *http.Request) {
		lat, lon, err := latLon(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		addr, err := s.reverseCached(r, lat, lon)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, addr)
	}))

	apiMux.HandleFunc("GET /stats", instrument("stats", func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			writeJSON(w, http.StatusOK, map[string]any{"persistence": false})
			return
		}
		t, err := s.store.GetTotals(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		top, err := s.store.TopCities(r.Context(), 7, 10)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"persistence":   true,
			"total":         t.Total,
			"today":         t.Today,
			"todayFailures": t.TodayFailures,
			"topCities":     top,
		})
	}))

	return apiMux
}

// recordBuild：统计写库失败只记录日志
func (s *Service) recordBuild(r *http.Request, routeID string, lat, lon float64, res *icon.Result, err error, d time.Duration) {
	if s.store == nil {
		return
	}
	b := store.Build{RouteID: routeID, Lat: lat, Lon: lon, Outcome: icon.Outcome(err), DurationMs: d.Milliseconds()}
	if res != nil {
		b.City, b.Place = res.City, res.Place
	}
	if e := s.store.RecordBuild(r.Context(), b); e != nil {
		logger.L().Warn("stats_record_error", "err", e)
	}
}

// reverseCached：Redis 热点缓存，键按 5 位小数（约 1 米）取整
func (s *Service) reverseCached(r *http.Request, lat, lon float64) (geocoder.Address, error) {
	ctx := r.Context()
	key := fmt.Sprintf("geocode:%.5f:%.5f", lat, lon)
	var out geocoder.Address
	if s.rc != nil {
		if b, _ := s.rc.Get(ctx, key).Bytes(); len(b) > 0 {
			if json.Unmarshal(b, &out) == nil {
				logger.L().Debug("geocode_cache_hit", "key", key)
				return out, nil
			}
		}
	}
	out, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return out, err
	}
	if s.rc != nil {
		b, _ := json.Marshal(out)
		if e := s.rc.Set(ctx, key, b, 24*time.Hour).Err(); e != nil {
			logger.L().Warn("geocode_cache_error", "err", e)
		}
	}
	return out, nil
}
