// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travelnotes/internal/api"
	"travelnotes/internal/config"
	"travelnotes/internal/geocoder"
	"travelnotes/internal/icon"
	"travelnotes/internal/logger"
	"travelnotes/internal/metrics"
	"travelnotes/internal/middleware"
	"travelnotes/internal/migrate"
	"travelnotes/internal/osmapi"
	"travelnotes/internal/store"
	"travelnotes/internal/utils"
)

func main() {
	cfg := config.Load()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	// 统计持久化可选：未配置 PG_HOST 时跳过
	var st *store.Store
	if utils.PostgresConfigured() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	} else {
		l.Info("db_disabled")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}

	hc := &http.Client{}
	overpass := osmapi.NewOverpass(cfg.OverpassURL,
		osmapi.WithHTTPClient(hc),
		osmapi.WithRate(cfg.OSMRPS),
		osmapi.WithCache(osmapi.NewPayloadCache(cfg.CacheSize, cfg.CacheTTL, rc)),
		osmapi.WithUserAgent(cfg.UserAgent),
	)
	nominatim := osmapi.NewNominatim(cfg.NominatimURL, cfg.Language,
		osmapi.WithHTTPClient(hc),
		osmapi.WithRate(cfg.OSMRPS),
		osmapi.WithUserAgent(cfg.UserAgent),
	)
	icons := icon.NewFactory(cfg.Icon, cfg.Language, overpass)
	geo := geocoder.New(nominatim, overpass, cfg.Icon, cfg.Language)
	l.Debug("config_icon", "size", cfg.Icon.Size, "zoom", cfg.Icon.Zoom, "timeout_ms", cfg.Icon.FetchTimeout.Milliseconds())

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(api.NewService(icons, geo, st, rc))
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	l.Info("listening", "addr", cfg.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		l.Error("listen_error", "err", err)
		os.Exit(1)
	}
	l.Info("shutdown_done")
}
