// 包 store: 提供与 PostgreSQL 的数据访问层，记录图标生成统计
package store

import (
	"context"
	"database/sql"
	"errors"

	"travelnotes/internal/logger"
)

// Store: 数据库访问入口，持有连接池并提供统计读写
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Build: 一次图标生成的记录
type Build struct {
	RouteID    string
	Lat        float64
	Lon        float64
	Outcome    string
	City       string
	Place      string
	DurationMs int64
}

// RecordBuild: 明细与当日计数在同一事务内写入；busy 拒绝不计入
func (s *Store) RecordBuild(ctx context.Context, b Build) error {
	if b.Outcome == "busy" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO _icon_builds(route_id, lat, lon, outcome, city, place, duration_ms)
        VALUES($1,$2,$3,$4,$5,$6,$7)`,
		b.RouteID, b.Lat, b.Lon, b.Outcome, b.City, b.Place, b.DurationMs); err != nil {
		return err
	}
	failed := 0
	if b.Outcome != "ok" {
		failed = 1
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO _icon_stats_daily(day, builds, failures) VALUES(current_date, 1, $1)
        ON CONFLICT (day) DO UPDATE SET builds=_icon_stats_daily.builds+1, failures=_icon_stats_daily.failures+EXCLUDED.failures`, failed); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("stats_incr", "route", b.RouteID, "outcome", b.Outcome)
	return nil
}

// Totals: 统计返回结构，包含累计与当日生成次数
type Totals struct {
	Total         int64 `json:"total"`
	Today         int64 `json:"today"`
	TodayFailures int64 `json:"todayFailures"`
}

// GetTotals: 读取累计与当日次数，用于接口返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(builds),0) FROM _icon_stats_daily")
	if err := row.Scan(&t.Total); err != nil {
		return nil, err
	}
	row2 := s.db.QueryRowContext(ctx, "SELECT builds, failures FROM _icon_stats_daily WHERE day=current_date")
	if err := row2.Scan(&t.Today, &t.TodayFailures); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}

// TopCities: 最近 days 天内生成次数最多的城市
func (s *Store) TopCities(ctx context.Context, days, limit int) ([]CityCount, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT city, COUNT(1) FROM _icon_builds
        WHERE outcome='ok' AND city<>'' AND created_at >= now() - make_interval(days => $1)
        GROUP BY city ORDER BY COUNT(1) DESC, city LIMIT $2`, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CityCount
	for rows.Next() {
		var c CityCount
		if err := rows.Scan(&c.City, &c.Builds); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type CityCount struct {
	City   string `json:"city"`
	Builds int64  `json:"builds"`
}
