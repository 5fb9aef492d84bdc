package migrate

import (
	"database/sql"

	"travelnotes/internal/logger"
)

// 背景：首次运行自动创建图标生成统计表，保障后续写入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _icon_builds (
            id BIGSERIAL PRIMARY KEY,
            route_id TEXT NOT NULL,
            lat DOUBLE PRECISION NOT NULL,
            lon DOUBLE PRECISION NOT NULL,
            outcome TEXT NOT NULL,
            city TEXT NOT NULL DEFAULT '',
            place TEXT NOT NULL DEFAULT '',
            duration_ms BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_icon_builds_created ON _icon_builds(created_at)`,
		`CREATE TABLE IF NOT EXISTS _icon_stats_daily (
            day DATE PRIMARY KEY,
            builds BIGINT NOT NULL DEFAULT 0,
            failures BIGINT NOT NULL DEFAULT 0
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
