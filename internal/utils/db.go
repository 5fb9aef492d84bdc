// 包 utils：外部存储连接工具（Postgres 统计库、Redis 载荷缓存），参数来自 PG_* / REDIS_* 环境变量
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// PostgresOptions：统计库连接参数
type PostgresOptions struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
}

// envOr：读取环境变量，为空时返回默认值
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envCount：读取非负整数，解析失败或为负时返回默认值
func envCount(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// PostgresConfigured：是否设置了 PG_HOST；未设置时统计持久化关闭
func PostgresConfigured() bool { return os.Getenv("PG_HOST") != "" }

// PostgresOptionsFromEnv：统计写入量很小，连接池默认值远低于查询型服务
func PostgresOptionsFromEnv() PostgresOptions {
	return PostgresOptions{
		Host:     envOr("PG_HOST", "localhost"),
		Port:     envOr("PG_PORT", "5432"),
		User:     envOr("PG_USER", "postgres"),
		Password: os.Getenv("PG_PASSWORD"),
		Database: envOr("PG_DB", "travelnotes"),
		SSLMode:  envOr("PG_SSLMODE", "disable"),
		MaxOpen:  envCount("PG_MAX_OPEN_CONNS", 8),
		MaxIdle:  envCount("PG_MAX_IDLE_CONNS", 4),
	}
}

// DSN：postgres:// 形式；用户名与密码经过转义
func (o PostgresOptions) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     o.Host + ":" + o.Port,
		Path:     "/" + o.Database,
		RawQuery: "sslmode=" + url.QueryEscape(o.SSLMode),
	}
	if o.Password != "" {
		u.User = url.UserPassword(o.User, o.Password)
	} else {
		u.User = url.User(o.User)
	}
	return u.String()
}

// OpenPostgres：打开连接并设置连接池；不做 Ping，由调用方决定是否探活
func OpenPostgres(o PostgresOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", o.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.MaxOpen)
	db.SetMaxIdleConns(o.MaxIdle)
	return db, nil
}

func OpenPostgresFromEnv() (*sql.DB, error) {
	return OpenPostgres(PostgresOptionsFromEnv())
}
