// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量控制日志级别、输出格式与落盘文件
package logger

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var defaultLogger atomic.Pointer[slog.Logger]

// Setup：初始化默认日志器
// 背景：集中化日志配置，便于按环境统一调整级别与格式
// 约束：始终输出到标准错误；设置 LOG_FILE 时额外写入按大小滚动的文件
func Setup() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var w io.Writer = os.Stderr
	if f := os.Getenv("LOG_FILE"); f != "" {
		w = io.MultiWriter(os.Stderr, rotatingFile(f))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	l := slog.New(h)
	defaultLogger.Store(l)
	return l
}

// rotatingFile：LOG_MAX_SIZE_MB / LOG_MAX_BACKUPS 解析失败时使用默认值
func rotatingFile(path string) *lumberjack.Logger {
	size := 32
	if s := os.Getenv("LOG_MAX_SIZE_MB"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			size = n
		}
	}
	backups := 5
	if s := os.Getenv("LOG_MAX_BACKUPS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n >= 0 {
			backups = n
		}
	}
	return &lumberjack.Logger{Filename: path, MaxSize: size, MaxBackups: backups, Compress: true}
}

// L：获取默认日志器
// 背景：为业务代码提供快捷访问；若未初始化则回退到 Setup
func L() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return Setup()
}
