// Package log 全局 zerolog 日志. 控制台默认人类可读，format=json 时输出结构化行，可同时写入 lumberjack 轮转文件.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/yeisme/codespace/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按全局配置初始化，只生效一次.
func Init() {
	initOnce.Do(func() {
		c := configs.GetConfig()
		logger = New(c.Log, c.Server.Debug, os.Stderr)
		zlog.Logger = logger
	})
}

// New 构造 logger. 所有行带 app 与 version 字段，debug 时附带调用位置.
func New(cfg configs.LogConfig, debug bool, console io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", cfg.Level)
		}

		lvl = zerolog.InfoLevel
	}

	out := console
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}
	}

	if cfg.EnableFile {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	zc := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("app", configs.AppName).
		Str("version", configs.AppVersion)
	if debug {
		zc = zc.Caller()
	}

	return zc.Logger()
}

// Logger 全局 logger，未调用 Init 时按当前配置初始化.
func Logger() *zerolog.Logger {
	Init()

	return &logger
}

// GinWriter 把 gin 自己打印的文本行（路由注册、panic 恢复）转成日志事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(strings.TrimPrefix(string(p), "[GIN-debug]"))
	if msg != "" {
		w.logger.WithLevel(w.level).Str("component", "gin").Msg(msg)
	}

	return len(p), nil
}
