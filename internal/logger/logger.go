// Package logger 统一日志出口
// 底层使用 log/slog，文件输出经 lumberjack 自动轮转
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志系统配置
type Options struct {
	// 日志级别: debug, info, warn, error
	Level string
	// 日志文件路径，为空则仅输出到控制台
	FilePath string
	// 单文件上限 (MB)，超过后切割
	MaxSize int
	// 保留的历史文件个数
	MaxBackups int
	// 历史文件保留天数
	MaxAge int
	// 是否压缩历史文件
	Compress bool
	// 是否同时输出到控制台
	Stdout bool
}

var (
	defaultLogger *slog.Logger
	setupOnce     sync.Once
)

// Setup 初始化日志系统
// 必须在其他模块产生日志之前调用；重复调用只有第一次生效
func Setup(opts Options) error {
	setupOnce.Do(func() {
		var writers []io.Writer

		if opts.FilePath != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    opts.MaxSize,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAge,
				Compress:   opts.Compress,
			})
		}
		if opts.Stdout || opts.FilePath == "" {
			writers = append(writers, os.Stdout)
		}

		handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
			Level: parseLevel(opts.Level),
		})
		defaultLogger = slog.New(handler)
	})
	return nil
}

// parseLevel 解析日志级别字符串，非法值回落到 info
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// get 兜底：未 Setup 就被调用时退化为 stdout 输出，不丢日志
func get() *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// Debug 调试日志
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info 常规日志
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn 告警日志
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error 错误日志
func Error(msg string, args ...any) { get().Error(msg, args...) }
