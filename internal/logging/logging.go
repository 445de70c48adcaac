// Package logging 按配置构造 *slog.Logger：text/json 两种格式，可选写入滚动日志文件。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options 描述 logger 的构造参数。
type Options struct {
	// Level 为 debug|info|warn|error，空串等同 info。
	Level string
	// Format 为 text|json，空串等同 text。
	Format string
	// File 非空时日志写入该文件（按大小滚动），否则写入 New 的 w。
	File string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	DefaultMaxSizeMB  = 20
	DefaultMaxBackups = 3
)

// ParseLevel 解析日志级别，未知值返回错误。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level 只能是 debug|info|warn|error，实际是 %q", s)
	}
}

// CheckFormat 校验日志格式。
func CheckFormat(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("log.format 只能是 text|json，实际是 %q", s)
	}
}

// New 构造 logger。返回的 io.Closer 用于关闭日志文件；未配置文件时是空操作。
func New(w io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if err := CheckFormat(opts.Format); err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(opts.File) != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, DefaultMaxBackups),
			MaxAge:     opts.MaxAgeDays,
		}
		w, closer = lj, lj
	}
	if w == nil {
		w = io.Discard
	}

	ho := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return slog.New(h), closer, nil
}

// Discard 返回丢弃所有输出的 logger。
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
