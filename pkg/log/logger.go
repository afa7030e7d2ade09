// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 简单封装，供 internal 使用
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// Config 日志配置（可与 config 包对接）；File 非空时按大小滚动
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ParseLevel 将字符串级别转换为 slog.Level，未知值为 info
func ParseLevel(s string) slog.Level {
	switch s {
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

// Output 根据配置返回日志输出目标
func Output(cfg *Config) io.Writer {
	if cfg == nil || cfg.File == "" {
		return os.Stdout
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// NewLogger 根据配置创建 Logger，cfg 可为 nil 使用默认
func NewLogger(cfg *Config) (*Logger, error) {
	return NewLoggerWithWriter(cfg, Output(cfg)), nil
}

// NewLoggerWithWriter 使用指定输出创建 Logger
func NewLoggerWithWriter(cfg *Config, w io.Writer) *Logger {
	levelVar := &slog.LevelVar{}
	if cfg != nil {
		levelVar.Set(ParseLevel(cfg.Level))
	}
	opts := &slog.HandlerOptions{Level: levelVar}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg != nil && cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h), level: levelVar}
}

// Level 返回可动态调整的日志级别
func (l *Logger) Level() *slog.LevelVar {
	return l.level
}

// Nop 返回丢弃所有输出的 Logger，用于测试与默认值
func Nop() *Logger {
	return NewLoggerWithWriter(&Config{Level: "error"}, io.Discard)
}

type ctxKey struct{}

// WithContext 将 logger 放入 ctx
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext 从 ctx 取出 logger，不存在时返回 slog.Default 包装
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return &Logger{Logger: slog.Default(), level: &slog.LevelVar{}}
}
