package xlog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认值。
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 30

	maxSizeMB  = 10240
	maxBackups = 1024
	maxAgeDays = 3650
)

// RotateOption 日志轮转选项。
type RotateOption func(*lumberjack.Logger)

// WithMaxSize 单个文件最大大小（MB），范围 [1, 10240]。
func WithMaxSize(mb int) RotateOption {
	return func(l *lumberjack.Logger) { l.MaxSize = mb }
}

// WithMaxBackups 保留的备份数量，范围 [0, 1024]，0 表示不按数量清理。
func WithMaxBackups(n int) RotateOption {
	return func(l *lumberjack.Logger) { l.MaxBackups = n }
}

// WithMaxAge 备份保留天数，范围 [0, 3650]，0 表示不按天数清理。
func WithMaxAge(days int) RotateOption {
	return func(l *lumberjack.Logger) { l.MaxAge = days }
}

// WithCompress 是否 gzip 压缩备份。
func WithCompress(compress bool) RotateOption {
	return func(l *lumberjack.Logger) { l.Compress = compress }
}

// newRotator 创建基于 lumberjack 的按大小轮转的写入器。
// 父目录不存在时以 0750 创建。
func newRotator(filename string, opts ...RotateOption) (*lumberjack.Logger, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	l := &lumberjack.Logger{
		Filename:   filepath.Clean(filename),
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	switch {
	case l.MaxSize < 1 || l.MaxSize > maxSizeMB:
		return nil, fmt.Errorf("%w: max size %d MB", ErrInvalidRotation, l.MaxSize)
	case l.MaxBackups < 0 || l.MaxBackups > maxBackups:
		return nil, fmt.Errorf("%w: max backups %d", ErrInvalidRotation, l.MaxBackups)
	case l.MaxAge < 0 || l.MaxAge > maxAgeDays:
		return nil, fmt.Errorf("%w: max age %d days", ErrInvalidRotation, l.MaxAge)
	}
	if err := os.MkdirAll(filepath.Dir(l.Filename), 0o750); err != nil {
		return nil, fmt.Errorf("xlog: create log dir: %w", err)
	}
	return l, nil
}
