package xstop

import (
	"log/slog"

	"github.com/omeyang/xstop/pkg/observability/xmetrics"
)

// 观测相关常量，用于 xmetrics 的 component/operation 及属性 key。
const (
	MetricsComponent  = "xstop"
	MetricsOpWorker   = "worker"
	MetricsOpJoinAll  = "join_all"
	MetricsAttrGroup  = "group"
	MetricsAttrWorker = "worker"
	MetricsAttrSize   = "size"
	MetricsAttrStop   = "stop_requested"
	MetricsAttrFailed = "failed"
)

const defaultName = "xstop"

// Option 配置 Handle、Builder 与 Group 的选项函数。
type Option func(*options)

type options struct {
	logger   *slog.Logger
	name     string
	observer xmetrics.Observer
}

func defaultOptions() *options {
	return &options{
		logger:   slog.Default(),
		name:     defaultName,
		observer: xmetrics.NoopObserver{},
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器。默认使用 slog.Default()，传入 nil 被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置名称，用于日志与指标中标识 Group。默认 "xstop"。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithObserver 设置观测器。每个 worker 的运行与每次 JoinAll 各对应一个跨度。
// 默认 xmetrics.NoopObserver，传入 nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
