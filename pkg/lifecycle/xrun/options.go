package xrun

import (
	"log/slog"
	"os"
	"time"

	"github.com/omeyang/xstop/pkg/lifecycle/xstop"
)

// Option 配置 Supervise/Run 的选项函数。
type Option func(*superviseOptions)

type superviseOptions struct {
	logger          *slog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
	stopAfter       time.Duration
	groupOpts       []xstop.Option
}

func defaultOptions() *superviseOptions {
	return &superviseOptions{
		logger: slog.Default(),
		name:   "xrun",
	}
}

func applyOptions(opts []Option) *superviseOptions {
	o := defaultOptions()
	for _, opt := range opts {
		// 设计决策: 静默跳过 nil Option，与 WithLogger(nil)/WithName("") 的行为一致。
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *superviseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置名称，用于日志中标识不同的监督者。默认 "xrun"。
func WithName(name string) Option {
	return func(o *superviseOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置监听的信号列表，默认 DefaultSignals()。
// 空列表等价于默认列表；如需禁用请使用 WithoutSignalHandler。
func WithSignals(signals []os.Signal) Option {
	// 设计决策: 在创建时拷贝，避免调用方后续修改切片导致配置漂移。
	copied := append([]os.Signal(nil), signals...)
	return func(o *superviseOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁用信号监听，停止只由 ctx 或 WithStopAfter 触发。
func WithoutSignalHandler() Option {
	return func(o *superviseOptions) {
		o.noSignalHandler = true
	}
}

// WithStopAfter 在 d 之后请求所有 worker 停止。d <= 0 表示不设期限。
func WithStopAfter(d time.Duration) Option {
	return func(o *superviseOptions) {
		o.stopAfter = d
	}
}

// WithGroupOptions 设置 Run 创建 Group 时附加的 xstop 选项。
// Run 默认把 WithName/WithLogger 同步给 Group，这里的选项在其后应用。
func WithGroupOptions(opts ...xstop.Option) Option {
	copied := append([]xstop.Option(nil), opts...)
	return func(o *superviseOptions) {
		o.groupOpts = append(o.groupOpts, copied...)
	}
}
