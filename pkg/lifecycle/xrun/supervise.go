package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xstop/pkg/lifecycle/xstop"
)

// Supervise 汇合 g 的所有 worker，并把外部停止事件转换为 g.RequestStopAll()。
//
// 停止事件包括：ctx 取消、收到信号（默认 DefaultSignals）、WithStopAfter 期限到达。
// 任一事件发生后，Supervise 只写一次共享标志，然后继续等待全部 worker 自行退出；
// 它不会中断 worker，响应时机取决于 worker 检查标志的频率。
//
// 返回值按 spawn 顺序排列。错误由两部分组合（errors.Join）：
//   - JoinAll 的 *xstop.JoinError（有 worker 异常终止时）
//   - 停止原因：*SignalError、ErrStopTimeout，或 ctx 的显式 cause
//
// 普通的 ctx 取消（cause 为 context.Canceled）不计入错误。
// 所有 worker 自然结束时返回 nil 错误。
func Supervise[T any](ctx context.Context, g *xstop.Group[T], opts ...Option) ([]T, error) {
	if g == nil {
		return nil, ErrNilGroup
	}
	// 设计决策: nil context 归一化为 context.Background()，与 errgroup 的调用习惯对齐。
	if ctx == nil {
		ctx = context.Background()
	}
	o := applyOptions(opts)

	joined := make(chan struct{})
	var (
		values  []T
		joinErr error
	)

	var eg errgroup.Group
	eg.Go(func() error {
		defer close(joined)
		values, joinErr = g.JoinAll(false)
		return nil
	})
	eg.Go(func() error {
		return watch(ctx, g, o, joined)
	})

	// watch 只在请求了停止时返回非 nil，作为停止原因。
	cause := eg.Wait()

	o.logger.Debug("group joined",
		slog.String("supervisor", o.name),
		slog.String("group", g.Name()),
		slog.Int("size", g.Len()),
		slog.Bool("stop_requested", g.Flag().ShouldStop()),
	)
	return values, errors.Join(joinErr, cause)
}

// Run 以 fns 创建 Group 并监督它直到全部 worker 结束。
func Run[T any](ctx context.Context, fns []func(*xstop.Flag) T, opts ...Option) ([]T, error) {
	o := applyOptions(opts)
	groupOpts := append([]xstop.Option{
		xstop.WithName(o.name),
		xstop.WithLogger(o.logger),
	}, o.groupOpts...)
	return Supervise(ctx, xstop.NewGroup(fns, groupOpts...), opts...)
}

// watch 等待第一个停止事件并请求停止。
// 所有 worker 先行结束时返回 nil，不写标志。
func watch[T any](ctx context.Context, g *xstop.Group[T], o *superviseOptions, joined <-chan struct{}) error {
	var sigCh chan os.Signal
	if !o.noSignalHandler {
		signals := o.signals
		// 设计决策: 空切片与 nil 等价，均使用默认信号列表。
		// signal.Notify(ch) 无参调用会订阅所有信号，这不是预期行为。
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)
	}

	var deadline <-chan time.Time
	if o.stopAfter > 0 {
		timer := time.NewTimer(o.stopAfter)
		defer timer.Stop()
		deadline = timer.C
	}

	var (
		cause  error
		reason string
	)
	select {
	case <-joined:
		return nil
	case sig := <-testSigChan(ctx):
		cause, reason = &SignalError{Signal: sig}, "signal"
	case sig := <-sigCh:
		cause, reason = &SignalError{Signal: sig}, "signal"
	case <-deadline:
		cause, reason = ErrStopTimeout, "deadline"
	case <-ctx.Done():
		reason = "context"
		if c := context.Cause(ctx); !errors.Is(c, context.Canceled) {
			cause = c
		}
	}

	o.logger.Info("requesting stop",
		slog.String("supervisor", o.name),
		slog.String("group", g.Name()),
		slog.String("reason", reason),
		slog.Any("cause", cause),
	)
	g.RequestStopAll()
	return cause
}
