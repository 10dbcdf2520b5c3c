package xstop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/omeyang/xstop/pkg/observability/xmetrics"
)

// Handle 持有一个已启动的 worker 及其共享 Flag。
//
// Join 消费 Handle：第一次调用阻塞等待并取走结果，之后的调用返回 ErrAlreadyJoined。
// 从未 Join 的 Handle 不影响 worker 本身，goroutine 会在后台运行到结束。
//
// RequestStop、Flag、Done 可并发调用。
type Handle[T any] struct {
	flag  *Flag
	index int
	done  chan struct{}

	// value/err 在 close(done) 之前写入，之后只读。
	value T
	err   error

	joined atomic.Bool
}

// Spawn 在新 goroutine 中运行 fn，并为其创建独立的 Flag。立即返回。
func Spawn[T any](fn func(*Flag) T, opts ...Option) *Handle[T] {
	return spawn(NewFlag(false), -1, fn, applyOptions(opts))
}

// SpawnWithFlag 与 Spawn 相同，但 worker 共享传入的 flag。
// flag 为 nil 时创建新的 Flag。
func SpawnWithFlag[T any](flag *Flag, fn func(*Flag) T, opts ...Option) *Handle[T] {
	if flag == nil {
		flag = NewFlag(false)
	}
	return spawn(flag, -1, fn, applyOptions(opts))
}

func spawn[T any](flag *Flag, index int, fn func(*Flag) T, o *options) *Handle[T] {
	h := &Handle[T]{
		flag:  flag,
		index: index,
		done:  make(chan struct{}),
	}
	o.logger.Debug("worker spawning",
		slog.String("group", o.name),
		slog.Int("worker", index),
	)
	go h.run(fn, o)
	return h
}

// run 执行 worker 并记录结果。
//
// 设计决策: 用 returned 标记区分正常返回与异常终止。recover() 返回 nil 且
// returned 为 false 时只可能是 runtime.Goexit（Go 1.21 起 panic(nil) 会被
// 包装为 *runtime.PanicNilError，recover 不再返回 nil）。
func (h *Handle[T]) run(fn func(*Flag) T, o *options) {
	_, span := xmetrics.Start(context.Background(), o.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpWorker,
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrGroup, o.name),
			xmetrics.Int(MetricsAttrWorker, h.index),
		},
	})

	returned := false
	defer func() {
		if !returned {
			r := recover()
			pe := &PanicError{Value: r, Stack: string(debug.Stack()), Goexit: r == nil}
			h.err = pe
			o.logger.Warn("worker terminated abnormally",
				slog.String("group", o.name),
				slog.Int("worker", h.index),
				slog.Any("panic", r),
				slog.Bool("goexit", pe.Goexit),
				slog.String("stack", pe.Stack),
			)
		}
		span.End(xmetrics.Result{
			Err:   h.err,
			Attrs: []xmetrics.Attr{xmetrics.Bool(MetricsAttrStop, h.flag.ShouldStop())},
		})
		close(h.done)
	}()

	if fn == nil {
		h.err = ErrNilFunc
		returned = true
		return
	}
	h.value = fn(h.flag)
	returned = true
}

// Join 阻塞直到 worker 结束，返回其结果。
//
// worker panic 或调用 runtime.Goexit 时返回 *PanicError（errors.Is 为
// ErrAbnormalTermination）。Join 只能成功一次，之后返回 ErrAlreadyJoined。
func (h *Handle[T]) Join() (T, error) {
	var zero T
	if !h.joined.CompareAndSwap(false, true) {
		return zero, ErrAlreadyJoined
	}
	<-h.done
	v, err := h.value, h.err
	// 所有权转移给调用方
	h.value = zero
	return v, err
}

// RequestStop 设置共享 Flag，不阻塞。
// 只保证行为良好的 worker 在下一次检查时能观察到，不保证其及时退出。
func (h *Handle[T]) RequestStop() {
	h.flag.RequestStop()
}

// Flag 返回 worker 持有的共享 Flag。
func (h *Handle[T]) Flag() *Flag {
	return h.flag
}

// Done 返回在 worker 结束（正常或异常）时关闭的 channel。不消费 Handle。
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}
