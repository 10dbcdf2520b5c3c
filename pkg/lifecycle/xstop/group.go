package xstop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/omeyang/xstop/pkg/observability/xmetrics"
)

// Group 是共享同一 Flag 的一组固定数量的 worker。
//
// Group 只能通过 Builder.Build 或 NewGroup 创建，此时所有 worker 都已启动并持有
// 同一个 Flag。JoinAll 消费 Group，只能成功调用一次。
//
// RequestStopAll、Len、Flag、ID、Name 可从多个 goroutine 并发调用。
type Group[T any] struct {
	id      string
	flag    *Flag
	handles []*Handle[T]
	size    int
	opts    *options
	joined  atomic.Bool
}

// NewGroup 为 fns 中的每个函数启动一个 worker，所有 worker 共享一个新建的 Flag。
//
// 结果顺序与 fns 顺序一致。fns 为空时返回空 Group，JoinAll 返回空切片。
func NewGroup[T any](fns []func(*Flag) T, opts ...Option) *Group[T] {
	b, _ := NewBuilder[T](len(fns), opts...)
	handles := make([]*Handle[T], len(fns))
	for i, fn := range fns {
		handles[i] = b.Spawn(fn)
	}
	// 所有 handle 均由 b 启动，数量与 flag 一致，无需再次校验。
	return b.assemble(handles)
}

// JoinAll 等待所有 worker 结束并按 spawn 顺序返回结果。
//
// signalStop 为 true 时先请求停止（仅一次写入），再等待。
//
// 全部正常返回时 err 为 nil。部分 worker 异常终止时返回 *JoinError，
// 其中 Errs[i] 对应第 i 个 worker；此时 values 中成功位置仍保留各自的值，
// 失败位置为零值。聚合总是在所有 worker 结束后进行，不会因首个失败提前返回。
//
// 第二次调用返回 (nil, ErrAlreadyJoined)。
func (g *Group[T]) JoinAll(signalStop bool) ([]T, error) {
	if !g.joined.CompareAndSwap(false, true) {
		return nil, ErrAlreadyJoined
	}

	_, span := xmetrics.Start(context.Background(), g.opts.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpJoinAll,
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrGroup, g.opts.name),
			xmetrics.Int(MetricsAttrSize, g.size),
			xmetrics.Bool(MetricsAttrStop, signalStop),
		},
	})

	if signalStop {
		g.flag.RequestStop()
	}
	g.opts.logger.Debug("joining workers",
		slog.String("group", g.opts.name),
		slog.String("group_id", g.id),
		slog.Int("size", g.size),
		slog.Bool("signal_stop", signalStop),
	)

	values := make([]T, g.size)
	var errs []error
	for i, h := range g.handles {
		v, err := h.Join()
		if err != nil {
			if errs == nil {
				errs = make([]error, g.size)
			}
			errs[i] = err
			continue
		}
		values[i] = v
	}
	g.handles = nil

	if errs == nil {
		g.opts.logger.Debug("all workers joined",
			slog.String("group", g.opts.name),
			slog.String("group_id", g.id),
		)
		span.End(xmetrics.Result{})
		return values, nil
	}

	jerr := &JoinError{Group: g.opts.name, Errs: errs}
	failed := jerr.Failed()
	g.opts.logger.Warn("workers joined with failures",
		slog.String("group", g.opts.name),
		slog.String("group_id", g.id),
		slog.Any("failed", failed),
	)
	span.End(xmetrics.Result{
		Err:   jerr,
		Attrs: []xmetrics.Attr{xmetrics.Int(MetricsAttrFailed, len(failed))},
	})
	return values, jerr
}

// RequestStopAll 请求所有 worker 停止。
// 所有 worker 共享同一个 Flag，因此这是一次写入而非逐个通知。
func (g *Group[T]) RequestStopAll() {
	g.flag.RequestStop()
	g.opts.logger.Debug("stop requested",
		slog.String("group", g.opts.name),
		slog.String("group_id", g.id),
	)
}

// Len 返回 worker 数量（arity）。
func (g *Group[T]) Len() int {
	return g.size
}

// Flag 返回 Group 与所有 worker 共享的 Flag。
func (g *Group[T]) Flag() *Flag {
	return g.flag
}

// ID 返回 Group 的唯一标识（UUID），用于关联日志。
func (g *Group[T]) ID() string {
	return g.id
}

// Name 返回 Group 名称。
func (g *Group[T]) Name() string {
	return g.opts.name
}

func newGroupID() string {
	return uuid.NewString()
}
