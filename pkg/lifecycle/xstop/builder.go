package xstop

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Builder 实现 Group 的两阶段构造。
//
// 第一阶段（Unbuilt）：NewBuilder 创建 Flag 并与 Builder 一同返回，调用方用该 Flag
// 启动恰好 n 个 worker。第二阶段（Built）：Build 校验并组装 Group，Builder 随之被消费。
//
// 这样保证 Flag 在任何 worker 启动前就已存在，而 Group 只在所有 worker 都启动后才存在。
//
//	b, flag := xstop.NewBuilder[int](2)
//	h1 := xstop.SpawnWithFlag(flag, work)
//	h2 := b.Spawn(work)
//	g, err := b.Build(h1, h2)
type Builder[T any] struct {
	arity int
	flag  *Flag
	opts  *options
	next  atomic.Int64
	built atomic.Bool
}

// NewBuilder 创建声明 n 个 worker 的 Builder，并返回待分发的 Flag。
//
// n 为负数时不会 panic，Build 会返回 ErrInvalidArity。
func NewBuilder[T any](n int, opts ...Option) (*Builder[T], *Flag) {
	b := &Builder[T]{
		arity: n,
		flag:  NewFlag(false),
		opts:  applyOptions(opts),
	}
	return b, b.flag.Clone()
}

// Flag 返回 Builder 持有的 Flag（与 NewBuilder 返回的是同一实例）。
func (b *Builder[T]) Flag() *Flag {
	return b.flag
}

// Arity 返回声明的 worker 数量。
func (b *Builder[T]) Arity() int {
	return b.arity
}

// Spawn 使用 Builder 的 Flag 与选项启动一个 worker。
// 通过 Spawn 启动的 worker 在日志与指标中带有递增的序号。
//
// Build 成功后 Group 已固定，Spawn 不再启动 worker：返回的 Handle 已结束，
// Join 返回 ErrBuilderConsumed。
func (b *Builder[T]) Spawn(fn func(*Flag) T) *Handle[T] {
	if b.built.Load() {
		h := &Handle[T]{flag: b.flag, index: -1, done: make(chan struct{}), err: ErrBuilderConsumed}
		close(h.done)
		return h
	}
	idx := int(b.next.Add(1) - 1)
	return spawn(b.flag, idx, fn, b.opts)
}

// Build 用已启动的 handles 组装 Group，并消费 Builder。
//
// 校验规则：
//   - 声明数量为负数：ErrInvalidArity
//   - len(handles) 与声明数量不一致：ErrArityMismatch（不截断、不补齐）
//   - 存在 nil：ErrNilHandle
//   - handle 的 Flag 不是 Builder 的 Flag：ErrForeignFlag
//   - handle 已被 Join：ErrAlreadyJoined
//   - 同一 handle 出现多次：ErrDuplicateHandle
//   - Builder 已成功 Build 过：ErrBuilderConsumed
//
// 校验失败时 Builder 保持未构建状态，调用方可修正后重试；
// 已启动的 worker 不受影响，仍由调用方持有。
func (b *Builder[T]) Build(handles ...*Handle[T]) (*Group[T], error) {
	if b.built.Load() {
		return nil, ErrBuilderConsumed
	}
	if b.arity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidArity, b.arity)
	}
	if len(handles) != b.arity {
		return nil, fmt.Errorf("%w: declared %d, got %d", ErrArityMismatch, b.arity, len(handles))
	}
	seen := make(map[*Handle[T]]struct{}, len(handles))
	for i, h := range handles {
		if h == nil {
			return nil, fmt.Errorf("%w: position %d", ErrNilHandle, i)
		}
		if h.flag != b.flag {
			return nil, fmt.Errorf("%w: position %d", ErrForeignFlag, i)
		}
		if h.joined.Load() {
			return nil, fmt.Errorf("%w: position %d", ErrAlreadyJoined, i)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: position %d", ErrDuplicateHandle, i)
		}
		seen[h] = struct{}{}
	}
	if !b.built.CompareAndSwap(false, true) {
		return nil, ErrBuilderConsumed
	}
	// 拷贝一份，避免调用方后续修改切片影响 Group。
	return b.assemble(append([]*Handle[T](nil), handles...)), nil
}

func (b *Builder[T]) assemble(handles []*Handle[T]) *Group[T] {
	b.built.Store(true)
	g := &Group[T]{
		id:      newGroupID(),
		flag:    b.flag,
		handles: handles,
		size:    len(handles),
		opts:    b.opts,
	}
	b.opts.logger.Debug("group built",
		slog.String("group", b.opts.name),
		slog.String("group_id", g.id),
		slog.Int("size", g.size),
	)
	return g
}
