// Package xstop 提供基于共享停止标志的协作式 worker 取消。
//
// # 概述
//
// 每个 worker 在独立的 goroutine 中运行，并收到一个共享的 [Flag]。
// worker 自行决定何时检查 Flag.ShouldStop 并提前返回；监督者通过
// RequestStop 翻转标志，再通过 Join 收集结果。
//
//   - [Flag]：共享的停止标志，单调（一旦请求停止不可恢复），读路径只有一次 atomic load
//   - [Handle]：单个 worker，Join 取结果、RequestStop 请求停止
//   - [Group]：共享同一 Flag 的固定数量 worker，JoinAll 按 spawn 顺序聚合结果
//   - [Builder]：两阶段构造，先拿到 Flag 分发给 worker，全部启动后再组装 Group
//
// # 快速开始
//
//	g := xstop.NewGroup([]func(*xstop.Flag) int{
//	    func(f *xstop.Flag) int {
//	        n := 0
//	        for !f.ShouldStop() {
//	            n++
//	        }
//	        return n
//	    },
//	    func(f *xstop.Flag) int { return 42 },
//	}, xstop.WithName("counters"))
//
//	time.Sleep(time.Second)
//	values, err := g.JoinAll(true)
//
// 两阶段构造：
//
//	b, flag := xstop.NewBuilder[int](2)
//	h0 := xstop.SpawnWithFlag(flag, work)
//	h1 := xstop.SpawnWithFlag(flag, work)
//	g, err := b.Build(h0, h1) // 数量不符返回 ErrArityMismatch
//
// # 错误处理
//
// worker 内的 panic 不会扩散到监督者，而是在 Join 时以 *[PanicError] 返回，
// errors.Is(err, ErrAbnormalTermination) 为 true。
//
// Group.JoinAll 在部分 worker 失败时返回 *[JoinError]，Errs[i] 对应第 i 个 worker，
// 成功位置的值照常返回：
//
//	values, err := g.JoinAll(true)
//	var jerr *xstop.JoinError
//	if errors.As(err, &jerr) {
//	    for _, i := range jerr.Failed() {
//	        log.Printf("worker %d: %v", i, jerr.Errs[i])
//	    }
//	}
//
// # 设计决策
//
// 1. 纯原子标志：Flag 只用 atomic.Bool，不包裹互斥锁。读写均为顺序一致，
//    RequestStop 完成后任何 worker 的下一次 ShouldStop 都能看到 true。
//    Done() channel 通过 CAS 保证只关闭一次，同样无锁。
//
// 2. 协作式取消：不忽略标志的 worker 无法被强制停止，Join 也没有超时。
//    需要超时请在外层使用 xrun.Supervise 配合 WithStopAfter。
//
// 3. Join 的所有权转移：Go 无法在编译期禁止二次 Join，因此以 CAS 保证
//    只有第一次 Join 取得结果，之后返回 ErrAlreadyJoined。
//
// 4. 逐位置聚合：JoinAll 不做 fail-fast，等全部 worker 结束后再汇总，
//    保留每个位置的成败信息。
//
// 5. 构造不 panic：arity 不符、nil handle 等调用方错误均以哨兵错误返回。
package xstop
