package xstop

import (
	"sync"
	"sync/atomic"
)

// Flag 是在 worker 与监督者之间共享的停止信号。
//
// Flag 只能通过指针共享：Clone 返回指向同一存储的引用，从不深拷贝。
// 一旦 RequestStop 被调用，ShouldStop 永远返回 true（单调，不可重置）。
//
// ShouldStop 只做一次 atomic load，不经过任何锁，适合放在 worker 的热循环中轮询。
// 零值可用，等价于 NewFlag(false)。
type Flag struct {
	stop atomic.Bool

	// done 在第一次 RequestStop 时关闭，供 select 风格的 worker 使用。
	doneOnce sync.Once
	done     chan struct{}
	closed   atomic.Bool
}

// NewFlag 创建 Flag。stopped 为 true 时创建即处于已请求停止状态。
func NewFlag(stopped bool) *Flag {
	f := &Flag{}
	if stopped {
		f.RequestStop()
	}
	return f
}

// Clone 返回指向同一底层存储的引用。
func (f *Flag) Clone() *Flag {
	return f
}

// RequestStop 请求所有持有该 Flag 的 worker 停止。
//
// 幂等，可与任意数量的 ShouldStop 及 RequestStop 并发调用，从不阻塞。
func (f *Flag) RequestStop() {
	f.stop.Store(true)
	if f.closed.CompareAndSwap(false, true) {
		close(f.doneChan())
	}
}

// ShouldStop 报告是否已请求停止。无副作用。
func (f *Flag) ShouldStop() bool {
	return f.stop.Load()
}

// Running 是 ShouldStop 的反义，便于写 `for flag.Running() { ... }` 形式的循环。
func (f *Flag) Running() bool {
	return !f.stop.Load()
}

// Done 返回在请求停止时关闭的 channel。
//
//	select {
//	case <-flag.Done():
//	    return n
//	case item := <-input:
//	    n += process(item)
//	}
func (f *Flag) Done() <-chan struct{} {
	return f.doneChan()
}

func (f *Flag) doneChan() chan struct{} {
	f.doneOnce.Do(func() {
		f.done = make(chan struct{})
	})
	return f.done
}
