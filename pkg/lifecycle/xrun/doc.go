// Package xrun 监督一组协作式 worker 的运行与停止。
//
// xstop.Group 只提供共享停止标志与汇合；xrun 负责把进程级事件
// （context 取消、系统信号、运行期限）转换为一次 RequestStopAll，
// 然后等待所有 worker 自行退出。
//
// # 快速开始
//
//	values, err := xrun.Run(ctx, []func(*xstop.Flag) int{
//	    func(f *xstop.Flag) int {
//	        n := 0
//	        for f.Running() {
//	            n++
//	            doWork()
//	        }
//	        return n
//	    },
//	}, xrun.WithStopAfter(30*time.Second))
//
// # 错误处理
//
//	var joinErr *xstop.JoinError
//	switch {
//	case errors.As(err, &joinErr):
//	    // 部分 worker 异常终止，joinErr.Failed() 给出位置
//	case errors.Is(err, xrun.ErrSignal):
//	    // 因信号停止
//	case errors.Is(err, xrun.ErrStopTimeout):
//	    // 到达运行期限
//	}
//
// 两类错误可能同时出现，Supervise 用 errors.Join 组合它们。
//
// # 设计决策
//
//   - 停止只写一次共享标志，不取消 worker 的执行；
//     没有 context 的 worker 也能响应停止。
//   - 汇合与事件监听各占一个 errgroup goroutine，监听方只在请求了停止时返回原因。
//   - 所有 worker 先于任何停止事件结束时，标志保持未置位。
package xrun
