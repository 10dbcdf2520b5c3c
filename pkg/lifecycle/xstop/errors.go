package xstop

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrAbnormalTermination 表示 worker 未正常返回（panic 或 runtime.Goexit）。
	// 使用 errors.Is(err, ErrAbnormalTermination) 判断。
	ErrAbnormalTermination = errors.New("xstop: worker terminated abnormally")

	// ErrAlreadyJoined 表示 Handle 或 Group 已被 Join 消费。
	ErrAlreadyJoined = errors.New("xstop: already joined")

	// ErrNilFunc 表示 worker 函数为 nil。
	ErrNilFunc = errors.New("xstop: nil worker func")

	// ErrInvalidArity 表示 Builder 声明的 worker 数量为负数。
	ErrInvalidArity = errors.New("xstop: invalid arity")

	// ErrArityMismatch 表示 Build 传入的 Handle 数量与声明数量不一致。
	ErrArityMismatch = errors.New("xstop: arity mismatch")

	// ErrNilHandle 表示 Build 传入了 nil Handle。
	ErrNilHandle = errors.New("xstop: nil handle")

	// ErrForeignFlag 表示 Handle 持有的 Flag 不是 Builder 分发的 Flag。
	ErrForeignFlag = errors.New("xstop: handle does not share the builder flag")

	// ErrDuplicateHandle 表示 Build 传入了重复的 Handle。
	ErrDuplicateHandle = errors.New("xstop: duplicate handle")

	// ErrBuilderConsumed 表示 Builder 已成功 Build 过一次，
	// 或在此之后仍通过 Builder.Spawn 启动 worker。
	ErrBuilderConsumed = errors.New("xstop: builder already consumed")
)

// PanicError 记录 worker 的异常终止。
//
// Value 为 recover() 得到的原始值；Goexit 为 true 时表示 worker 调用了
// runtime.Goexit（此时 Value 为 nil）。Stack 为异常发生时的 goroutine 堆栈。
type PanicError struct {
	Value  any
	Stack  string
	Goexit bool
}

// Error 实现 error 接口。
func (e *PanicError) Error() string {
	if e.Goexit {
		return "xstop: worker called runtime.Goexit"
	}
	return fmt.Sprintf("xstop: worker panic: %v", e.Value)
}

// Is 支持 errors.Is(err, ErrAbnormalTermination)。
func (e *PanicError) Is(target error) bool {
	return target == ErrAbnormalTermination
}

// Unwrap 在 panic 值本身是 error 时返回它，便于 errors.As 取出原始错误。
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// JoinError 是 Group.JoinAll 在部分 worker 异常终止时返回的逐位置报告。
//
// Errs 与 spawn 顺序一一对应：nil 表示该位置正常返回。
// 非 nil 通常是捕获的 *PanicError（errors.Is 为 ErrAbnormalTermination），
// 但也可能是 ErrAlreadyJoined（该 handle 在 Build 后被调用方单独 Join）
// 或 ErrNilFunc；需要 panic 详情时请用 errors.As 逐个判断。
// 成功位置的值仍由 JoinAll 的第一个返回值给出。
type JoinError struct {
	// Group 为 Group 名称，便于日志定位。
	Group string
	// Errs 逐位置错误，长度等于 Group 的 worker 数量。
	Errs []error
}

// Error 实现 error 接口，列出所有失败位置。
func (e *JoinError) Error() string {
	failed := e.Failed()
	var sb strings.Builder
	sb.WriteString("xstop: ")
	if e.Group != "" {
		sb.WriteString("group ")
		sb.WriteString(strconv.Quote(e.Group))
		sb.WriteString(": ")
	}
	sb.WriteString(strconv.Itoa(len(failed)))
	sb.WriteString(" of ")
	sb.WriteString(strconv.Itoa(len(e.Errs)))
	sb.WriteString(" workers failed")
	for _, i := range failed {
		sb.WriteString("; [")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString("] ")
		sb.WriteString(e.Errs[i].Error())
	}
	return sb.String()
}

// Failed 返回失败位置的下标（升序）。
func (e *JoinError) Failed() []int {
	var idx []int
	for i, err := range e.Errs {
		if err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Unwrap 返回所有非 nil 的逐位置错误，支持 errors.Is/As 遍历。
func (e *JoinError) Unwrap() []error {
	out := make([]error, 0, len(e.Errs))
	for _, err := range e.Errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
