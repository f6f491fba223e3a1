package xsched

import (
	"context"
	"sync/atomic"
)

// Future 表示一次性任务的最终结果。
type Future struct {
	done     chan struct{}
	cancel   chan struct{}
	canceled atomic.Bool
	// err 由单元 goroutine 在 close(done) 之前写入一次。
	err error
}

func newFuture() *Future {
	return &Future{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
}

// Done 返回的 channel 在任务完成、取消或被调度器关闭后关闭。
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait 阻塞直到任务结束或 ctx 取消。
// 任务结束时返回其最终错误（成功为 nil，取消为 [ErrCanceled]）。
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err 返回任务的最终错误。
// 仅在 Done 关闭后有意义；任务未结束时返回 nil。
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Cancel 取消尚未开始执行的任务。
//
// 协作式：任务体已经开始执行时不会被中断，结果照常传递。
// 幂等：只有首次生效的取消返回 true；任务已结束时返回 false。
func (f *Future) Cancel() bool {
	select {
	case <-f.done:
		return false
	default:
	}
	if f.canceled.CompareAndSwap(false, true) {
		close(f.cancel)
		return true
	}
	return false
}

// Ticket 是周期任务的取消句柄。
// 设计决策: 字段与 Future 高度重复，但不抽取公共基类。
// 两者契约不同（单次结果传递 vs 周期单元生命周期句柄），
// 抽象反而增加间接层次，降低可读性。
type Ticket struct {
	done     chan struct{}
	cancel   chan struct{}
	canceled atomic.Bool
	err      error
}

func newTicket() *Ticket {
	return &Ticket{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
}

// Done 返回的 channel 在周期单元终止（取消、致命失败或调度器关闭）后关闭。
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err 返回周期单元的终止原因：[ErrCanceled]、[ErrClosed]，
// 或失败处理器返回的致命错误。仅在 Done 关闭后有意义。
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel 终止周期单元，阻止后续触发。
//
// 协作式：正在进行的单次执行不会被中断。
// 幂等：可多次或并发调用，只有首次生效的取消返回 true，
// 在途计数也只回收一次。
func (t *Ticket) Cancel() bool {
	select {
	case <-t.done:
		return false
	default:
	}
	if t.canceled.CompareAndSwap(false, true) {
		close(t.cancel)
		return true
	}
	return false
}
