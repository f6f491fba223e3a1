package xsched

import (
	"context"
	"io"
	"time"
)

// Job 调度任务接口。
type Job interface {
	// Run 执行任务。
	// ctx 在调度器 Close 时被取消，任务应响应 ctx.Done()。
	// 返回 error 表示任务执行失败。
	Run(ctx context.Context) error
}

// JobFunc 函数适配器，将普通函数转换为 [Job] 接口。
type JobFunc func(ctx context.Context) error

// Run 实现 [Job] 接口。
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// ErrorHandler 处理周期任务单次执行的失败。
// 返回 nil 表示失败已消化；返回非 nil 错误将永久终止该周期单元。
type ErrorHandler func(err error) error

// SwallowErrors 是显式的 "吞掉失败继续走表" 处理器，周期任务的默认策略。
var SwallowErrors ErrorHandler = func(error) error { return nil }

// Scheduler 是自释放的延迟/周期任务调度器。
// 所有方法都是并发安全的。
type Scheduler interface {
	io.Closer

	// Submit 立即调度一次性任务。
	// 任务结果（包括 panic 转换成的错误）通过返回的 Future 传递。
	// job 不得为 nil，否则返回 [ErrNilJob]。
	Submit(job Job) (*Future, error)

	// Schedule 延迟 delay 后调度一次性任务。负的 delay 按 0 处理。
	Schedule(job Job, delay time.Duration) (*Future, error)

	// ScheduleAtFixedRate 以固定频率调度周期任务：首次在 initialDelay
	// 之后执行，此后每 period 触发一次（按计划时间推算）。
	// 单次执行超过 period 时只推迟下一次，绝不并行。
	// period 必须为正，否则返回 [ErrInvalidInterval]。
	ScheduleAtFixedRate(job Job, initialDelay, period time.Duration, opts ...TickOption) (*Ticket, error)

	// ScheduleWithFixedDelay 以固定间隔调度周期任务：下一次触发从
	// 上一次完成时刻起算 delay。
	// delay 必须为正，否则返回 [ErrInvalidInterval]。
	ScheduleWithFixedDelay(job Job, initialDelay, delay time.Duration, opts ...TickOption) (*Ticket, error)

	// Pending 返回当前在途单元数（待执行 + 执行中 + 周期活跃）。
	Pending() int

	// Idle 报告调度器当前是否空闲（无池、无在途单元）。
	Idle() bool
}

// New 创建一个新的 Scheduler 实例。
// 配置无效时立即返回错误（如池大小非正），不产生任何部分状态。
func New(opts ...Option) (Scheduler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.size <= 0 {
		return nil, ErrInvalidPoolSize
	}
	return &scheduler{opts: o}, nil
}
