package xsched

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// scheduler 是 Scheduler 的默认实现。
//
// 单把簿记锁覆盖池生命周期转换和在途计数：生命周期事件相对于
// 稳态任务执行非常稀疏，粗粒度换来不变量的简单性——
// 池引用非空 当且仅当 pending > 0。
type scheduler struct {
	opts options

	mu      sync.Mutex
	pool    Pool
	pending int
	closed  bool
}

// launchUnit 在簿记临界区内完成 懒建池 → 启动单元 → 计数递增。
// 启动失败时回滚：刚建好的池没有任何使用者则立刻拆除，再传播错误。
func (s *scheduler) launchUnit(unit func(ctx context.Context, p Pool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.pool == nil {
		p, err := s.opts.factory(s.opts.size)
		if err != nil {
			return fmt.Errorf("xsched: pool factory: %w", err)
		}
		if p == nil {
			return fmt.Errorf("xsched: pool factory returned nil pool")
		}
		s.pool = p
		s.pending = 0
		s.logDebug("pool created", "size", s.opts.size)
	}
	p := s.pool
	if err := p.Launch(func(ctx context.Context) { unit(ctx, p) }); err != nil {
		if s.pending == 0 {
			_ = p.Close()
			s.pool = nil
			s.logDebug("pool rolled back after launch failure")
		}
		return fmt.Errorf("xsched: launch unit: %w", err)
	}
	s.pending++
	return nil
}

// finishUnit 是每个单元保证执行一次的退出路径：
// 计数递减，归零时同步拆池并清空引用，下一次调度会构建全新的池。
// p 的身份比对防止与 Close 已拆除的池重复结算。
func (s *scheduler) finishUnit(p Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != p {
		return
	}
	s.pending--
	if s.pending == 0 {
		_ = p.Close()
		s.pool = nil
		s.logDebug("pool torn down")
	}
}

func (s *scheduler) Submit(job Job) (*Future, error) {
	return s.Schedule(job, 0)
}

func (s *scheduler) Schedule(job Job, delay time.Duration) (*Future, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	if delay < 0 {
		delay = 0
	}
	f := newFuture()
	err := s.launchUnit(func(ctx context.Context, p Pool) {
		s.runOnce(ctx, p, job, delay, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *scheduler) ScheduleAtFixedRate(job Job, initialDelay, period time.Duration, opts ...TickOption) (*Ticket, error) {
	return s.schedulePeriodic(job, initialDelay, period, true, opts...)
}

func (s *scheduler) ScheduleWithFixedDelay(job Job, initialDelay, delay time.Duration, opts ...TickOption) (*Ticket, error) {
	return s.schedulePeriodic(job, initialDelay, delay, false, opts...)
}

func (s *scheduler) schedulePeriodic(job Job, initialDelay, interval time.Duration, fixedRate bool, opts ...TickOption) (*Ticket, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	if initialDelay < 0 {
		initialDelay = 0
	}
	to := defaultTickOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&to)
		}
	}
	tk := newTicket()
	err := s.launchUnit(func(ctx context.Context, p Pool) {
		s.runPeriodic(ctx, p, job, initialDelay, interval, fixedRate, to.onError, tk)
	})
	if err != nil {
		return nil, err
	}
	return tk, nil
}

// runOnce 是一次性单元的主体。
// 结算顺序固定：写入结果 → 计数回收 → 关闭 done，
// 因此 Future.Done 触发时调度器状态已经收敛，Idle 可直接观测。
func (s *scheduler) runOnce(ctx context.Context, p Pool, job Job, delay time.Duration, f *Future) {
	var err error
	defer func() {
		f.err = err
		s.finishUnit(p)
		close(f.done)
	}()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-f.cancel:
			err = ErrCanceled
			return
		case <-ctx.Done():
			err = ErrClosed
			return
		}
	}
	// 取消与计时结束竞态时，取消优先。
	select {
	case <-f.cancel:
		err = ErrCanceled
		return
	default:
	}

	if acqErr := p.Acquire(ctx); acqErr != nil {
		err = ErrClosed
		return
	}
	err = s.runJob(ctx, job)
	p.Release()
}

// runPeriodic 是周期单元的主体，任务体在本 goroutine 内联执行，
// 同一单元的执行天然串行、绝不自我并发。
func (s *scheduler) runPeriodic(ctx context.Context, p Pool, job Job, initialDelay, interval time.Duration, fixedRate bool, onError ErrorHandler, tk *Ticket) {
	var err error
	defer func() {
		tk.err = err
		s.finishUnit(p)
		close(tk.done)
	}()

	t := time.NewTimer(initialDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-tk.cancel:
		err = ErrCanceled
		return
	case <-ctx.Done():
		err = ErrClosed
		return
	}

	// 固定频率：ticker 从首次执行时刻起走表；tick 最多积压一个，
	// 过慢的执行只推迟下一次触发。
	var ticker *time.Ticker
	if fixedRate {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-tk.cancel:
			err = ErrCanceled
			return
		case <-ctx.Done():
			err = ErrClosed
			return
		default:
		}

		if acqErr := p.Acquire(ctx); acqErr != nil {
			err = ErrClosed
			return
		}
		runErr := s.runJob(ctx, job)
		p.Release()

		if runErr != nil {
			if herr := onError(runErr); herr != nil {
				// 处理器自身失败：本单元永久终止。
				s.logError("periodic unit terminated by error handler",
					"cause", runErr, "handler_error", herr)
				err = herr
				return
			}
			s.logWarn("periodic job failed, continuing", "error", runErr)
		}

		if fixedRate {
			select {
			case <-ticker.C:
			case <-tk.cancel:
				err = ErrCanceled
				return
			case <-ctx.Done():
				err = ErrClosed
				return
			}
		} else {
			t.Reset(interval)
			select {
			case <-t.C:
			case <-tk.cancel:
				err = ErrCanceled
				return
			case <-ctx.Done():
				err = ErrClosed
				return
			}
		}
	}
}

// runJob 执行任务体并捕获 panic，单个任务失败不影响池和其他单元。
func (s *scheduler) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xsched: job panic: %v", r)
			s.logError("job panic recovered", "panic", r)
		}
	}()
	return job.Run(ctx)
}

func (s *scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool == nil
}

// Close 关闭调度器：取消所有在途单元的 ctx 并等待其退出。
// 任务体需要响应 ctx.Done()，否则 Close 会一直等待。幂等。
func (s *scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	p := s.pool
	s.pool = nil
	s.pending = 0
	s.mu.Unlock()

	if p != nil {
		_ = p.Close()
		<-p.Done()
	}
	return nil
}

// 日志辅助方法

func (s *scheduler) logArgs(args []any) []any {
	if s.opts.name == "" {
		return args
	}
	return append([]any{"scheduler", s.opts.name}, args...)
}

func (s *scheduler) logDebug(msg string, args ...any) {
	s.opts.logger.Debug("xsched: "+msg, s.logArgs(args)...)
}

func (s *scheduler) logWarn(msg string, args ...any) {
	s.opts.logger.Warn("xsched: "+msg, s.logArgs(args)...)
}

func (s *scheduler) logError(msg string, args ...any) {
	s.opts.logger.Error("xsched: "+msg, s.logArgs(args)...)
}

var _ Scheduler = (*scheduler)(nil)
