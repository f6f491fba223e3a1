package xsched

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool 是调度器使用的 worker 池抽象。
//
// 池管理两类资源：单元 goroutine 的生命周期（Launch/Close/Done）
// 和任务体的执行槽（Acquire/Release，上限为池大小）。
// 调度器保证 Launch 不会与 Close 并发调用（共享簿记锁）。
type Pool interface {
	// Launch 启动一个受池生命周期管理的 goroutine。
	// unit 收到的 ctx 在 Close 时被取消。池已关闭时返回 [ErrPoolClosed]。
	Launch(unit func(ctx context.Context)) error

	// Acquire 占用一个执行槽，槽满时阻塞；ctx 取消时返回其错误。
	Acquire(ctx context.Context) error

	// Release 归还 Acquire 占用的执行槽。
	Release()

	// Close 发出关闭信号并取消所有单元的 ctx。
	// 非阻塞，可以在池内 goroutine 中安全调用。幂等。
	Close() error

	// Done 返回的 channel 在 Close 之后所有单元 goroutine 退出时关闭。
	Done() <-chan struct{}
}

// Factory 构造 worker 池，作为调度器的注入点。
// size 为执行槽数量（并发执行任务体的上限）。
type Factory func(size int) (Pool, error)

// workerPool 是默认的 Pool 实现。
type workerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewWorkerPool 创建默认 worker 池，执行槽数量为 size。
// size 必须为正，否则返回 [ErrInvalidPoolSize]。
func NewWorkerPool(size int) (Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidPoolSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &workerPool{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(size)),
		done:   make(chan struct{}),
	}, nil
}

func (p *workerPool) Launch(unit func(ctx context.Context)) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		unit(p.ctx)
	}()
	return nil
}

func (p *workerPool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

func (p *workerPool) Release() {
	p.sem.Release(1)
}

func (p *workerPool) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		p.cancel()
		// 收割协程：等全部单元退出后关闭 done。
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})
	return nil
}

func (p *workerPool) Done() <-chan struct{} {
	return p.done
}

var _ Pool = (*workerPool)(nil)
