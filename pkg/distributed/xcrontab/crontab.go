package xcrontab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/object1314/taskit/pkg/util/xkeylock"
	"github.com/object1314/taskit/pkg/util/xsched"
)

var (
	// ErrNilJob 表示任务为 nil。
	ErrNilJob = errors.New("xcrontab: job cannot be nil")

	// ErrClosed 表示 Crontab 已关闭。
	ErrClosed = errors.New("xcrontab: closed")

	// ErrUnknownJob 表示指定表达式下不存在该任务。
	ErrUnknownJob = errors.New("xcrontab: unknown job")
)

// Crontab 是按 cron 表达式复用触发器的任务多路复用器接口。
//
// 使用 [New] 创建默认实现。
type Crontab interface {
	io.Closer

	// Add 在表达式 spec 下挂载一个任务。
	//
	// 同一表达式下的多个任务共享一个触发器；首个任务注册触发器，
	// 表达式无效时返回底层解析错误。
	// 返回 JobID 用于后续 Remove。
	Add(spec string, job Job, opts ...JobOption) (JobID, error)

	// Remove 从表达式 spec 下移除任务。
	//
	// 移除后任务将不再被触发，正在执行的任务不受影响；
	// 表达式下最后一个任务被移除时触发器一并注销。
	// 任务不存在时返回 [ErrUnknownJob]。
	Remove(spec string, id JobID) error

	// Jobs 返回表达式 spec 下当前挂载的任务数。
	Jobs(spec string) int

	// Start 启动触发引擎（非阻塞）。重复调用无效果。
	Start()

	// Stop 停止触发引擎。
	// 返回的 context 在所有在途触发回调完成后 Done；
	// 已提交执行的任务体不受影响。
	Stop() context.Context

	// Stats 返回执行统计信息。
	// 返回的 Stats 对象是线程安全的，可以在任务执行期间安全读取。
	Stats() *Stats
}

// crontabImpl 是 Crontab 的默认实现。
type crontabImpl struct {
	cron   *cron.Cron
	reg    xkeylock.Registry
	sched  xsched.Scheduler
	logger Logger
	stats  *Stats

	ownReg   bool // registry 由内部构建，随 Close 关闭
	ownSched bool // scheduler 由内部构建，随 Close 关闭

	nextID atomic.Int64
	closed atomic.Bool
	// exprs 维护表达式 → 条目的映射；条目内的任务列表
	// 由 reg 上以表达式为 key 的锁串行化。
	exprs sync.Map // map[string]*exprEntry
}

// exprEntry 是一个表达式的触发条目。
type exprEntry struct {
	cronID cron.EntryID
	jobs   []jobRec
}

type jobRec struct {
	id   JobID
	name string
	job  Job
}

// New 创建新的多路复用器。
//
// 不带参数时内部构建私有的锁注册表与调度器（随 Close 关闭）。
//
// 用法：
//
//	// 独立使用
//	ct, err := xcrontab.New()
//
//	// 共享底层原语
//	ct, err := xcrontab.New(
//	    xcrontab.WithRegistry(reg),
//	    xcrontab.WithScheduler(sched),
//	    xcrontab.WithSeconds(), // 启用秒级精度
//	)
func New(opts ...Option) (Crontab, error) {
	options := defaultCrontabOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	c := &crontabImpl{
		cron: cron.New(
			cron.WithLocation(options.location),
			cron.WithParser(options.parser),
		),
		logger: options.logger,
		stats:  newStats(),
	}

	c.reg = options.registry
	if c.reg == nil {
		reg, err := xkeylock.New()
		if err != nil {
			return nil, fmt.Errorf("xcrontab: build registry: %w", err)
		}
		c.reg = reg
		c.ownReg = true
	}

	c.sched = options.scheduler
	if c.sched == nil {
		sched, err := xsched.New()
		if err != nil {
			if c.ownReg {
				_ = c.reg.Close()
			}
			return nil, fmt.Errorf("xcrontab: build scheduler: %w", err)
		}
		c.sched = sched
		c.ownSched = true
	}

	return c, nil
}

func (c *crontabImpl) Add(spec string, job Job, opts ...JobOption) (JobID, error) {
	if job == nil {
		return 0, ErrNilJob
	}
	if c.closed.Load() {
		return 0, ErrClosed
	}

	jobOpts := defaultJobOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(jobOpts)
		}
	}

	// 表达式级互斥：列表变更与触发快照串行化。
	h, err := c.reg.Lock(context.Background(), spec)
	if err != nil {
		return 0, fmt.Errorf("xcrontab: lock spec %q: %w", spec, err)
	}
	defer h.Unlock() //nolint:errcheck // 配对释放

	v, _ := c.exprs.LoadOrStore(spec, &exprEntry{})
	e := v.(*exprEntry)

	if len(e.jobs) == 0 {
		// 首个任务：注册触发器。
		cronID, err := c.cron.AddFunc(spec, func() { c.fire(spec) })
		if err != nil {
			c.exprs.Delete(spec)
			return 0, fmt.Errorf("xcrontab: invalid spec %q: %w", spec, err)
		}
		e.cronID = cronID
	}

	id := JobID(c.nextID.Add(1))
	e.jobs = append(e.jobs, jobRec{id: id, name: jobOpts.name, job: job})
	return id, nil
}

func (c *crontabImpl) Remove(spec string, id JobID) error {
	if c.closed.Load() {
		return ErrClosed
	}

	h, err := c.reg.Lock(context.Background(), spec)
	if err != nil {
		return fmt.Errorf("xcrontab: lock spec %q: %w", spec, err)
	}
	defer h.Unlock() //nolint:errcheck // 配对释放

	v, ok := c.exprs.Load(spec)
	if !ok {
		return ErrUnknownJob
	}
	e := v.(*exprEntry)

	idx := slices.IndexFunc(e.jobs, func(r jobRec) bool { return r.id == id })
	if idx < 0 {
		return ErrUnknownJob
	}
	e.jobs = slices.Delete(e.jobs, idx, idx+1)

	if len(e.jobs) == 0 {
		// 最后一个任务：注销触发器，条目一并回收。
		c.cron.Remove(e.cronID)
		c.exprs.Delete(spec)
	}
	return nil
}

func (c *crontabImpl) Jobs(spec string) int {
	h, err := c.reg.Lock(context.Background(), spec)
	if err != nil {
		return 0
	}
	defer h.Unlock() //nolint:errcheck // 配对释放

	v, ok := c.exprs.Load(spec)
	if !ok {
		return 0
	}
	return len(v.(*exprEntry).jobs)
}

// fire 是表达式触发回调：在锁内快照任务列表，在锁外异步提交执行。
// 快照保证触发与 Add/Remove 互不交错；异步提交保证触发回调
// 不被慢任务拖住（robfig/cron 串行执行同一触发器的回调）。
func (c *crontabImpl) fire(spec string) {
	if c.closed.Load() {
		return
	}

	h, err := c.reg.Lock(context.Background(), spec)
	if err != nil {
		return
	}
	v, ok := c.exprs.Load(spec)
	if !ok {
		_ = h.Unlock()
		return
	}
	snapshot := slices.Clone(v.(*exprEntry).jobs)
	_ = h.Unlock()

	for _, rec := range snapshot {
		c.submit(spec, rec)
	}
}

func (c *crontabImpl) submit(spec string, rec jobRec) {
	_, err := c.sched.Submit(xsched.JobFunc(func(ctx context.Context) error {
		return c.runOne(ctx, spec, rec)
	}))
	if err != nil {
		c.stats.recordDrop(rec.name)
		c.logWarn(context.Background(), "failed to submit job",
			"spec", spec, "job", rec.name, "error", err)
	}
}

// runOne 执行单个任务并记录统计，panic 转换为错误后一并入账。
func (c *crontabImpl) runOne(ctx context.Context, spec string, rec jobRec) (err error) {
	begin := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xcrontab: job panic: %v", r)
		}
		c.stats.recordExecution(rec.name, time.Since(begin), err)
		if err != nil {
			c.logError(ctx, "job failed", "spec", spec, "job", rec.name, "error", err)
		} else {
			c.logDebug(ctx, "job completed", "spec", spec, "job", rec.name)
		}
	}()
	return rec.job.Run(ctx)
}

func (c *crontabImpl) Start() {
	c.cron.Start()
}

func (c *crontabImpl) Stop() context.Context {
	return c.cron.Stop()
}

func (c *crontabImpl) Stats() *Stats {
	return c.stats
}

// Close 停止触发引擎并关闭内部构建的调度器与锁注册表。
// 注入的 registry/scheduler 由调用方负责关闭。幂等。
func (c *crontabImpl) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	// 等待在途触发回调完成，保证不再有新任务提交。
	<-c.cron.Stop().Done()

	if c.ownSched {
		_ = c.sched.Close()
	}
	if c.ownReg {
		_ = c.reg.Close()
	}
	return nil
}

// 日志辅助方法

func (c *crontabImpl) logDebug(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(ctx, msg, args...)
	}
}

func (c *crontabImpl) logWarn(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(ctx, msg, args...)
	} else {
		log.Printf("[WARN] xcrontab: %s %v", msg, args)
	}
}

func (c *crontabImpl) logError(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(ctx, msg, args...)
	} else {
		log.Printf("[ERROR] xcrontab: %s %v", msg, args)
	}
}

// 确保 crontabImpl 实现了 Crontab 接口
var _ Crontab = (*crontabImpl)(nil)
