package xcrontab

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/object1314/taskit/pkg/util/xkeylock"
	"github.com/object1314/taskit/pkg/util/xsched"
)

// ===================== Crontab Options =====================

// crontabOptions 多路复用器配置
type crontabOptions struct {
	registry  xkeylock.Registry // 表达式级互斥（nil 时内部构建并随 Close 关闭）
	scheduler xsched.Scheduler  // 任务执行（nil 时内部构建并随 Close 关闭）
	logger    Logger            // 日志记录器
	location  *time.Location    // 时区
	parser    cron.Parser       // cron 表达式解析器
}

// defaultCrontabOptions 返回默认配置
func defaultCrontabOptions() *crontabOptions {
	return &crontabOptions{
		logger:   nil, // 使用内置默认日志
		location: time.Local,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Option 多路复用器配置选项
type Option func(*crontabOptions)

// WithRegistry 注入表达式级互斥使用的锁注册表。
//
// 不设置时内部构建一个私有实例，并在 Close 时一并关闭；
// 注入的实例由调用方负责关闭。
func WithRegistry(reg xkeylock.Registry) Option {
	return func(o *crontabOptions) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// WithScheduler 注入任务执行使用的调度器。
//
// 不设置时内部构建一个私有实例，并在 Close 时一并关闭；
// 注入的实例由调用方负责关闭。
func WithScheduler(sched xsched.Scheduler) Option {
	return func(o *crontabOptions) {
		if sched != nil {
			o.scheduler = sched
		}
	}
}

// WithLogger 设置日志记录器。
// 不设置时使用标准库 log 输出 warn/error。
func WithLogger(logger Logger) Option {
	return func(o *crontabOptions) {
		o.logger = logger
	}
}

// WithLocation 设置时区。
// cron 表达式中的时间将按此时区解释。默认使用本地时区。
func WithLocation(loc *time.Location) Option {
	return func(o *crontabOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithParser 自定义 cron 表达式解析器。
func WithParser(parser cron.Parser) Option {
	return func(o *crontabOptions) {
		o.parser = parser
	}
}

// WithSeconds 启用秒级精度。
//
// 默认 cron 表达式最小精度为分钟，使用此选项后支持秒级：
//
//	ct, _ := xcrontab.New(xcrontab.WithSeconds())
//	ct.Add("*/5 * * * * *", task) // 每 5 秒执行
func WithSeconds() Option {
	return func(o *crontabOptions) {
		o.parser = cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		)
	}
}

// ===================== Job Options =====================

// jobOptions 任务配置
type jobOptions struct {
	name string // 任务名（用于统计与日志）
}

func defaultJobOptions() *jobOptions {
	return &jobOptions{}
}

// JobOption 任务配置选项
type JobOption func(*jobOptions)

// WithName 设置任务名，用于统计（[Stats.JobStats]）与日志标识。
// 未命名任务只计入全局统计。
func WithName(name string) JobOption {
	return func(o *jobOptions) {
		o.name = name
	}
}
