package xsched

import (
	"log/slog"
	"runtime"
)

// Option 定义调度器可选配置。
type Option func(*options)

type options struct {
	size    int
	factory Factory
	logger  *slog.Logger
	name    string
}

func defaultOptions() options {
	return options{
		size:    runtime.GOMAXPROCS(0),
		factory: NewWorkerPool,
		logger:  slog.Default(),
	}
}

// WithPoolSize 设置执行槽数量（并发执行任务体的上限）。
// 默认为 GOMAXPROCS。非正值使 New 返回 [ErrInvalidPoolSize]。
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.size = n
	}
}

// WithFactory 注入自定义 worker 池工厂。
// 默认使用 [NewWorkerPool]。传入 nil 将被忽略，保持使用默认值。
func WithFactory(f Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithLogger 设置自定义日志记录器。
// 默认使用 slog.Default()。传入 nil 将被忽略，保持使用默认值。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置调度器名称，用于在多实例场景下区分日志来源。
// 默认为空字符串（日志中不包含名称）。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// ===================== Tick Options =====================

// TickOption 定义周期任务的可选配置。
type TickOption func(*tickOptions)

type tickOptions struct {
	onError ErrorHandler
}

func defaultTickOptions() tickOptions {
	return tickOptions{
		onError: SwallowErrors,
	}
}

// WithErrorHandler 设置周期任务的失败处理器。
//
// 处理器返回 nil 表示失败已消化，单元继续走表；
// 返回非 nil 错误表示处理器自身失败，该单元永久终止，
// 终止原因通过 [Ticket.Err] 暴露。
// 默认为 [SwallowErrors]。传入 nil 将被忽略，保持使用默认值。
func WithErrorHandler(h ErrorHandler) TickOption {
	return func(o *tickOptions) {
		if h != nil {
			o.onError = h
		}
	}
}
