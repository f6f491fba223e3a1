package xsched

import "errors"

var (
	// ErrNilJob 表示任务为 nil。
	ErrNilJob = errors.New("xsched: job cannot be nil")

	// ErrClosed 表示调度器已关闭。
	// Close 后调用 Submit/Schedule* 返回此错误；被 Close 终止的
	// 在途单元的 Future/Ticket 也以此错误收尾。
	ErrClosed = errors.New("xsched: scheduler closed")

	// ErrCanceled 表示单元在执行前或周期进行中被取消。
	ErrCanceled = errors.New("xsched: unit canceled")

	// ErrInvalidPoolSize 表示池大小配置无效（必须为正）。
	ErrInvalidPoolSize = errors.New("xsched: invalid pool size")

	// ErrInvalidInterval 表示周期任务的 period/delay 无效（必须为正）。
	ErrInvalidInterval = errors.New("xsched: invalid interval")

	// ErrPoolClosed 表示 worker 池已关闭，无法再启动单元。
	ErrPoolClosed = errors.New("xsched: pool closed")
)
