// Package xcrontab 提供按 cron 表达式复用触发器的周期任务多路复用器。
//
// # 概述
//
// xcrontab 基于 [robfig/cron/v3] 的触发引擎构建：同一表达式下可以挂多个
// 任务，但只向底层 cron 注册一个触发器；触发时对任务列表做快照并逐个
// 提交执行。
//
// 两个下层原语的组合方式：
//
//   - 任务列表的变更（Add/Remove）与触发快照之间，通过 [xkeylock.Registry]
//     以表达式字符串为 key 串行化，不同表达式互不阻塞
//   - 任务体的实际执行通过 [xsched.Scheduler] 异步完成：空闲的 crontab
//     不持有任何 worker goroutine，自释放特性向上组合
//
// # 快速开始
//
//	ct, err := xcrontab.New()
//	if err != nil { ... }
//	defer ct.Close()
//
//	id, err := ct.Add("@every 1m", xcrontab.JobFunc(func(ctx context.Context) error {
//	    return doSomething(ctx)
//	}), xcrontab.WithName("my-task"))
//	ct.Start()
//
// # 任务实现要求
//
// 任务函数应响应 ctx.Done()：Close 时通过取消 ctx 协作式终止在途任务。
// 任务失败会被记录到统计与日志，不会中断后续触发。
package xcrontab
