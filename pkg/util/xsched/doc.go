// Package xsched 提供自释放的延迟/周期任务调度器。
//
// 调度器背后的 worker 池按需懒创建、懒销毁：只要还有任务处于
// 待执行/执行中/周期活跃状态，池就存在；最后一个任务结束（完成、取消
// 或致命失败）时池被同步拆除，下一次调度调用会构建一个全新的池。
// 空闲的调度器不持有任何 goroutine。
//
// # 任务形态
//
//   - Submit / Schedule：一次性任务，结果通过 [Future] 传递
//   - ScheduleAtFixedRate：固定频率周期任务，下一次触发按上一次的
//     计划时间推算；单次执行过慢会推迟（而非并行化）下一次
//   - ScheduleWithFixedDelay：固定间隔周期任务，下一次触发从上一次
//     完成时刻起算
//
// 周期任务自身严格串行：同一单元的两次执行绝不并发。
//
// # 错误策略
//
// 一次性任务的失败通过 Future 传播。周期任务默认策略 [SwallowErrors]
// 吞掉单次失败继续走表；通过 [WithErrorHandler] 注入处理器后，
// 处理器返回非 nil 错误时该单元永久终止并触发计数回收。
// 任务 panic 会被捕获并转换为错误，不影响池和其他单元。
//
// # 取消
//
// Cancel 是协作式的、幂等的：不会强行中断正在执行的单次任务体，
// 只阻止后续触发；并发调用或与触发竞态调用均安全，计数只回收一次。
//
// # 生命周期约束
//
// 调度入口（Submit/Schedule*）只在短暂的簿记临界区内阻塞调用方，
// 任务体在池 goroutine 中异步执行。任务体应响应 ctx.Done()：
// Close 通过取消 ctx 协作式终止所有在途单元。
package xsched
