// Package xkeylock 提供按任意值 key 的进程内可重入互斥锁注册表。
//
// 适用于需要按业务值进行互斥的场景，如按 cron 表达式串行化任务列表变更、
// 按资源 ID 互斥更新等。锁条目按需创建，最后一个持有者/等待者离开后自动回收，
// 内存占用只与当前活跃的 key 集合成正比。
//
// # Key 模型
//
// key 按值相等（structural equality）规范化后查找锁：
//
//   - Single：任意可比较值；nil 映射到规范化哨兵
//   - Composite：有序元组，逐元素、顺序敏感地比较；空元组映射到规范化哨兵；
//     单元素元组退化为 Single
//
// 注意：把一个 slice/map/func/chan 作为 Single 值传入时，锁定的是该值的
// 身份（identity），而不是其展开后的元素；要按元素锁定请使用 LockAll
// 展开传入。无身份可用的不可比较值（如含 slice 字段的 struct）返回
// [ErrUncomparableKey]。
//
// # 特性
//
//   - 可重入：Handle.Reenter 增加一层重入，Unlock 按层数配对释放
//   - Context 支持：Lock/LockAll 支持超时和取消（ctx 不得为 nil，否则 panic）
//   - TryLock：非阻塞获取
//   - Handle 语义：完全释放后再调用 Unlock/Reenter 返回 [ErrLockNotHeld]
//   - 分片 map：默认 32 分片，减少管理锁争用
//   - 内存安全：WithMaxKeys(n) 可限制最大 key 数
//   - 关闭语义：Close() 拒绝新请求并唤醒所有等待中的 Lock，使其返回
//     [ErrClosed]；已持有的 Handle 不受影响
//
// # 公平性
//
// 不保证 FIFO：多个阻塞等待者之间谁先获得锁由运行时调度决定。
package xkeylock
