// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xkeylock: 基于 key 的进程内互斥锁注册表，支持组合 key、可重入、
//     context 取消和非阻塞获取
//   - xsched: 自释放的延迟/周期任务调度器，空闲时不持有任何 worker goroutine
//
// 设计原则：
//   - 锁与调度原语均按需分配、用完即收，空闲状态零资源占用
//   - 所有阻塞操作接受 context，支持取消与超时
//   - 并发安全，不依赖调用方的外部同步
package util
