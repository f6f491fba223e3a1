package xkeylock

import (
	"context"
	"io"
	"sync"
)

// Handle 表示一次成功的锁获取，由获取方持有并负责配对释放。
//
// Handle 携带重入层数：Lock/LockAll 成功返回时层数为 1，
// Reenter 每次加一层，Unlock 每次减一层，归零时真正释放互斥量。
type Handle interface {
	// Unlock 释放一层重入；最后一层释放互斥量并归还条目引用。
	// 层数已归零时返回 [ErrLockNotHeld]（所有权错误，调用方的配对 bug）。
	Unlock() error

	// Reenter 为当前持有的锁增加一层重入，不阻塞。
	// 每次 Reenter 都需要一次额外的 Unlock 配对。
	// 层数已归零时返回 [ErrLockNotHeld]。
	//
	// 设计决策: Go 没有可依赖的 goroutine 身份，重入归属由 Handle 本身
	// 承载——持有 Handle 即持有重入能力。对同一 key 再次调用 Lock
	// 而不是 Reenter 会阻塞直到 Handle 完全释放。
	Reenter() error

	// Key 返回锁的规范化 key。
	// 即使在完全释放之后调用，Key 仍返回原始值。
	Key() Key
}

// Registry 是按值 key 的可重入互斥锁注册表。
// 所有方法都是并发安全的。
type Registry interface {
	io.Closer

	// Lock 阻塞式获取 key 对应的锁。
	// key 按 [SingleKey] 规则规范化；不可比较且无身份的 key 返回
	// [ErrUncomparableKey]。
	// 支持 ctx 超时/取消，ctx 取消时返回 [context.Canceled] 或
	// [context.DeadlineExceeded]，等待期间占用的条目引用会被归还。
	// Registry 已关闭时返回 [ErrClosed]。ctx 不得为 nil，否则 panic。
	//
	// 当 Lock 处于阻塞等待时，若 Close 与 ctx 取消同时发生，
	// 返回 [ErrClosed] 或 ctx.Err() 均有可能（Go select 语义）。
	Lock(ctx context.Context, key any) (Handle, error)

	// LockAll 阻塞式获取一组有序 key 构成的 Composite 锁。
	// 等价于 Lock(ctx, CompositeKey(keys...))：零个 key 映射到规范化
	// 空元组；单个 key 退化为 Lock。
	LockAll(ctx context.Context, keys ...any) (Handle, error)

	// TryLock 非阻塞获取锁。
	// 锁被占用时返回 (nil, nil)。Registry 已关闭时返回 (nil, [ErrClosed])。
	TryLock(key any) (Handle, error)

	// Len 返回当前活跃的 key 数量（单次原子读取，瞬时快照）。
	// Close 后仍可安全调用，返回值随已持有 Handle 的释放逐渐归零。
	Len() int

	// Keys 返回当前活跃条目的 key 列表（包含持有者和等待者），仅用于调试。
	// 返回值是快照，不保证跨分片原子性。
	Keys() []Key
}

// New 创建一个新的 Registry 实例。
// 配置无效时返回错误（如分片数不是 2 的幂）。
func New(opts ...Option) (Registry, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return newRegistryImpl(o), nil
}

// defaultRegistry 以默认配置懒构造，进程内共享。
var defaultRegistry = sync.OnceValue(func() Registry {
	r, err := New()
	if err != nil {
		// 默认配置恒定有效，到这里说明 defaultOptions 被改坏了。
		panic("xkeylock: default registry: " + err.Error())
	}
	return r
})

// Default 返回进程级共享的默认 Registry。
//
// 首次调用时以默认配置构造，之后总是返回同一实例。
// 需要隔离或自定义配置时应使用 [New] 并显式传递实例。
func Default() Registry {
	return defaultRegistry()
}
