package xkeylock

import "errors"

var (
	// ErrLockNotHeld 表示 Handle 已完全释放。
	// Unlock/Reenter 在重入层数归零后调用时返回此错误。
	ErrLockNotHeld = errors.New("xkeylock: lock not held")

	// ErrClosed 表示 Registry 已关闭。
	// Close 后调用 Lock/LockAll/TryLock 返回此错误。
	ErrClosed = errors.New("xkeylock: closed")

	// ErrMaxKeysExceeded 表示已达到最大 key 数量限制。
	ErrMaxKeysExceeded = errors.New("xkeylock: max keys exceeded")

	// ErrInvalidShardCount 表示分片数配置无效。
	ErrInvalidShardCount = errors.New("xkeylock: invalid shard count")

	// ErrUncomparableKey 表示 key 值不可比较且无身份可用。
	ErrUncomparableKey = errors.New("xkeylock: uncomparable key")
)
