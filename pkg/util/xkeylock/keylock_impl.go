package xkeylock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// registryImpl 是 Registry 的分片实现。
type registryImpl struct {
	shards   []shard
	opts     options
	closed   atomic.Bool
	keyCount atomic.Int64
	done     chan struct{}
}

type shard struct {
	mu      sync.Mutex
	entries map[Key]*lockEntry
}

// lockEntry 表示一个 key 的锁条目。
// ch 是 size=1 的 channel，用作互斥量：
//   - 发送成功 = 获取锁
//   - 发送阻塞 = 锁被占用
//   - 接收 = 释放锁
type lockEntry struct {
	ch chan struct{}
	// refcnt 跟踪引用此条目的 goroutine 数量（持有者 + 等待者）。
	// 归零时条目从 map 中删除。refcnt 的增减与 map 成员关系共享分片锁，
	// 因此 "条目仍在 map 中但已逻辑死亡" 的窗口不存在：
	// 后到者要么拿到活条目并把引用计数抬到非零，要么看到条目已删除并新建。
	refcnt atomic.Int32
}

// handle 实现 Handle 接口。
type handle struct {
	reg   *registryImpl
	key   Key
	entry *lockEntry
	// depth 是重入层数，0 表示已完全释放。
	depth atomic.Int32
}

func newRegistryImpl(opts options) *registryImpl {
	shards := make([]shard, opts.shardCount)
	for i := range shards {
		shards[i].entries = make(map[Key]*lockEntry)
	}
	return &registryImpl{
		shards: shards,
		opts:   opts,
		done:   make(chan struct{}),
	}
}

func (r *registryImpl) getShard(key Key) *shard {
	h := xxhash.Sum64String(key.hashString())
	return &r.shards[h&r.opts.shardMask]
}

// getOrCreate 获取或创建 lockEntry，并增加引用计数。
func (r *registryImpl) getOrCreate(key Key) (*lockEntry, error) {
	s := r.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}

	e, ok := s.entries[key]
	if !ok {
		if r.opts.maxKeys > 0 {
			// 使用 CAS 严格限制 key 数量，避免跨分片并发突破上限。
			for {
				cur := r.keyCount.Load()
				if cur >= int64(r.opts.maxKeys) {
					return nil, ErrMaxKeysExceeded
				}
				if r.keyCount.CompareAndSwap(cur, cur+1) {
					break
				}
			}
		} else {
			r.keyCount.Add(1)
		}
		e = &lockEntry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
	}
	e.refcnt.Add(1)
	return e, nil
}

// releaseRef 减少引用计数，归零时从 map 删除。
func (r *registryImpl) releaseRef(key Key, entry *lockEntry) {
	s := r.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.refcnt.Add(-1) == 0 {
		delete(s.entries, key)
		r.keyCount.Add(-1)
	}
}

func (r *registryImpl) Lock(ctx context.Context, key any) (Handle, error) {
	k, err := SingleKey(key)
	if err != nil {
		return nil, err
	}
	return r.lockKey(ctx, k)
}

func (r *registryImpl) LockAll(ctx context.Context, keys ...any) (Handle, error) {
	k, err := CompositeKey(keys...)
	if err != nil {
		return nil, err
	}
	return r.lockKey(ctx, k)
}

func (r *registryImpl) lockKey(ctx context.Context, key Key) (Handle, error) {
	if ctx == nil {
		panic("xkeylock: nil Context")
	}
	// 快速检查：ctx 已取消时避免进入 getOrCreate 造成不必要的锁竞争。
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}
	entry, err := r.getOrCreate(key)
	if err != nil {
		return nil, err
	}
	select {
	case entry.ch <- struct{}{}: // 获取成功
		h := &handle{reg: r, key: key, entry: entry}
		h.depth.Store(1)
		return h, nil
	case <-ctx.Done(): // 超时或取消
		r.releaseRef(key, entry)
		return nil, ctx.Err()
	case <-r.done: // Registry 已关闭
		r.releaseRef(key, entry)
		return nil, ErrClosed
	}
}

func (r *registryImpl) TryLock(key any) (Handle, error) {
	k, err := SingleKey(key)
	if err != nil {
		return nil, err
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}
	entry, err := r.getOrCreate(k)
	if err != nil {
		return nil, err
	}
	select {
	case entry.ch <- struct{}{}: // 获取成功
		h := &handle{reg: r, key: k, entry: entry}
		h.depth.Store(1)
		return h, nil
	default: // 锁被占用
		r.releaseRef(k, entry)
		return nil, nil
	}
}

func (r *registryImpl) Len() int {
	return int(max(r.keyCount.Load(), 0))
}

func (r *registryImpl) Keys() []Key {
	keys := make([]Key, 0, max(r.keyCount.Load(), 0))
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for k := range s.entries {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}
	return keys
}

func (r *registryImpl) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(r.done)
	return nil
}

// handle 方法

func (h *handle) Unlock() error {
	for {
		d := h.depth.Load()
		if d <= 0 {
			return ErrLockNotHeld
		}
		if !h.depth.CompareAndSwap(d, d-1) {
			continue
		}
		if d == 1 {
			// 最后一层：释放互斥量并归还条目引用。
			<-h.entry.ch
			h.reg.releaseRef(h.key, h.entry)
		}
		return nil
	}
}

func (h *handle) Reenter() error {
	for {
		d := h.depth.Load()
		if d <= 0 {
			return ErrLockNotHeld
		}
		if h.depth.CompareAndSwap(d, d+1) {
			return nil
		}
	}
}

func (h *handle) Key() Key {
	return h.key
}

// 编译期接口检查。
var (
	_ Registry = (*registryImpl)(nil)
	_ Handle   = (*handle)(nil)
)
