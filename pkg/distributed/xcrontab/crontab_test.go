package xcrontab

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/object1314/taskit/pkg/util/xkeylock"
	"github.com/object1314/taskit/pkg/util/xsched"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newForTest 创建 crontab 并注册清理。
func newForTest(t *testing.T, opts ...Option) Crontab {
	t.Helper()
	ct, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ct.Close() })
	return ct
}

func TestNew(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		ct := newForTest(t)
		require.NotNil(t, ct)
		assert.NotNil(t, ct.Stats())
	})

	t.Run("with seconds", func(t *testing.T) {
		ct := newForTest(t, WithSeconds())

		// 验证可以解析秒级表达式
		_, err := ct.Add("*/5 * * * * *", JobFunc(func(ctx context.Context) error {
			return nil
		}))
		assert.NoError(t, err)
	})

	t.Run("with location", func(t *testing.T) {
		loc, err := time.LoadLocation("Asia/Shanghai")
		require.NoError(t, err)
		ct := newForTest(t, WithLocation(loc))
		require.NotNil(t, ct)
	})

	t.Run("with shared primitives", func(t *testing.T) {
		reg, err := xkeylock.New()
		require.NoError(t, err)
		defer reg.Close() //nolint:errcheck

		sched, err := xsched.New()
		require.NoError(t, err)
		defer sched.Close() //nolint:errcheck

		ct := newForTest(t, WithRegistry(reg), WithScheduler(sched))
		require.NotNil(t, ct)

		// 注入的原语在 crontab 关闭后仍然可用
		require.NoError(t, ct.Close())
		h, err := reg.Lock(context.Background(), "still-alive")
		require.NoError(t, err)
		require.NoError(t, h.Unlock())
	})
}

func TestCrontab_Add(t *testing.T) {
	t.Run("valid spec", func(t *testing.T) {
		ct := newForTest(t)

		id, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			return nil
		}))
		assert.NoError(t, err)
		assert.NotZero(t, id)
		assert.Equal(t, 1, ct.Jobs("@every 1m"))
	})

	t.Run("invalid spec", func(t *testing.T) {
		ct := newForTest(t)

		_, err := ct.Add("not a cron spec", JobFunc(func(ctx context.Context) error {
			return nil
		}))
		assert.Error(t, err)
		// 失败的首次注册不留残余条目
		assert.Equal(t, 0, ct.Jobs("not a cron spec"))
	})

	t.Run("nil job", func(t *testing.T) {
		ct := newForTest(t)

		_, err := ct.Add("@every 1m", nil)
		assert.ErrorIs(t, err, ErrNilJob)
	})

	t.Run("ids are unique across specs", func(t *testing.T) {
		ct := newForTest(t)

		noop := JobFunc(func(ctx context.Context) error { return nil })
		seen := make(map[JobID]bool)
		for _, spec := range []string{"@every 1m", "@every 2m", "@every 1m"} {
			id, err := ct.Add(spec, noop)
			require.NoError(t, err)
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("multiple jobs share one trigger", func(t *testing.T) {
		ct := newForTest(t)

		noop := JobFunc(func(ctx context.Context) error { return nil })
		for range 3 {
			_, err := ct.Add("@every 1m", noop)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, ct.Jobs("@every 1m"))
	})
}

func TestCrontab_Remove(t *testing.T) {
	t.Run("remove existing job", func(t *testing.T) {
		ct := newForTest(t)

		noop := JobFunc(func(ctx context.Context) error { return nil })
		id1, err := ct.Add("@every 1m", noop)
		require.NoError(t, err)
		id2, err := ct.Add("@every 1m", noop)
		require.NoError(t, err)

		require.NoError(t, ct.Remove("@every 1m", id1))
		assert.Equal(t, 1, ct.Jobs("@every 1m"))

		require.NoError(t, ct.Remove("@every 1m", id2))
		assert.Equal(t, 0, ct.Jobs("@every 1m"))
	})

	t.Run("unknown spec", func(t *testing.T) {
		ct := newForTest(t)
		err := ct.Remove("@every 1m", 42)
		assert.ErrorIs(t, err, ErrUnknownJob)
	})

	t.Run("unknown id", func(t *testing.T) {
		ct := newForTest(t)

		id, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error { return nil }))
		require.NoError(t, err)

		err = ct.Remove("@every 1m", id+100)
		assert.ErrorIs(t, err, ErrUnknownJob)
	})

	t.Run("remove twice", func(t *testing.T) {
		ct := newForTest(t)

		id, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error { return nil }))
		require.NoError(t, err)
		require.NoError(t, ct.Remove("@every 1m", id))
		assert.ErrorIs(t, ct.Remove("@every 1m", id), ErrUnknownJob)
	})

	t.Run("spec can be reused after last removal", func(t *testing.T) {
		ct := newForTest(t)

		noop := JobFunc(func(ctx context.Context) error { return nil })
		id, err := ct.Add("@every 1m", noop)
		require.NoError(t, err)
		require.NoError(t, ct.Remove("@every 1m", id))

		id2, err := ct.Add("@every 1m", noop)
		require.NoError(t, err)
		assert.NotEqual(t, id, id2)
		assert.Equal(t, 1, ct.Jobs("@every 1m"))
	})
}

func TestCrontab_Fire(t *testing.T) {
	t.Run("trigger runs all jobs under spec", func(t *testing.T) {
		ct := newForTest(t)
		impl := ct.(*crontabImpl)

		var a, b atomic.Int32
		_, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			a.Add(1)
			return nil
		}), WithName("job-a"))
		require.NoError(t, err)
		_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			b.Add(1)
			return nil
		}), WithName("job-b"))
		require.NoError(t, err)

		// 直接触发，避免依赖真实时钟
		impl.fire("@every 1m")

		require.Eventually(t, func() bool {
			return a.Load() == 1 && b.Load() == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("removed job is not fired", func(t *testing.T) {
		ct := newForTest(t)
		impl := ct.(*crontabImpl)

		var kept, removed atomic.Int32
		_, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			kept.Add(1)
			return nil
		}))
		require.NoError(t, err)
		id, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			removed.Add(1)
			return nil
		}))
		require.NoError(t, err)
		require.NoError(t, ct.Remove("@every 1m", id))

		impl.fire("@every 1m")

		require.Eventually(t, func() bool {
			return kept.Load() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(0), removed.Load())
	})

	t.Run("fire on unknown spec is a no-op", func(t *testing.T) {
		ct := newForTest(t)
		ct.(*crontabImpl).fire("@every 5m")
	})

	t.Run("job panic does not break subsequent jobs", func(t *testing.T) {
		ct := newForTest(t)
		impl := ct.(*crontabImpl)

		var ran atomic.Int32
		_, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			panic("boom")
		}), WithName("panicky"))
		require.NoError(t, err)
		_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
		require.NoError(t, err)

		impl.fire("@every 1m")

		require.Eventually(t, func() bool {
			return ran.Load() == 1 && impl.stats.FailureCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestCrontab_RealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-clock test in short mode")
	}

	ct := newForTest(t, WithSeconds())

	var count atomic.Int32
	_, err := ct.Add("@every 1s", JobFunc(func(ctx context.Context) error {
		count.Add(1)
		return nil
	}))
	require.NoError(t, err)

	ct.Start()
	require.Eventually(t, func() bool {
		return count.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	<-ct.Stop().Done()
}

func TestCrontab_StatsIntegration(t *testing.T) {
	ct := newForTest(t)
	impl := ct.(*crontabImpl)

	wantErr := errors.New("task failed")
	_, err := ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
		return nil
	}), WithName("ok-task"))
	require.NoError(t, err)
	_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
		return wantErr
	}), WithName("bad-task"))
	require.NoError(t, err)

	impl.fire("@every 1m")
	impl.fire("@every 1m")

	stats := ct.Stats()
	require.Eventually(t, func() bool {
		return stats.TotalExecutions() == 4
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(2), stats.SuccessCount())
	assert.Equal(t, int64(2), stats.FailureCount())

	ok := stats.JobStats("ok-task")
	require.NotNil(t, ok)
	assert.Equal(t, int64(2), ok.SuccessCount())
	assert.Nil(t, ok.LastError())

	bad := stats.JobStats("bad-task")
	require.NotNil(t, bad)
	assert.Equal(t, int64(2), bad.FailureCount())
	assert.ErrorIs(t, bad.LastError(), wantErr)
}

func TestCrontab_DropOnSubmitFailure(t *testing.T) {
	// 关闭注入的调度器后触发：提交失败计入 drop 而不是执行统计。
	sched, err := xsched.New()
	require.NoError(t, err)
	require.NoError(t, sched.Close())

	ct := newForTest(t, WithScheduler(sched))
	impl := ct.(*crontabImpl)

	_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
		return nil
	}), WithName("dropped"))
	require.NoError(t, err)

	impl.fire("@every 1m")

	stats := ct.Stats()
	assert.Equal(t, int64(1), stats.DropCount())
	assert.Equal(t, int64(0), stats.TotalExecutions())

	js := stats.JobStats("dropped")
	require.NotNil(t, js)
	assert.Equal(t, int64(1), js.DropCount())
}

func TestCrontab_Close(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		ct, err := New()
		require.NoError(t, err)

		require.NoError(t, ct.Close())
		assert.ErrorIs(t, ct.Close(), ErrClosed)
	})

	t.Run("operations after close", func(t *testing.T) {
		ct, err := New()
		require.NoError(t, err)
		require.NoError(t, ct.Close())

		_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error { return nil }))
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, ct.Remove("@every 1m", 1), ErrClosed)
	})

	t.Run("waits for scheduled work", func(t *testing.T) {
		ct, err := New()
		require.NoError(t, err)
		impl := ct.(*crontabImpl)

		started := make(chan struct{})
		var done atomic.Bool
		_, err = ct.Add("@every 1m", JobFunc(func(ctx context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			done.Store(true)
			return nil
		}))
		require.NoError(t, err)

		impl.fire("@every 1m")
		<-started
		require.NoError(t, ct.Close())
		// 内部调度器的 Close 等待在途任务
		assert.True(t, done.Load())
	})
}

func TestJobFunc(t *testing.T) {
	called := false
	job := JobFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, job.Run(context.Background()))
	assert.True(t, called)
}
