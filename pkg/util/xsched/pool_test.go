package xsched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPoolInvalidSize(t *testing.T) {
	_, err := NewWorkerPool(0)
	assert.ErrorIs(t, err, ErrInvalidPoolSize)

	_, err = NewWorkerPool(-1)
	assert.ErrorIs(t, err, ErrInvalidPoolSize)
}

func TestWorkerPoolSlotCap(t *testing.T) {
	p, err := NewWorkerPool(2)
	require.NoError(t, err)

	var inSlot atomic.Int32
	var violations atomic.Int32
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Launch(func(ctx context.Context) {
			if err := p.Acquire(ctx); err != nil {
				return
			}
			defer p.Release()
			if inSlot.Add(1) > 2 {
				violations.Add(1)
			}
			time.Sleep(20 * time.Millisecond)
			inSlot.Add(-1)
		}))
	}

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, p.Close())
	<-p.Done()
	assert.Equal(t, int32(0), violations.Load(), "slot cap exceeded")
}

func TestWorkerPoolCloseCancelsUnits(t *testing.T) {
	p, err := NewWorkerPool(1)
	require.NoError(t, err)

	canceled := make(chan struct{})
	require.NoError(t, p.Launch(func(ctx context.Context) {
		<-ctx.Done()
		close(canceled)
	}))

	require.NoError(t, p.Close())

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("unit ctx was not canceled by Close")
	}

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Done did not close after all units exited")
	}

	// Closed pool rejects new units; Close stays idempotent.
	assert.ErrorIs(t, p.Launch(func(context.Context) {}), ErrPoolClosed)
	assert.NoError(t, p.Close())
}

func TestWorkerPoolAcquireRespectsContext(t *testing.T) {
	p, err := NewWorkerPool(1)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, p.Close())
		<-p.Done()
	}()

	require.NoError(t, p.Acquire(context.Background()))
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Acquire(ctx), context.DeadlineExceeded)
}

func TestWorkerPoolCloseWithNoUnits(t *testing.T) {
	p, err := NewWorkerPool(4)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Done did not close for an empty pool")
	}
}
