package xsched

import (
	"context"
	"testing"
)

func BenchmarkSubmitWait(b *testing.B) {
	s := newForTest(b)
	defer s.Close()

	noop := JobFunc(func(context.Context) error { return nil })
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		f, err := s.Submit(noop)
		if err != nil {
			b.Fatal(err)
		}
		if err := f.Wait(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	s := newForTest(b, WithPoolSize(16))
	defer s.Close()

	noop := JobFunc(func(context.Context) error { return nil })
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			f, err := s.Submit(noop)
			if err != nil {
				continue
			}
			f.Wait(ctx) //nolint:errcheck // 基准只关注吞吐
		}
	})
}

func BenchmarkPoolLifecycleChurn(b *testing.B) {
	// 每轮提交-等待都会经历 建池 → 执行 → 拆池 的完整生命周期。
	s := newForTest(b, WithPoolSize(1))
	defer s.Close()

	noop := JobFunc(func(context.Context) error { return nil })
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		f, err := s.Submit(noop)
		if err != nil {
			b.Fatal(err)
		}
		if err := f.Wait(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
