package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("池名称不匹配: 期望 test, 实际 %s", p.Name())
	}
	if p.Cap() != 4 {
		t.Errorf("池容量不匹配: 期望 4, 实际 %d", p.Cap())
	}
}

func TestNewPoolInvalidConfig(t *testing.T) {
	if _, err := NewPool("bad", &Config{Capacity: 0}); !errors.Is(err, ErrInvalidPoolConfig) {
		t.Errorf("期望 ErrInvalidPoolConfig, 实际 %v", err)
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 10, ExpiryDuration: 5 * time.Second})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}
	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
	if got := p.Stats().SubmittedTasks; got != 100 {
		t.Errorf("提交统计不匹配: 期望 100, 实际 %d", got)
	}
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	p.Release()

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("期望 ErrPoolClosed, 实际 %v", err)
	}
}

func TestPoolGo(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 3})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	out := make([]int, 50)
	err = p.Go(context.Background(), len(out), func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("槽位 %d 结果错误: %d", i, v)
		}
	}
}

func TestPoolGoFirstErrorCancels(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 2})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	boom := errors.New("boom")
	var ran atomic.Int32
	err = p.Go(context.Background(), 100, func(ctx context.Context, i int) error {
		ran.Add(1)
		if i == 0 {
			return boom
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil
		}
	})
	if !errors.Is(err, boom) {
		t.Errorf("期望 boom, 实际 %v", err)
	}
	if ran.Load() >= 100 {
		t.Errorf("错误后仍执行了全部任务: %d", ran.Load())
	}
}

func TestPoolGoPanic(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 2})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	err = p.Go(context.Background(), 3, func(_ context.Context, i int) error {
		if i == 1 {
			panic("bad input")
		}
		return nil
	})
	if err == nil {
		t.Fatal("期望 panic 被转换为错误")
	}
}
