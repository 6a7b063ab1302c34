package tasks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, testLogger())
	defer p.Close()

	var count atomic.Int64
	for i := 0; i < 10; i++ {
		if !p.Submit("count", func(context.Context) {
			count.Add(1)
		}) {
			t.Fatal("Submit returned false")
		}
	}
	p.Wait()
	if got := count.Load(); got != 10 {
		t.Errorf("ran %d tasks, want 10", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2, testLogger())
	defer p.Close()

	var mu sync.Mutex
	running, peak := 0, 0
	gate := make(chan struct{})

	for i := 0; i < 4; i++ {
		p.Submit("gated", func(context.Context) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			<-gate
			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	close(gate)
	p.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewPool(1, testLogger())
	p.Close()
	if p.Submit("late", func(context.Context) {}) {
		t.Error("Submit after Close returned true")
	}
}

func TestCloseWaitsForQueuedTasks(t *testing.T) {
	p := NewPool(1, testLogger())

	var count atomic.Int64
	for i := 0; i < 4; i++ {
		p.Submit("count", func(context.Context) {
			count.Add(1)
		})
	}
	p.Close()
	if got := count.Load(); got != 4 {
		t.Errorf("ran %d tasks before Close returned, want 4", got)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, testLogger())
	defer p.Close()

	p.Submit("boom", func(context.Context) {
		panic("boom")
	})

	done := make(chan struct{})
	p.Submit("after", func(context.Context) {
		close(done)
	})
	p.Wait()

	select {
	case <-done:
	default:
		t.Error("task after panic never ran")
	}
}
