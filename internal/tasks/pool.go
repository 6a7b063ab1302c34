// Package tasks runs named background jobs on a bounded worker pool. The
// thumbnail extractor uses it so that finalizing many recordings in a row
// never spawns an unbounded number of file-decoding goroutines.
package tasks

import (
	"context"
	"log/slog"
	"sync"
)

type task struct {
	name string
	fn   func(ctx context.Context)
}

// Pool is a fixed-size worker pool for fire-and-forget jobs.
type Pool struct {
	logger *slog.Logger
	queue  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	active sync.WaitGroup
}

// NewPool starts workers goroutines consuming from a queue of depth
// 4*workers. A nil logger falls back to slog.Default.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		queue:  make(chan task, 4*workers),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(t)
		}
	}
}

func (p *Pool) run(t task) {
	defer p.active.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked", "task", t.name, "panic", r)
		}
	}()
	p.logger.Debug("Task started", "task", t.name)
	t.fn(p.ctx)
	p.logger.Debug("Task finished", "task", t.name)
}

// Submit queues a job. Returns false when the pool is closed or the queue
// is full; the caller decides whether dropping is acceptable.
func (p *Pool) Submit(name string, fn func(ctx context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.active.Add(1)
	select {
	case p.queue <- task{name: name, fn: fn}:
		return true
	default:
		p.active.Done()
		p.logger.Warn("Task queue full, dropping", "task", name)
		return false
	}
}

// Wait blocks until every queued job has finished.
func (p *Pool) Wait() {
	p.active.Wait()
}

// Close drains queued jobs and stops the workers. Submit after Close
// returns false.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.active.Wait()
	p.cancel()
	p.wg.Wait()
}
