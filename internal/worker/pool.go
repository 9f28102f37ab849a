// Package worker runs independent version generation jobs on a bounded
// pool of goroutines.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/metrics"
)

// DefaultQueueSize bounds the number of files waiting for a worker.
const DefaultQueueSize = 1000

// Handler processes one queued path.
type Handler func(ctx context.Context, path string)

// Pool feeds queued paths to a fixed number of workers. When the queue is
// full new paths are dropped with a warning.
type Pool struct {
	handle  Handler
	workers int

	mu     sync.RWMutex
	queue  chan string
	closed bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool creates a pool. workers <= 0 means 2, queueSize <= 0 means
// DefaultQueueSize.
func NewPool(workers, queueSize int, handle Handler) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pool{
		handle:  handle,
		workers: workers,
		queue:   make(chan string, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	logging.Info("worker pool started", zap.Int("workers", p.workers), zap.Int("queue", cap(p.queue)))
}

// Stop lets the workers drain what is queued and waits for them to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	logging.Info("worker pool stopped")
}

// Abort cancels in-flight jobs and stops without draining.
func (p *Pool) Abort() {
	if p.cancel != nil {
		p.cancel()
	}
	p.Stop()
}

// Enqueue adds path to the queue. It reports false when the path was
// dropped because the queue is full or the pool stopped.
func (p *Pool) Enqueue(path string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- path:
		metrics.SetQueueDepth(len(p.queue))
		return true
	default:
		metrics.RecordQueueDrop()
		logging.Warn("worker queue full, dropping", zap.String("path", path))
		return false
	}
}

// Pending returns the number of queued paths.
func (p *Pool) Pending() int {
	return len(p.queue)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.SetQueueDepth(len(p.queue))
			p.handle(ctx, path)
		}
	}
}
