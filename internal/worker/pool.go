package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of background work. The context carries the pool's
// per-task timeout, not the originating request: submitted work runs to
// completion even after the request that scheduled it has returned.
type Task func(ctx context.Context)

// PoolConfig holds configuration for the background worker pool.
type PoolConfig struct {
	// Workers is the number of goroutines consuming tasks.
	Workers int
	// QueueSize is the task channel buffer. Submit drops when it is full.
	QueueSize int
	// TaskTimeout bounds each task's execution.
	TaskTimeout time.Duration
}

// DefaultPoolConfig returns the defaults used for durable write-backs.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:     4,
		QueueSize:   256,
		TaskTimeout: 30 * time.Second,
	}
}

// Pool is a bounded pool of goroutines for fire-and-forget work.
// It prevents unbounded goroutine creation under request bursts.
type Pool struct {
	taskCh      chan Task
	wg          sync.WaitGroup
	stopCh      chan struct{}
	taskTimeout time.Duration

	// Metrics
	enqueued int64
	dropped  int64
	done     int64
}

// NewPool creates the pool and starts its workers.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPoolConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultPoolConfig().QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultPoolConfig().TaskTimeout
	}

	p := &Pool{
		taskCh:      make(chan Task, cfg.QueueSize),
		stopCh:      make(chan struct{}),
		taskTimeout: cfg.TaskTimeout,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.taskCh:
			if !ok {
				return
			}
			p.run(task)
		case <-p.stopCh:
			// Drain remaining tasks before stopping.
			for {
				select {
				case task := <-p.taskCh:
					p.run(task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()

	task(ctx)
	atomic.AddInt64(&p.done, 1)
}

// Submit enqueues a task for background execution.
// Returns false if the queue is full and the task was dropped.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.taskCh <- task:
		atomic.AddInt64(&p.enqueued, 1)
		return true
	default:
		atomic.AddInt64(&p.dropped, 1)
		slog.Warn("worker pool queue full, dropping task")
		return false
	}
}

// Stop shuts the pool down, waiting for queued tasks to finish.
func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	close(p.taskCh)
}

// Stats returns the pool's lifetime counters.
func (p *Pool) Stats() (enqueued, dropped, done int64) {
	return atomic.LoadInt64(&p.enqueued),
		atomic.LoadInt64(&p.dropped),
		atomic.LoadInt64(&p.done)
}
