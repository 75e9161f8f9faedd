package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Submit after Stop.
var ErrPoolClosed = errors.New("preview pool stopped")

type job struct {
	task  Task
	done  func(Result)
	batch *Batch
}

// Pool runs preview tasks on a fixed set of workers fed by a bounded queue.
type Pool struct {
	gen     *Generator
	queue   chan job
	workers int
	log     *slog.Logger

	mu      sync.Mutex
	stopped bool
	quit    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool creates a pool; call Start before submitting.
func NewPool(gen *Generator, workers, queueSize int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		gen:     gen,
		queue:   make(chan job, queueSize),
		workers: workers,
		log:     log,
		quit:    make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case <-p.quit:
					return
				case j := <-p.queue:
					p.run(workerCtx, j)
				}
			}
		}()
	}
}

func (p *Pool) run(ctx context.Context, j job) {
	res := p.gen.Generate(ctx, j.task)
	if j.done != nil {
		j.done(res)
	}
	if j.batch != nil {
		j.batch.complete()
	}
}

// Stop cancels in-flight work and waits for workers and batch feeders to
// exit. Tasks still waiting in the queue are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Submit queues a single task without waiting; it fails when the queue is
// full. done runs on a worker goroutine.
func (p *Pool) Submit(t Task, done func(Result)) error {
	return p.enqueue(job{task: t, done: done})
}

func (p *Pool) enqueue(j job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolClosed
	}
	select {
	case p.queue <- j:
		return nil
	default:
		return fmt.Errorf("preview queue is full (%d)", cap(p.queue))
	}
}

// SubmitBatch queues one task per page and tracks their progress together.
// It returns at once; a feeder goroutine hands the tasks to the queue in
// order, waiting for room when it is full, so every task is generated.
// Tasks still unsent when the pool stops count as completed without a
// result.
func (p *Pool) SubmitBatch(tasks []Task, done func(Result)) *Batch {
	b := newBatch(len(tasks))
	if len(tasks) == 0 {
		return b
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.log.Warn("preview batch dropped", "tasks", len(tasks), "error", ErrPoolClosed)
		b.abandon(len(tasks))
		return b
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		for i, t := range tasks {
			select {
			case p.queue <- job{task: t, done: done, batch: b}:
			case <-p.quit:
				b.abandon(len(tasks) - i)
				return
			}
		}
	}()
	return b
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}
