package preview

import (
	"context"
	"sync"
)

// Batch tracks completion of the previews queued by one import.
type Batch struct {
	mu        sync.Mutex
	total     int
	completed int
	done      chan struct{}
}

// Progress is a snapshot of a batch.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

func newBatch(total int) *Batch {
	b := &Batch{total: total, done: make(chan struct{})}
	if total == 0 {
		close(b.done)
	}
	return b
}

func (b *Batch) complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completed >= b.total {
		return
	}
	b.completed++
	if b.completed == b.total {
		close(b.done)
	}
}

func (b *Batch) abandon(n int) {
	for i := 0; i < n; i++ {
		b.complete()
	}
}

// Progress returns the current counts.
func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Progress{Total: b.total, Completed: b.completed}
}

// Done is closed once every task in the batch has reported.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch finishes or ctx ends.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
