// Package bus carries regeneration jobs from the scoring engine to the
// regeneration worker. The interaction path publishes and returns; the
// long-latency generation work happens on the consumer side.
package bus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jordanhubbard/weft/pkg/types"
)

// Handler consumes one regeneration job.
type Handler func(ctx context.Context, job types.RegenJob)

// Bus decouples regeneration triggers from regeneration execution.
type Bus interface {
	// Publish enqueues a job without blocking on its execution.
	Publish(ctx context.Context, job types.RegenJob) error

	// Subscribe registers a handler for incoming jobs.
	Subscribe(handler Handler) error

	// Close stops delivery.
	Close() error
}

// MemoryBus is the in-process Bus: a buffered channel drained by one
// dispatch goroutine.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []Handler
	jobs     chan types.RegenJob
	done     chan struct{}
	closed   bool
}

const memoryBusBuffer = 256

// NewMemoryBus creates the in-process bus and starts its dispatcher.
func NewMemoryBus() *MemoryBus {
	b := &MemoryBus{
		jobs: make(chan types.RegenJob, memoryBusBuffer),
		done: make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *MemoryBus) dispatch() {
	for {
		select {
		case job := <-b.jobs:
			b.mu.RLock()
			handlers := b.handlers
			b.mu.RUnlock()
			for _, h := range handlers {
				h(context.Background(), job)
			}
		case <-b.done:
			return
		}
	}
}

// Publish enqueues the job; a full queue is reported rather than blocking
// the interaction path.
func (b *MemoryBus) Publish(_ context.Context, job types.RegenJob) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return fmt.Errorf("bus closed")
	}

	select {
	case b.jobs <- job:
		return nil
	default:
		return fmt.Errorf("regeneration queue full, dropping job %s", job.JobID)
	}
}

// Subscribe registers a handler for future jobs.
func (b *MemoryBus) Subscribe(handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}

// Close stops the dispatcher.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	log.Printf("[Bus] In-process bus closed")
	return nil
}
