// Package dispatch runs update handlers concurrently across sessions while
// keeping each session's updates in arrival order.
package dispatch

import (
	"context"
	"log"
	"sync"
)

// Logger defines the minimal logging interface used by the dispatcher.
type Logger interface {
	Printf(format string, args ...any)
}

// HandlerFunc processes one queued item.
type HandlerFunc[T any] func(ctx context.Context, item T)

// Dispatcher keeps one FIFO queue per key. A key with pending items has
// exactly one goroutine draining it; the goroutine exits once its queue is
// empty.
type Dispatcher[K comparable, T any] struct {
	handle HandlerFunc[T]
	logger Logger

	mu     sync.Mutex
	queues map[K][]T
	closed bool
	wg     sync.WaitGroup
}

// New returns a Dispatcher that calls handle for every item.
func New[K comparable, T any](handle HandlerFunc[T], logger Logger) *Dispatcher[K, T] {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher[K, T]{
		handle: handle,
		logger: logger,
		queues: make(map[K][]T),
	}
}

// Dispatch enqueues item under key. It returns false once Close was called.
func (d *Dispatcher[K, T]) Dispatch(ctx context.Context, key K, item T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	q, running := d.queues[key]
	d.queues[key] = append(q, item)
	if !running {
		d.wg.Add(1)
		go d.drain(ctx, key)
	}
	return true
}

func (d *Dispatcher[K, T]) drain(ctx context.Context, key K) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		item := q[0]
		var zero T
		q[0] = zero
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.run(ctx, key, item)
	}
}

func (d *Dispatcher[K, T]) run(ctx context.Context, key K, item T) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("[dispatch] handler panic for key %v: %v", key, r)
		}
	}()
	d.handle(ctx, item)
}

// Pending returns the number of keys that currently have a drain goroutine.
func (d *Dispatcher[K, T]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close stops accepting items and waits for queued work to finish.
func (d *Dispatcher[K, T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
