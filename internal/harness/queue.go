package harness

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-eval-harness/internal/model"
)

var (
	// ErrQueueClosed is returned by Take once the queue is closed and drained, and by Put after Close.
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueEmpty is returned by Take when nothing arrived within the wait.
	ErrQueueEmpty = errors.New("queue empty")
)

// Queue is an unbounded FIFO of evaluation units, safe for one producer and many consumers.
type Queue struct {
	mu     sync.Mutex
	items  []model.Unit
	closed bool
	// notify is closed and replaced whenever an item arrives or the queue closes.
	notify chan struct{}
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{})}
}

// Put appends a unit.
func (q *Queue) Put(u model.Unit) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, u)
	q.wake()
	return nil
}

// Close marks the end of production. Items already queued can still be taken.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.wake()
}

// Len returns the number of queued units.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Take removes the head unit. When the queue is empty it waits up to wait for a Put or Close,
// returning ErrQueueEmpty on timeout, ErrQueueClosed when closed and drained, or ctx.Err().
// A unit is never removed without being returned.
func (q *Queue) Take(ctx context.Context, wait time.Duration) (model.Unit, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			u := q.items[0]
			q.items[0] = model.Unit{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return u, nil
		}
		if q.closed {
			q.mu.Unlock()
			return model.Unit{}, ErrQueueClosed
		}
		notify := q.notify
		q.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(wait)
		}
		select {
		case <-ctx.Done():
			return model.Unit{}, ctx.Err()
		case <-timer.C:
			return model.Unit{}, ErrQueueEmpty
		case <-notify:
		}
	}
}

// wake must be called with mu held.
func (q *Queue) wake() {
	close(q.notify)
	q.notify = make(chan struct{})
}
