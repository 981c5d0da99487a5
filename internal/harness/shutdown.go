package harness

import (
	"sync"
	"sync/atomic"
)

// Shutdown is a one-way stop flag shared by all workers of a run.
// Once set it stays set; workers finish their current unit and exit.
type Shutdown struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewShutdown returns a clear flag.
func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Set raises the flag. Safe to call more than once and from any goroutine.
func (s *Shutdown) Set() {
	s.once.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether the flag has been raised.
func (s *Shutdown) IsSet() bool {
	return s.set.Load()
}

// Done is closed when the flag is raised.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}
