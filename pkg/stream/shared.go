// Package stream provides Shared, a multicast single-value stream that runs
// its producer at most once and replays the outcome to every subscriber.
//
// A Shared starts cold: the producer runs on the first Subscribe or Wait call.
// Once the producer returns, its value or error is cached and every current
// and later subscriber receives that same outcome. Errors are replayed too;
// a failed Shared never retries.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Wait once the stream has been closed before
// settling.
var ErrClosed = errors.New("stream: closed")

// Observer receives the settled outcome of a Shared stream.
type Observer[T any] func(value T, err error)

// Producer computes the single value of a Shared stream.
type Producer[T any] func(ctx context.Context) (T, error)

// Shared is a cached, multicast single-value stream.
type Shared[T any] struct {
	ctx context.Context
	run Producer[T]

	mu        sync.Mutex
	started   bool
	settled   bool
	closed    bool
	value     T
	err       error
	observers []*subscription[T]
	done      chan struct{}
	closing   chan struct{}
}

type subscription[T any] struct {
	fn       Observer[T]
	canceled atomic.Bool
}

// New returns a cold Shared stream that runs producer with ctx on first use.
func New[T any](ctx context.Context, producer Producer[T]) *Shared[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Shared[T]{
		ctx:     ctx,
		run:     producer,
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
}

// Resolved returns a Shared stream already settled with value.
func Resolved[T any](value T) *Shared[T] {
	s := New[T](context.Background(), nil)
	s.started = true
	s.settled = true
	s.value = value
	close(s.done)
	return s
}

// Failed returns a Shared stream already settled with err.
func Failed[T any](err error) *Shared[T] {
	s := New[T](context.Background(), nil)
	s.started = true
	s.settled = true
	s.err = err
	close(s.done)
	return s
}

// Subscribe registers fn for the stream outcome and starts the producer if it
// has not run yet. When the stream is already settled fn is called before
// Subscribe returns. The returned function detaches fn; it is safe to call
// more than once.
func (s *Shared[T]) Subscribe(fn Observer[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.settled {
		value, err := s.value, s.err
		s.mu.Unlock()
		fn(value, err)
		return func() {}
	}
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	sub := &subscription[T]{fn: fn}
	observers := make([]*subscription[T], 0, len(s.observers)+1)
	observers = append(observers, s.observers...)
	s.observers = append(observers, sub)
	s.startLocked()
	s.mu.Unlock()

	return func() {
		sub.canceled.Store(true)
		s.detach(sub)
	}
}

// Wait blocks until the stream settles, ctx is done or the stream is closed.
func (s *Shared[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed && !s.settled {
		s.mu.Unlock()
		return zero, ErrClosed
	}
	s.startLocked()
	s.mu.Unlock()

	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.value, s.err
	case <-s.closing:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the settled outcome without starting the producer. ok is false
// while the stream is unsettled.
func (s *Shared[T]) Peek() (value T, err error, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.settled {
		var zero T
		return zero, nil, false
	}
	return s.value, s.err, true
}

// Settled reports whether the stream holds a cached outcome.
func (s *Shared[T]) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Close drops every pending observer. An unsettled stream discards the
// producer outcome when it eventually arrives; a settled stream keeps
// replaying its cached outcome.
func (s *Shared[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, sub := range s.observers {
		sub.canceled.Store(true)
	}
	s.observers = nil
	if !s.settled {
		close(s.closing)
	}
}

func (s *Shared[T]) startLocked() {
	if s.started {
		return
	}
	s.started = true
	go s.produce()
}

func (s *Shared[T]) produce() {
	var (
		value T
		err   error
	)
	if s.run != nil {
		value, err = s.run(s.ctx)
	}
	s.settle(value, err)
}

func (s *Shared[T]) settle(value T, err error) {
	s.mu.Lock()
	if s.settled || s.closed {
		s.mu.Unlock()
		return
	}
	s.settled = true
	s.value = value
	s.err = err
	observers := s.observers
	s.observers = nil
	close(s.done)
	s.mu.Unlock()

	for _, sub := range observers {
		if sub.canceled.Load() {
			continue
		}
		sub.fn(value, err)
	}
}

func (s *Shared[T]) detach(target *subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.observers {
		if sub != target {
			continue
		}
		observers := make([]*subscription[T], 0, len(s.observers)-1)
		observers = append(observers, s.observers[:i]...)
		s.observers = append(observers, s.observers[i+1:]...)
		return
	}
}
