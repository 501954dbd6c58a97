package boardlist

import (
	"context"
	"slices"
	"sync"
)

// Lifecycle owns cancellation for one List. Cleanups run in reverse
// registration order when the lifecycle closes.
type Lifecycle struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	nextID   uint64
	cleanups map[uint64]func()
	order    []uint64
}

// NewLifecycle derives a lifecycle from parent.
func NewLifecycle(parent context.Context) *Lifecycle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Lifecycle{
		ctx:      ctx,
		cancel:   cancel,
		cleanups: map[uint64]func(){},
	}
}

// Context is cancelled when the lifecycle closes.
func (l *Lifecycle) Context() context.Context {
	return l.ctx
}

// Done reports whether the lifecycle has closed or its parent was cancelled.
func (l *Lifecycle) Done() bool {
	return l.ctx.Err() != nil
}

// Defer registers fn to run on Close and returns a function that unregisters
// it. On a closed lifecycle fn runs immediately.
func (l *Lifecycle) Defer(fn func()) (release func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.cleanups[id] = fn
	l.order = append(l.order, id)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.cleanups[id]; !ok {
			return
		}
		delete(l.cleanups, id)
		l.order = slices.DeleteFunc(l.order, func(candidate uint64) bool { return candidate == id })
	}
}

// Close cancels the context and runs pending cleanups. It is idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.cancel()
	pending := make([]func(), 0, len(l.cleanups))
	for i := len(l.order) - 1; i >= 0; i-- {
		if fn, ok := l.cleanups[l.order[i]]; ok {
			pending = append(pending, fn)
		}
	}
	l.cleanups = nil
	l.order = nil
	l.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}
