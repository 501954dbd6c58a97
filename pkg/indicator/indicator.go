// Package indicator tracks loading indicators per render target and wraps
// asynchronous work so an indicator stays visible for a minimum duration.
package indicator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-boardlist/pkg/clock"
)

// Handle controls one loading indicator.
type Handle interface {
	Start()
	Stop()
}

// Observer is notified when a target becomes visible or hidden.
type Observer func(target string, visible bool)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithObserver registers fn for visibility transitions.
func WithObserver(fn Observer) ServiceOption {
	return func(s *Service) {
		s.observer = fn
	}
}

// Service hands out indicator handles keyed by target. A target is visible
// while at least one of its handles is started.
type Service struct {
	mu       sync.Mutex
	active   map[string]int
	observer Observer
}

// NewService constructs an indicator service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{active: map[string]int{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Indicator returns a new handle bound to target.
func (s *Service) Indicator(target string) Handle {
	return &handle{service: s, target: strings.TrimSpace(target)}
}

// Visible reports whether target currently shows a loading indicator.
func (s *Service) Visible(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[strings.TrimSpace(target)] > 0
}

func (s *Service) adjust(target string, delta int) {
	s.mu.Lock()
	before := s.active[target]
	after := before + delta
	if after <= 0 {
		delete(s.active, target)
		after = 0
	} else {
		s.active[target] = after
	}
	observer := s.observer
	s.mu.Unlock()

	if observer == nil {
		return
	}
	switch {
	case before == 0 && after > 0:
		observer(target, true)
	case before > 0 && after == 0:
		observer(target, false)
	}
}

type handle struct {
	service *Service
	target  string

	mu      sync.Mutex
	running bool
}

func (h *handle) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()
	h.service.adjust(h.target, 1)
}

func (h *handle) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()
	h.service.adjust(h.target, -1)
}

// Wrap returns fn guarded by h. The indicator starts when the returned
// function is called and stops once fn has returned and at least minDuration
// has elapsed since the start. Nothing is toggled after ctx is done, so a
// torn-down caller never sees the indicator change again.
func Wrap[T any](fn func(context.Context) (T, error), h Handle, minDuration time.Duration, clk clock.Clock) func(context.Context) (T, error) {
	if clk == nil {
		clk = clock.Real()
	}
	return func(ctx context.Context) (T, error) {
		if h == nil {
			return fn(ctx)
		}
		h.Start()
		started := clk.Now()

		value, err := fn(ctx)
		if ctx.Err() != nil {
			return value, err
		}

		remaining := minDuration - clk.Now().Sub(started)
		if remaining <= 0 {
			h.Stop()
			return value, err
		}
		var (
			mu        sync.Mutex
			fired     bool
			stopWatch func() bool
		)
		timer := clk.AfterFunc(remaining, func() {
			mu.Lock()
			fired = true
			stop := stopWatch
			mu.Unlock()
			if stop != nil {
				stop()
			}
			if ctx.Err() == nil {
				h.Stop()
			}
		})
		stop := context.AfterFunc(ctx, func() { timer.Stop() })

		// the hide may already have run and missed the watcher
		mu.Lock()
		stopWatch = stop
		alreadyFired := fired
		mu.Unlock()
		if alreadyFired {
			stop()
		}
		return value, err
	}
}
