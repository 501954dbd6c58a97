package boardlist

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-boardlist/pkg/clock"
	"github.com/goliatone/go-boardlist/pkg/stream"
)

// RenameState is the phase of the rename pipeline.
type RenameState int

const (
	// RenameIdle means no rename is pending.
	RenameIdle RenameState = iota
	// RenamePending means a rename is waiting for its quiet period to elapse.
	RenamePending
	// RenameCommitting means a settled rename is being persisted.
	RenameCommitting
)

func (s RenameState) String() string {
	switch s {
	case RenameIdle:
		return "idle"
	case RenamePending:
		return "pending"
	case RenameCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// commitFunc persists name onto query. A non-nil error means the name was
// not committed and may be submitted again.
type commitFunc func(ctx context.Context, name string, query *QueryEntity) error

// renamePipeline debounces rename events, drops settled names equal to the
// last committed one and commits the rest against the resolved query, one
// commit at a time.
type renamePipeline struct {
	clock     clock.Clock
	interval  time.Duration
	lifecycle *Lifecycle
	query     *stream.Shared[*QueryEntity]
	commit    commitFunc

	mu           sync.Mutex
	state        RenameState
	latest       string
	generation   uint64
	timer        clock.Timer
	committed    string
	hasCommitted bool

	// held for a whole commit so patches never overlap
	commitMu sync.Mutex
}

func newRenamePipeline(lifecycle *Lifecycle, query *stream.Shared[*QueryEntity], clk clock.Clock, interval time.Duration, commit commitFunc) *renamePipeline {
	p := &renamePipeline{
		clock:     clk,
		interval:  interval,
		lifecycle: lifecycle,
		query:     query,
		commit:    commit,
	}
	lifecycle.Defer(p.stop)
	return p
}

// Push records a candidate name and restarts the quiet period.
func (p *renamePipeline) Push(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lifecycle.Done() {
		return
	}
	p.latest = name
	p.generation++
	p.state = RenamePending
	if p.timer != nil {
		p.timer.Stop()
	}
	generation := p.generation
	p.timer = p.clock.AfterFunc(p.interval, func() { p.settle(generation) })
}

// State reports the current pipeline phase.
func (p *renamePipeline) State() RenameState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *renamePipeline) settle(generation uint64) {
	p.mu.Lock()
	if p.lifecycle.Done() || generation != p.generation {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	name := p.latest
	if p.hasCommitted && name == p.committed {
		p.state = RenameIdle
		p.mu.Unlock()
		return
	}
	previous, hadPrevious := p.committed, p.hasCommitted
	p.committed, p.hasCommitted = name, true
	p.state = RenameCommitting
	p.mu.Unlock()

	attempt := &commitAttempt{
		pipeline:    p,
		generation:  generation,
		name:        name,
		previous:    previous,
		hadPrevious: hadPrevious,
	}
	attempt.await()
}

// commitAttempt waits for the query stream and then commits one settled name.
// A query that is already settled commits on the calling goroutine. One that
// settles later commits on its own goroutine so the stream keeps delivering
// to its other observers while the patch is in flight.
type commitAttempt struct {
	pipeline    *renamePipeline
	generation  uint64
	name        string
	previous    string
	hadPrevious bool

	mu          sync.Mutex
	subscribing bool
	done        bool
	query       *QueryEntity
	err         error
	release     func()
}

func (a *commitAttempt) await() {
	a.mu.Lock()
	a.subscribing = true
	a.mu.Unlock()

	unsubscribe := a.pipeline.query.Subscribe(a.onQuery)

	a.mu.Lock()
	a.subscribing = false
	if a.done {
		query, err := a.query, a.err
		a.mu.Unlock()
		a.pipeline.run(a, query, err)
		return
	}
	a.release = a.pipeline.lifecycle.Defer(unsubscribe)
	a.mu.Unlock()
}

func (a *commitAttempt) onQuery(query *QueryEntity, err error) {
	a.mu.Lock()
	a.done = true
	a.query, a.err = query, err
	inline := a.subscribing
	release := a.release
	a.mu.Unlock()
	if inline {
		// await picks the outcome up once Subscribe returns
		return
	}
	if release != nil {
		release()
	}
	go a.pipeline.run(a, query, err)
}

func (p *renamePipeline) run(a *commitAttempt, query *QueryEntity, err error) {
	if p.lifecycle.Done() {
		return
	}
	if err != nil {
		// the query never resolved, so nothing was committed
		p.finish(a, err)
		return
	}

	p.commitMu.Lock()
	defer p.commitMu.Unlock()
	if p.lifecycle.Done() {
		return
	}
	p.finish(a, p.commit(p.lifecycle.Context(), a.name, query))
}

func (p *renamePipeline) finish(a *commitAttempt, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil && p.hasCommitted && p.committed == a.name {
		p.committed, p.hasCommitted = a.previous, a.hadPrevious
	}
	if p.state == RenameCommitting && p.generation == a.generation {
		p.state = RenameIdle
	}
}

func (p *renamePipeline) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.generation++
	p.state = RenameIdle
}
