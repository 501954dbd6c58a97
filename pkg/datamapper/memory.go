package datamapper

import (
	"context"
	"sync"

	boardlist "github.com/goliatone/go-boardlist"
	"github.com/goliatone/go-boardlist/pkg/clock"
	"github.com/google/uuid"
)

// PatchCall records one Patch invocation.
type PatchCall struct {
	ID   boardlist.Identifier
	Name string
}

// MemoryOption configures a MemoryMapper.
type MemoryOption func(*MemoryMapper)

// WithMemoryClock sets the clock used for UpdatedAt stamps.
func WithMemoryClock(c clock.Clock) MemoryOption {
	return func(m *MemoryMapper) {
		if c != nil {
			m.clock = c
		}
	}
}

// MemoryMapper is an in-memory DataMapper intended for tests and examples.
type MemoryMapper struct {
	clock clock.Clock

	mu          sync.RWMutex
	records     map[boardlist.Identifier]boardlist.QueryEntity
	streamCalls int
	patches     []PatchCall
	streamErr   error
	patchErr    error
	streamGate  chan struct{}
	patchGate   chan struct{}
}

var _ boardlist.DataMapper = (*MemoryMapper)(nil)

// NewMemoryMapper returns a mapper seeded with queries.
func NewMemoryMapper(queries []boardlist.QueryEntity, opts ...MemoryOption) *MemoryMapper {
	m := &MemoryMapper{
		clock:   clock.Real(),
		records: map[boardlist.Identifier]boardlist.QueryEntity{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	for _, q := range queries {
		m.Put(q)
	}
	return m
}

// Put stores q, replacing any query with the same id.
func (m *MemoryMapper) Put(q boardlist.QueryEntity) {
	if q.Revision == "" {
		q.Revision = uuid.NewString()
	}
	m.mu.Lock()
	m.records[q.ID] = *q.Clone()
	m.mu.Unlock()
}

// Get returns the stored query.
func (m *MemoryMapper) Get(id boardlist.Identifier) (boardlist.QueryEntity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.records[id]
	if !ok {
		return boardlist.QueryEntity{}, false
	}
	return *q.Clone(), true
}

// Stream returns the projected query stored under id.
func (m *MemoryMapper) Stream(ctx context.Context, projection boardlist.Projection, id boardlist.Identifier) (*boardlist.QueryEntity, error) {
	m.mu.Lock()
	m.streamCalls++
	gate := m.streamGate
	m.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	if err := projection.Validate(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	q, ok := m.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return project(q, projection), nil
}

// Patch applies patch to the query stored under id and stamps a new revision.
func (m *MemoryMapper) Patch(ctx context.Context, id boardlist.Identifier, patch boardlist.QueryPatch) error {
	m.mu.Lock()
	call := PatchCall{ID: id}
	if patch.Name != nil {
		call.Name = *patch.Name
	}
	m.patches = append(m.patches, call)
	gate := m.patchGate
	m.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return err
	}
	if patch.Empty() {
		return ErrEmptyPatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.patchErr != nil {
		return m.patchErr
	}
	q, ok := m.records[id]
	if !ok {
		return notFound(id)
	}
	patch.Apply(&q)
	q.Revision = uuid.NewString()
	q.UpdatedAt = m.clock.Now()
	m.records[id] = q
	return nil
}

// StreamCalls reports how many fetches were issued.
func (m *MemoryMapper) StreamCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamCalls
}

// Patches returns every patch issued so far, in call order.
func (m *MemoryMapper) Patches() []PatchCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PatchCall, len(m.patches))
	copy(out, m.patches)
	return out
}

// FailStream makes later fetches fail with err. A nil err clears it.
func (m *MemoryMapper) FailStream(err error) {
	m.mu.Lock()
	m.streamErr = err
	m.mu.Unlock()
}

// FailPatch makes later patches fail with err. A nil err clears it.
func (m *MemoryMapper) FailPatch(err error) {
	m.mu.Lock()
	m.patchErr = err
	m.mu.Unlock()
}

// HoldStreams blocks fetches until release is called or their context ends.
func (m *MemoryMapper) HoldStreams() (release func()) {
	return m.hold(&m.streamGate)
}

// HoldPatches blocks patches until release is called or their context ends.
func (m *MemoryMapper) HoldPatches() (release func()) {
	return m.hold(&m.patchGate)
}

func (m *MemoryMapper) hold(slot *chan struct{}) func() {
	gate := make(chan struct{})
	m.mu.Lock()
	*slot = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if *slot == gate {
				*slot = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return ctx.Err()
	}
	select {
	case <-gate:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
