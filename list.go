package boardlist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-boardlist/pkg/activity"
	"github.com/goliatone/go-boardlist/pkg/rules"
	"github.com/goliatone/go-boardlist/pkg/stream"
)

// List binds a board list to its query and persists inline renames.
//
// Call Init once with the list input, feed edits through Rename and call
// Destroy on teardown. The resolved query is shared: Query returns the same
// stream to every caller and the underlying fetch runs at most once.
type List struct {
	resolver *QueryResolver
	cfg      listConfig

	mu          sync.Mutex
	initialized bool
	lifecycle   *Lifecycle
	query       *stream.Shared[*QueryEntity]
	pipeline    *renamePipeline
	rule        rules.CompiledRule

	// guards QueryEntity.Name once the query has resolved
	entityMu sync.RWMutex
}

// New constructs a List. mapper may be nil when the list is always
// initialized with a materialized query and renames are never persisted.
func New(mapper DataMapper, indicators IndicatorService, opts ...Option) *List {
	cfg := applyOptions(opts)
	return &List{
		resolver: newQueryResolver(mapper, indicators, cfg),
		cfg:      cfg,
	}
}

// Init resolves input and arms the rename pipeline. Cancelling ctx has the
// same effect as Destroy.
func (l *List) Init(ctx context.Context, input Input) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		return ErrAlreadyInitialized
	}

	rule, err := l.compileRule()
	if err != nil {
		return err
	}

	lifecycle := NewLifecycle(ctx)
	query, err := l.resolver.Resolve(lifecycle.Context(), input)
	if err != nil {
		lifecycle.Close()
		return err
	}
	lifecycle.Defer(query.Close)

	l.rule = rule
	l.lifecycle = lifecycle
	l.query = query
	l.pipeline = newRenamePipeline(lifecycle, query, l.cfg.clock, l.cfg.debounce, l.commitRename)
	l.initialized = true
	return nil
}

func (l *List) compileRule() (rules.CompiledRule, error) {
	if l.cfg.renameRule == "" {
		return nil, nil
	}
	evaluator := l.cfg.ruleEvaluator
	if evaluator == nil {
		evaluator = rules.NewExprEvaluator()
	}
	rule, err := evaluator.Compile(l.cfg.renameRule)
	if err != nil {
		return nil, fmt.Errorf("boardlist: compile rename rule: %w", err)
	}
	return rule, nil
}

// Query returns the shared query stream, or nil before Init.
//
// Entities on the stream are shared with the rename pipeline, which writes
// Name while a commit runs. Read them through Snapshot or Subscribe instead
// of dereferencing the streamed pointer.
func (l *List) Query() *stream.Shared[*QueryEntity] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Rename submits a candidate name. Only the last name of a burst is
// committed, once the debounce period passes without another call. Calls
// after Destroy are ignored.
func (l *List) Rename(name string) error {
	l.mu.Lock()
	pipeline := l.pipeline
	l.mu.Unlock()
	if pipeline == nil {
		return ErrNotInitialized
	}
	pipeline.Push(name)
	return nil
}

// RenameState reports the rename pipeline phase.
func (l *List) RenameState() RenameState {
	l.mu.Lock()
	pipeline := l.pipeline
	l.mu.Unlock()
	if pipeline == nil {
		return RenameIdle
	}
	return pipeline.State()
}

// Snapshot returns a copy of the resolved query. ok is false while the query
// is unresolved or when its fetch failed.
func (l *List) Snapshot() (QueryEntity, bool) {
	query := l.Query()
	if query == nil {
		return QueryEntity{}, false
	}
	value, err, settled := query.Peek()
	if !settled || err != nil || value == nil {
		return QueryEntity{}, false
	}
	l.entityMu.RLock()
	defer l.entityMu.RUnlock()
	return *value.Clone(), true
}

// Subscribe calls fn with a copy of the query once it resolves, or with its
// fetch error. fn runs before Subscribe returns when the query has already
// settled. The returned function detaches fn.
func (l *List) Subscribe(fn func(QueryEntity, error)) (unsubscribe func(), err error) {
	query := l.Query()
	if query == nil {
		return nil, ErrNotInitialized
	}
	if fn == nil {
		return func() {}, nil
	}
	return query.Subscribe(func(value *QueryEntity, err error) {
		if err != nil || value == nil {
			fn(QueryEntity{}, err)
			return
		}
		l.entityMu.RLock()
		snapshot := *value.Clone()
		l.entityMu.RUnlock()
		fn(snapshot, nil)
	}), nil
}

// Projection returns the projection used to fetch the query.
func (l *List) Projection() Projection {
	return l.cfg.projection.Clone()
}

// TableConfiguration returns the table setup for the rendered board list.
func (l *List) TableConfiguration() TableConfiguration {
	return BoardTableConfiguration()
}

// Destroy cancels the pending debounce timer, any in-flight fetch and any
// commit waiting on the query. It is safe to call more than once.
func (l *List) Destroy() {
	l.mu.Lock()
	lifecycle := l.lifecycle
	l.mu.Unlock()
	if lifecycle != nil {
		lifecycle.Close()
	}
}

func (l *List) commitRename(ctx context.Context, name string, query *QueryEntity) error {
	l.entityMu.RLock()
	previous := query.Name
	l.entityMu.RUnlock()

	if err := l.checkRule(ctx, name, previous, query.ID); err != nil {
		return err
	}
	if l.resolver.mapper == nil {
		return l.commitFailed(ctx, query, previous, name, ErrMapperRequired)
	}

	l.entityMu.Lock()
	query.Name = name
	l.entityMu.Unlock()
	l.cfg.logger.LogEvent(LogEvent{Op: OpCommit, QueryID: query.ID, Name: name})

	start := l.cfg.clock.Now()
	err := l.resolver.mapper.Patch(ctx, query.ID, QueryPatch{Name: &name})
	duration := l.cfg.clock.Now().Sub(start)
	if err != nil {
		if ctx.Err() != nil || isCancellation(err) {
			return err
		}
		l.cfg.logger.LogEvent(LogEvent{Op: OpPatch, QueryID: query.ID, Name: name, Duration: duration, Err: err})
		return l.commitFailed(ctx, query, previous, name, err)
	}

	l.cfg.logger.LogEvent(LogEvent{Op: OpPatch, QueryID: query.ID, Name: name, Duration: duration})
	l.resolver.emit(ctx, activity.BuildQueryRenamedEvent(l.resolver.eventInput(query.ID, activity.QueryEventInput{
		OldName: previous,
		NewName: name,
	})))
	return nil
}

func (l *List) checkRule(ctx context.Context, name, previous string, id Identifier) error {
	if l.rule == nil {
		return nil
	}
	now := l.cfg.clock.Now()
	result, err := l.rule.Evaluate(rules.RuleContext{
		Name:     name,
		Previous: previous,
		QueryID:  id.String(),
		Now:      &now,
		Metadata: l.cfg.ruleMetadata,
	})
	accepted := false
	if err == nil {
		accepted, err = rules.Accepts(result)
	}
	if err == nil && accepted {
		return nil
	}

	rejection := ErrRenameRejected
	if err != nil {
		rejection = fmt.Errorf("%w: %w", ErrRenameRejected, err)
	}
	l.cfg.logger.LogEvent(LogEvent{Op: OpRule, QueryID: id, Name: name, Err: rejection})
	l.resolver.emit(ctx, activity.BuildQueryRenameRejectedEvent(l.resolver.eventInput(id, activity.QueryEventInput{
		OldName: previous,
		NewName: name,
		Err:     rejection,
	})))
	l.reportCommitError(&CommitError{ID: id, Name: name, Err: rejection})
	return rejection
}

func (l *List) commitFailed(ctx context.Context, query *QueryEntity, previous, name string, cause error) error {
	if l.cfg.rollbackOnFailure {
		l.entityMu.Lock()
		if query.Name == name {
			query.Name = previous
		}
		l.entityMu.Unlock()
	}

	commitErr := &CommitError{ID: query.ID, Name: name, Err: cause}
	l.resolver.emit(ctx, activity.BuildQueryRenameFailedEvent(l.resolver.eventInput(query.ID, activity.QueryEventInput{
		OldName: previous,
		NewName: name,
		Err:     cause,
	})))
	l.reportCommitError(commitErr)
	return commitErr
}

func (l *List) reportCommitError(err *CommitError) {
	if l.cfg.onCommitError != nil && !errors.Is(err, context.Canceled) {
		l.cfg.onCommitError(err)
	}
}
