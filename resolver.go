package boardlist

import (
	"context"

	"github.com/goliatone/go-boardlist/pkg/activity"
	"github.com/goliatone/go-boardlist/pkg/indicator"
	"github.com/goliatone/go-boardlist/pkg/stream"
)

// QueryResolver turns a list Input into a shared query stream.
type QueryResolver struct {
	mapper     DataMapper
	indicators IndicatorService
	cfg        listConfig
	emitter    *activity.Emitter
}

// NewQueryResolver constructs a resolver. indicators may be nil when no
// loading indicator should be shown.
func NewQueryResolver(mapper DataMapper, indicators IndicatorService, opts ...Option) *QueryResolver {
	cfg := applyOptions(opts)
	return newQueryResolver(mapper, indicators, cfg)
}

func newQueryResolver(mapper DataMapper, indicators IndicatorService, cfg listConfig) *QueryResolver {
	return &QueryResolver{
		mapper:     mapper,
		indicators: indicators,
		cfg:        cfg,
		emitter:    newEmitter(cfg),
	}
}

// Resolve returns the stream of the query described by input.
//
// A materialized query is returned as an already settled stream: no fetch
// happens and no indicator is shown. An id is fetched once, on first
// subscription, with the resolver's projection; the loading indicator is
// visible from the start of the fetch until it completes and the minimum
// duration has elapsed. Cancelling ctx aborts the fetch silently. Without a
// DataMapper an id resolves to a stream failed with ErrMapperRequired.
func (r *QueryResolver) Resolve(ctx context.Context, input Input) (*stream.Shared[*QueryEntity], error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if input.Query != nil {
		return stream.Resolved(input.Query), nil
	}
	if r.mapper == nil {
		err := &FetchError{ID: input.ID, Err: ErrMapperRequired}
		r.cfg.logger.LogEvent(LogEvent{Op: OpResolve, QueryID: input.ID, Err: err})
		return stream.Failed[*QueryEntity](err), nil
	}

	var handle indicator.Handle
	if r.indicators != nil {
		handle = r.indicators.Indicator(r.cfg.indicatorTarget)
	}
	fetch := indicator.Wrap(r.fetcher(input.ID), handle, r.cfg.indicatorMin, r.cfg.clock)
	return stream.New(ctx, fetch), nil
}

func (r *QueryResolver) fetcher(id Identifier) func(context.Context) (*QueryEntity, error) {
	projection := r.cfg.projection.Clone()
	return func(ctx context.Context) (*QueryEntity, error) {
		start := r.cfg.clock.Now()
		query, err := r.mapper.Stream(ctx, projection, id)
		duration := r.cfg.clock.Now().Sub(start)
		if err == nil && query == nil {
			err = ErrQueryMissing
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			fetchErr := &FetchError{ID: id, Err: err}
			r.cfg.logger.LogEvent(LogEvent{Op: OpResolve, QueryID: id, Duration: duration, Err: fetchErr})
			return nil, fetchErr
		}

		r.cfg.logger.LogEvent(LogEvent{Op: OpResolve, QueryID: id, Name: query.Name, Duration: duration})
		r.emit(ctx, activity.BuildQueryLoadedEvent(r.eventInput(id, activity.QueryEventInput{NewName: query.Name})))
		return query, nil
	}
}

func (r *QueryResolver) eventInput(id Identifier, input activity.QueryEventInput) activity.QueryEventInput {
	input.QueryID = id.String()
	input.OccurredAt = r.cfg.clock.Now()
	return input
}

func (r *QueryResolver) emit(ctx context.Context, event activity.Event) {
	if err := r.emitter.Emit(ctx, event); err != nil {
		r.cfg.logger.LogEvent(LogEvent{Op: OpActivity, QueryID: Identifier(event.ObjectID), Err: err})
	}
}

func newEmitter(cfg listConfig) *activity.Emitter {
	return activity.NewEmitter(cfg.hooks, activity.Config{
		Enabled:  len(cfg.hooks) > 0,
		Channel:  cfg.channel,
		ActorID:  cfg.actorID,
		TenantID: cfg.tenantID,
		Now:      cfg.clock.Now,
	})
}
