package boardlist

import (
	"strings"
	"time"

	"github.com/goliatone/go-boardlist/pkg/activity"
	"github.com/goliatone/go-boardlist/pkg/clock"
	"github.com/goliatone/go-boardlist/pkg/rules"
)

const (
	// DefaultDebounce is the quiet period before a rename settles.
	DefaultDebounce = time.Second
	// DefaultIndicatorMinDuration is the shortest time a loading indicator stays visible.
	DefaultIndicatorMinDuration = 50 * time.Millisecond
	// DefaultIndicatorTarget names the indicator shown while a query loads.
	DefaultIndicatorTarget = "board-list"
)

// Option configures a List or QueryResolver.
type Option func(*listConfig)

// CommitErrorHandler receives renames whose persistence failed.
type CommitErrorHandler func(*CommitError)

type listConfig struct {
	debounce        time.Duration
	indicatorMin    time.Duration
	indicatorTarget string
	projection      Projection
	clock           clock.Clock
	logger          Logger

	hooks    activity.Hooks
	channel  string
	actorID  string
	tenantID string

	renameRule    string
	ruleEvaluator rules.Evaluator
	ruleMetadata  map[string]any

	rollbackOnFailure bool
	onCommitError     CommitErrorHandler
}

func applyOptions(opts []Option) listConfig {
	cfg := listConfig{
		debounce:        DefaultDebounce,
		indicatorMin:    DefaultIndicatorMinDuration,
		indicatorTarget: DefaultIndicatorTarget,
		projection:      DefaultProjection(),
		clock:           clock.Real(),
		logger:          noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithDebounce sets the rename quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(cfg *listConfig) {
		if d > 0 {
			cfg.debounce = d
		}
	}
}

// WithIndicatorMinDuration sets the minimum loading indicator visibility.
func WithIndicatorMinDuration(d time.Duration) Option {
	return func(cfg *listConfig) {
		if d >= 0 {
			cfg.indicatorMin = d
		}
	}
}

// WithIndicatorTarget names the render target of the loading indicator.
func WithIndicatorTarget(target string) Option {
	return func(cfg *listConfig) {
		if target = strings.TrimSpace(target); target != "" {
			cfg.indicatorTarget = target
		}
	}
}

// WithProjection overrides the fetch projection.
func WithProjection(projection Projection) Option {
	return func(cfg *listConfig) {
		cfg.projection = projection.Clone()
	}
}

// WithClock injects the time source for debounce and indicator timing.
func WithClock(c clock.Clock) Option {
	return func(cfg *listConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithLogger attaches a logger. A nil logger silences logging.
func WithLogger(logger Logger) Option {
	return func(cfg *listConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks emits query events to hooks on the given channel. An
// empty channel keeps the current one, activity.DefaultChannel by default.
func WithActivityHooks(channel string, hooks ...activity.ActivityHook) Option {
	return func(cfg *listConfig) {
		if channel = strings.TrimSpace(channel); channel != "" {
			cfg.channel = channel
		}
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

// WithActivityChannel sets the channel stamped on activity events.
func WithActivityChannel(channel string) Option {
	return func(cfg *listConfig) {
		if channel = strings.TrimSpace(channel); channel != "" {
			cfg.channel = channel
		}
	}
}

// WithActor stamps activity events with the acting user and tenant.
func WithActor(actorID, tenantID string) Option {
	return func(cfg *listConfig) {
		cfg.actorID = actorID
		cfg.tenantID = tenantID
	}
}

// WithRenameRule guards commits with expr. The rule sees name, previous,
// query_id, now and metadata and must evaluate to true for a rename to be
// persisted.
func WithRenameRule(expr string) Option {
	return func(cfg *listConfig) {
		cfg.renameRule = strings.TrimSpace(expr)
	}
}

// WithRuleEvaluator selects the engine that runs the rename rule. The default
// is rules.NewExprEvaluator.
func WithRuleEvaluator(evaluator rules.Evaluator) Option {
	return func(cfg *listConfig) {
		cfg.ruleEvaluator = evaluator
	}
}

// WithRuleMetadata exposes metadata to the rename rule.
func WithRuleMetadata(metadata map[string]any) Option {
	return func(cfg *listConfig) {
		cfg.ruleMetadata = metadata
	}
}

// WithRollbackOnFailure restores the previous name when a patch fails.
func WithRollbackOnFailure(enabled bool) Option {
	return func(cfg *listConfig) {
		cfg.rollbackOnFailure = enabled
	}
}

// WithCommitErrorHandler registers fn for failed renames.
func WithCommitErrorHandler(fn CommitErrorHandler) Option {
	return func(cfg *listConfig) {
		cfg.onCommitError = fn
	}
}
