package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without an explicit channel.
const DefaultChannel = "boards"

// Config controls activity emission for one board list.
//
// ActorID and TenantID identify who owns the list; they are stamped on
// events that do not carry their own. Now timestamps events emitted without
// OccurredAt and defaults to time.Now.
type Config struct {
	Enabled  bool
	Channel  string
	ActorID  string
	TenantID string
	Now      func() time.Time
}

// Emitter stamps board list defaults on query events and hands them to hooks.
type Emitter struct {
	hooks    Hooks
	enabled  bool
	channel  string
	actorID  string
	tenantID string
	now      func() time.Time
}

// NewEmitter returns an emitter that notifies hooks. It is disabled when cfg
// is not enabled or no usable hook remains.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	live := liveHooks(hooks)
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Emitter{
		hooks:    live,
		enabled:  cfg.Enabled && len(live) > 0,
		channel:  channel,
		actorID:  strings.TrimSpace(cfg.ActorID),
		tenantID: strings.TrimSpace(cfg.TenantID),
		now:      now,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit stamps the list defaults on event and forwards it. Events are query
// events unless they name another object type.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	return e.hooks.Notify(ctx, e.stamp(event))
}

func (e *Emitter) stamp(event Event) Event {
	if strings.TrimSpace(event.ObjectType) == "" {
		event.ObjectType = ObjectTypeQuery
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.tenantID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return event
}

func liveHooks(hooks Hooks) Hooks {
	var live Hooks
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	return live
}
