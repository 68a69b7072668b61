package activity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event is one scene lifecycle occurrence. Actor, user and tenant ids are
// plain strings so emitters need not depend on a UUID package.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	ObjectName string
	Class      string
	Channel    string
	Changes    []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Normalize returns a copy with trimmed labels, private Changes and Metadata,
// and OccurredAt defaulted to now.
func (e Event) Normalize() Event {
	for _, field := range []*string{
		&e.Verb, &e.ActorID, &e.UserID, &e.TenantID,
		&e.ObjectType, &e.ObjectID, &e.ObjectName, &e.Class, &e.Channel,
	} {
		*field = strings.TrimSpace(*field)
	}
	e.Changes = cloneList(e.Changes)
	e.Metadata = cloneMetadata(e.Metadata)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	return e
}

// Routable reports whether the event names a verb and an object. Hooks drop
// events that are not.
func (e Event) Routable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// Hook receives normalized events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks notifies every member in order. A failing hook does not stop the
// others; failures are joined.
type Hooks []Hook

func (h Hooks) Notify(ctx context.Context, event Event) error {
	event = event.Normalize()
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("activity hook %d (%s): %w", i, event.Verb, err))
		}
	}
	return errors.Join(errs...)
}

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "scene"

// Config toggles emission and sets the default channel.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter is the entry point scene code emits through. A nil or disabled
// Emitter drops events.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter returns an emitter over the non-nil members of hooks. It is
// disabled when cfg says so or no hook remains.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	live := slices.DeleteFunc(slices.Clone(hooks), func(h Hook) bool { return h == nil })
	if !cfg.Enabled || len(live) == 0 {
		return &Emitter{}
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{hooks: live, channel: channel}
}

func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}

func cloneList(src []string) []string {
	if len(src) == 0 {
		return nil
	}
	return slices.Clone(src)
}
