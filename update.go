package scene

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-scene/pkg/activity"
)

// CommitEvent describes the change set published by an outermost commit.
type CommitEvent struct {
	Object          *SceneObject
	Changed         []string
	Bindings        []string
	UpdateRequested bool
	Duration        time.Duration
	CommittedAt     time.Time
}

// CommitHook is notified after an outermost commit that published changes.
type CommitHook func(CommitEvent) error

// BeginUpdate opens an update transaction, or nests inside the open one.
func (o *SceneObject) BeginUpdate() {
	o.depth++
	if o.depth == 1 {
		o.started = time.Now()
	}
}

// EndUpdate closes the innermost update. Closing the outermost update
// publishes the accumulated change set and notifies dependents; errors
// returned by dependents are joined. Calling EndUpdate with no open update
// returns ErrTransactionState.
func (o *SceneObject) EndUpdate() error {
	if o.depth == 0 {
		return o.attrError("end_update", "", fmt.Errorf("%w: no update in progress", ErrTransactionState))
	}
	o.depth--
	if o.depth > 0 {
		return nil
	}
	return o.commit()
}

// Updating reports whether an update transaction is open.
func (o *SceneObject) Updating() bool { return o.depth > 0 }

// UpdateDepth returns the number of open nested updates.
func (o *SceneObject) UpdateDepth() int { return o.depth }

// Update runs fn inside an update transaction. The transaction is closed on
// every exit path of fn, panics included.
func (o *SceneObject) Update(fn func() error) (err error) {
	o.BeginUpdate()
	defer func() {
		err = errors.Join(err, o.EndUpdate())
	}()
	if fn == nil {
		return nil
	}
	return fn()
}

// UpdateGuard is a scoped handle on an open update transaction.
type UpdateGuard struct {
	obj    *SceneObject
	closed bool
}

// Guard opens an update transaction and returns a guard that closes it.
//
//	guard := obj.Guard()
//	defer guard.Close()
func (o *SceneObject) Guard() *UpdateGuard {
	o.BeginUpdate()
	return &UpdateGuard{obj: o}
}

// Close ends the guarded update. Subsequent calls are no-ops.
func (g *UpdateGuard) Close() error {
	if g == nil || g.closed {
		return nil
	}
	g.closed = true
	return g.obj.EndUpdate()
}

// mutate runs fn under the transaction policy. Under the implicit policy a
// mutation outside any update is wrapped in its own transaction.
func (o *SceneObject) mutate(op, attr string, fn func() error) (err error) {
	if o.depth > 0 {
		return fn()
	}
	if o.cfg.config.TransactionPolicy != TransactionImplicit {
		return o.attrError(op, attr, fmt.Errorf("%w: %s outside update", ErrTransactionState, op))
	}
	return o.Update(fn)
}

func (o *SceneObject) commit() error {
	var duration time.Duration
	if !o.started.IsZero() {
		duration = time.Since(o.started)
	}
	pending := o.changes.pending
	dirty := pending.dirty()
	changed, bindings := o.changeNames(pending)
	requested := pending.requested
	o.changes.publish()

	if !dirty {
		return nil
	}

	event := CommitEvent{
		Object:          o,
		Changed:         changed,
		Bindings:        bindings,
		UpdateRequested: requested,
		Duration:        duration,
		CommittedAt:     time.Now(),
	}

	var errs []error
	for _, hook := range o.cfg.commitHooks {
		if err := hook(event); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.cfg.emitter.Emit(context.Background(), activity.BuildObjectCommittedEvent(activity.SceneEventInput{
		ObjectID:        o.id.String(),
		ObjectName:      o.name,
		Class:           o.class.name,
		Interface:       o.iface.String(),
		Changed:         changed,
		Bindings:        bindings,
		UpdateRequested: requested,
		Duration:        duration,
		OccurredAt:      event.CommittedAt,
	})); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	o.cfg.logger.Log(LogEvent{
		Kind:     LogCommit,
		Object:   o.name,
		Class:    o.class.name,
		Changed:  changed,
		Bindings: bindings,
		Duration: duration,
		Err:      err,
	})
	return err
}
