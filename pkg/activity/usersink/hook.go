// Package usersink forwards scene activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"

	"github.com/goliatone/go-scene/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook is an activity.Hook writing one ActivityRecord per event.
//
// Actor, user and tenant ids that are not UUIDs (service accounts such as a
// render farm) become uuid.Nil and keep their raw value in the record data
// under actor_ref, user_ref and tenant_ref. With Namespace set they are
// mapped to name-based UUIDs in that namespace instead.
type Hook struct {
	Sink      usertypes.ActivitySink
	Namespace uuid.UUID
}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = event.Normalize()
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{}
	maps.Copy(data, event.Metadata)
	for key, value := range map[string]string{"object_name": event.ObjectName, "class": event.Class} {
		if value != "" {
			data[key] = value
		}
	}
	if event.Changes != nil {
		data["changes"] = event.Changes
	}

	record := usertypes.ActivityRecord{
		ActorID:    h.identity(data, "actor_ref", event.ActorID),
		UserID:     h.identity(data, "user_ref", event.UserID),
		TenantID:   h.identity(data, "tenant_ref", event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if len(data) > 0 {
		record.Data = data
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) identity(data map[string]any, refKey, raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	if h.Namespace != uuid.Nil {
		return uuid.NewSHA1(h.Namespace, []byte(raw))
	}
	data[refKey] = raw
	return uuid.Nil
}
