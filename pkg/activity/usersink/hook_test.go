package usersink_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/goliatone/go-scene/pkg/activity"
	"github.com/goliatone/go-scene/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookMapsCommitEvent(t *testing.T) {
	sink := &recordingSink{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actor, tenant := uuid.New(), uuid.New()

	event := activity.BuildObjectCommittedEvent(activity.SceneEventInput{
		ActorID:    actor.String(),
		TenantID:   tenant.String(),
		ObjectName: "ball",
		Class:      "Sphere",
		Channel:    "scene",
		Changed:    []string{"radius", "center"},
		Metadata:   map[string]any{"frame": 12},
		OccurredAt: at,
	})
	if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected one record, got %d", len(sink.records))
	}

	record := sink.records[0]
	if record.ActorID != actor || record.TenantID != tenant || record.UserID != uuid.Nil {
		t.Fatalf("unexpected identities %s/%s/%s", record.ActorID, record.UserID, record.TenantID)
	}
	if record.Verb != activity.VerbObjectCommitted || record.ObjectType != activity.ObjectTypeSceneObject || record.ObjectID != "ball" {
		t.Fatalf("unexpected routing %+v", record)
	}
	if record.Channel != "scene" || !record.OccurredAt.Equal(at) {
		t.Fatalf("unexpected channel or time %+v", record)
	}
	if record.Data["object_name"] != "ball" || record.Data["class"] != "Sphere" || record.Data["frame"] != 12 {
		t.Fatalf("unexpected data %v", record.Data)
	}
	if changes, _ := record.Data["changes"].([]string); !slices.Equal(changes, []string{"radius", "center"}) {
		t.Fatalf("unexpected changes %v", record.Data["changes"])
	}
	if _, ok := record.Data["actor_ref"]; ok {
		t.Fatalf("expected no actor_ref for a UUID actor")
	}
}

func TestHookDropsUnroutableEvents(t *testing.T) {
	sink := &recordingSink{}
	for _, hook := range []usersink.Hook{{Sink: sink}, {}} {
		if err := hook.Notify(context.Background(), activity.Event{Verb: activity.VerbObjectCreated}); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
}

func TestHookServiceAccountIdentities(t *testing.T) {
	event := activity.Event{
		Verb:       activity.VerbObjectCreated,
		ActorID:    "render-farm",
		ObjectType: activity.ObjectTypeSceneObject,
		ObjectID:   "cam",
	}

	sink := &recordingSink{err: errors.New("sink down")}
	if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), event); err == nil {
		t.Fatalf("expected sink error to propagate")
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil || record.Data["actor_ref"] != "render-farm" {
		t.Fatalf("expected raw actor kept in data, got %s %v", record.ActorID, record.Data)
	}
	if record.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}

	namespace := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	sink = &recordingSink{}
	hook := usersink.Hook{Sink: sink, Namespace: namespace}
	_ = hook.Notify(context.Background(), event)
	_ = hook.Notify(context.Background(), event)
	want := uuid.NewSHA1(namespace, []byte("render-farm"))
	if sink.records[0].ActorID != want || sink.records[1].ActorID != want {
		t.Fatalf("expected stable name-based actor %s, got %s and %s", want, sink.records[0].ActorID, sink.records[1].ActorID)
	}
	if _, ok := sink.records[0].Data["actor_ref"]; ok {
		t.Fatalf("expected no actor_ref when a namespace is set")
	}
}
