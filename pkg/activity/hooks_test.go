package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func committed(id string) Event {
	return Event{Verb: VerbObjectCommitted, ObjectType: ObjectTypeSceneObject, ObjectID: id}
}

func TestEventNormalize(t *testing.T) {
	meta := map[string]any{"k": "v"}
	changes := []string{"radius", "center"}
	in := Event{
		Verb:       " scene.object.committed ",
		TenantID:   " tenant ",
		ObjectType: " scene.object ",
		ObjectID:   " 42 ",
		ObjectName: " ball\t",
		Class:      " Sphere ",
		Changes:    changes,
		Metadata:   meta,
	}

	got := in.Normalize()
	if got.Verb != VerbObjectCommitted || got.ObjectType != ObjectTypeSceneObject || got.ObjectID != "42" {
		t.Fatalf("unexpected routing fields: %+v", got)
	}
	if got.TenantID != "tenant" || got.ObjectName != "ball" || got.Class != "Sphere" {
		t.Fatalf("expected labels trimmed: %+v", got)
	}
	if got.OccurredAt.IsZero() || !got.Routable() {
		t.Fatalf("expected a routable, timestamped event: %+v", got)
	}

	got.Metadata["k"] = "changed"
	got.Changes[0] = "changed"
	if meta["k"] != "v" || changes[0] != "radius" {
		t.Fatalf("expected Normalize to copy metadata and changes")
	}

	if empty := (Event{Changes: []string{}, Metadata: map[string]any{}}).Normalize(); empty.Changes != nil || empty.Metadata != nil {
		t.Fatalf("expected empty collections to normalize to nil, got %+v", empty)
	}
	if (Event{Verb: "x", ObjectType: "y"}).Routable() {
		t.Fatalf("expected event without object id to be unroutable")
	}
}

func TestHooksNotify(t *testing.T) {
	first, second := &CaptureHook{}, &CaptureHook{}
	boom := errors.New("boom")
	var sawContext bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			sawContext = ctx != nil
			return nil
		}),
		first,
		nil,
		HookFunc(func(context.Context, Event) error { return boom }),
		second,
	}

	err := hooks.Notify(nil, committed("1"))
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "activity hook 3") {
		t.Fatalf("expected hook 3 failure, got %v", err)
	}
	if !sawContext {
		t.Fatalf("expected a background context")
	}
	if len(first.Events) != 1 || len(second.Events) != 1 {
		t.Fatalf("expected hooks after a failure to run, got %d/%d", len(first.Events), len(second.Events))
	}

	if err := hooks.Notify(context.Background(), Event{Verb: VerbObjectCreated}); err != nil {
		t.Fatalf("expected unroutable event to be dropped silently, got %v", err)
	}
	if len(first.Events) != 1 {
		t.Fatalf("expected unroutable event not to reach hooks")
	}
}

func TestEmitter(t *testing.T) {
	capture := &CaptureHook{}
	cases := []struct {
		name    string
		hooks   Hooks
		cfg     Config
		enabled bool
	}{
		{name: "disabled by config", hooks: Hooks{capture}, cfg: Config{}},
		{name: "only nil hooks", hooks: Hooks{nil}, cfg: Config{Enabled: true}},
		{name: "enabled", hooks: Hooks{nil, capture}, cfg: Config{Enabled: true}, enabled: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			capture.Reset()
			emitter := NewEmitter(tc.hooks, tc.cfg)
			if emitter.Enabled() != tc.enabled {
				t.Fatalf("expected enabled=%v", tc.enabled)
			}
			if err := emitter.Emit(context.Background(), committed("1")); err != nil {
				t.Fatalf("emit: %v", err)
			}
			want := 0
			if tc.enabled {
				want = 1
			}
			if len(capture.Events) != want {
				t.Fatalf("expected %d events, got %d", want, len(capture.Events))
			}
		})
	}

	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel, got %q", capture.Events[0].Channel)
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() || nilEmitter.Emit(context.Background(), committed("1")) != nil {
		t.Fatalf("expected nil emitter to drop events")
	}
}

func TestEmitterKeepsExplicitChannelAndTime(t *testing.T) {
	capture := &CaptureHook{}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	event := committed("1")
	event.Channel = "render"
	event.OccurredAt = at

	if err := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: " lookdev "}).Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if got := capture.Events[0]; got.Channel != "render" || !got.OccurredAt.Equal(at) {
		t.Fatalf("expected channel and time preserved, got %+v", got)
	}
}

func TestCaptureHook(t *testing.T) {
	capture := &CaptureHook{Err: errors.New("full")}
	hooks := Hooks{capture}
	created := committed("1")
	created.Verb = VerbObjectCreated

	if err := hooks.Notify(context.Background(), created); err == nil {
		t.Fatalf("expected configured error")
	}
	capture.Err = nil
	_ = hooks.Notify(context.Background(), committed("1"))
	if got := capture.Verbs(); !slices.Equal(got, []string{VerbObjectCreated, VerbObjectCommitted}) {
		t.Fatalf("unexpected verbs %v", got)
	}
	capture.Reset()
	if len(capture.Verbs()) != 0 {
		t.Fatalf("expected Reset to clear events")
	}
}
