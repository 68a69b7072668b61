package activity

import (
	"context"
	"testing"
	"time"
)

func TestBuildObjectCommittedEventIncludesChangeMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := SceneEventInput{
		ActorID:         " actor ",
		ObjectID:        "0b9c1d5e-4c55-4f8f-a3f5-1d9c4d0f2a10",
		ObjectName:      "/ball",
		Class:           "Sphere",
		Interface:       "generic|geometry",
		Changed:         []string{"radius"},
		Bindings:        []string{"center"},
		UpdateRequested: true,
		Duration:        2 * time.Millisecond,
		Metadata:        meta,
	}

	event := BuildObjectCommittedEvent(input)

	if event.Verb != VerbObjectCommitted || event.ObjectType != ObjectTypeSceneObject {
		t.Fatalf("unexpected verb/type: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected actor trimmed, got %q", event.ActorID)
	}
	if event.ObjectName != "/ball" || event.Class != "Sphere" {
		t.Fatalf("unexpected object labels: %+v", event)
	}
	if len(event.Changes) != 1 || event.Changes[0] != "radius" {
		t.Fatalf("unexpected changes: %v", event.Changes)
	}
	if event.Metadata["interface"] != "generic|geometry" {
		t.Fatalf("expected interface metadata, got %+v", event.Metadata)
	}
	if event.Metadata["update_requested"] != true {
		t.Fatalf("expected update_requested metadata, got %+v", event.Metadata)
	}
	if event.Metadata["duration_ms"] != float64(2) {
		t.Fatalf("expected duration metadata, got %+v", event.Metadata["duration_ms"])
	}
	bindings, ok := event.Metadata["bindings"].([]string)
	if !ok || len(bindings) != 1 || bindings[0] != "center" {
		t.Fatalf("expected bindings metadata, got %+v", event.Metadata["bindings"])
	}
	if _, ok := meta["interface"]; ok {
		t.Fatalf("expected input metadata untouched")
	}
	input.Changed[0] = "mutated"
	if event.Changes[0] != "radius" {
		t.Fatalf("expected changes cloned")
	}
}

func TestBuildSceneEventObjectIDFallbacks(t *testing.T) {
	named := BuildObjectRemovedEvent(SceneEventInput{ObjectName: "/cam"})
	if named.ObjectID != "/cam" {
		t.Fatalf("expected object name fallback, got %q", named.ObjectID)
	}

	scene := BuildSceneCommittedEvent(SceneEventInput{})
	if scene.ObjectID != ObjectTypeScene || scene.ObjectType != ObjectTypeScene {
		t.Fatalf("expected scene fallback, got %+v", scene)
	}
	if scene.Metadata != nil {
		t.Fatalf("expected no metadata, got %+v", scene.Metadata)
	}
}

func TestBuiltEventsPassThroughEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	event := BuildObjectCreatedEvent(SceneEventInput{ObjectName: "/light", Class: "SpotLight"})
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(capture.Events))
	}
	got := capture.Events[0]
	if got.Channel != DefaultChannel || got.Class != "SpotLight" || got.OccurredAt.IsZero() {
		t.Fatalf("unexpected emitted event: %+v", got)
	}
}
