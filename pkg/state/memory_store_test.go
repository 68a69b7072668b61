package state_test

import (
	"context"
	"encoding/json"
	"slices"
	"testing"

	"github.com/goliatone/go-scene/pkg/state"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := state.NewMemoryStore()
	ref := state.Ref{Scene: "shot", Object: "sphere"}

	if _, _, ok, err := store.Load(context.Background(), ref); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%t err=%v", ok, err)
	}

	snapshot := state.Snapshot{
		Class:    "Sphere",
		Values:   map[string][]json.RawMessage{"radius": {json.RawMessage("2")}},
		Bindings: map[string]string{"radius": "driver"},
	}
	meta := state.Meta{SnapshotID: "snap-1", Extra: map[string]string{"source": "test"}}
	if _, err := store.Save(context.Background(), ref, snapshot, meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	snapshot.Values["radius"][0] = json.RawMessage("9")
	snapshot.Bindings["radius"] = "other"
	meta.Extra["source"] = "mutated"

	loaded, loadedMeta, ok, err := store.Load(context.Background(), ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%t err=%v", ok, err)
	}
	if got := string(loaded.Values["radius"][0]); got != "2" {
		t.Fatalf("expected stored radius 2, got %s", got)
	}
	if loaded.Bindings["radius"] != "driver" {
		t.Fatalf("expected stored binding driver, got %q", loaded.Bindings["radius"])
	}
	if loadedMeta.Extra["source"] != "test" {
		t.Fatalf("expected stored meta to be isolated, got %q", loadedMeta.Extra["source"])
	}

	loaded.Values["radius"][0][0] = '7'
	again, _, _, _ := store.Load(context.Background(), ref)
	if got := string(again.Values["radius"][0]); got != "2" {
		t.Fatalf("expected load to hand out copies, got %s", got)
	}
}

func TestMemoryStoreKeysAndDelete(t *testing.T) {
	store := state.NewMemoryStore()
	refs := []state.Ref{
		{Scene: "shot", Object: "sphere"},
		{Object: "camera"},
	}
	for _, ref := range refs {
		if _, err := store.Save(context.Background(), ref, state.Snapshot{Class: "Any"}, state.Meta{}); err != nil {
			t.Fatalf("save %v: %v", ref, err)
		}
	}

	want := []string{"object/camera", "scene/shot/object/sphere"}
	if got := store.Keys(); !slices.Equal(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}

	deleted, err := store.Delete(context.Background(), refs[1])
	if err != nil || !deleted {
		t.Fatalf("expected delete to report existing record, got %t %v", deleted, err)
	}
	deleted, err = store.Delete(context.Background(), refs[1])
	if err != nil || deleted {
		t.Fatalf("expected second delete to report missing record, got %t %v", deleted, err)
	}
}

func TestMemoryStoreRejectsInvalidRef(t *testing.T) {
	store := state.NewMemoryStore()
	if _, err := store.Save(context.Background(), state.Ref{}, state.Snapshot{}, state.Meta{}); err == nil {
		t.Fatalf("expected save with empty ref to fail")
	}
	if _, _, _, err := store.Load(context.Background(), state.Ref{}); err == nil {
		t.Fatalf("expected load with empty ref to fail")
	}
}
