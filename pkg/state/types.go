package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	scene "github.com/goliatone/go-scene"
)

var ErrNotFound = errors.New("state: snapshot not found")

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted snapshot for one scene object.
type Ref struct {
	Scene  string `json:"scene,omitempty"`
	Object string `json:"object"`
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Snapshot is the persisted form of one scene object. Values hold one JSON
// encoded entry per distinct slot, in timestep order; Bindings map bindable
// attribute names to producer object names.
type Snapshot struct {
	Class    string                       `json:"class"`
	Values   map[string][]json.RawMessage `json:"values"`
	Bindings map[string]string            `json:"bindings,omitempty"`
}

// Store loads/saves one snapshot for a single object reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Resolver moves attribute snapshots between scene objects and a Store.
type Resolver struct {
	Store Store[Snapshot]
	Now   func() time.Time
}

type Mutator func(*Snapshot) error

func (r Ref) Identifier() (string, error) {
	if r.Object == "" {
		return "", fmt.Errorf("missing object name")
	}
	if strings.Contains(r.Object, "/") {
		return "", fmt.Errorf("object name %q must not contain %q", r.Object, "/")
	}
	if r.Scene == "" {
		return fmt.Sprintf("object/%s", r.Object), nil
	}
	if strings.Contains(r.Scene, "/") {
		return "", fmt.Errorf("scene name %q must not contain %q", r.Scene, "/")
	}
	return fmt.Sprintf("scene/%s/object/%s", r.Scene, r.Object), nil
}

// Encode captures the stored slots and live bindings of obj.
func Encode(obj *scene.SceneObject) (Snapshot, error) {
	if obj == nil {
		return Snapshot{}, fmt.Errorf("state: object is required")
	}
	snapshot := Snapshot{
		Class:  obj.Class().Name(),
		Values: map[string][]json.RawMessage{},
	}
	for _, attr := range obj.Class().Attributes() {
		timesteps := attr.Timesteps()
		slots := make([]json.RawMessage, 0, len(timesteps))
		for _, ts := range timesteps {
			value, err := obj.GetStored(attr.Name(), ts)
			if err != nil {
				return Snapshot{}, err
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return Snapshot{}, fmt.Errorf("state: encode %s.%s: %w", obj.Name(), attr.Name(), err)
			}
			slots = append(slots, raw)
		}
		snapshot.Values[attr.Name()] = slots
	}
	for name, producer := range obj.Bindings() {
		if snapshot.Bindings == nil {
			snapshot.Bindings = map[string]string{}
		}
		snapshot.Bindings[name] = producer.Name()
	}
	return snapshot, nil
}

// Apply writes snapshot into obj inside one update transaction. Attributes
// missing from the snapshot keep their values; bindable attributes missing
// from Bindings are unbound. Every value is decoded and every producer
// resolved before anything is written, so a failing snapshot leaves obj
// untouched and commits nothing.
func Apply(obj *scene.SceneObject, snapshot Snapshot) error {
	if obj == nil {
		return fmt.Errorf("state: object is required")
	}
	if snapshot.Class != obj.Class().Name() {
		return fmt.Errorf("%w: snapshot class %q, object %s is %s", scene.ErrClassMismatch, snapshot.Class, obj.Name(), obj.Class().Name())
	}
	writes, err := planValues(obj, snapshot.Values)
	if err != nil {
		return err
	}
	bindings, err := planBindings(obj, snapshot.Bindings)
	if err != nil {
		return err
	}
	return obj.Update(func() error {
		for _, w := range writes {
			if err := obj.SetAt(w.name, w.value, w.ts); err != nil {
				return err
			}
		}
		for _, b := range bindings {
			if err := obj.SetBinding(b.name, b.producer); err != nil {
				return err
			}
		}
		return nil
	})
}

type slotWrite struct {
	name  string
	ts    scene.Timestep
	value scene.Value
}

type bindingWrite struct {
	name     string
	producer *scene.SceneObject
}

func planValues(obj *scene.SceneObject, values map[string][]json.RawMessage) ([]slotWrite, error) {
	var writes []slotWrite
	for _, name := range slices.Sorted(maps.Keys(values)) {
		attr, err := obj.Class().Attribute(name)
		if err != nil {
			return nil, err
		}
		slots := values[name]
		timesteps := attr.Timesteps()
		if len(slots) != len(timesteps) {
			return nil, fmt.Errorf("%w: %s has %d slots, snapshot carries %d", scene.ErrInvalidTimestep, name, len(timesteps), len(slots))
		}
		for i, ts := range timesteps {
			value, err := obj.DecodeValue(name, slots[i])
			if err != nil {
				return nil, err
			}
			writes = append(writes, slotWrite{name: name, ts: ts, value: value})
		}
	}
	return writes, nil
}

// planBindings lists the binding changes that make obj's live bindings match
// bindings, resolving every producer through the owning context.
func planBindings(obj *scene.SceneObject, bindings map[string]string) ([]bindingWrite, error) {
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		attr, err := obj.Class().Attribute(name)
		if err != nil {
			return nil, err
		}
		if !attr.IsBindable() {
			return nil, fmt.Errorf("%w: %s", scene.ErrNotBindable, name)
		}
	}
	var writes []bindingWrite
	for _, attr := range obj.Class().Attributes() {
		if !attr.IsBindable() {
			continue
		}
		current, _ := obj.Binding(attr.Name())
		producerName, ok := bindings[attr.Name()]
		if !ok {
			if current != nil {
				writes = append(writes, bindingWrite{name: attr.Name()})
			}
			continue
		}
		owner := obj.Context()
		if owner == nil {
			return nil, fmt.Errorf("%w: %s has no context to resolve %q", scene.ErrUnknownSceneObject, obj.Name(), producerName)
		}
		producer, err := owner.SceneObject(producerName)
		if err != nil {
			return nil, err
		}
		if current != producer {
			writes = append(writes, bindingWrite{name: attr.Name(), producer: producer})
		}
	}
	return writes, nil
}

// Save encodes obj and stores it under ref. A non-empty meta.ETag must match
// the currently stored snapshot.
func (r Resolver) Save(ctx context.Context, ref Ref, obj *scene.SceneObject, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, fmt.Errorf("state: ref: %w", err)
	}
	snapshot, err := Encode(obj)
	if err != nil {
		return Meta{}, err
	}

	_, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Object, err)
	}
	if ok {
		if err := checkETag(meta, loadedMeta); err != nil {
			return loadedMeta, err
		}
	}
	return r.store(ctx, ref, snapshot, loadedMeta, meta)
}

// Restore loads the snapshot stored under ref and applies it to obj. A
// non-empty meta.ETag must match the stored snapshot.
func (r Resolver) Restore(ctx context.Context, ref Ref, obj *scene.SceneObject, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Object, err)
	}
	if !ok {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, ref.Object)
	}
	if err := checkETag(meta, loadedMeta); err != nil {
		return loadedMeta, err
	}
	if err := Apply(obj, snapshot); err != nil {
		return loadedMeta, fmt.Errorf("state: restore %q: %w", ref.Object, err)
	}
	return loadedMeta, nil
}

// RestoreOrDefault behaves like Restore but resets obj to its declared
// defaults when nothing is stored under ref.
func (r Resolver) RestoreOrDefault(ctx context.Context, ref Ref, obj *scene.SceneObject) (Meta, bool, error) {
	meta, err := r.Restore(ctx, ref, obj, Meta{})
	if err == nil {
		return meta, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return meta, false, err
	}
	err = obj.Update(func() error {
		return obj.ResetAllToDefault()
	})
	return Meta{}, false, err
}

// Mutate loads one snapshot, applies fn, checks it against the class of obj
// by applying it, then saves.
func (r Resolver) Mutate(ctx context.Context, ref Ref, obj *scene.SceneObject, meta Meta, fn Mutator) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Object, err)
	}
	if !ok {
		if snapshot, err = Encode(obj); err != nil {
			return Meta{}, err
		}
		loadedMeta = Meta{}
	}
	if err := checkETag(meta, loadedMeta); err != nil {
		return loadedMeta, err
	}

	if err := fn(&snapshot); err != nil {
		return loadedMeta, err
	}
	if err := Apply(obj, snapshot); err != nil {
		return loadedMeta, fmt.Errorf("state: mutate %q: %w", ref.Object, err)
	}
	return r.store(ctx, ref, snapshot, loadedMeta, meta)
}

func (r Resolver) store(ctx context.Context, ref Ref, snapshot Snapshot, loaded, override Meta) (Meta, error) {
	etag, err := ETag(snapshot)
	if err != nil {
		return loaded, err
	}
	saveMeta := mergeMeta(loaded, override)
	saveMeta.ETag = etag
	saveMeta.SnapshotID = uuid.NewString()
	if override.SnapshotID != "" {
		saveMeta.SnapshotID = override.SnapshotID
	}
	saveMeta.UpdatedAt = r.now()

	saved, err := r.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return loaded, fmt.Errorf("state: save %q: %w", ref.Object, err)
	}
	return saved, nil
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ETag returns the content hash of snapshot.
func ETag(snapshot Snapshot) (string, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("state: etag: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16]), nil
}

func checkETag(expected, loaded Meta) error {
	if expected.ETag != "" && expected.ETag != loaded.ETag {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
