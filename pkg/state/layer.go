package state

import (
	"context"
	"fmt"
	"reflect"

	scene "github.com/goliatone/go-scene"
)

// MergeSnapshots composes snapshots ordered from strongest to weakest. Slots
// stored in a stronger layer replace the whole slot list of weaker layers;
// attributes and bindings a stronger layer does not mention are filled from
// weaker ones. Every layer must describe the same class.
func MergeSnapshots(layers ...Snapshot) (Snapshot, error) {
	if len(layers) == 0 {
		return Snapshot{}, nil
	}
	class := layers[0].Class
	for _, layer := range layers[1:] {
		if layer.Class != class {
			return Snapshot{}, fmt.Errorf("%w: cannot layer %q over %q", scene.ErrClassMismatch, class, layer.Class)
		}
	}
	return mergeLayers(layers...), nil
}

// RestoreLayered loads the snapshots stored under refs, strongest first,
// merges them with MergeSnapshots and applies the result to obj in one
// update. Missing refs are skipped; if none is stored ErrNotFound is returned.
// The returned metas line up with refs and are zero for skipped refs.
func (r Resolver) RestoreLayered(ctx context.Context, obj *scene.SceneObject, refs ...Ref) ([]Meta, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	metas := make([]Meta, len(refs))
	layers := make([]Snapshot, 0, len(refs))
	for i, ref := range refs {
		snapshot, meta, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("state: load %q: %w", ref.Object, err)
		}
		if !ok {
			continue
		}
		metas[i] = meta
		layers = append(layers, snapshot)
	}
	if len(layers) == 0 {
		return metas, fmt.Errorf("%w: no layer stored for %s", ErrNotFound, obj.Name())
	}
	merged, err := MergeSnapshots(layers...)
	if err != nil {
		return metas, err
	}
	if err := Apply(obj, merged); err != nil {
		return metas, fmt.Errorf("state: restore layered %q: %w", obj.Name(), err)
	}
	return metas, nil
}

func mergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}
	merged := deepCopy(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = overlay(reflect.ValueOf(layers[i]), merged)
	}
	if !merged.IsValid() {
		return zero
	}
	return merged.Interface().(T)
}

// overlay returns strong laid over weak. Nil pointers, maps and slices in
// strong are treated as unset.
func overlay(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return deepCopy(weak)
	}
	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		var inner reflect.Value
		if weak.IsValid() && !weak.IsNil() {
			inner = weak.Elem()
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(overlay(strong.Elem(), inner))
		return out
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		for i := range strong.NumField() {
			if !out.Field(i).CanSet() {
				continue
			}
			var field reflect.Value
			if weak.IsValid() && weak.Type() == strong.Type() {
				field = weak.Field(i)
			}
			out.Field(i).Set(overlay(strong.Field(i), field))
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), overlay(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if strong.IsNil() {
			return deepCopy(weak)
		}
		return deepCopy(strong)
	default:
		return deepCopy(strong)
	}
}

func deepCopy(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := range v.NumField() {
			if out.Field(i).CanSet() {
				out.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	default:
		return v
	}
}
