package scene

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-scene/internal/hydrate"
)

// Timesteps returns the timesteps that address distinct slots of a.
func (a *Attribute) Timesteps() []Timestep {
	if a.IsBlurrable() {
		return []Timestep{TimestepBegin, TimestepEnd}
	}
	return []Timestep{TimestepBegin}
}

// MarshalJSON encodes the payload of v. Object references encode as object
// names so snapshots never embed object graphs.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.IsValid() {
		return []byte("null"), nil
	}
	switch data := v.data.(type) {
	case *SceneObject:
		if data == nil {
			return []byte("null"), nil
		}
		return json.Marshal(data.name)
	case SceneObjectVector:
		return json.Marshal(objectNames(data))
	case SceneObjectIndexable:
		return json.Marshal(objectNames(data.items))
	default:
		return json.Marshal(data)
	}
}

func objectNames(objects []*SceneObject) []string {
	names := make([]string, len(objects))
	for i, obj := range objects {
		if obj != nil {
			names[i] = obj.name
		}
	}
	return names
}

// DecodeValue converts a loosely typed payload (decoded JSON or a raw JSON
// message) into a Value of the declared type of name. Object references are
// given as names and resolved through the owning Context.
func (o *SceneObject) DecodeValue(name string, raw any) (Value, error) {
	attr, err := o.attribute("decode", name)
	if err != nil {
		return Value{}, err
	}
	if !attr.typ.IsObjectReference() {
		if attr.dispatch.decode == nil {
			return Value{}, o.attrError("decode", attr.name, fmt.Errorf("%w: %s", ErrUnsupportedTypeDispatch, attr.typ))
		}
		payload, err := attr.dispatch.decode(raw)
		if err != nil {
			return Value{}, o.attrError("decode", attr.name, fmt.Errorf("%w: %w", ErrTypeMismatch, err))
		}
		return Value{typ: attr.typ, data: payload}, nil
	}

	payload, err := o.decodeReferences(attr, raw)
	if err != nil {
		return Value{}, o.attrError("decode", attr.name, err)
	}
	return Value{typ: attr.typ, data: payload}, nil
}

var referenceDecoder = hydrate.NewDecoder[[]string](hydrate.Nullable[[]string]())

var singleReferenceDecoder = hydrate.NewDecoder[*string](hydrate.Nullable[*string]())

func (o *SceneObject) decodeReferences(attr *Attribute, raw any) (any, error) {
	ctx := hydrate.Context{Object: o.name, Attribute: attr.name, Type: attr.typ.String()}
	if attr.typ == TypeSceneObject {
		name, err := singleReferenceDecoder.Decode(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		if name == nil || *name == "" {
			return (*SceneObject)(nil), nil
		}
		return o.lookupReference(attr, *name)
	}

	names, err := referenceDecoder.Decode(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	objects := make([]*SceneObject, 0, len(names))
	for _, name := range names {
		obj, err := o.lookupReference(attr, name)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if attr.typ == TypeSceneObjectIndexable {
		return NewSceneObjectIndexable(objects...), nil
	}
	if len(objects) == 0 {
		return SceneObjectVector(nil), nil
	}
	return SceneObjectVector(objects), nil
}

func (o *SceneObject) lookupReference(attr *Attribute, name string) (*SceneObject, error) {
	if o.owner == nil {
		return nil, fmt.Errorf("%w: %s has no context to resolve %q", ErrUnknownSceneObject, o.name, name)
	}
	obj, err := o.owner.SceneObject(name)
	if err != nil {
		return nil, err
	}
	if !obj.IsA(attr.objectType) {
		return nil, fmt.Errorf("%w: %s is not %s", ErrTypeMismatch, name, attr.objectType)
	}
	return obj, nil
}
