package scene

import (
	"fmt"
	"reflect"
)

// Value is a tagged attribute value. The zero Value is invalid and carries
// TypeUnknown.
type Value struct {
	typ  AttributeType
	data any
}

// ValueOf wraps x in a Value. The dynamic type of x must be exactly one of the
// attribute value types; no numeric or container coercion is attempted.
func ValueOf(x any) (Value, error) {
	if x == nil {
		return Value{}, fmt.Errorf("%w: nil value", ErrTypeMismatch)
	}
	tag, ok := tagOf(reflect.TypeOf(x))
	if !ok {
		return Value{}, fmt.Errorf("%w: no attribute type for %T", ErrTypeMismatch, x)
	}
	return Value{typ: tag, data: x}, nil
}

// MustValueOf is like ValueOf but panics on error.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ValueAs extracts the payload of v as T.
func ValueAs[T any](v Value) (T, bool) {
	out, ok := v.data.(T)
	return out, ok
}

// Type returns the tag of v.
func (v Value) Type() AttributeType {
	return v.typ
}

// Interface returns the payload.
func (v Value) Interface() any {
	return v.data
}

// IsValid reports whether v carries a known tag.
func (v Value) IsValid() bool {
	return v.typ.Valid()
}

// Equal reports whether both values carry the same tag and payload.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	if !v.IsValid() {
		return true
	}
	entry, err := lookupDispatch(v.typ)
	if err != nil {
		return false
	}
	return entry.equal(v.data, other.data)
}

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	switch data := v.data.(type) {
	case *SceneObject:
		if data == nil {
			return "scene_object(nil)"
		}
		return fmt.Sprintf("scene_object(%s)", data.Name())
	default:
		return fmt.Sprintf("%s(%v)", v.typ, data)
	}
}
