package scene

import (
	"fmt"
	"reflect"
)

// Key is a typed handle on an attribute whose Go value type is T. Keys skip
// name lookup and return payloads without a Value wrapper.
type Key[T any] struct {
	attr *Attribute
}

// NewKey builds a key for attr, checking that T is the attribute's value type.
func NewKey[T any](attr *Attribute) (Key[T], error) {
	if attr == nil {
		return Key[T]{}, fmt.Errorf("%w: nil attribute", ErrUnknownAttribute)
	}
	if want := reflect.TypeFor[T](); attr.dispatch.goType != want {
		return Key[T]{}, fmt.Errorf("%w: %s is %s, key type is %s", ErrTypeMismatch, attr.name, attr.typ, want)
	}
	return Key[T]{attr: attr}, nil
}

// KeyFor resolves name on class and builds a key for it.
func KeyFor[T any](class *SceneClass, name string) (Key[T], error) {
	attr, err := class.Attribute(name)
	if err != nil {
		return Key[T]{}, err
	}
	return NewKey[T](attr)
}

// MustKey is like KeyFor but panics on error.
func MustKey[T any](class *SceneClass, name string) Key[T] {
	key, err := KeyFor[T](class, name)
	if err != nil {
		panic(err)
	}
	return key
}

// Attribute returns the descriptor the key refers to.
func (k Key[T]) Attribute() *Attribute { return k.attr }

// Name returns the attribute name.
func (k Key[T]) Name() string {
	if k.attr == nil {
		return ""
	}
	return k.attr.name
}

// Get returns the begin timestep value of key on o.
func Get[T any](o *SceneObject, key Key[T]) (T, error) {
	return GetAt(o, key, TimestepBegin)
}

// GetAt returns the ts value of key on o, resolved through its binding.
func GetAt[T any](o *SceneObject, key Key[T], ts Timestep) (T, error) {
	var zero T
	if err := o.checkOwn("get", key.attr); err != nil {
		return zero, err
	}
	slot, err := o.resolve(key.attr, ts)
	if err != nil {
		return zero, o.attrError("get", key.attr.name, err)
	}
	return key.attr.dispatch.read(slot).data.(T), nil
}

// Set stores value in the begin timestep of key on o.
func Set[T any](o *SceneObject, key Key[T], value T) error {
	return SetAt(o, key, value, TimestepBegin)
}

// SetAt stores value in the ts slot of key on o.
func SetAt[T any](o *SceneObject, key Key[T], value T, ts Timestep) error {
	if err := o.checkOwn("set", key.attr); err != nil {
		return err
	}
	return o.store("set", key.attr, Value{typ: key.attr.typ, data: value}, ts)
}
