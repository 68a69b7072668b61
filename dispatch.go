package scene

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/goliatone/go-scene/internal/hydrate"
)

// dispatchEntry holds the typed operations for one value tag. Every generic,
// name-keyed access resolves an entry and runs through it.
type dispatchEntry struct {
	tag    AttributeType
	goType reflect.Type

	// read wraps a stored slot into a tagged Value.
	read func(slot any) Value
	// write validates v against the tag and returns the slot content.
	write func(v Value) (any, error)
	// materialize produces the initial slot content from a declared default,
	// or the zero value when def is nil.
	materialize func(def any) any
	equal       func(a, b any) bool
	// decode converts a JSON-shaped payload into the slot type. Object
	// reference tags have no decoder; references are resolved by name.
	decode func(raw any) (any, error)
}

var (
	dispatchTable [numAttributeTypes]*dispatchEntry
	dispatchByGo  = map[reflect.Type]*dispatchEntry{}
)

func init() {
	register(newEntry(TypeBool, identity[bool], comparableEqual[bool]))
	register(newEntry(TypeInt, identity[int32], comparableEqual[int32]))
	register(newEntry(TypeLong, identity[int64], comparableEqual[int64]))
	register(newEntry(TypeFloat, identity[float32], comparableEqual[float32]))
	register(newEntry(TypeDouble, identity[float64], comparableEqual[float64]))
	register(newEntry(TypeString, identity[string], comparableEqual[string]))
	register(newEntry(TypeRgb, identity[Rgb], comparableEqual[Rgb]))
	register(newEntry(TypeRgba, identity[Rgba], comparableEqual[Rgba]))
	register(newEntry(TypeVec2f, identity[Vec2f], comparableEqual[Vec2f]))
	register(newEntry(TypeVec2d, identity[Vec2d], comparableEqual[Vec2d]))
	register(newEntry(TypeVec3f, identity[Vec3f], comparableEqual[Vec3f]))
	register(newEntry(TypeVec3d, identity[Vec3d], comparableEqual[Vec3d]))
	register(newEntry(TypeVec4f, identity[Vec4f], comparableEqual[Vec4f]))
	register(newEntry(TypeVec4d, identity[Vec4d], comparableEqual[Vec4d]))
	register(newEntry(TypeMat4f, identity[Mat4f], comparableEqual[Mat4f]))
	register(newEntry(TypeMat4d, identity[Mat4d], comparableEqual[Mat4d]))
	register(newEntry(TypeSceneObject, identity[*SceneObject], comparableEqual[*SceneObject]))
	register(newEntry(TypeBoolVector, slices.Clone[BoolVector], slices.Equal[BoolVector]))
	register(newEntry(TypeIntVector, slices.Clone[IntVector], slices.Equal[IntVector]))
	register(newEntry(TypeLongVector, slices.Clone[LongVector], slices.Equal[LongVector]))
	register(newEntry(TypeFloatVector, slices.Clone[FloatVector], slices.Equal[FloatVector]))
	register(newEntry(TypeDoubleVector, slices.Clone[DoubleVector], slices.Equal[DoubleVector]))
	register(newEntry(TypeStringVector, slices.Clone[StringVector], slices.Equal[StringVector]))
	register(newEntry(TypeRgbVector, slices.Clone[RgbVector], slices.Equal[RgbVector]))
	register(newEntry(TypeRgbaVector, slices.Clone[RgbaVector], slices.Equal[RgbaVector]))
	register(newEntry(TypeVec2fVector, slices.Clone[Vec2fVector], slices.Equal[Vec2fVector]))
	register(newEntry(TypeVec2dVector, slices.Clone[Vec2dVector], slices.Equal[Vec2dVector]))
	register(newEntry(TypeVec3fVector, slices.Clone[Vec3fVector], slices.Equal[Vec3fVector]))
	register(newEntry(TypeVec3dVector, slices.Clone[Vec3dVector], slices.Equal[Vec3dVector]))
	register(newEntry(TypeVec4fVector, slices.Clone[Vec4fVector], slices.Equal[Vec4fVector]))
	register(newEntry(TypeVec4dVector, slices.Clone[Vec4dVector], slices.Equal[Vec4dVector]))
	register(newEntry(TypeMat4fVector, slices.Clone[Mat4fVector], slices.Equal[Mat4fVector]))
	register(newEntry(TypeMat4dVector, slices.Clone[Mat4dVector], slices.Equal[Mat4dVector]))
	register(newEntry(TypeSceneObjectVector, slices.Clone[SceneObjectVector], slices.Equal[SceneObjectVector]))
	register(newEntry(TypeSceneObjectIndexable, identity[SceneObjectIndexable], SceneObjectIndexable.Equal))
}

func register(entry *dispatchEntry) {
	if dispatchTable[entry.tag] != nil {
		panic(fmt.Sprintf("scene: dispatch entry for %s registered twice", entry.tag))
	}
	dispatchTable[entry.tag] = entry
	dispatchByGo[entry.goType] = entry
}

func newEntry[T any](tag AttributeType, clone func(T) T, equal func(a, b T) bool) *dispatchEntry {
	entry := &dispatchEntry{
		tag:    tag,
		goType: reflect.TypeFor[T](),
		read: func(slot any) Value {
			return Value{typ: tag, data: clone(slot.(T))}
		},
		write: func(v Value) (any, error) {
			if v.typ != tag {
				return nil, fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, v.typ, tag)
			}
			typed, ok := v.data.(T)
			if !ok {
				return nil, fmt.Errorf("%w: payload %T is not %s", ErrTypeMismatch, v.data, tag)
			}
			return clone(typed), nil
		},
		materialize: func(def any) any {
			if def == nil {
				var zero T
				return zero
			}
			return clone(def.(T))
		},
		equal: func(a, b any) bool {
			return equal(a.(T), b.(T))
		},
	}
	if tag.IsObjectReference() {
		read := entry.read
		entry.read = func(slot any) Value {
			return read(liveReferences(slot))
		}
	} else {
		decoder := hydrate.NewDecoder[T](
			hydrate.Strict[T](),
			hydrate.Nullable[T](),
		)
		entry.decode = func(raw any) (any, error) {
			return decoder.Decode(hydrate.Context{Type: tag.String()}, raw)
		}
	}
	return entry
}

// liveReferences drops references to objects removed from their context. A
// removed single reference reads as nil.
func liveReferences(slot any) any {
	switch data := slot.(type) {
	case *SceneObject:
		if data != nil && data.removed {
			return (*SceneObject)(nil)
		}
	case SceneObjectVector:
		if slices.ContainsFunc(data, isRemoved) {
			return slices.DeleteFunc(slices.Clone(data), isRemoved)
		}
	case SceneObjectIndexable:
		if slices.ContainsFunc(data.items, isRemoved) {
			return indexableFrom(slices.DeleteFunc(data.Objects(), isRemoved))
		}
	}
	return slot
}

func isRemoved(obj *SceneObject) bool {
	return obj != nil && obj.removed
}

// checkReferences validates the objects held by an object reference payload:
// members must be present, still registered and implement the declared
// interface. A nil single reference clears the slot.
func checkReferences(attr *Attribute, content any) error {
	var objects []*SceneObject
	switch data := content.(type) {
	case *SceneObject:
		if data == nil {
			return nil
		}
		objects = []*SceneObject{data}
	case SceneObjectVector:
		objects = data
	case SceneObjectIndexable:
		objects = data.items
	default:
		return nil
	}
	for i, obj := range objects {
		switch {
		case obj == nil:
			return fmt.Errorf("%w: nil entry at %d", ErrTypeMismatch, i)
		case obj.removed:
			return fmt.Errorf("%w: %s was removed", ErrUnknownSceneObject, obj.name)
		case !obj.IsA(attr.objectType):
			return fmt.Errorf("%w: %s is not %s", ErrTypeMismatch, obj.name, attr.objectType)
		}
	}
	return nil
}

// lookupDispatch returns the entry for tag or ErrUnsupportedTypeDispatch.
func lookupDispatch(tag AttributeType) (*dispatchEntry, error) {
	if tag < 0 || tag >= numAttributeTypes || dispatchTable[tag] == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTypeDispatch, tag)
	}
	return dispatchTable[tag], nil
}

// tagOf returns the tag whose slot type is exactly t.
func tagOf(t reflect.Type) (AttributeType, bool) {
	entry, ok := dispatchByGo[t]
	if !ok {
		return TypeUnknown, false
	}
	return entry.tag, true
}

func identity[T any](v T) T {
	return v
}

func comparableEqual[T comparable](a, b T) bool {
	return a == b
}
