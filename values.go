package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Go representations of the attribute value kinds.
type (
	Bool   = bool
	Int    = int32
	Long   = int64
	Float  = float32
	Double = float64
	String = string

	Vec2f = mgl32.Vec2
	Vec2d = mgl64.Vec2
	Vec3f = mgl32.Vec3
	Vec3d = mgl64.Vec3
	Vec4f = mgl32.Vec4
	Vec4d = mgl64.Vec4
	Mat4f = mgl32.Mat4
	Mat4d = mgl64.Mat4

	BoolVector   = []bool
	IntVector    = []int32
	LongVector   = []int64
	FloatVector  = []float32
	DoubleVector = []float64
	StringVector = []string
	RgbVector    = []Rgb
	RgbaVector   = []Rgba
	Vec2fVector  = []Vec2f
	Vec2dVector  = []Vec2d
	Vec3fVector  = []Vec3f
	Vec3dVector  = []Vec3d
	Vec4fVector  = []Vec4f
	Vec4dVector  = []Vec4d
	Mat4fVector  = []Mat4f
	Mat4dVector  = []Mat4d

	SceneObjectVector = []*SceneObject
)

// Rgb is a linear color without alpha.
type Rgb struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}

// Rgba is a linear color with alpha.
type Rgba struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// SceneObjectIndexable is an ordered sequence of scene objects with constant
// time index lookup. The zero value is an empty sequence.
type SceneObjectIndexable struct {
	items []*SceneObject
	index map[*SceneObject]int
}

// NewSceneObjectIndexable builds an indexable sequence. Duplicate entries keep
// their first position.
func NewSceneObjectIndexable(objects ...*SceneObject) SceneObjectIndexable {
	out := SceneObjectIndexable{}
	for _, obj := range objects {
		out = out.With(obj)
	}
	return out
}

// Len returns the number of entries.
func (s SceneObjectIndexable) Len() int {
	return len(s.items)
}

// At returns the entry at position i.
func (s SceneObjectIndexable) At(i int) *SceneObject {
	return s.items[i]
}

// IndexOf returns the position of obj or -1.
func (s SceneObjectIndexable) IndexOf(obj *SceneObject) int {
	if idx, ok := s.index[obj]; ok {
		return idx
	}
	return -1
}

// Contains reports whether obj is part of the sequence.
func (s SceneObjectIndexable) Contains(obj *SceneObject) bool {
	_, ok := s.index[obj]
	return ok
}

// Objects returns a copy of the ordered entries.
func (s SceneObjectIndexable) Objects() []*SceneObject {
	if len(s.items) == 0 {
		return nil
	}
	return append([]*SceneObject(nil), s.items...)
}

// With returns a copy of s with obj appended unless already present.
func (s SceneObjectIndexable) With(obj *SceneObject) SceneObjectIndexable {
	if s.Contains(obj) {
		return s
	}
	items := append(s.Objects(), obj)
	return indexableFrom(items)
}

// Without returns a copy of s with obj removed.
func (s SceneObjectIndexable) Without(obj *SceneObject) SceneObjectIndexable {
	idx := s.IndexOf(obj)
	if idx < 0 {
		return s
	}
	items := make([]*SceneObject, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	items = append(items, s.items[idx+1:]...)
	return indexableFrom(items)
}

// Equal reports whether both sequences hold the same objects in order.
func (s SceneObjectIndexable) Equal(other SceneObjectIndexable) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func indexableFrom(items []*SceneObject) SceneObjectIndexable {
	if len(items) == 0 {
		return SceneObjectIndexable{}
	}
	index := make(map[*SceneObject]int, len(items))
	for i, obj := range items {
		index[obj] = i
	}
	return SceneObjectIndexable{items: items, index: index}
}
