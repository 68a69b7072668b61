package scene

import (
	"fmt"
	"strings"
)

// AttributeType tags the value kind stored by an attribute. The numeric values
// are encoded by serialization formats, so new tags must only be appended.
type AttributeType int

const (
	TypeUnknown AttributeType = iota
	TypeBool
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeRgb
	TypeRgba
	TypeVec2f
	TypeVec2d
	TypeVec3f
	TypeVec3d
	TypeVec4f
	TypeVec4d
	TypeMat4f
	TypeMat4d
	TypeSceneObject
	TypeBoolVector
	TypeIntVector
	TypeLongVector
	TypeFloatVector
	TypeDoubleVector
	TypeStringVector
	TypeRgbVector
	TypeRgbaVector
	TypeVec2fVector
	TypeVec2dVector
	TypeVec3fVector
	TypeVec3dVector
	TypeVec4fVector
	TypeVec4dVector
	TypeMat4fVector
	TypeMat4dVector
	TypeSceneObjectVector
	TypeSceneObjectIndexable

	numAttributeTypes
)

var attributeTypeNames = [numAttributeTypes]string{
	TypeUnknown:              "unknown",
	TypeBool:                 "bool",
	TypeInt:                  "int",
	TypeLong:                 "long",
	TypeFloat:                "float",
	TypeDouble:               "double",
	TypeString:               "string",
	TypeRgb:                  "rgb",
	TypeRgba:                 "rgba",
	TypeVec2f:                "vec2f",
	TypeVec2d:                "vec2d",
	TypeVec3f:                "vec3f",
	TypeVec3d:                "vec3d",
	TypeVec4f:                "vec4f",
	TypeVec4d:                "vec4d",
	TypeMat4f:                "mat4f",
	TypeMat4d:                "mat4d",
	TypeSceneObject:          "scene_object",
	TypeBoolVector:           "bool_vector",
	TypeIntVector:            "int_vector",
	TypeLongVector:           "long_vector",
	TypeFloatVector:          "float_vector",
	TypeDoubleVector:         "double_vector",
	TypeStringVector:         "string_vector",
	TypeRgbVector:            "rgb_vector",
	TypeRgbaVector:           "rgba_vector",
	TypeVec2fVector:          "vec2f_vector",
	TypeVec2dVector:          "vec2d_vector",
	TypeVec3fVector:          "vec3f_vector",
	TypeVec3dVector:          "vec3d_vector",
	TypeVec4fVector:          "vec4f_vector",
	TypeVec4dVector:          "vec4d_vector",
	TypeMat4fVector:          "mat4f_vector",
	TypeMat4dVector:          "mat4d_vector",
	TypeSceneObjectVector:    "scene_object_vector",
	TypeSceneObjectIndexable: "scene_object_indexable",
}

func (t AttributeType) String() string {
	if t < 0 || t >= numAttributeTypes {
		return fmt.Sprintf("AttributeType(%d)", int(t))
	}
	return attributeTypeNames[t]
}

// Valid reports whether t is a known, non-unknown tag.
func (t AttributeType) Valid() bool {
	return t > TypeUnknown && t < numAttributeTypes
}

// IsSequence reports whether t is one of the homogeneous or heterogeneous
// sequence tags.
func (t AttributeType) IsSequence() bool {
	return t >= TypeBoolVector && t < numAttributeTypes
}

// IsObjectReference reports whether values of t refer to other scene objects.
func (t AttributeType) IsObjectReference() bool {
	switch t {
	case TypeSceneObject, TypeSceneObjectVector, TypeSceneObjectIndexable:
		return true
	default:
		return false
	}
}

// ParseAttributeType converts a tag name (as returned by String) into the
// corresponding AttributeType. Returns TypeUnknown for unrecognised values.
func ParseAttributeType(value string) AttributeType {
	value = strings.ToLower(strings.TrimSpace(value))
	for i, name := range attributeTypeNames {
		if name == value {
			return AttributeType(i)
		}
	}
	return TypeUnknown
}

// Timestep selects one of the two motion-blur samples of a blurrable attribute.
type Timestep int

const (
	TimestepBegin Timestep = iota
	TimestepEnd

	NumTimesteps = 2
)

func (ts Timestep) String() string {
	switch ts {
	case TimestepBegin:
		return "begin"
	case TimestepEnd:
		return "end"
	default:
		return fmt.Sprintf("Timestep(%d)", int(ts))
	}
}

func (ts Timestep) valid() bool {
	return ts >= TimestepBegin && ts < NumTimesteps
}

// AttributeFlags is a bitmask of per-attribute behaviour hints.
type AttributeFlags uint32

const (
	FlagsNone AttributeFlags = 0
	// FlagBindable allows a producer object to supply the value.
	FlagBindable AttributeFlags = 1 << 0
	// FlagBlurrable gives the attribute a begin and an end timestep slot.
	FlagBlurrable AttributeFlags = 1 << 1
	// FlagEnumerable restricts an int attribute to a table of named values.
	FlagEnumerable AttributeFlags = 1 << 2
	// FlagFilename hints that a string attribute names a file.
	FlagFilename AttributeFlags = 1 << 3
	// FlagCanSkipGeomReload marks attributes whose update does not require
	// geometry to be reloaded.
	FlagCanSkipGeomReload AttributeFlags = 1 << 4
)

// Has reports whether all bits of flag are set.
func (f AttributeFlags) Has(flag AttributeFlags) bool {
	return flag != 0 && f&flag == flag
}

func (f AttributeFlags) String() string {
	if f == FlagsNone {
		return "none"
	}
	names := []struct {
		flag AttributeFlags
		name string
	}{
		{FlagBindable, "bindable"},
		{FlagBlurrable, "blurrable"},
		{FlagEnumerable, "enumerable"},
		{FlagFilename, "filename"},
		{FlagCanSkipGeomReload, "can_skip_geom_reload"},
	}
	var parts []string
	for _, entry := range names {
		if f.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "|")
}
