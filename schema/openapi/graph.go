package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	scene "github.com/goliatone/go-scene"
)

type schemaNode struct {
	Type        string
	Format      string
	Description string
	Properties  map[string]*schemaNode
	Required    []string
	Items       *schemaNode
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
	Nullable    bool
	Enum        []any
	Default     any
	// shape is the wire schema of an attribute; the node itself only
	// carries annotations.
	shape *schemaNode
	// nameHint names the component when the node is shared.
	nameHint   string
	extensions map[string]any
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.shape != nil {
		maps.Copy(result, n.shape.inlineOpenAPI())
	}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Description != "" {
		result["description"] = n.Description
	}
	if n.Nullable {
		result["nullable"] = true
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		result["enum"] = n.Enum
	}
	if n.MinItems != nil {
		result["minItems"] = *n.MinItems
	}
	if n.MaxItems != nil {
		result["maxItems"] = *n.MaxItems
	}
	if n.UniqueItems {
		result["uniqueItems"] = true
	}
	for _, key := range slices.Sorted(maps.Keys(n.extensions)) {
		result[key] = n.extensions[key]
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()

	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range slices.Sorted(maps.Keys(n.Properties)) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}

	if len(n.Required) > 0 {
		result["required"] = slices.Sorted(slices.Values(n.Required))
	}

	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}
	return result
}

func (n *schemaNode) extend(key string, value any) {
	if n.extensions == nil {
		n.extensions = map[string]any{}
	}
	n.extensions[key] = value
}

func (n *schemaNode) Digest() string {
	payload := n.inlineOpenAPI()
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildClassGraph describes the attribute values of class as an object
// schema, one property per attribute.
func buildClassGraph(class *scene.SceneClass) (*schemaNode, error) {
	if class == nil {
		return nil, fmt.Errorf("openapi: scene class cannot be nil")
	}
	node := newObjectNode()
	node.extend("x-scene-class", class.Name())
	node.extend("x-scene-interface", class.Interface().String())
	if groups := class.GroupNames(); len(groups) > 0 {
		node.extend("x-scene-groups", groups)
	}

	for _, attr := range class.Attributes() {
		child, err := attributeNode(attr)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", class.Name(), attr.Name(), err)
		}
		node.Properties[attr.Name()] = child
	}
	return node, nil
}

func attributeNode(attr *scene.Attribute) (*schemaNode, error) {
	shape, err := typeNode(attr.Type())
	if err != nil {
		return nil, err
	}
	node := &schemaNode{shape: shape}

	def, err := plainDefault(attr.Default())
	if err != nil {
		return nil, err
	}
	node.Default = def

	for _, enum := range attr.EnumValues() {
		node.Enum = append(node.Enum, enum.Value)
	}
	if len(node.Enum) > 0 {
		descriptions := make(map[string]any, len(node.Enum))
		for _, enum := range attr.EnumValues() {
			descriptions[fmt.Sprint(enum.Value)] = enum.Description
		}
		node.extend("x-scene-enum", descriptions)
	}

	node.extend("x-scene-type", attr.Type().String())
	if flags := attr.Flags(); flags != scene.FlagsNone {
		node.extend("x-scene-flags", strings.Split(flags.String(), "|"))
	}
	if attr.IsFilename() {
		node.Format = "uri-reference"
	}
	if group := attr.Group(); group != "" {
		node.extend("x-scene-group", group)
	}
	if aliases := attr.Aliases(); len(aliases) > 0 {
		node.extend("x-scene-aliases", aliases)
	}
	if attr.Type().IsObjectReference() {
		node.extend("x-scene-object-type", attr.ObjectType().String())
	}
	if keys := attr.MetadataKeys(); len(keys) > 0 {
		metadata := make(map[string]any, len(keys))
		for _, key := range keys {
			metadata[key], _ = attr.Metadata(key)
		}
		node.extend("x-scene-metadata", metadata)
	}
	return node, nil
}

// plainDefault renders a default through its JSON encoding so object
// references appear as names and vectors as arrays.
func plainDefault(v scene.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode default: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode default: %w", err)
	}
	return out, nil
}

var vectorElements = map[scene.AttributeType]scene.AttributeType{
	scene.TypeBoolVector:           scene.TypeBool,
	scene.TypeIntVector:            scene.TypeInt,
	scene.TypeLongVector:           scene.TypeLong,
	scene.TypeFloatVector:          scene.TypeFloat,
	scene.TypeDoubleVector:         scene.TypeDouble,
	scene.TypeStringVector:         scene.TypeString,
	scene.TypeRgbVector:            scene.TypeRgb,
	scene.TypeRgbaVector:           scene.TypeRgba,
	scene.TypeVec2fVector:          scene.TypeVec2f,
	scene.TypeVec2dVector:          scene.TypeVec2d,
	scene.TypeVec3fVector:          scene.TypeVec3f,
	scene.TypeVec3dVector:          scene.TypeVec3d,
	scene.TypeVec4fVector:          scene.TypeVec4f,
	scene.TypeVec4dVector:          scene.TypeVec4d,
	scene.TypeMat4fVector:          scene.TypeMat4f,
	scene.TypeMat4dVector:          scene.TypeMat4d,
	scene.TypeSceneObjectVector:    scene.TypeSceneObject,
	scene.TypeSceneObjectIndexable: scene.TypeSceneObject,
}

// typeNode maps a value tag onto its JSON wire shape.
func typeNode(tag scene.AttributeType) (*schemaNode, error) {
	switch tag {
	case scene.TypeBool:
		return &schemaNode{Type: "boolean"}, nil
	case scene.TypeInt:
		return &schemaNode{Type: "integer", Format: "int32"}, nil
	case scene.TypeLong:
		return &schemaNode{Type: "integer", Format: "int64"}, nil
	case scene.TypeFloat:
		return &schemaNode{Type: "number", Format: "float"}, nil
	case scene.TypeDouble:
		return &schemaNode{Type: "number", Format: "double"}, nil
	case scene.TypeString:
		return &schemaNode{Type: "string"}, nil
	case scene.TypeRgb, scene.TypeRgba:
		node := newObjectNode()
		node.nameHint = "Rgb"
		channels := []string{"r", "g", "b"}
		if tag == scene.TypeRgba {
			node.nameHint = "Rgba"
			channels = append(channels, "a")
		}
		for _, channel := range channels {
			node.Properties[channel] = &schemaNode{Type: "number", Format: "float"}
		}
		node.Required = channels
		return node, nil
	case scene.TypeVec2f:
		return fixedArray("Vec2f", "float", 2), nil
	case scene.TypeVec2d:
		return fixedArray("Vec2d", "double", 2), nil
	case scene.TypeVec3f:
		return fixedArray("Vec3f", "float", 3), nil
	case scene.TypeVec3d:
		return fixedArray("Vec3d", "double", 3), nil
	case scene.TypeVec4f:
		return fixedArray("Vec4f", "float", 4), nil
	case scene.TypeVec4d:
		return fixedArray("Vec4d", "double", 4), nil
	case scene.TypeMat4f:
		return fixedArray("Mat4f", "float", 16), nil
	case scene.TypeMat4d:
		return fixedArray("Mat4d", "double", 16), nil
	case scene.TypeSceneObject:
		return &schemaNode{
			Type:        "string",
			Nullable:    true,
			Description: "scene object name",
		}, nil
	}

	element, ok := vectorElements[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrUnsupportedTypeDispatch, tag)
	}
	items, err := typeNode(element)
	if err != nil {
		return nil, err
	}
	if element == scene.TypeSceneObject {
		items.Nullable = false
	}
	return &schemaNode{
		Type:        "array",
		Items:       items,
		UniqueItems: tag == scene.TypeSceneObjectIndexable,
	}, nil
}

func fixedArray(name, format string, size int) *schemaNode {
	return &schemaNode{
		Type:     "array",
		Items:    &schemaNode{Type: "number", Format: format},
		MinItems: &size,
		MaxItems: &size,
		nameHint: name,
	}
}
