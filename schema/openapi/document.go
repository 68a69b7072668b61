package openapi

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	scene "github.com/goliatone/go-scene"
)

type classRoot struct {
	class *scene.SceneClass
	node  *schemaNode
}

func (r classRoot) name() string { return r.class.Name() }

type openAPIDocumentBuilder struct {
	config generatorConfig
	shapes *shapeIndex
	roots  []classRoot
}

func newOpenAPIDocumentBuilder(config generatorConfig, roots []classRoot) *openAPIDocumentBuilder {
	return &openAPIDocumentBuilder{
		config: config,
		shapes: newShapeIndex(),
		roots:  roots,
	}
}

func (b *openAPIDocumentBuilder) build() (map[string]any, error) {
	if len(b.roots) == 0 {
		return nil, fmt.Errorf("openapi: at least one scene class is required")
	}

	// Class and envelope names are claimed before any shared shape.
	classNames := make([]string, len(b.roots))
	snapshotNames := make([]string, len(b.roots))
	for i, root := range b.roots {
		classNames[i] = b.shapes.claim(root.name())
	}
	for i, root := range b.roots {
		snapshotNames[i] = b.shapes.claim(root.name() + "Snapshot")
	}
	for _, root := range b.roots {
		b.observe(root.node)
	}

	schemas := map[string]any{}
	paths := map[string]any{}
	for i, root := range b.roots {
		schemas[classNames[i]] = b.schemaFor(root.node)
		schemas[snapshotNames[i]] = snapshotSchema(root.class, componentRef(classNames[i]))
		path, item := b.pathItem(root.name(), componentRef(snapshotNames[i]))
		paths[path] = item
	}
	maps.Copy(schemas, b.shapes.published())

	document := map[string]any{
		"openapi":    b.config.version,
		"info":       b.info(),
		"paths":      paths,
		"components": map[string]any{"schemas": schemas},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

// observe walks node counting every value shape use.
func (b *openAPIDocumentBuilder) observe(node *schemaNode) {
	if node == nil {
		return
	}
	b.shapes.count(node)
	b.observe(node.shape)
	b.observe(node.Items)
	for _, child := range node.Properties {
		b.observe(child)
	}
}

func (b *openAPIDocumentBuilder) info() map[string]any {
	out := map[string]any{
		"title":   b.config.info.title,
		"version": b.config.info.version,
	}
	if b.config.info.description != "" {
		out["description"] = b.config.info.description
	}
	return out
}

// pathItem describes reading and writing the stored snapshot of one object.
func (b *openAPIDocumentBuilder) pathItem(class, snapshotRef string) (string, map[string]any) {
	path := b.config.routes.prefix + "/" + class + "/{object}"
	body := map[string]any{
		b.config.contentType: map[string]any{
			"schema": map[string]any{"$ref": snapshotRef},
		},
	}

	get := b.operation("get", path, class)
	get["responses"] = map[string]any{
		"200": map[string]any{"description": "Stored snapshot", "content": body},
		"404": map[string]any{"description": "No snapshot stored"},
	}

	put := b.operation("put", path, class)
	put["requestBody"] = map[string]any{"required": true, "content": body}
	responses := make(map[string]any, len(b.config.writeResponses))
	for status, description := range b.config.writeResponses {
		responses[status] = map[string]any{"description": description}
	}
	put["responses"] = responses

	return path, map[string]any{"get": get, "put": put}
}

func (b *openAPIDocumentBuilder) operation(method, path, class string) map[string]any {
	id := method + ":" + path
	if prefix := b.config.routes.operationPrefix; prefix != "" {
		id = prefix + strings.ToUpper(method[:1]) + method[1:] + class
	}
	op := map[string]any{
		"operationId": id,
		"parameters": []any{
			map[string]any{
				"name":        "object",
				"in":          "path",
				"required":    true,
				"description": "scene object name",
				"schema":      map[string]any{"type": "string"},
			},
		},
	}
	if b.config.routes.summary != "" {
		op["summary"] = b.config.routes.summary
	}
	return op
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// snapshotSchema mirrors the persisted state.Snapshot of class: one JSON
// value per timestep slot and the producer name of each bound attribute.
func snapshotSchema(class *scene.SceneClass, classRef string) map[string]any {
	values := map[string]any{}
	bindings := map[string]any{}
	for _, attr := range class.Attributes() {
		slots := len(attr.Timesteps())
		values[attr.Name()] = map[string]any{
			"type":     "array",
			"minItems": slots,
			"maxItems": slots,
			"items":    map[string]any{"$ref": classRef + "/properties/" + pointerEscaper.Replace(attr.Name())},
		}
		if attr.IsBindable() {
			bindings[attr.Name()] = map[string]any{
				"type":        "string",
				"description": "producer object name",
			}
		}
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"class", "values"},
		"properties": map[string]any{
			"class":  map[string]any{"type": "string", "enum": []any{class.Name()}},
			"values": map[string]any{"type": "object", "properties": values},
			"bindings": map[string]any{
				"type":                 "object",
				"properties":           bindings,
				"additionalProperties": false,
			},
		},
	}
}

// schemaFor renders node, replacing published value shapes with references.
func (b *openAPIDocumentBuilder) schemaFor(node *schemaNode) map[string]any {
	if node == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if node.shape != nil {
		return b.annotated(node)
	}
	if ref := b.shapes.ref(node); ref != "" {
		return map[string]any{"$ref": ref}
	}

	result := node.baseMap()
	if len(node.Properties) > 0 || node.Type == "object" {
		props := make(map[string]any, len(node.Properties))
		for _, key := range slices.Sorted(maps.Keys(node.Properties)) {
			props[key] = b.schemaFor(node.Properties[key])
		}
		result["properties"] = props
	}
	if len(node.Required) > 0 {
		result["required"] = slices.Sorted(slices.Values(node.Required))
	}
	if node.Items != nil {
		result["items"] = b.schemaFor(node.Items)
	}
	return result
}

// annotated renders an attribute: its wire shape, either inline or through
// allOf when the shape is a shared component, plus its annotations.
func (b *openAPIDocumentBuilder) annotated(node *schemaNode) map[string]any {
	shape := b.schemaFor(node.shape)
	annotations := *node
	annotations.shape = nil

	var result map[string]any
	if _, isRef := shape["$ref"]; isRef {
		result = map[string]any{"allOf": []any{shape}}
	} else {
		result = shape
	}
	maps.Copy(result, annotations.baseMap())
	return result
}

func validateDocument(document map[string]any) error {
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for path, value := range paths {
		item, _ := value.(map[string]any)
		if len(item) == 0 {
			return fmt.Errorf("openapi: path %q has no operations", path)
		}
		for method, raw := range item {
			op, _ := raw.(map[string]any)
			if id, _ := op["operationId"].(string); id == "" {
				return fmt.Errorf("openapi: %s %s missing operationId", method, path)
			}
			if responses, _ := op["responses"].(map[string]any); len(responses) == 0 {
				return fmt.Errorf("openapi: %s %s has no responses", method, path)
			}
			if method != "put" {
				continue
			}
			body, _ := op["requestBody"].(map[string]any)
			if content, _ := body["content"].(map[string]any); len(content) == 0 {
				return fmt.Errorf("openapi: %s %s requestBody missing content", method, path)
			}
		}
	}
	return nil
}
