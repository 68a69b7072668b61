package openapi

import (
	"regexp"
	"strconv"
	"strings"
)

// shapeIndex tracks value shapes by content digest. A shape seen twice or
// more is published once under components/schemas and referenced elsewhere.
type shapeIndex struct {
	shapes map[string]*sharedShape
	taken  map[string]bool
}

type sharedShape struct {
	name   string
	uses   int
	schema map[string]any
}

func newShapeIndex() *shapeIndex {
	return &shapeIndex{shapes: map[string]*sharedShape{}, taken: map[string]bool{}}
}

// count records one use of node. Anonymous shapes are never shared.
func (x *shapeIndex) count(node *schemaNode) {
	if node == nil || node.nameHint == "" {
		return
	}
	digest := node.Digest()
	if digest == "" {
		return
	}
	shape := x.shapes[digest]
	if shape == nil {
		shape = &sharedShape{name: x.claim(node.nameHint)}
		x.shapes[digest] = shape
	}
	shape.uses++
}

// ref returns the component reference for node, or "" when it stays inline.
func (x *shapeIndex) ref(node *schemaNode) string {
	if node == nil {
		return ""
	}
	shape := x.shapes[node.Digest()]
	if shape == nil || shape.uses < 2 {
		return ""
	}
	if shape.schema == nil {
		shape.schema = node.inlineOpenAPI()
	}
	return componentRef(shape.name)
}

// claim reserves a component name derived from hint, numbering repeats.
func (x *shapeIndex) claim(hint string) string {
	base := componentName(hint)
	name := base
	for n := 1; x.taken[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	x.taken[name] = true
	return name
}

// published returns the schemas of shared shapes rendered so far.
func (x *shapeIndex) published() map[string]any {
	out := map[string]any{}
	for _, shape := range x.shapes {
		if shape.uses >= 2 && shape.schema != nil {
			out[shape.name] = shape.schema
		}
	}
	return out
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

var nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// componentName maps hint onto the characters OpenAPI allows in component
// keys.
func componentName(hint string) string {
	name := strings.Trim(nonIdentifier.ReplaceAllString(hint, "_"), "_")
	switch {
	case name == "":
		return "Schema"
	case name[0] >= '0' && name[0] <= '9':
		return "_" + name
	}
	return name
}
