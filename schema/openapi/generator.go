package openapi

import (
	"encoding/json"
	"fmt"

	scene "github.com/goliatone/go-scene"
)

// Generator exports scene classes as an OpenAPI document: one component per
// class describing its attribute values, shared components for value shapes
// used more than once, and get/put snapshot routes per class.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI generator.
func NewGenerator(opts ...GeneratorOption) Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Generator{config: cfg}
}

// Generate builds the document for classes, in the given order.
func (g Generator) Generate(classes ...*scene.SceneClass) (map[string]any, error) {
	roots := make([]classRoot, 0, len(classes))
	seen := map[string]bool{}
	for _, class := range classes {
		node, err := buildClassGraph(class)
		if err != nil {
			return nil, err
		}
		if seen[class.Name()] {
			return nil, fmt.Errorf("openapi: scene class %q listed twice", class.Name())
		}
		seen[class.Name()] = true
		roots = append(roots, classRoot{class: class, node: node})
	}
	return newOpenAPIDocumentBuilder(g.config, roots).build()
}

// GenerateContext builds the document for every class registered in ctx
// that passes the interface filter.
func (g Generator) GenerateContext(ctx *scene.Context) (map[string]any, error) {
	if ctx == nil {
		return nil, fmt.Errorf("openapi: context cannot be nil")
	}
	var classes []*scene.SceneClass
	for _, class := range ctx.SceneClasses() {
		if g.config.filter != 0 && !class.Interface().Has(g.config.filter) {
			continue
		}
		classes = append(classes, class)
	}
	return g.Generate(classes...)
}

// GenerateJSON is Generate followed by indented JSON encoding.
func (g Generator) GenerateJSON(classes ...*scene.SceneClass) ([]byte, error) {
	document, err := g.Generate(classes...)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(document, "", "  ")
}
