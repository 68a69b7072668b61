package openapi

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	scene "github.com/goliatone/go-scene"
)

func TestNewGeneratorOptions(t *testing.T) {
	custom := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Custom Scene", "", WithInfoDescription("custom schema")),
		WithRoutes("/scenes/shot/", "shot", WithRouteSummary("  Shot object  ")),
		WithContentType("application/vnd.scene+json"),
		WithWriteResponse("409", "ETag mismatch"),
		WithWriteResponse("", "ignored"),
		WithInterfaceFilter(scene.InterfaceGeometry),
	)

	cfg := custom.config
	if cfg.version != "3.1.0" {
		t.Fatalf("expected openapi version 3.1.0, got %q", cfg.version)
	}
	if cfg.info.title != "Custom Scene" || cfg.info.version != "1.0.0" {
		t.Fatalf("expected custom title with default version, got %+v", cfg.info)
	}
	if cfg.info.description != "custom schema" {
		t.Fatalf("expected info description, got %q", cfg.info.description)
	}
	if cfg.routes.prefix != "/scenes/shot" || cfg.routes.operationPrefix != "shot" {
		t.Fatalf("unexpected routes %+v", cfg.routes)
	}
	if cfg.routes.summary != "Shot object" {
		t.Fatalf("expected trimmed summary, got %q", cfg.routes.summary)
	}
	if cfg.contentType != "application/vnd.scene+json" {
		t.Fatalf("expected custom content type, got %q", cfg.contentType)
	}
	if len(cfg.writeResponses) != 2 || cfg.writeResponses["409"] != "ETag mismatch" || cfg.writeResponses["204"] == "" {
		t.Fatalf("unexpected write responses %v", cfg.writeResponses)
	}
	if cfg.filter != scene.InterfaceGeometry {
		t.Fatalf("expected geometry filter, got %v", cfg.filter)
	}

	if NewGenerator().config.writeResponses["409"] != "" {
		t.Fatalf("expected generators not to share write responses")
	}
}

func newTestContext(t *testing.T) *scene.Context {
	t.Helper()
	ctx := scene.NewContext()
	if _, err := ctx.DefineSceneClass("Sphere", scene.InterfaceGeometry, func(c *scene.SceneClass) error {
		scene.MustDeclare[scene.Float](c, "radius", 1, scene.WithFlags(scene.FlagBindable))
		scene.MustDeclare(c, "center", scene.Vec3f{}, scene.WithFlags(scene.FlagBlurrable))
		scene.MustDeclare(c, "pivot", scene.Vec3f{})
		scene.MustDeclare(c, "color", scene.Rgb{R: 1, G: 1, B: 1})
		return nil
	}); err != nil {
		t.Fatalf("define sphere: %v", err)
	}
	if _, err := ctx.DefineSceneClass("PointLight", scene.InterfaceLight, func(c *scene.SceneClass) error {
		scene.MustDeclare(c, "color", scene.Rgb{R: 1, G: 1, B: 1})
		return nil
	}); err != nil {
		t.Fatalf("define light: %v", err)
	}
	return ctx
}

func TestGenerateContextDocument(t *testing.T) {
	ctx := newTestContext(t)
	doc, err := NewGenerator().GenerateContext(ctx)
	if err != nil {
		t.Fatalf("GenerateContext returned error: %v", err)
	}
	if err := validateDocument(doc); err != nil {
		t.Fatalf("document failed validation: %v", err)
	}

	paths := doc["paths"].(map[string]any)
	for _, path := range []string{"/objects/Sphere/{object}", "/objects/PointLight/{object}"} {
		item, ok := paths[path].(map[string]any)
		if !ok {
			t.Fatalf("expected path %s, got %v", path, paths)
		}
		for _, method := range []string{"get", "put"} {
			operation, ok := item[method].(map[string]any)
			if !ok {
				t.Fatalf("expected %s operation on %s", method, path)
			}
			if operation["operationId"] != method+":"+path {
				t.Fatalf("unexpected operation id %v", operation["operationId"])
			}
		}
		if _, ok := item["get"].(map[string]any)["requestBody"]; ok {
			t.Fatalf("expected get without request body")
		}
	}

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	sphere, ok := schemas["Sphere"].(map[string]any)
	if !ok {
		t.Fatalf("expected Sphere component, got %v", schemas)
	}
	if _, ok := schemas["PointLight"]; !ok {
		t.Fatalf("expected PointLight component")
	}

	props := sphere["properties"].(map[string]any)
	radius := props["radius"].(map[string]any)
	if radius["type"] != "number" || radius["x-scene-type"] != "float" {
		t.Fatalf("unexpected radius schema %v", radius)
	}

	// Vec3f and Rgb are each used twice, so both become shared components.
	center := props["center"].(map[string]any)
	allOf, ok := center["allOf"].([]any)
	if !ok || len(allOf) != 1 {
		t.Fatalf("expected center to reference a shared shape, got %v", center)
	}
	if ref := allOf[0].(map[string]any)["$ref"]; ref != "#/components/schemas/Vec3f" {
		t.Fatalf("expected Vec3f reference, got %v", ref)
	}
	if _, ok := schemas["Vec3f"]; !ok {
		t.Fatalf("expected Vec3f component")
	}
	if _, ok := schemas["Rgb"]; !ok {
		t.Fatalf("expected Rgb component shared across classes")
	}
	if center["x-scene-type"] != "vec3f" {
		t.Fatalf("expected annotations next to allOf, got %v", center)
	}
}

func TestGenerateContextFilter(t *testing.T) {
	ctx := newTestContext(t)
	doc, err := NewGenerator(WithInterfaceFilter(scene.InterfaceLight)).GenerateContext(ctx)
	if err != nil {
		t.Fatalf("GenerateContext returned error: %v", err)
	}
	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["Sphere"]; ok {
		t.Fatalf("expected Sphere to be filtered out")
	}
	if _, ok := schemas["Rgb"]; ok {
		t.Fatalf("expected single-use Rgb to stay inline")
	}
}

func TestGenerateRejectsEmptyAndDuplicates(t *testing.T) {
	generator := NewGenerator()
	if _, err := generator.Generate(); err == nil {
		t.Fatalf("expected empty class list to fail")
	}
	class := scene.NewSceneClass("Empty", scene.InterfaceGeneric)
	if _, err := generator.Generate(class, class); err == nil || !strings.Contains(err.Error(), "listed twice") {
		t.Fatalf("expected duplicate class error, got %v", err)
	}
	if _, err := generator.GenerateContext(nil); err == nil {
		t.Fatalf("expected nil context to fail")
	}
}

func TestGenerateJSON(t *testing.T) {
	ctx := newTestContext(t)
	class, err := ctx.SceneClass("Sphere")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	raw, err := NewGenerator().GenerateJSON(class)
	if err != nil {
		t.Fatalf("GenerateJSON returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if decoded["openapi"] != "3.0.3" {
		t.Fatalf("expected default openapi version, got %v", decoded["openapi"])
	}
}

func TestGeneratorConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t)
	generator := NewGenerator()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := generator.GenerateContext(ctx); err != nil {
				t.Errorf("GenerateContext returned error: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestGenerateSnapshotEnvelope(t *testing.T) {
	ctx := newTestContext(t)
	class, err := ctx.SceneClass("Sphere")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	doc, err := NewGenerator(WithRoutes("shots", "store", WithRouteSummary("Sphere state"))).Generate(class)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	schemas := doc["components"].(map[string]any)["schemas"].(map[string]any)
	envelope, ok := schemas["SphereSnapshot"].(map[string]any)
	if !ok {
		t.Fatalf("expected SphereSnapshot component, got %v", schemas)
	}
	props := envelope["properties"].(map[string]any)
	if enum := props["class"].(map[string]any)["enum"].([]any); len(enum) != 1 || enum[0] != "Sphere" {
		t.Fatalf("expected class enum [Sphere], got %v", enum)
	}

	values := props["values"].(map[string]any)["properties"].(map[string]any)
	center := values["center"].(map[string]any)
	if center["minItems"] != 2 || center["maxItems"] != 2 {
		t.Fatalf("expected two slots for blurrable center, got %v", center)
	}
	if ref := center["items"].(map[string]any)["$ref"]; ref != "#/components/schemas/Sphere/properties/center" {
		t.Fatalf("unexpected center item ref %v", ref)
	}
	if radius := values["radius"].(map[string]any); radius["maxItems"] != 1 {
		t.Fatalf("expected one slot for radius, got %v", radius)
	}

	bindings := props["bindings"].(map[string]any)["properties"].(map[string]any)
	if _, ok := bindings["radius"]; !ok || len(bindings) != 1 {
		t.Fatalf("expected only radius to be bindable, got %v", bindings)
	}

	item := doc["paths"].(map[string]any)["/shots/Sphere/{object}"].(map[string]any)
	get := item["get"].(map[string]any)
	if get["operationId"] != "storeGetSphere" || get["summary"] != "Sphere state" {
		t.Fatalf("unexpected get operation %v", get)
	}
	put := item["put"].(map[string]any)
	if put["operationId"] != "storePutSphere" {
		t.Fatalf("unexpected put operation id %v", put["operationId"])
	}
	content := put["requestBody"].(map[string]any)["content"].(map[string]any)
	schema := content["application/json"].(map[string]any)["schema"].(map[string]any)
	if schema["$ref"] != "#/components/schemas/SphereSnapshot" {
		t.Fatalf("expected put body to reference the envelope, got %v", schema)
	}
	if _, ok := put["responses"].(map[string]any)["204"]; !ok {
		t.Fatalf("expected default 204 write response")
	}
}

func TestValidateDocumentRequiresPutBody(t *testing.T) {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "t", "version": "1"},
		"paths": map[string]any{
			"/objects/A/{object}": map[string]any{
				"get": map[string]any{
					"operationId": "get",
					"responses":   map[string]any{"200": map[string]any{"description": "ok"}},
				},
			},
		},
	}
	if err := validateDocument(doc); err != nil {
		t.Fatalf("expected get without body to validate, got %v", err)
	}
	doc["paths"].(map[string]any)["/objects/A/{object}"].(map[string]any)["put"] = map[string]any{
		"operationId": "put",
		"responses":   map[string]any{"204": map[string]any{"description": "ok"}},
	}
	if err := validateDocument(doc); err == nil || !strings.Contains(err.Error(), "requestBody") {
		t.Fatalf("expected missing put body error, got %v", err)
	}
}
