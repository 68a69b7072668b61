package scene

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveWithTraceReturnsLayerProvenance(t *testing.T) {
	fx := newSphereFixture(t)
	mustUpdate(t, fx.sphere, func() error { return fx.sphere.SetBinding("radius", fx.driver) })

	value, trace, err := fx.sphere.ResolveWithTrace("r", TimestepBegin)
	if err != nil {
		t.Fatalf("ResolveWithTrace: %v", err)
	}
	if v, _ := ValueAs[Float](value); v != 5 {
		t.Fatalf("expected bound value 5, got %v", value)
	}
	if trace.Object != "sphere" || trace.Attribute != "radius" || trace.Timestep != "begin" {
		t.Fatalf("unexpected trace header %+v", trace)
	}
	if len(trace.Layers) != 2 {
		t.Fatalf("expected binding and stored layers, got %+v", trace.Layers)
	}

	binding := trace.Layers[0]
	if binding.Source != SourceBinding || binding.Object != "driver" || !binding.Found || binding.Value != float64(5) {
		t.Fatalf("unexpected binding layer %+v", binding)
	}
	stored := trace.Layers[1]
	if stored.Source != SourceStored || stored.Value != float64(1) || !stored.Default {
		t.Fatalf("unexpected stored layer %+v", stored)
	}

	effective, ok := trace.Effective()
	if !ok || effective.Source != SourceBinding {
		t.Fatalf("expected binding to be effective, got %+v", effective)
	}
	if got := trace.String(); got != "sphere.radius@begin: binding from driver" {
		t.Fatalf("unexpected String %q", got)
	}
}

func TestResolveWithTraceUnbound(t *testing.T) {
	fx := newSphereFixture(t)
	mustUpdate(t, fx.sphere, func() error {
		return SetAt(fx.sphere, fx.center, Vec3f{1, 2, 3}, TimestepEnd)
	})

	_, trace, err := fx.sphere.ResolveWithTrace("center", TimestepEnd)
	if err != nil {
		t.Fatalf("ResolveWithTrace: %v", err)
	}
	if len(trace.Layers) != 1 {
		t.Fatalf("expected only the stored layer for a plain attribute, got %+v", trace.Layers)
	}
	stored := trace.Layers[0]
	if stored.Default || !reflect.DeepEqual(stored.Value, []any{1.0, 2.0, 3.0}) {
		t.Fatalf("unexpected stored layer %+v", stored)
	}

	_, trace, err = fx.sphere.ResolveWithTrace("radius", TimestepBegin)
	if err != nil {
		t.Fatalf("ResolveWithTrace: %v", err)
	}
	if trace.Layers[0].Found {
		t.Fatalf("expected unbound binding layer not to be found")
	}
	if effective, _ := trace.Effective(); effective.Source != SourceStored {
		t.Fatalf("expected stored layer to be effective, got %+v", effective)
	}
}

func TestResolveWithTraceAfterProducerRemoval(t *testing.T) {
	fx := newSphereFixture(t)
	mustUpdate(t, fx.sphere, func() error { return fx.sphere.SetBinding("radius", fx.driver) })
	if err := fx.ctx.RemoveSceneObject("driver"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	value, trace, err := fx.sphere.ResolveWithTrace("radius", TimestepBegin)
	if err != nil {
		t.Fatalf("ResolveWithTrace: %v", err)
	}
	if v, _ := ValueAs[Float](value); v != 1 {
		t.Fatalf("expected stored value once the producer is gone, got %v", value)
	}
	if trace.Layers[0].Found || trace.Layers[0].Object != "" {
		t.Fatalf("expected empty binding layer, got %+v", trace.Layers[0])
	}
}

func TestResolveWithTraceErrors(t *testing.T) {
	fx := newSphereFixture(t)
	if _, _, err := fx.sphere.ResolveWithTrace("missing", TimestepBegin); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	if _, _, err := fx.sphere.ResolveWithTrace("radius", TimestepEnd); !errors.Is(err, ErrInvalidTimestep) {
		t.Fatalf("expected ErrInvalidTimestep, got %v", err)
	}
	if got := (Trace{Object: "o", Attribute: "a", Timestep: "begin"}).String(); got != "o.a@begin: unresolved" {
		t.Fatalf("unexpected String for empty trace %q", got)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	fx := newSphereFixture(t)
	mustUpdate(t, fx.sphere, func() error { return fx.sphere.SetBinding("radius", fx.driver) })

	_, trace, err := fx.sphere.ResolveWithTrace("radius", TimestepBegin)
	if err != nil {
		t.Fatalf("ResolveWithTrace: %v", err)
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("TraceFromJSON: %v", err)
	}
	if !reflect.DeepEqual(decoded, trace) {
		t.Fatalf("expected round trip to preserve the trace\nwant %+v\ngot  %+v", trace, decoded)
	}

	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}
