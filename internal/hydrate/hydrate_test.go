package hydrate

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type color struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}

func TestDecodeScalarsAndSequences(t *testing.T) {
	ctx := Context{Object: "/sphere", Attribute: "radius"}

	radius, err := NewDecoder[float32]().Decode(ctx, float64(2.5))
	if err != nil {
		t.Fatalf("decode float: %v", err)
	}
	if radius != 2.5 {
		t.Fatalf("expected 2.5, got %v", radius)
	}

	center, err := NewDecoder[[3]float32]().Decode(ctx, []any{1.0, 2.0, 3.0})
	if err != nil {
		t.Fatalf("decode vec3: %v", err)
	}
	if center != [3]float32{1, 2, 3} {
		t.Fatalf("unexpected vec3 %v", center)
	}

	ids, err := NewDecoder[[]int64]().Decode(ctx, []int64{1 << 60, 7})
	if err != nil {
		t.Fatalf("decode long vector: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{1 << 60, 7}) {
		t.Fatalf("unexpected long vector %v", ids)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	dec := NewDecoder[color](Strict[color]())
	_, err := dec.Decode(Context{Attribute: "tint"}, map[string]any{"r": 1, "x": 2})
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
	if !strings.Contains(err.Error(), "tint") {
		t.Fatalf("expected attribute name in error, got %v", err)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	if _, err := NewDecoder[[]float32]().Decode(Context{Type: "float_vector"}, nil); err == nil {
		t.Fatalf("expected nil payload error")
	}

	out, err := NewDecoder[[]float32](Nullable[[]float32]()).Decode(Context{}, nil)
	if err != nil {
		t.Fatalf("allow null: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil slice, got %v", out)
	}
}

func TestDecodeHooks(t *testing.T) {
	splitHex := func(_ Context, payload any) (any, error) {
		value, ok := payload.(string)
		if !ok {
			return payload, nil
		}
		switch value {
		case "red":
			return map[string]any{"r": 1}, nil
		default:
			return nil, errors.New("unknown color name " + value)
		}
	}
	clamp := func(_ Context, c *color) error {
		if c.R > 1 {
			c.R = 1
		}
		return nil
	}

	dec := NewDecoder[color](
		WithNormalizer[color](splitHex),
		WithValidator[color](clamp),
	)

	got, err := dec.Decode(Context{Attribute: "tint"}, "red")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (color{R: 1}) {
		t.Fatalf("unexpected color %+v", got)
	}

	if _, err := dec.Decode(Context{Attribute: "tint"}, "teal"); err == nil || !strings.Contains(err.Error(), "normalize tint") {
		t.Fatalf("expected normalize error, got %v", err)
	}

	clamped, err := dec.Decode(Context{}, color{R: 4})
	if err != nil {
		t.Fatalf("decode typed: %v", err)
	}
	if clamped.R != 1 {
		t.Fatalf("expected validator to run on typed payload, got %+v", clamped)
	}
}

func TestFallbackDecoder(t *testing.T) {
	dec := NewDecoder[bool](WithFallback[bool](func(_ Context, payload any) (bool, error) {
		s, _ := payload.(string)
		return s == "on", nil
	}))
	got, err := dec.Decode(Context{}, "on")
	if err != nil || !got {
		t.Fatalf("expected true, got %v (%v)", got, err)
	}
}

func TestDecodeRawJSON(t *testing.T) {
	dec := NewDecoder[color](Strict[color]())
	got, err := dec.Decode(Context{Object: "sphere", Attribute: "color"}, json.RawMessage(`{"r":0.25,"g":0.5,"b":1}`))
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if got != (color{R: 0.25, G: 0.5, B: 1}) {
		t.Fatalf("unexpected color %+v", got)
	}

	if _, err := dec.Decode(Context{}, []byte(`{"r":1} {"r":2}`)); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error, got %v", err)
	}
	if _, err := dec.Decode(Context{Object: "sphere", Attribute: "color"}, json.RawMessage(`null`)); err == nil || !strings.Contains(err.Error(), "sphere.color") {
		t.Fatalf("expected null error naming the attribute, got %v", err)
	}

	names, err := NewDecoder[[]string](Nullable[[]string]()).Decode(Context{}, json.RawMessage(`null`))
	if err != nil || names != nil {
		t.Fatalf("expected nil names from null, got %v (%v)", names, err)
	}
}

func TestUseNumber(t *testing.T) {
	got, err := NewDecoder[map[string]any](UseNumber[map[string]any]()).Decode(Context{}, json.RawMessage(`{"id":9007199254740993}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n, ok := got["id"].(json.Number); !ok || n.String() != "9007199254740993" {
		t.Fatalf("expected exact json.Number, got %#v", got["id"])
	}
}
