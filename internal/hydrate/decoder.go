// Package hydrate turns snapshot payloads back into typed attribute values.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context names the attribute a payload belongs to; it only shapes errors.
type Context struct {
	Object    string
	Attribute string
	Type      string
}

func (c Context) String() string {
	switch {
	case c.Object != "" && c.Attribute != "":
		return c.Object + "." + c.Attribute
	case c.Attribute != "":
		return c.Attribute
	case c.Type != "":
		return c.Type
	}
	return "payload"
}

// Normalizer rewrites a payload before it is decoded. Returning nil keeps
// the payload unchanged.
type Normalizer func(Context, any) (any, error)

// Validator inspects or adjusts a decoded value.
type Validator[T any] func(Context, *T) error

// Fallback decodes payloads that are neither T nor raw JSON, replacing the
// JSON round trip.
type Fallback[T any] func(Context, any) (T, error)

type Option[T any] func(*Decoder[T])

// Decoder converts payloads to T. Accepted payloads are values of type T,
// raw JSON (json.RawMessage or []byte) and trees produced by decoding JSON
// into any.
type Decoder[T any] struct {
	strict    bool
	nullable  bool
	useNumber bool
	normalize []Normalizer
	validate  []Validator[T]
	fallback  Fallback[T]
}

// Strict rejects object keys T does not declare.
func Strict[T any]() Option[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

// Nullable decodes a nil payload or JSON null to the zero value of T.
func Nullable[T any]() Option[T] {
	return func(d *Decoder[T]) { d.nullable = true }
}

// UseNumber keeps numbers as json.Number when T holds them as any.
func UseNumber[T any]() Option[T] {
	return func(d *Decoder[T]) { d.useNumber = true }
}

func WithNormalizer[T any](fn Normalizer) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.normalize = append(d.normalize, fn)
		}
	}
}

func WithValidator[T any](fn Validator[T]) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.validate = append(d.validate, fn)
		}
	}
}

func WithFallback[T any](fn Fallback[T]) Option[T] {
	return func(d *Decoder[T]) { d.fallback = fn }
}

func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload to T. Validators run on every successful result,
// including payloads that already had type T.
func (d *Decoder[T]) Decode(ctx Context, payload any) (T, error) {
	var out T
	for _, fn := range d.normalize {
		next, err := fn(ctx, payload)
		if err != nil {
			return out, fmt.Errorf("hydrate: normalize %s: %w", ctx, err)
		}
		if next != nil {
			payload = next
		}
	}

	var err error
	switch p := payload.(type) {
	case nil:
		if !d.nullable {
			return out, fmt.Errorf("hydrate: %s is null", ctx)
		}
	case T:
		out = p
	case json.RawMessage:
		out, err = d.unmarshal(ctx, p)
	case []byte:
		out, err = d.unmarshal(ctx, p)
	default:
		if d.fallback != nil {
			if out, err = d.fallback(ctx, payload); err != nil {
				err = fmt.Errorf("hydrate: fallback %s: %w", ctx, err)
			}
			break
		}
		var raw []byte
		if raw, err = json.Marshal(payload); err != nil {
			err = fmt.Errorf("hydrate: encode %s: %w", ctx, err)
			break
		}
		out, err = d.unmarshal(ctx, raw)
	}
	if err != nil {
		var zero T
		return zero, err
	}

	for _, fn := range d.validate {
		if err := fn(ctx, &out); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: validate %s: %w", ctx, err)
		}
	}
	return out, nil
}

func (d *Decoder[T]) unmarshal(ctx Context, raw []byte) (T, error) {
	var out T
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) && !d.nullable {
		return out, fmt.Errorf("hydrate: %s is null", ctx)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}
	if dec.More() {
		return out, fmt.Errorf("hydrate: decode %s: trailing data", ctx)
	}
	return out, nil
}
