package scene

import (
	"encoding/json"
	"fmt"
)

// Trace captures where a resolved attribute value came from. Layers are
// listed in lookup order: the binding producer first, then the object's own
// stored slot.
type Trace struct {
	Object    string       `json:"object"`
	Attribute string       `json:"attribute"`
	Timestep  string       `json:"timestep"`
	Layers    []Provenance `json:"layers"`
}

// Provenance details how one source contributed to a traced read.
type Provenance struct {
	Source  string `json:"source"`
	Object  string `json:"object"`
	Value   any    `json:"value,omitempty"`
	Found   bool   `json:"found"`
	Default bool   `json:"default,omitempty"`
}

// Provenance sources.
const (
	SourceBinding = "binding"
	SourceStored  = "stored"
)

// ResolveWithTrace reads name at ts like GetAt and reports the sources that
// were consulted. The effective value is the first layer with Found set.
func (o *SceneObject) ResolveWithTrace(name string, ts Timestep) (Value, Trace, error) {
	attr, err := o.attribute("trace", name)
	if err != nil {
		return Value{}, Trace{}, err
	}
	idx, err := attr.slotFor(ts, o.cfg.config.TimestepPolicy)
	if err != nil {
		return Value{}, Trace{}, o.attrError("trace", attr.name, err)
	}
	value, err := o.GetAt(attr.name, ts)
	if err != nil {
		return Value{}, Trace{}, err
	}

	trace := Trace{Object: o.name, Attribute: attr.name, Timestep: ts.String()}
	if attr.IsBindable() {
		layer := Provenance{Source: SourceBinding}
		if producer := o.producer(attr); producer != nil {
			layer.Object = producer.name
			layer.Found = true
			layer.Value = plainValue(value.data)
		}
		trace.Layers = append(trace.Layers, layer)
	}

	stored := o.slots[idx]
	trace.Layers = append(trace.Layers, Provenance{
		Source:  SourceStored,
		Object:  o.name,
		Value:   plainValue(stored),
		Found:   true,
		Default: attr.dispatch.equal(stored, attr.dispatch.materialize(attr.def)),
	})
	return value, trace, nil
}

// Effective returns the layer that supplied the value.
func (t Trace) Effective() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

func (t Trace) String() string {
	layer, ok := t.Effective()
	if !ok {
		return fmt.Sprintf("%s.%s@%s: unresolved", t.Object, t.Attribute, t.Timestep)
	}
	return fmt.Sprintf("%s.%s@%s: %s from %s", t.Object, t.Attribute, t.Timestep, layer.Source, layer.Object)
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
