package scene

import "weak"

// SetBinding makes producer supply the value of name. A nil producer clears
// the binding. The binding does not keep producer alive; once the producer is
// collected or removed from its context the attribute reads its stored value
// again. Fails with ErrNotBindable, leaving any prior binding in place, when
// the attribute is not bindable.
func (o *SceneObject) SetBinding(name string, producer *SceneObject) error {
	attr, err := o.attribute("set_binding", name)
	if err != nil {
		return err
	}
	if attr.bindIndex < 0 {
		return o.attrError("set_binding", attr.name, ErrNotBindable)
	}
	var ref weak.Pointer[SceneObject]
	if producer != nil {
		ref = weak.Make(producer)
	}
	return o.mutate("set_binding", attr.name, func() error {
		o.bindings[attr.bindIndex] = ref
		o.changes.pending.bindings.set(attr.bindIndex)
		return nil
	})
}

// Binding returns the live producer bound to name, or nil.
func (o *SceneObject) Binding(name string) (*SceneObject, error) {
	attr, err := o.attribute("binding", name)
	if err != nil {
		return nil, err
	}
	if attr.bindIndex < 0 {
		return nil, o.attrError("binding", attr.name, ErrNotBindable)
	}
	return o.producer(attr), nil
}

// Bindings returns the live bindings keyed by attribute name.
func (o *SceneObject) Bindings() map[string]*SceneObject {
	out := map[string]*SceneObject{}
	for _, attr := range o.attrs {
		if producer := o.producer(attr); producer != nil {
			out[attr.name] = producer
		}
	}
	return out
}

// IsBound reports whether name currently has a live producer.
func (o *SceneObject) IsBound(name string) (bool, error) {
	producer, err := o.Binding(name)
	if err != nil {
		return false, err
	}
	return producer != nil, nil
}
