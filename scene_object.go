package scene

import (
	"fmt"
	"time"
	"weak"

	"github.com/google/uuid"
)

// Slot addresses one timestep of a named attribute.
type Slot struct {
	Name     string
	Timestep Timestep
}

// SceneObject is one schema-bound instance holding attribute values,
// bindings and change state. A SceneObject is owned by the registry that
// created it; every other reference to it, bindings included, is non-owning.
//
// A SceneObject is not safe for concurrent mutation. Concurrent reads are
// safe in the absence of a writer.
type SceneObject struct {
	id    uuid.UUID
	name  string
	class *SceneClass
	iface Interface

	attrs    []*Attribute
	slots    []any
	bindings []weak.Pointer[SceneObject]
	changes  changeTracker

	depth   int
	started time.Time
	removed bool

	cfg   *contextConfig
	owner *Context
}

// NewSceneObject instantiates class outside of any Context. The class is
// frozen by the first instantiation.
func NewSceneObject(class *SceneClass, name string, opts ...Option) *SceneObject {
	return newSceneObject(class, name, applyOptions(opts), nil)
}

func newSceneObject(class *SceneClass, name string, cfg *contextConfig, owner *Context) *SceneObject {
	attrs, numSlots, numBindings := class.freeze()
	o := &SceneObject{
		id:       uuid.New(),
		name:     name,
		class:    class,
		iface:    class.iface,
		attrs:    attrs,
		slots:    make([]any, numSlots),
		bindings: make([]weak.Pointer[SceneObject], numBindings),
		changes:  newChangeTracker(len(attrs), numBindings),
		cfg:      cfg,
		owner:    owner,
	}
	for _, attr := range attrs {
		for i := 0; i < attr.numSlots(); i++ {
			o.slots[attr.slot+i] = attr.dispatch.materialize(attr.def)
		}
	}
	return o
}

// ID returns the instance identifier.
func (o *SceneObject) ID() uuid.UUID { return o.id }

// Name returns the object name.
func (o *SceneObject) Name() string { return o.name }

// Class returns the scene class the object is bound to.
func (o *SceneObject) Class() *SceneClass { return o.class }

// Interface returns the capability bitmask.
func (o *SceneObject) Interface() Interface { return o.iface }

// IsA reports whether the object satisfies iface.
func (o *SceneObject) IsA(iface Interface) bool {
	return o.iface&iface != 0
}

// Context returns the owning registry, or nil for standalone objects.
func (o *SceneObject) Context() *Context { return o.owner }

// Contains reports whether name or alias resolves to an attribute.
func (o *SceneObject) Contains(name string) bool {
	return o.class.HasAttribute(name)
}

func (o *SceneObject) attribute(op, name string) (*Attribute, error) {
	attr, err := o.class.Attribute(name)
	if err != nil {
		return nil, o.attrError(op, name, err)
	}
	return attr, nil
}

func (o *SceneObject) checkOwn(op string, attr *Attribute) error {
	if attr == nil {
		return o.attrError(op, "", fmt.Errorf("%w: nil attribute", ErrUnknownAttribute))
	}
	if attr.class != o.class {
		return o.attrError(op, attr.name, fmt.Errorf("%w: %s", ErrClassMismatch, attr.class.name))
	}
	return nil
}

// Get returns the begin timestep value of name, resolved through its binding.
func (o *SceneObject) Get(name string) (Value, error) {
	return o.GetAt(name, TimestepBegin)
}

// GetAt returns the value of name at ts, resolved through its binding.
func (o *SceneObject) GetAt(name string, ts Timestep) (Value, error) {
	attr, err := o.attribute("get", name)
	if err != nil {
		return Value{}, err
	}
	slot, err := o.resolve(attr, ts)
	if err != nil {
		return Value{}, o.attrError("get", attr.name, err)
	}
	return attr.dispatch.read(slot), nil
}

// GetSlot is GetAt keyed by a (name, timestep) pair.
func (o *SceneObject) GetSlot(s Slot) (Value, error) {
	return o.GetAt(s.Name, s.Timestep)
}

// GetStored returns the stored value of name at ts, ignoring any binding.
func (o *SceneObject) GetStored(name string, ts Timestep) (Value, error) {
	attr, err := o.attribute("get", name)
	if err != nil {
		return Value{}, err
	}
	idx, err := attr.slotFor(ts, o.cfg.config.TimestepPolicy)
	if err != nil {
		return Value{}, o.attrError("get", attr.name, err)
	}
	return attr.dispatch.read(o.slots[idx]), nil
}

// resolve returns the slot content read for attr at ts. A live binding defers
// to the producer's stored slot for the same-named attribute; producers are
// not followed further.
func (o *SceneObject) resolve(attr *Attribute, ts Timestep) (any, error) {
	idx, err := attr.slotFor(ts, o.cfg.config.TimestepPolicy)
	if err != nil {
		return nil, err
	}
	producer := o.producer(attr)
	if producer == nil {
		return o.slots[idx], nil
	}
	source, err := producer.class.Attribute(attr.name)
	if err != nil {
		return nil, fmt.Errorf("producer %q: %w", producer.name, err)
	}
	if source.typ != attr.typ {
		return nil, fmt.Errorf("%w: producer %q has %s, want %s", ErrTypeMismatch, producer.name, source.typ, attr.typ)
	}
	pidx, err := source.slotFor(ts, TimestepAlias)
	if err != nil {
		return nil, err
	}
	return producer.slots[pidx], nil
}

func (o *SceneObject) producer(attr *Attribute) *SceneObject {
	if attr.bindIndex < 0 {
		return nil
	}
	producer := o.bindings[attr.bindIndex].Value()
	if producer == nil || producer.removed {
		return nil
	}
	return producer
}

// Set stores v in the begin timestep of name.
func (o *SceneObject) Set(name string, v Value) error {
	return o.SetAt(name, v, TimestepBegin)
}

// SetAt stores v in the ts slot of name. The tag of v must equal the
// attribute's declared tag.
func (o *SceneObject) SetAt(name string, v Value, ts Timestep) error {
	attr, err := o.attribute("set", name)
	if err != nil {
		return err
	}
	return o.store("set", attr, v, ts)
}

// SetSlot is SetAt keyed by a (name, timestep) pair.
func (o *SceneObject) SetSlot(s Slot, v Value) error {
	return o.SetAt(s.Name, v, s.Timestep)
}

// SetAny wraps x with ValueOf and stores it in the begin timestep of name.
func (o *SceneObject) SetAny(name string, x any) error {
	v, err := ValueOf(x)
	if err != nil {
		return o.attrError("set", name, err)
	}
	return o.Set(name, v)
}

func (o *SceneObject) store(op string, attr *Attribute, v Value, ts Timestep) error {
	idx, err := attr.slotFor(ts, o.cfg.config.TimestepPolicy)
	if err != nil {
		return o.attrError(op, attr.name, err)
	}
	content, err := attr.dispatch.write(v)
	if err != nil {
		return o.attrError(op, attr.name, err)
	}
	if err := checkReferences(attr, content); err != nil {
		return o.attrError(op, attr.name, err)
	}
	return o.mutate(op, attr.name, func() error {
		o.slots[idx] = content
		o.changes.pending.values.set(attr.index)
		return nil
	})
}

// IsDefault reports whether every stored slot of name equals the default.
// Bindings are not consulted.
func (o *SceneObject) IsDefault(name string) (bool, error) {
	attr, err := o.attribute("is_default", name)
	if err != nil {
		return false, err
	}
	return o.isDefault(attr), nil
}

func (o *SceneObject) isDefault(attr *Attribute) bool {
	def := attr.dispatch.materialize(attr.def)
	for i := 0; i < attr.numSlots(); i++ {
		if !attr.dispatch.equal(liveReferences(o.slots[attr.slot+i]), def) {
			return false
		}
	}
	return true
}

// IsDefaultAndUnbound reports whether name holds its default and has no live
// binding.
func (o *SceneObject) IsDefaultAndUnbound(name string) (bool, error) {
	attr, err := o.attribute("is_default", name)
	if err != nil {
		return false, err
	}
	return o.isDefault(attr) && o.producer(attr) == nil, nil
}

// ResetToDefault restores the default into every slot of name and marks it
// changed.
func (o *SceneObject) ResetToDefault(name string) error {
	attr, err := o.attribute("reset", name)
	if err != nil {
		return err
	}
	return o.mutate("reset", attr.name, func() error {
		o.resetSlots(attr)
		return nil
	})
}

// ResetAllToDefault applies ResetToDefault to every attribute of the class.
func (o *SceneObject) ResetAllToDefault() error {
	return o.mutate("reset_all", "", func() error {
		for _, attr := range o.attrs {
			o.resetSlots(attr)
		}
		return nil
	})
}

func (o *SceneObject) resetSlots(attr *Attribute) {
	for i := 0; i < attr.numSlots(); i++ {
		o.slots[attr.slot+i] = attr.dispatch.materialize(attr.def)
	}
	o.changes.pending.values.set(attr.index)
}

// CopyAll copies every stored value and binding of source, which must share
// the object's class.
func (o *SceneObject) CopyAll(source *SceneObject) error {
	if err := o.sameClass("copy_all", source); err != nil {
		return err
	}
	return o.mutate("copy_all", "", func() error {
		for _, attr := range o.attrs {
			o.copySlots(attr, source)
			if attr.bindIndex >= 0 && o.bindings[attr.bindIndex] != source.bindings[attr.bindIndex] {
				o.bindings[attr.bindIndex] = source.bindings[attr.bindIndex]
				o.changes.pending.bindings.set(attr.bindIndex)
			}
		}
		return nil
	})
}

// CopyValues copies the stored slots of name from source, which must share
// the object's class. Bindings are left untouched.
func (o *SceneObject) CopyValues(name string, source *SceneObject) error {
	attr, err := o.attribute("copy_values", name)
	if err != nil {
		return err
	}
	if err := o.sameClass("copy_values", source); err != nil {
		return err
	}
	return o.mutate("copy_values", attr.name, func() error {
		o.copySlots(attr, source)
		return nil
	})
}

func (o *SceneObject) copySlots(attr *Attribute, source *SceneObject) {
	for i := 0; i < attr.numSlots(); i++ {
		o.slots[attr.slot+i] = attr.dispatch.materialize(source.slots[attr.slot+i])
	}
	o.changes.pending.values.set(attr.index)
}

func (o *SceneObject) sameClass(op string, source *SceneObject) error {
	if source == nil {
		return o.attrError(op, "", fmt.Errorf("%w: nil source", ErrUnknownSceneObject))
	}
	if source.class != o.class {
		return o.attrError(op, "", fmt.Errorf("%w: source %q is %s", ErrClassMismatch, source.name, source.class.name))
	}
	return nil
}

func (o *SceneObject) String() string {
	return fmt.Sprintf("%s(%s)", o.class.name, o.name)
}
