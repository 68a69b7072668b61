package scene

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// SceneClass is an ordered, grouped catalogue of attribute descriptors shared
// by every object of one kind. Declarations are accepted until the first
// object is instantiated, after which the class is frozen and may be read
// concurrently.
type SceneClass struct {
	name     string
	declared Interface
	iface    Interface

	mu          sync.RWMutex
	frozen      bool
	attrs       []*Attribute
	lookup      map[string]*Attribute
	groups      []string
	groupAttrs  map[string][]*Attribute
	numSlots    int
	numBindings int
}

// NewSceneClass creates an empty class satisfying iface and every ancestor of
// it.
func NewSceneClass(name string, iface Interface) *SceneClass {
	return &SceneClass{
		name:       name,
		declared:   iface,
		iface:      iface.Closure(),
		lookup:     map[string]*Attribute{},
		groupAttrs: map[string][]*Attribute{},
	}
}

// Name returns the class name.
func (c *SceneClass) Name() string { return c.name }

// DeclaredInterface returns the interface passed to NewSceneClass.
func (c *SceneClass) DeclaredInterface() Interface { return c.declared }

// Interface returns the capability mask given to every instance.
func (c *SceneClass) Interface() Interface { return c.iface }

// Frozen reports whether the descriptor set is immutable.
func (c *SceneClass) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Declare registers a new attribute descriptor.
func (c *SceneClass) Declare(name string, typ AttributeType, opts ...AttributeOption) (*Attribute, error) {
	attr, err := newAttribute(name, typ, opts)
	if err != nil {
		return nil, fmt.Errorf("scene: declare %s.%s: %w", c.name, name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return nil, fmt.Errorf("%w: %s has instances, cannot declare %q", ErrClassFrozen, c.name, name)
	}
	for _, key := range append([]string{attr.name}, attr.aliases...) {
		if _, exists := c.lookup[key]; exists {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, c.name, key)
		}
	}
	if dup := firstDuplicate(attr.aliases); dup != "" {
		return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, c.name, dup)
	}

	attr.class = c
	attr.index = len(c.attrs)
	attr.slot = c.numSlots
	c.numSlots += attr.numSlots()
	if attr.IsBindable() {
		attr.bindIndex = c.numBindings
		c.numBindings++
	}

	c.attrs = append(c.attrs, attr)
	c.lookup[attr.name] = attr
	for _, alias := range attr.aliases {
		c.lookup[alias] = attr
	}
	if attr.group != "" {
		if _, ok := c.groupAttrs[attr.group]; !ok {
			c.groups = append(c.groups, attr.group)
		}
		c.groupAttrs[attr.group] = append(c.groupAttrs[attr.group], attr)
	}
	return attr, nil
}

// Declare registers an attribute whose type is derived from T, with def as
// its default, and returns a typed key for it.
func Declare[T any](c *SceneClass, name string, def T, opts ...AttributeOption) (Key[T], error) {
	tag, ok := tagOf(reflect.TypeFor[T]())
	if !ok {
		return Key[T]{}, fmt.Errorf("scene: declare %s.%s: %w: no attribute type for %s",
			c.name, name, ErrTypeMismatch, reflect.TypeFor[T]())
	}
	attr, err := c.Declare(name, tag, append(opts, WithDefault(def))...)
	if err != nil {
		return Key[T]{}, err
	}
	return Key[T]{attr: attr}, nil
}

// MustDeclare is like Declare but panics on error. Intended for class
// definitions at package initialisation.
func MustDeclare[T any](c *SceneClass, name string, def T, opts ...AttributeOption) Key[T] {
	key, err := Declare(c, name, def, opts...)
	if err != nil {
		panic(err)
	}
	return key
}

// Attribute resolves a descriptor by name or alias.
func (c *SceneClass) Attribute(name string) (*Attribute, error) {
	c.mu.RLock()
	attr, ok := c.lookup[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, c.name, name)
	}
	return attr, nil
}

// HasAttribute reports whether name or alias resolves.
func (c *SceneClass) HasAttribute(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lookup[name]
	return ok
}

// Attributes returns the descriptors in declaration order.
func (c *SceneClass) Attributes() []*Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.attrs)
}

// GroupNames returns the group names in first-declaration order.
func (c *SceneClass) GroupNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.groups)
}

// Group returns the descriptors of the named group in declaration order.
func (c *SceneClass) Group(name string) []*Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.groupAttrs[name])
}

// freeze makes the descriptor set immutable and returns the slot layout.
func (c *SceneClass) freeze() (attrs []*Attribute, slots, bindings int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	return c.attrs, c.numSlots, c.numBindings
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return name
		}
		seen[name] = struct{}{}
	}
	return ""
}
