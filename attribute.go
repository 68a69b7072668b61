package scene

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// EnumValue is one entry of an enumerable attribute's value table.
type EnumValue struct {
	Value       Int
	Description string
}

// Attribute describes one named, typed entry of a scene class. Descriptors are
// immutable once declared.
type Attribute struct {
	name       string
	aliases    []string
	typ        AttributeType
	flags      AttributeFlags
	objectType Interface
	group      string
	enum       []EnumValue
	metadata   map[string]string
	def        any

	class     *SceneClass
	index     int
	slot      int
	bindIndex int
	dispatch  *dispatchEntry
}

// AttributeOption configures an attribute declaration.
type AttributeOption func(*Attribute)

// WithAliases registers alternative lookup names.
func WithAliases(aliases ...string) AttributeOption {
	return func(a *Attribute) {
		a.aliases = append(a.aliases, aliases...)
	}
}

// WithFlags adds behaviour flags.
func WithFlags(flags AttributeFlags) AttributeOption {
	return func(a *Attribute) {
		a.flags |= flags
	}
}

// WithDefault sets the default value. Its dynamic type must match the
// declared type exactly.
func WithDefault(value any) AttributeOption {
	return func(a *Attribute) {
		a.def = value
	}
}

// WithEnumValue appends an entry to the enum table and marks the attribute
// enumerable.
func WithEnumValue(value Int, description string) AttributeOption {
	return func(a *Attribute) {
		a.flags |= FlagEnumerable
		a.enum = append(a.enum, EnumValue{Value: value, Description: description})
	}
}

// WithMetadata attaches a metadata entry.
func WithMetadata(key, value string) AttributeOption {
	return func(a *Attribute) {
		if a.metadata == nil {
			a.metadata = map[string]string{}
		}
		a.metadata[key] = value
	}
}

// WithGroup places the attribute in the named group.
func WithGroup(group string) AttributeOption {
	return func(a *Attribute) {
		a.group = group
	}
}

// WithObjectType restricts the interface expected from referenced objects.
func WithObjectType(iface Interface) AttributeOption {
	return func(a *Attribute) {
		a.objectType = iface
	}
}

func newAttribute(name string, typ AttributeType, opts []AttributeOption) (*Attribute, error) {
	attr := &Attribute{
		name:       name,
		typ:        typ,
		objectType: InterfaceGeneric,
		bindIndex:  -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(attr)
		}
	}
	if err := attr.validate(); err != nil {
		return nil, err
	}
	return attr, nil
}

func (a *Attribute) validate() error {
	if a.name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAttribute)
	}
	if !a.typ.Valid() {
		return fmt.Errorf("%w: %q has type %s", ErrInvalidAttribute, a.name, a.typ)
	}
	entry, err := lookupDispatch(a.typ)
	if err != nil {
		return err
	}
	a.dispatch = entry

	if a.flags.Has(FlagEnumerable) && a.typ != TypeInt {
		return fmt.Errorf("%w: enumerable %q must be int, not %s", ErrInvalidAttribute, a.name, a.typ)
	}
	if a.flags.Has(FlagBlurrable) && a.typ.IsObjectReference() {
		return fmt.Errorf("%w: %s attribute %q cannot be blurrable", ErrInvalidAttribute, a.typ, a.name)
	}
	if a.flags.Has(FlagFilename) && a.typ != TypeString {
		return fmt.Errorf("%w: filename %q must be string, not %s", ErrInvalidAttribute, a.name, a.typ)
	}
	for _, alias := range a.aliases {
		if alias == "" || alias == a.name {
			return fmt.Errorf("%w: %q has invalid alias %q", ErrInvalidAttribute, a.name, alias)
		}
	}
	if a.def != nil {
		if got := reflect.TypeOf(a.def); got != entry.goType {
			return fmt.Errorf("%w: default for %q is %s, want %s", ErrTypeMismatch, a.name, got, entry.goType)
		}
		if a.typ.IsObjectReference() && !emptyReference(a.def) {
			return fmt.Errorf("%w: %q object reference default must be empty", ErrInvalidAttribute, a.name)
		}
		a.def = entry.materialize(a.def)
	}
	return nil
}

// Name returns the primary attribute name.
func (a *Attribute) Name() string { return a.name }

// Aliases returns a copy of the alternative names.
func (a *Attribute) Aliases() []string { return slices.Clone(a.aliases) }

// Type returns the value tag.
func (a *Attribute) Type() AttributeType { return a.typ }

// Flags returns the behaviour flags.
func (a *Attribute) Flags() AttributeFlags { return a.flags }

func (a *Attribute) IsBindable() bool   { return a.flags.Has(FlagBindable) }
func (a *Attribute) IsBlurrable() bool  { return a.flags.Has(FlagBlurrable) }
func (a *Attribute) IsEnumerable() bool { return a.flags.Has(FlagEnumerable) }
func (a *Attribute) IsFilename() bool   { return a.flags.Has(FlagFilename) }

// UpdateRequiresGeomReload reports whether a change to this attribute forces
// geometry to be regenerated.
func (a *Attribute) UpdateRequiresGeomReload() bool {
	return !a.flags.Has(FlagCanSkipGeomReload)
}

// ObjectType returns the interface expected from objects referenced by this
// attribute. Only meaningful for object reference types.
func (a *Attribute) ObjectType() Interface { return a.objectType }

// Group returns the group name, empty when ungrouped.
func (a *Attribute) Group() string { return a.group }

// Index returns the declaration position within the class.
func (a *Attribute) Index() int { return a.index }

// Class returns the declaring class.
func (a *Attribute) Class() *SceneClass { return a.class }

// Default returns the default value as a tagged Value.
func (a *Attribute) Default() Value {
	return a.dispatch.read(a.dispatch.materialize(a.def))
}

// EnumValues returns the enum table in declaration order.
func (a *Attribute) EnumValues() []EnumValue { return slices.Clone(a.enum) }

// EnumDescription returns the description registered for value.
func (a *Attribute) EnumDescription(value Int) (string, bool) {
	for _, entry := range a.enum {
		if entry.Value == value {
			return entry.Description, true
		}
	}
	return "", false
}

// EnumValue returns the value registered under description.
func (a *Attribute) EnumValue(description string) (Int, bool) {
	for _, entry := range a.enum {
		if entry.Description == description {
			return entry.Value, true
		}
	}
	return 0, false
}

// IsValidEnumValue reports whether value appears in the enum table.
func (a *Attribute) IsValidEnumValue(value Int) bool {
	_, ok := a.EnumDescription(value)
	return ok
}

// Metadata returns the metadata entry for key.
func (a *Attribute) Metadata(key string) (string, bool) {
	v, ok := a.metadata[key]
	return v, ok
}

// MetadataKeys returns the metadata keys sorted.
func (a *Attribute) MetadataKeys() []string {
	return slices.Sorted(maps.Keys(a.metadata))
}

// slotFor maps a timestep to the slot index under policy.
func (a *Attribute) slotFor(ts Timestep, policy TimestepPolicy) (int, error) {
	if !ts.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimestep, ts)
	}
	if a.IsBlurrable() {
		return a.slot + int(ts), nil
	}
	if ts != TimestepBegin && policy != TimestepAlias {
		return 0, fmt.Errorf("%w: %s on non-blurrable attribute", ErrInvalidTimestep, ts)
	}
	return a.slot, nil
}

func (a *Attribute) numSlots() int {
	if a.IsBlurrable() {
		return NumTimesteps
	}
	return 1
}

func emptyReference(v any) bool {
	switch ref := v.(type) {
	case *SceneObject:
		return ref == nil
	case SceneObjectVector:
		return len(ref) == 0
	case SceneObjectIndexable:
		return ref.Len() == 0
	default:
		return false
	}
}
