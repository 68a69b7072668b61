package scene

import "math/bits"

// bitset is a fixed-size set of small non-negative integers.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) test(i int) bool {
	if i < 0 || i/64 >= len(b) {
		return false
	}
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) any() bool {
	for _, word := range b {
		if word != 0 {
			return true
		}
	}
	return false
}

func (b bitset) reset() {
	clear(b)
}

// union adds the members of other to b. Both sets have the same size.
func (b bitset) union(other bitset) {
	for i, word := range other {
		b[i] |= word
	}
}

// indices returns the set members in ascending order.
func (b bitset) indices() []int {
	var out []int
	for w, word := range b {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			out = append(out, w*64+tz)
			word &^= 1 << uint(tz)
		}
	}
	return out
}

// changeSet records the attributes and bindings mutated during one
// transaction.
type changeSet struct {
	values    bitset
	bindings  bitset
	requested bool
}

func newChangeSet(numAttrs, numBindings int) changeSet {
	return changeSet{
		values:   newBitset(numAttrs),
		bindings: newBitset(numBindings),
	}
}

func (c changeSet) dirty() bool {
	return c.requested || c.values.any() || c.bindings.any()
}

func (c *changeSet) merge(other changeSet) {
	c.values.union(other.values)
	c.bindings.union(other.bindings)
	c.requested = c.requested || other.requested
}

func (c *changeSet) reset() {
	c.values.reset()
	c.bindings.reset()
	c.requested = false
}

// changeTracker holds the change set accumulating in the open transaction
// and the union of everything committed since the last scene-wide commit.
type changeTracker struct {
	pending   changeSet
	published changeSet
}

func newChangeTracker(numAttrs, numBindings int) changeTracker {
	return changeTracker{
		pending:   newChangeSet(numAttrs, numBindings),
		published: newChangeSet(numAttrs, numBindings),
	}
}

// publish folds the pending set into the published one and clears pending.
// Only the scene-wide commit clears published.
func (t *changeTracker) publish() {
	t.published.merge(t.pending)
	t.pending.reset()
}

// HasChanged reports whether name was mutated in the open transaction or
// since the last scene-wide commit.
func (o *SceneObject) HasChanged(name string) (bool, error) {
	attr, err := o.attribute("has_changed", name)
	if err != nil {
		return false, err
	}
	return o.changes.pending.values.test(attr.index) || o.changes.published.values.test(attr.index), nil
}

// HasBindingChanged reports whether the binding of name was mutated in the
// open transaction or since the last scene-wide commit. Always false for attributes
// that are not bindable.
func (o *SceneObject) HasBindingChanged(name string) (bool, error) {
	attr, err := o.attribute("has_binding_changed", name)
	if err != nil {
		return false, err
	}
	if attr.bindIndex < 0 {
		return false, nil
	}
	return o.changes.pending.bindings.test(attr.bindIndex) || o.changes.published.bindings.test(attr.bindIndex), nil
}

// IsDirty reports whether any value or binding changed, or an update was
// requested, in the open transaction or since the last scene-wide commit.
func (o *SceneObject) IsDirty() bool {
	return o.changes.pending.dirty() || o.changes.published.dirty()
}

// RequestUpdate marks the object dirty without mutating any value.
func (o *SceneObject) RequestUpdate() {
	o.changes.pending.requested = true
}

// UpdateRequested reports whether RequestUpdate was called in the open
// transaction or since the last scene-wide commit.
func (o *SceneObject) UpdateRequested() bool {
	return o.changes.pending.requested || o.changes.published.requested
}

// ChangedAttributes returns the names of attributes reported by HasChanged,
// in declaration order.
func (o *SceneObject) ChangedAttributes() []string {
	var out []string
	for _, attr := range o.attrs {
		if o.changes.pending.values.test(attr.index) || o.changes.published.values.test(attr.index) {
			out = append(out, attr.name)
		}
	}
	return out
}

// clearPublished forgets committed changes. Used by the scene-wide commit
// step.
func (o *SceneObject) clearPublished() {
	o.changes.published.reset()
}

func (o *SceneObject) changeNames(set changeSet) (values, bindings []string) {
	for _, idx := range set.values.indices() {
		values = append(values, o.attrs[idx].name)
	}
	for _, attr := range o.attrs {
		if attr.bindIndex >= 0 && set.bindings.test(attr.bindIndex) {
			bindings = append(bindings, attr.name)
		}
	}
	return values, bindings
}
