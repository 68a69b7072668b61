package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-scene/pkg/activity"
)

// Context is the owning registry of scene classes and scene objects. It is
// the only owner of the objects it creates; removing an object drops that
// ownership and turns every binding to it into an unbound attribute.
//
// Registry operations are safe for concurrent use. Objects themselves follow
// the SceneObject concurrency rules.
type Context struct {
	cfg *contextConfig

	mu      sync.RWMutex
	classes map[string]*SceneClass
	order   []string
	objects map[string]*SceneObject
	created []*SceneObject
}

// NewContext constructs an empty registry.
func NewContext(opts ...Option) *Context {
	return &Context{
		cfg:     applyOptions(opts),
		classes: map[string]*SceneClass{},
		objects: map[string]*SceneObject{},
	}
}

// Config returns the configuration shared by objects of the context.
func (c *Context) Config() Config {
	return c.cfg.config
}

// RegisterSceneClass adds class to the registry.
func (c *Context) RegisterSceneClass(class *SceneClass) error {
	if class == nil {
		return fmt.Errorf("%w: nil class", ErrUnknownSceneClass)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.classes[class.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSceneClass, class.name)
	}
	c.classes[class.name] = class
	c.order = append(c.order, class.name)
	return nil
}

// DefineSceneClass creates a class, runs define to declare its attributes and
// registers it.
func (c *Context) DefineSceneClass(name string, iface Interface, define func(*SceneClass) error) (*SceneClass, error) {
	class := NewSceneClass(name, iface)
	if define != nil {
		if err := define(class); err != nil {
			return nil, fmt.Errorf("scene: define %s: %w", name, err)
		}
	}
	if err := c.RegisterSceneClass(class); err != nil {
		return nil, err
	}
	return class, nil
}

// SceneClass returns the class registered under name.
func (c *Context) SceneClass(name string) (*SceneClass, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSceneClass, name)
	}
	return class, nil
}

// SceneClasses returns the registered classes in registration order.
func (c *Context) SceneClasses() []*SceneClass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*SceneClass, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.classes[name])
	}
	return out
}

// CreateSceneObject instantiates className under objectName. Creating a name
// that already exists returns the existing object when the classes match and
// ErrDuplicateSceneObject otherwise.
func (c *Context) CreateSceneObject(className, objectName string) (*SceneObject, error) {
	if objectName == "" {
		return nil, fmt.Errorf("%w: empty object name", ErrUnknownSceneObject)
	}
	class, err := c.SceneClass(className)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.objects[objectName]; ok {
		c.mu.Unlock()
		if existing.class != class {
			return nil, fmt.Errorf("%w: %s is a %s", ErrDuplicateSceneObject, objectName, existing.class.name)
		}
		return existing, nil
	}
	obj := newSceneObject(class, objectName, c.cfg, c)
	c.objects[objectName] = obj
	c.created = append(c.created, obj)
	c.mu.Unlock()

	err = c.cfg.emitter.Emit(context.Background(), activity.BuildObjectCreatedEvent(activity.SceneEventInput{
		ObjectID:   obj.id.String(),
		ObjectName: obj.name,
		Class:      class.name,
		Interface:  obj.iface.String(),
	}))
	return obj, err
}

// SceneObject returns the object registered under name.
func (c *Context) SceneObject(name string) (*SceneObject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSceneObject, name)
	}
	return obj, nil
}

// SceneObjects returns the registered objects in creation order.
func (c *Context) SceneObjects() []*SceneObject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.created)
}

// SceneObjectsOf returns the registered objects satisfying iface, in
// creation order.
func (c *Context) SceneObjectsOf(iface Interface) []*SceneObject {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*SceneObject
	for _, obj := range c.created {
		if obj.IsA(iface) {
			out = append(out, obj)
		}
	}
	return out
}

// RemoveSceneObject drops the object registered under name. Bindings that
// referenced it resolve to nothing afterwards.
func (c *Context) RemoveSceneObject(name string) error {
	c.mu.Lock()
	obj, ok := c.objects[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSceneObject, name)
	}
	delete(c.objects, name)
	c.created = slices.DeleteFunc(c.created, func(candidate *SceneObject) bool {
		return candidate == obj
	})
	obj.removed = true
	obj.owner = nil
	c.mu.Unlock()

	return c.cfg.emitter.Emit(context.Background(), activity.BuildObjectRemovedEvent(activity.SceneEventInput{
		ObjectID:   obj.id.String(),
		ObjectName: obj.name,
		Class:      obj.class.name,
	}))
}

// CommitAllChanges is the scene-wide commit step: it clears the changes each
// object accumulated since the previous scene commit, after which IsDirty
// reports false for every object without an open update. Fails with ErrTransactionState,
// clearing nothing, while any object has an open update.
func (c *Context) CommitAllChanges() error {
	start := time.Now()
	objects := c.SceneObjects()

	var updating []string
	for _, obj := range objects {
		if obj.Updating() {
			updating = append(updating, obj.name)
		}
	}
	if len(updating) > 0 {
		return fmt.Errorf("%w: objects %v have open updates", ErrTransactionState, updating)
	}

	var committed []string
	for _, obj := range objects {
		if obj.changes.published.dirty() {
			committed = append(committed, obj.name)
		}
		obj.clearPublished()
	}

	err := c.cfg.emitter.Emit(context.Background(), activity.BuildSceneCommittedEvent(activity.SceneEventInput{
		Changed:  committed,
		Duration: time.Since(start),
	}))
	c.cfg.logger.Log(LogEvent{
		Kind:     LogSceneCommit,
		Changed:  committed,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// Select evaluates expr against the begin timestep snapshot of every object
// satisfying filter (every object when filter is 0) and returns those for
// which it yields true, in creation order. The expression must evaluate to a
// bool.
func (c *Context) Select(expr string, filter Interface) ([]*SceneObject, error) {
	var candidates []*SceneObject
	if filter == 0 {
		candidates = c.SceneObjects()
	} else {
		candidates = c.SceneObjectsOf(filter)
	}

	var (
		out  []*SceneObject
		errs []error
	)
	for _, obj := range candidates {
		result, err := obj.Evaluate(expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matched, ok := result.(bool)
		if !ok {
			errs = append(errs, obj.attrError("select", "", fmt.Errorf("%w: expression %q returned %T, want bool", ErrTypeMismatch, expr, result)))
			continue
		}
		if matched {
			out = append(out, obj)
		}
	}
	return out, errors.Join(errs...)
}
