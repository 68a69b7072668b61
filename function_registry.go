package scene

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// Function is a callable exposed to expressions by name and through call().
type Function func(args ...any) (any, error)

var functionName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// FunctionRegistry stores expression functions under lowercase names.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// DefaultFunctions returns a registry preloaded with numeric helpers for
// attribute expressions: clamp(x, lo, hi), lerp(a, b, t) and luminance(rgb).
func DefaultFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.mustRegister("clamp", numericFunction(3, func(v []float64) float64 {
		return min(max(v[0], v[1]), v[2])
	}))
	r.mustRegister("lerp", numericFunction(3, func(v []float64) float64 {
		return v[0] + (v[1]-v[0])*v[2]
	}))
	r.mustRegister("luminance", luminance)
	return r
}

// Register stores fn under name. Names are case-insensitive identifiers and
// must not shadow the variables every engine binds.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("scene: function %q is nil", name)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if !functionName.MatchString(key) {
		return fmt.Errorf("scene: function name %q is not an identifier", name)
	}
	if slices.ContainsFunc(reservedVariables, func(reserved string) bool {
		return strings.EqualFold(reserved, key)
	}) {
		return fmt.Errorf("scene: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("scene: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

func (r *FunctionRegistry) mustRegister(name string, fn Function) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Clone returns a copy that can be extended without affecting r.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("scene: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("scene: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// WithFunctionRegistry exposes the functions of registry to expressions run
// by the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *contextConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default evaluator. An
// invalid or duplicate name is ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *contextConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// numericFunction adapts fn to Function, converting exactly arity numeric
// arguments to float64.
func numericFunction(arity int, fn func([]float64) float64) Function {
	return func(args ...any) (any, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("scene: expected %d arguments, got %d", arity, len(args))
		}
		values := make([]float64, arity)
		for i, arg := range args {
			v, ok := toFloat(arg)
			if !ok {
				return nil, fmt.Errorf("scene: argument %d is %T, want a number", i, arg)
			}
			values[i] = v
		}
		return fn(values), nil
	}
}

// luminance takes a color snapshot value ({r, g, b} map) and returns its
// Rec. 709 relative luminance.
func luminance(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("scene: luminance expects 1 argument, got %d", len(args))
	}
	color, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("scene: luminance expects a color, got %T", args[0])
	}
	var channels [3]float64
	for i, key := range []string{"r", "g", "b"} {
		v, ok := toFloat(color[key])
		if !ok {
			return nil, fmt.Errorf("scene: luminance: channel %s is %T", key, color[key])
		}
		channels[i] = v
	}
	return 0.2126*channels[0] + 0.7152*channels[1] + 0.0722*channels[2], nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
