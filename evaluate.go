package scene

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

var ErrNoEvaluator = errors.New("scene: evaluator not configured")

// RuleContext carries the inputs of an expression evaluation.
type RuleContext struct {
	// Snapshot maps attribute names to plain values (see SceneObject.Snapshot).
	Snapshot  map[string]any
	Object    string
	Class     string
	Interface Interface
	Timestep  Timestep
	Now       *time.Time
	Args      map[string]any
	Metadata  map[string]any
}

// Names bound by every engine. An attribute sharing one of them is only
// reachable through attrs.
var reservedVariables = []string{"attrs", "object", "timestep", "now", "args", "metadata", "call", "isA"}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) objectLabel() string {
	if ctx.Object != "" {
		return ctx.Object
	}
	return "unknown"
}

// variables returns the bindings shared by every engine: attributes at the
// top level, then attrs, object, timestep, now, args and metadata. ctx must
// have its defaults applied.
func (ctx RuleContext) variables() map[string]any {
	vars := make(map[string]any, len(ctx.Snapshot)+len(reservedVariables))
	for name, value := range ctx.Snapshot {
		vars[name] = value
	}
	interfaces := []any{}
	for _, name := range ctx.Interface.Names() {
		interfaces = append(interfaces, name)
	}
	vars["attrs"] = ctx.Snapshot
	vars["object"] = map[string]any{
		"name":       ctx.Object,
		"class":      ctx.Class,
		"interfaces": interfaces,
	}
	vars["timestep"] = ctx.Timestep.String()
	vars["now"] = *ctx.Now
	vars["args"] = ctx.Args
	vars["metadata"] = ctx.Metadata
	return vars
}

// isA backs the isA(name) builtin. Unknown names are never satisfied.
func isA(iface Interface, name string) bool {
	bit := ParseInterface(name)
	return bit != 0 && iface.Has(bit)
}

// lookupProgram returns the program cached under key or compiles and caches
// a new one. A nil cache compiles every time.
func lookupProgram[P any](cache ProgramCache, key string, compile func() (P, error)) (P, error) {
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompiledRuleFunc adapts a function to CompiledRule.
type CompiledRuleFunc func(ctx RuleContext) (any, error)

func (fn CompiledRuleFunc) Evaluate(ctx RuleContext) (any, error) {
	return fn(ctx)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption func(*compileConfig)

type compileConfig struct {
	class *SceneClass
}

// CompileForClass declares the attributes of class up front, so engines with
// a type checker reject unknown names when compiling rather than on first
// evaluation. Engines without a checker ignore it.
func CompileForClass(class *SceneClass) CompileOption {
	return func(cfg *compileConfig) {
		cfg.class = class
	}
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	var cfg compileConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Evaluate runs expr against the begin timestep snapshot of o.
func (o *SceneObject) Evaluate(expr string) (any, error) {
	return o.EvaluateWith(RuleContext{}, TimestepBegin, expr)
}

// EvaluateWith runs expr against the ts snapshot of o. Snapshot, Object,
// Class and Interface of ctx are filled from o when empty.
func (o *SceneObject) EvaluateWith(ctx RuleContext, ts Timestep, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("scene: expression must not be empty")
	}
	evaluator := o.cfg.evaluator
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if ctx.Snapshot == nil {
		snapshot, err := o.Snapshot(ts)
		if err != nil {
			return nil, err
		}
		ctx.Snapshot = snapshot
	}
	if ctx.Object == "" {
		ctx.Object = o.name
	}
	if ctx.Class == "" {
		ctx.Class = o.class.name
	}
	if ctx.Interface == 0 {
		ctx.Interface = o.iface
	}
	ctx.Timestep = ts
	ctx = ctx.withDefaults()

	start := time.Now()
	value, err := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	engine := evaluatorEngineName(evaluator)
	err = wrapEvaluationError(engine, expr, ctx.objectLabel(), err)
	o.cfg.logger.Log(LogEvent{
		Kind:     LogEvaluation,
		Object:   ctx.Object,
		Class:    ctx.Class,
		Engine:   engine,
		Expr:     expr,
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Snapshot returns the values of every attribute at ts, resolved through
// bindings, as plain Go values suited to expression engines: numbers widen to
// int64 or float64, vectors and matrices become []any, colors become maps
// keyed r, g, b (and a), and object references become object names.
// Non-blurrable attributes report their single slot for any timestep.
func (o *SceneObject) Snapshot(ts Timestep) (map[string]any, error) {
	if !ts.valid() {
		return nil, o.attrError("snapshot", "", fmt.Errorf("%w: %s", ErrInvalidTimestep, ts))
	}
	out := make(map[string]any, len(o.attrs))
	for _, attr := range o.attrs {
		at := ts
		if !attr.IsBlurrable() {
			at = TimestepBegin
		}
		slot, err := o.resolve(attr, at)
		if err != nil {
			return nil, o.attrError("snapshot", attr.name, err)
		}
		out[attr.name] = plainValue(slot)
	}
	return out, nil
}

func plainValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case bool, string, int64, float64:
		return value
	case int32:
		return int64(value)
	case float32:
		return float64(value)
	case Rgb:
		return map[string]any{"r": float64(value.R), "g": float64(value.G), "b": float64(value.B)}
	case Rgba:
		return map[string]any{"r": float64(value.R), "g": float64(value.G), "b": float64(value.B), "a": float64(value.A)}
	case *SceneObject:
		if value == nil {
			return nil
		}
		return value.name
	case SceneObjectIndexable:
		return plainValue(value.items)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plainValue(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

type namedEngine interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
