//go:build js_eval

package scene

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs expressions in a fresh goja runtime per evaluation.
// Integral numbers come back as int64.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	return &jsEvaluator{engineConfig: newEngineConfig(opts)}
}

func (*jsEvaluator) engine() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, expression, ctx.withDefaults())
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return CompiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(program, expression, ctx.withDefaults())
	}), nil
}

func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	return lookupProgram(e.cache, "js:"+expression, func() (*goja.Program, error) {
		program, err := goja.Compile("", "(function(){ return ("+expression+"); })()", false)
		if err != nil {
			return nil, wrapEvaluationError("js", expression, "", err)
		}
		return program, nil
	})
}

func (e *jsEvaluator) run(program *goja.Program, expression string, ctx RuleContext) (any, error) {
	vm := goja.New()
	for name, value := range ctx.variables() {
		vm.Set(name, value)
	}
	iface := ctx.Interface
	vm.Set("isA", func(name string) bool { return isA(iface, name) })
	vm.Set("call", e.call)
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			vm.Set(name, func(args ...any) (any, error) {
				return e.registry.Call(name, args...)
			})
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, wrapEvaluationError("js", expression, ctx.objectLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
