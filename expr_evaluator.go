package scene

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs expressions with github.com/expr-lang/expr. Programs
// are compiled against an open environment so one program serves every
// class; registry functions are bound at compile time.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	return &exprEvaluator{engineConfig: newEngineConfig(opts)}
}

func (*exprEvaluator) engine() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(program, expression, ctx.withDefaults())
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return CompiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(program, expression, ctx.withDefaults())
	}), nil
}

func (e *exprEvaluator) program(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	return lookupProgram(e.cache, "expr:"+expression, func() (*exprvm.Program, error) {
		options := []exprlang.Option{
			exprlang.Env(map[string]any{}),
			exprlang.AllowUndefinedVariables(),
		}
		if e.registry != nil {
			for _, name := range e.registry.Names() {
				options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
					return e.registry.Call(name, args...)
				}))
			}
		}
		program, err := exprlang.Compile(expression, options...)
		if err != nil {
			return nil, wrapEvaluationError("expr", expression, "", err)
		}
		return program, nil
	})
}

func (e *exprEvaluator) run(program *exprvm.Program, expression string, ctx RuleContext) (any, error) {
	env := ctx.variables()
	iface := ctx.Interface
	env["isA"] = func(name string) bool { return isA(iface, name) }
	env["call"] = e.call
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, ctx.objectLabel(), err)
	}
	return result, nil
}
