package scene

import (
	"fmt"
	"maps"
	"slices"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// maxCallArgs bounds the arity of call() overloads declared for CEL.
const maxCallArgs = 6

// celEvaluator type-checks expressions against the attribute names of a
// class, so programs are cached per class. Attributes are declared dyn.
type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	return &celEvaluator{engineConfig: newEngineConfig(opts)}
}

func (*celEvaluator) engine() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	program, err := e.program(expression, ctx.Class, ctx.Interface, slices.Collect(maps.Keys(ctx.Snapshot)))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.objectLabel(), err)
	}
	return e.run(program, expression, ctx)
}

// Compile checks expression eagerly when CompileForClass is given. Otherwise
// the declared names come from the first snapshot evaluated.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	class := applyCompileOptions(opts).class
	if class == nil {
		return CompiledRuleFunc(func(ctx RuleContext) (any, error) {
			return e.Evaluate(ctx, expression)
		}), nil
	}
	names := make([]string, 0, len(class.Attributes()))
	for _, attr := range class.Attributes() {
		names = append(names, attr.Name())
	}
	program, err := e.program(expression, class.Name(), class.Interface(), names)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	return CompiledRuleFunc(func(ctx RuleContext) (any, error) {
		return e.run(program, expression, ctx.withDefaults())
	}), nil
}

func (e *celEvaluator) program(expression, class string, iface Interface, names []string) (celgo.Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return lookupProgram(e.cache, "cel:"+class+":"+expression, func() (celgo.Program, error) {
		env, err := e.environment(iface, names)
		if err != nil {
			return nil, err
		}
		checked, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(checked)
	})
}

func (e *celEvaluator) environment(iface Interface, names []string) (*celgo.Env, error) {
	object := celgo.MapType(celgo.StringType, celgo.DynType)
	opts := []celgo.EnvOption{
		celgo.Variable("attrs", object),
		celgo.Variable("object", object),
		celgo.Variable("timestep", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", object),
		celgo.Variable("metadata", object),
		celgo.Function("isA", celgo.Overload("isA_string",
			[]*celgo.Type{celgo.StringType}, celgo.BoolType,
			celgo.UnaryBinding(func(name ref.Val) ref.Val {
				s, ok := name.(types.String)
				if !ok {
					return types.MaybeNoSuchOverloadErr(name)
				}
				return types.Bool(isA(iface, string(s)))
			}),
		)),
		e.callDeclaration(),
	}
	for _, name := range names {
		if !slices.Contains(reservedVariables, name) {
			opts = append(opts, celgo.Variable(name, celgo.DynType))
		}
	}
	return celgo.NewEnv(opts...)
}

// callDeclaration declares call(name, args...) with one overload per arity.
func (e *celEvaluator) callDeclaration() celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, maxCallArgs+1)
	params := []*celgo.Type{celgo.StringType}
	for arity := 0; arity <= maxCallArgs; arity++ {
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn%d", arity),
			slices.Clone(params), celgo.DynType,
			celgo.FunctionBinding(e.callBinding),
		))
		params = append(params, celgo.DynType)
	}
	return celgo.Function("call", overloads...)
}

func (e *celEvaluator) callBinding(values ...ref.Val) ref.Val {
	name, ok := values[0].(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(values[0])
	}
	args := make([]any, 0, len(values)-1)
	for _, value := range values[1:] {
		args = append(args, value.Value())
	}
	result, err := e.call(string(name), args...)
	if err != nil {
		return types.NewErr("%v", err)
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

func (e *celEvaluator) run(program celgo.Program, expression string, ctx RuleContext) (any, error) {
	out, _, err := program.Eval(ctx.variables())
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.objectLabel(), err)
	}
	return out.Value(), nil
}
