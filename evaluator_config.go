package scene

import "fmt"

// engineConfig holds what every expression engine is built from.
type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*engineConfig)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*engineConfig)

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*engineConfig)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(cfg *engineConfig) { cfg.cache = cache }
}

// ExprWithFunctionRegistry exposes a copy of registry to expr expressions.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(cfg *engineConfig) { cfg.setRegistry(registry) }
}

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(cfg *engineConfig) { cfg.cache = cache }
}

// CELWithFunctionRegistry exposes a copy of registry to CEL through call().
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(cfg *engineConfig) { cfg.setRegistry(registry) }
}

// JSWithProgramCache wires a ProgramCache into the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.cache = cache }
}

// JSWithFunctionRegistry exposes a copy of registry to JS expressions.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.setRegistry(registry) }
}

func (cfg *engineConfig) setRegistry(registry *FunctionRegistry) {
	if registry != nil {
		cfg.registry = registry.Clone()
	}
}

func newEngineConfig[O ~func(*engineConfig)](opts []O) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// call dispatches to the registry; engines bind it as call(name, args...).
func (cfg engineConfig) call(name string, args ...any) (any, error) {
	if cfg.registry == nil {
		return nil, fmt.Errorf("scene: function registry not configured")
	}
	return cfg.registry.Call(name, args...)
}
