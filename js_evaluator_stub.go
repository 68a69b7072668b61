//go:build !js_eval

package scene

// NewJSEvaluator returns nil unless the module is built with the js_eval tag.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = newEngineConfig(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
