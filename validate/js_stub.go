//go:build !js_eval

package validate

import "fmt"

// NewJSEvaluator reports ErrUnknownEngine: the goja engine is only linked
// into binaries built with the js_eval tag.
func NewJSEvaluator(...EngineOption) (Evaluator, error) {
	return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrUnknownEngine)
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return false
}
