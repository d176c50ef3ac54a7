// Package validate evaluates per-key rule expressions against edited
// preference values and reports each outcome as a prefs.ChangeDetailAdded
// event.
//
// Rules see the variables key, kind, value, values, now, args and metadata,
// and the helpers oneOf(value, options), between(value, min, max) and
// pattern(value, regexp) plus anything in a FunctionRegistry. The expr engine
// is the default; CEL is always available and the JavaScript engine (goja)
// requires the js_eval build tag.
package validate
