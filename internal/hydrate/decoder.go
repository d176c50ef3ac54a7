package hydrate

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Context identifies the document a payload came from.
type Context struct {
	Source string
	Format string
}

func (c Context) String() string {
	if c.Source == "" {
		return "<inline>"
	}
	return c.Source
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated struct after decoding.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts loosely typed payloads (parsed YAML, JSON or TOML) into
// strongly typed structs using mapstructure tags.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
	weak      bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects payload keys that match no field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithWeaklyTypedInput lets mapstructure convert between scalar kinds.
func WithWeaklyTypedInput[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.weak = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T applying configured hooks. The payload is
// cloned first so hooks may mutate it freely.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx)
	}

	current := clonePayload(payload)
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &result,
		ErrorUnused:      d.strict,
		WeaklyTypedInput: d.weak,
		TagName:          "mapstructure",
	})
	if err != nil {
		return zero, fmt.Errorf("hydrate: configure decoder for %s: %w", ctx, err)
	}
	if err := decoder.Decode(current); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx, err)
		}
	}

	return result, nil
}

// Normalize converts the map shapes produced by YAML and TOML parsers
// (map[any]any, []map[string]any) into map[string]any and []any.
func Normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = Normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	default:
		return value
	}
}

func clonePayload(payload map[string]any) map[string]any {
	return Normalize(payload).(map[string]any)
}
