// Package hydrate turns loosely typed option payloads into structs.
//
// Payloads reach the overlay through several codecs: YAML configuration,
// JSON rows from SQL stores (numbers arrive as float64) and msgpack values
// from redis (integers arrive as int64, strings sometimes as []byte).
// Decoding is weakly typed so the same struct hydrates from any of them.
package hydrate

import (
	"fmt"
	"maps"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Context names the payload being decoded. Source is where it came from
// (a config file, a stored option) and Key the entry inside it.
type Context struct {
	Source string
	Key    string
}

func (c Context) String() string {
	if c.Source == "" {
		return c.Key
	}
	return c.Source + "/" + c.Key
}

// PreHook rewrites the payload before decoding. It receives a copy.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook validates or completes the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder hydrates T from payloads keyed by the struct's json tags.
// Strings convert to time.Duration and, in RFC 3339 form, to time.Time.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	hooks  []mapstructure.DecodeHookFunc
	strict bool
}

// WithPreHook runs hook before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook runs hook after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithStrict rejects payload keys that match no field.
func WithStrict[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithConversion adds a field conversion run after the built-in ones.
func WithConversion[T any](hook mapstructure.DecodeHookFunc) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
}

// NewDecoder constructs a Decoder applying opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode hydrates payload into T. payload itself is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var result T
	if payload == nil {
		return result, fmt.Errorf("hydrate: payload is nil for %q", ctx)
	}

	current := maps.Clone(payload)
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return result, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	conversions := append([]mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	}, d.hooks...)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      d.strict,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(conversions...),
		Result:           &result,
	})
	if err != nil {
		return result, fmt.Errorf("hydrate: decoder for %q: %w", ctx, err)
	}
	if err := decoder.Decode(current); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode %q: %w", ctx, err)
	}

	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx, err)
		}
	}
	return result, nil
}
