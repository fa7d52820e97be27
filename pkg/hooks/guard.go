package hooks

import "context"

type suppressKey struct{}

type suppressSet map[Key]struct{}

// Suppress returns a context in which key's pre handlers do not run, so a
// read falls through to storage and then to the default handlers. The guard
// ends with the returned context; the parent is unaffected.
func Suppress(ctx context.Context, key Key) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	current, _ := ctx.Value(suppressKey{}).(suppressSet)
	if _, ok := current[key]; ok {
		return ctx
	}
	next := make(suppressSet, len(current)+1)
	for k := range current {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, suppressKey{}, next)
}

// Suppressed reports whether key is suppressed in ctx.
func Suppressed(ctx context.Context, key Key) bool {
	if ctx == nil {
		return false
	}
	current, _ := ctx.Value(suppressKey{}).(suppressSet)
	_, ok := current[key]
	return ok
}
