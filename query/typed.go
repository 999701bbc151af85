package query

import (
	"context"
	"fmt"
)

// Typed adapts a typed fetch function to a Fetcher.
func Typed[T any](fn func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// FetchAs is Cache.Fetch with a typed result.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error), policy Policy) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, Typed(fn), policy)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query: entry %s holds %T", key.Hash(), v)
	}
	return out, nil
}
