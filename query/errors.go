package query

import "errors"

var (
	// ErrInvalidKey indicates a key element could not be serialized.
	ErrInvalidKey = errors.New("query: key is invalid")

	// ErrNilFetcher indicates Ensure or Fetch was called without a fetcher.
	ErrNilFetcher = errors.New("query: fetcher is nil")

	// ErrNotFound indicates no entry exists for the key.
	ErrNotFound = errors.New("query: no entry for key")

	// ErrClosed is returned by Subscription.Wait after the subscription was
	// released or the cache was cleared.
	ErrClosed = errors.New("query: subscription closed")

	// ErrCacheClosed indicates the cache has been shut down.
	ErrCacheClosed = errors.New("query: cache closed")

	// ErrNoQuery indicates an Infinite controller has no key yet.
	ErrNoQuery = errors.New("query: infinite query has no key")
)
