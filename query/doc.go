// Package query is a keyed, in-memory query cache with freshness windows,
// in-flight request deduplication, prefix invalidation, and ordered
// subscriber notification.
//
// A Cache is an explicit object owned by the application: create one at
// start-up with NewCache, pass it to every consumer, Clear it on logout and
// Close it on shutdown. On top of the cache sit two controllers:
//
//   - Infinite sequences "load more" pages under a single key.
//   - Mutation runs a one-shot write and reconciles the cache afterwards.
//
// Consumers never mutate entries. All writes go through a completed fetch,
// SetData, Update, Invalidate or Clear.
package query
