package query

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/fanadmin/observe"
	"github.com/jonwraymond/fanadmin/resilience"
)

// DefaultGCInterval is how often the janitor calls Collect.
const DefaultGCInterval = time.Minute

// Options configures a Cache.
type Options struct {
	// Clock drives freshness, collection and retry delays. Default: real clock.
	Clock clockwork.Clock

	// GCInterval is the janitor period. Zero selects DefaultGCInterval;
	// a negative value disables the janitor (call Collect manually).
	GCInterval time.Duration

	// Telemetry instruments fetches. Default: no-op.
	Telemetry *observe.Middleware
}

// Cache maps keys to entries and coordinates their fetches.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Deduplication: at most one fetch per key is in flight at a time.
//   - Ordering: each subscription observes transitions in the order they occur.
//   - Guarding: a fetch result is written only if no newer fetch, write or
//     Clear happened for the key since it started.
type Cache struct {
	clock clockwork.Clock
	tel   *observe.Middleware
	log   observe.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	closed  bool
}

// NewCache creates a Cache and starts its janitor.
func NewCache(opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = observe.Nop()
	}
	if opts.GCInterval == 0 {
		opts.GCInterval = DefaultGCInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		clock:   opts.Clock,
		tel:     opts.Telemetry,
		log:     opts.Telemetry.Logger().With(observe.Field{Key: "component", Value: "query"}),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		entries: make(map[string]*entry),
	}

	if opts.GCInterval > 0 {
		go c.janitor(opts.GCInterval)
	} else {
		close(c.done)
	}
	return c
}

func (c *Cache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.Chan():
			c.Collect()
		}
	}
}

// Get returns a snapshot of the entry for key. It has no side effects.
func (c *Cache) Get(key Key) (Entry, bool) {
	id, err := key.ID()
	if err != nil {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Ensure subscribes to key. If the entry is absent or stale and no fetch is
// in flight, fetch is started in the background; otherwise the caller joins
// the existing entry. The most recent fetcher and policy replace earlier
// ones for subsequent refetches.
func (c *Cache) Ensure(ctx context.Context, key Key, fetch Fetcher, policy Policy) (*Subscription, error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	parts, err := key.encode()
	if err != nil {
		return nil, err
	}
	id := joinParts(parts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	e := c.lookupOrCreateLocked(key, id, parts)
	e.fetcher = fetch
	e.policy = policy.normalized()

	sub := newSubscription(c, e)
	e.subs[sub] = struct{}{}

	fresh := e.fresh(c.clock.Now())
	c.tel.Metrics().RecordLookup(ctx, key.Scope(), fresh)
	if !fresh && e.flight == nil {
		c.startLocked(ctx, e)
	}
	sub.last = e.snapshot()
	return sub, nil
}

// Fetch ensures key, waits for it to settle, and releases the
// subscription. A stale entry is refetched before Fetch returns.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher, policy Policy) (any, error) {
	sub, err := c.Ensure(ctx, key, fetch, policy)
	if err != nil {
		return nil, err
	}
	defer c.Release(sub)

	e, err := sub.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return e.Data, nil
}

// Refetch starts a fetch for key using its last fetcher, unless one is
// already in flight. It does not wait for the result.
func (c *Cache) Refetch(ctx context.Context, key Key) error {
	id, err := key.ID()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.fetcher == nil {
		return ErrNotFound
	}
	if e.flight == nil {
		c.startLocked(ctx, e)
	}
	return nil
}

// Invalidate marks every entry whose key starts with prefix as stale while
// keeping its data. Entries with subscribers are refetched immediately; an
// in-flight fetch for such an entry is superseded. It returns the number of
// matched entries.
func (c *Cache) Invalidate(ctx context.Context, prefix Key) int {
	pp, err := prefix.encode()
	if err != nil {
		c.log.Warn(ctx, "invalidate with invalid key", observe.Field{Key: "error", Value: err})
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for _, e := range c.entries {
		if !hasPrefix(e.parts, pp) {
			continue
		}
		n++
		if e.staleAt.After(now) {
			e.staleAt = now
		}
		if len(e.subs) > 0 && e.fetcher != nil {
			c.cancelFlightLocked(e)
			c.startLocked(ctx, e)
		}
	}

	c.log.Debug(ctx, "invalidated", observe.Field{Key: "prefix", Value: prefix.Hash()}, observe.Field{Key: "matched", Value: n})
	return n
}

// SetData writes value for key as a fresh successful result without a
// network call. Any in-flight fetch for the key is superseded.
func (c *Cache) SetData(key Key, value any, policy Policy) error {
	return c.Update(key, policy, func(Entry) (any, bool) { return value, true })
}

// Update atomically replaces the data for key with fn's result. fn receives
// the current snapshot (zero Entry when absent); returning false leaves the
// entry untouched.
func (c *Cache) Update(key Key, policy Policy, fn func(current Entry) (any, bool)) error {
	parts, err := key.encode()
	if err != nil {
		return err
	}
	id := joinParts(parts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}

	var current Entry
	if e, ok := c.entries[id]; ok {
		current = e.snapshot()
	}
	value, ok := fn(current)
	if !ok {
		return nil
	}

	e := c.lookupOrCreateLocked(key, id, parts)
	c.cancelFlightLocked(e)
	c.seq++
	e.gen = c.seq
	e.policy = policy.normalized()
	c.storeLocked(e, value)
	c.notifyLocked(e)
	return nil
}

// Release ends a subscription. When the last subscriber of an entry leaves,
// the entry becomes eligible for collection at its GCAt.
func (c *Cache) Release(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sub.close()
	e := sub.e
	if _, ok := e.subs[sub]; !ok {
		return
	}
	delete(e.subs, sub)
	if len(e.subs) == 0 {
		e.gcAt = e.policy.gcAt(c.clock.Now(), e.staleAt)
	}
}

// Clear drops every entry, cancels in-flight fetches and closes all
// subscriptions. Results of cancelled fetches are discarded.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.log.Info(context.Background(), "cache cleared")
}

func (c *Cache) clearLocked() {
	for _, e := range c.entries {
		c.cancelFlightLocked(e)
		for sub := range e.subs {
			sub.close()
		}
		e.subs = map[*Subscription]struct{}{}
	}
	c.entries = make(map[string]*entry)
}

// Collect evicts entries without subscribers whose GCAt has passed and
// returns how many were removed.
func (c *Cache) Collect() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for id, e := range c.entries {
		if len(e.subs) > 0 || e.flight != nil || !now.After(e.gcAt) {
			continue
		}
		delete(c.entries, id)
		c.tel.Metrics().RecordEviction(c.ctx, e.key.Scope())
		n++
	}
	if n > 0 {
		c.log.Debug(c.ctx, "collected entries", observe.Field{Key: "evicted", Value: n})
	}
	return n
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys of all entries in no particular order.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Close stops the janitor, clears the cache and rejects further use.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.clearLocked()
	c.mu.Unlock()

	c.cancel()
	<-c.done
}

func (c *Cache) lookupOrCreateLocked(key Key, id string, parts []string) *entry {
	if e, ok := c.entries[id]; ok {
		return e
	}
	e := &entry{
		key:    key,
		id:     id,
		parts:  parts,
		status: StatusIdle,
		subs:   make(map[*Subscription]struct{}),
		policy: DefaultPolicy(),
	}
	c.entries[id] = e
	return e
}

func (c *Cache) storeLocked(e *entry, value any) {
	now := c.clock.Now()
	e.status = StatusSuccess
	e.data = value
	e.hasData = true
	e.err = nil
	e.fetchedAt = now
	e.staleAt = e.policy.staleAt(now)
	e.gcAt = e.policy.gcAt(now, e.staleAt)
	e.updates++
}

func (c *Cache) cancelFlightLocked(e *entry) {
	if e.flight != nil {
		e.flight.cancel()
		e.flight = nil
	}
}

// startLocked begins a fetch for e. The fetch outlives the caller's context
// cancellation but keeps its values, and stops when the cache closes.
func (c *Cache) startLocked(ctx context.Context, e *entry) {
	c.seq++
	gen := c.seq
	e.gen = gen

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.ctx, cancel)
	e.flight = &flight{gen: gen, cancel: cancel}
	if !e.hasData {
		e.status = StatusLoading
	}
	c.notifyLocked(e)

	fetch := c.instrument(e.key, e.fetcher, e.policy)
	go func() {
		defer stop()
		defer cancel()
		value, err := fetch(fctx)
		c.settle(e, gen, value, err)
	}()
}

func (c *Cache) instrument(key Key, fetch Fetcher, policy Policy) observe.FetchFunc {
	run := observe.FetchFunc(fetch)
	if r := policy.retrier(c.clock); r != nil {
		inner := run
		run = func(ctx context.Context) (any, error) {
			return resilience.Do(ctx, r, inner)
		}
	}
	return c.tel.WrapFetch(observe.SpanMeta{
		Component: "query",
		Name:      "fetch",
		Scope:     key.Scope(),
	}, run)
}

func (c *Cache) settle(e *entry, gen uint64, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[e.id] != e || e.gen != gen || e.flight == nil || e.flight.gen != gen {
		return
	}
	e.flight = nil

	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		c.storeLocked(e, value)
	}
	c.notifyLocked(e)
}

func (c *Cache) notifyLocked(e *entry) {
	snap := e.snapshot()
	for sub := range e.subs {
		sub.deliver(snap)
	}
}
