package query

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PageSet is the cached value of an infinite query: pages in fetch order
// and the parameter each page was fetched with. A PageSet stored in the
// cache is never modified; appending produces a new PageSet.
type PageSet[T, P any] struct {
	Pages  []T
	Params []P
}

// Len returns the number of loaded pages.
func (s *PageSet[T, P]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Pages)
}

func (s *PageSet[T, P]) with(page T, param P) *PageSet[T, P] {
	n := s.Len()
	out := &PageSet[T, P]{
		Pages:  make([]T, n, n+1),
		Params: make([]P, n, n+1),
	}
	if s != nil {
		copy(out.Pages, s.Pages)
		copy(out.Params, s.Params)
	}
	out.Pages = append(out.Pages, page)
	out.Params = append(out.Params, param)
	return out
}

// PageFetcher loads the page identified by param.
type PageFetcher[T, P any] func(ctx context.Context, param P) (T, error)

// InfiniteOptions configures an Infinite controller.
type InfiniteOptions[T, P any] struct {
	Policy Policy

	// InitialParam is the parameter of the first page.
	InitialParam P

	// NextParam derives the parameter after last, given every page loaded
	// so far. Returning false means there are no further pages.
	NextParam func(last T, all []T) (P, bool)
}

// Infinite sequences "load more" pages for one key at a time. The page
// sequence lives in the Cache under the current key, so invalidation,
// Clear and collection apply to it like any other entry. A refetch of the
// entry reloads every loaded page in order, starting from InitialParam.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use.
//   - Ordering: page N+1 is never requested before page N has resolved,
//     and concurrent FetchNextPage calls for the same parameter share one
//     request.
//   - Identity: SetQuery with a different key starts a fresh sequence;
//     results for the previous key are discarded.
type Infinite[T, P any] struct {
	cache   *Cache
	opts    InfiniteOptions[T, P]
	flights singleflight.Group

	mu       sync.Mutex
	key      Key
	id       string
	fetch    PageFetcher[T, P]
	sub      *Subscription
	gen      uint64
	fetching bool

	// err is the last next-page failure, valid while the entry's
	// UpdateCount is still errAt.
	err   error
	errAt int
}

// NewInfinite creates a controller bound to c. Call SetQuery to load.
func NewInfinite[T, P any](c *Cache, opts InfiniteOptions[T, P]) *Infinite[T, P] {
	if opts.NextParam == nil {
		opts.NextParam = func(T, []T) (P, bool) {
			var zero P
			return zero, false
		}
	}
	return &Infinite[T, P]{cache: c, opts: opts}
}

// SetQuery points the controller at key, loaded with fetch. Calling it
// with the current key only replaces the fetcher.
func (q *Infinite[T, P]) SetQuery(ctx context.Context, key Key, fetch PageFetcher[T, P]) error {
	if fetch == nil {
		return ErrNilFetcher
	}
	id, err := key.ID()
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sub != nil && q.id == id {
		q.fetch = fetch
		return nil
	}

	sub, err := q.cache.Ensure(ctx, key, q.loadAll(key, fetch), q.opts.Policy)
	if err != nil {
		return err
	}
	if q.sub != nil {
		q.cache.Release(q.sub)
	}
	q.gen++
	q.key, q.id, q.fetch, q.sub = key, id, fetch, sub
	q.fetching = false
	q.err = nil
	return nil
}

// loadAll fetches as many pages as are currently cached for key (at least
// one), sequentially from the initial parameter.
func (q *Infinite[T, P]) loadAll(key Key, fetch PageFetcher[T, P]) Fetcher {
	return func(ctx context.Context) (any, error) {
		want := 1
		if e, ok := q.cache.Get(key); ok {
			if cur, ok := e.Data.(*PageSet[T, P]); ok && cur.Len() > want {
				want = cur.Len()
			}
		}

		var set *PageSet[T, P]
		param := q.opts.InitialParam
		for i := 0; i < want; i++ {
			page, err := fetch(ctx, param)
			if err != nil {
				return nil, err
			}
			set = set.with(page, param)
			next, ok := q.opts.NextParam(page, set.Pages)
			if !ok {
				break
			}
			param = next
		}
		return set, nil
	}
}

// FetchNextPage loads and appends the next page. It is a no-op when there
// is no next page, or while the first page or a refetch is still loading.
// A failed page leaves the loaded pages intact and is reported by Err.
func (q *Infinite[T, P]) FetchNextPage(ctx context.Context) error {
	q.mu.Lock()
	if q.sub == nil {
		q.mu.Unlock()
		return ErrNoQuery
	}
	snap := q.sub.Snapshot()
	set, _ := snap.Data.(*PageSet[T, P])
	if set.Len() == 0 || snap.IsFetching {
		q.mu.Unlock()
		return nil
	}
	param, ok := q.opts.NextParam(set.Pages[set.Len()-1], set.Pages)
	if !ok {
		q.mu.Unlock()
		return nil
	}
	paramKey, err := K(param).ID()
	if err != nil {
		q.mu.Unlock()
		return err
	}
	q.fetching = true
	gen, key, id, fetch, loaded := q.gen, q.key, q.id, q.fetch, set.Len()
	q.mu.Unlock()

	_, err, _ = q.flights.Do(id+"|"+paramKey, func() (any, error) {
		page, err := fetch(ctx, param)

		q.mu.Lock()
		defer q.mu.Unlock()
		if gen != q.gen {
			return nil, nil
		}
		q.fetching = false
		if err != nil {
			q.err, q.errAt = err, q.sub.Snapshot().UpdateCount
			return nil, err
		}

		return nil, q.cache.Update(key, q.opts.Policy, func(cur Entry) (any, bool) {
			cs, _ := cur.Data.(*PageSet[T, P])
			if cur.IsFetching || cs.Len() != loaded {
				return nil, false
			}
			q.err = nil
			return cs.with(page, param), true
		})
	})
	return err
}

// Pages returns the loaded pages in fetch order.
func (q *Infinite[T, P]) Pages() []T {
	set := q.pageSet()
	if set == nil {
		return nil
	}
	out := make([]T, len(set.Pages))
	copy(out, set.Pages)
	return out
}

// HasNextPage reports whether NextParam yields a parameter after the last
// loaded page.
func (q *Infinite[T, P]) HasNextPage() bool {
	set := q.pageSet()
	if set.Len() == 0 {
		return false
	}
	_, ok := q.opts.NextParam(set.Pages[set.Len()-1], set.Pages)
	return ok
}

// IsFetchingNextPage reports whether a FetchNextPage request is in flight.
func (q *Infinite[T, P]) IsFetchingNextPage() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fetching
}

// Err returns the last next-page error, or the entry's error. A next-page
// error is forgotten once the entry is rewritten, e.g. by a reload.
func (q *Infinite[T, P]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub == nil {
		return q.err
	}
	snap := q.sub.Snapshot()
	if q.err != nil && snap.UpdateCount != q.errAt {
		q.err = nil
	}
	if q.err != nil {
		return q.err
	}
	if snap.Status == StatusError {
		return snap.Err
	}
	return nil
}

// Key returns the current key.
func (q *Infinite[T, P]) Key() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Snapshot returns the cache entry state for the current key.
func (q *Infinite[T, P]) Snapshot() Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub == nil {
		return Entry{}
	}
	return q.sub.Snapshot()
}

// Subscription exposes the underlying subscription for event streaming.
func (q *Infinite[T, P]) Subscription() *Subscription {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sub
}

// Wait blocks until the current key has settled.
func (q *Infinite[T, P]) Wait(ctx context.Context) error {
	sub := q.Subscription()
	if sub == nil {
		return ErrNoQuery
	}
	_, err := sub.Wait(ctx)
	return err
}

// Close releases the subscription. Pending page results are discarded.
func (q *Infinite[T, P]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub != nil {
		q.cache.Release(q.sub)
		q.sub = nil
	}
	q.gen++
	q.fetching = false
}

func (q *Infinite[T, P]) pageSet() *PageSet[T, P] {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sub == nil {
		return nil
	}
	set, _ := q.sub.Snapshot().Data.(*PageSet[T, P])
	return set
}

// Flatten concatenates the items of each page in page order.
func Flatten[T, I any](pages []T, items func(T) []I) []I {
	var out []I
	for _, p := range pages {
		out = append(out, items(p)...)
	}
	return out
}
