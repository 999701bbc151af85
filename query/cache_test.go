package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestCache(t *testing.T) (*Cache, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	c := NewCache(Options{Clock: clock, GCInterval: -1})
	t.Cleanup(c.Close)
	return c, clock
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// stubFetcher counts calls and optionally blocks each call on gate.
type stubFetcher struct {
	calls atomic.Int32
	gate  chan struct{}
	fn    func(call int) (any, error)
}

func (s *stubFetcher) fetch(ctx context.Context) (any, error) {
	n := int(s.calls.Add(1))
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.fn(n)
}

func (s *stubFetcher) count() int { return int(s.calls.Load()) }

func constant(v any) func(int) (any, error) {
	return func(int) (any, error) { return v, nil }
}

func TestCache_EnsureFetchesAndSettles(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{fn: constant("fixtures-page-1")}

	sub, err := c.Ensure(ctx, K("fixtures", 1), f.fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()

	e, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.Status != StatusSuccess || e.Data != "fixtures-page-1" {
		t.Errorf("got status %v data %v", e.Status, e.Data)
	}
	if !e.HasData() || e.IsFetching {
		t.Errorf("unexpected flags: hasData=%v fetching=%v", e.HasData(), e.IsFetching)
	}
	if e.StaleAt.Before(e.FetchedAt) || !e.GCAt.After(e.StaleAt) {
		t.Errorf("bad windows: fetched %v stale %v gc %v", e.FetchedAt, e.StaleAt, e.GCAt)
	}
}

func TestCache_FirstEnsureIsLoading(t *testing.T) {
	c, _ := newTestCache(t)
	f := &stubFetcher{gate: make(chan struct{}), fn: constant(1)}
	defer close(f.gate)

	sub, err := c.Ensure(testContext(t), K("plans"), f.fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	snap := sub.Snapshot()
	if snap.Status != StatusLoading || !snap.IsFetching || snap.HasData() {
		t.Errorf("expected loading without data, got %+v", snap)
	}
}

func TestCache_DeduplicatesConcurrentEnsure(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{gate: make(chan struct{}), fn: constant("users")}

	var wg sync.WaitGroup
	subs := make([]*Subscription, 8)
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := c.Ensure(ctx, K("users", map[string]any{"page": 1}), f.fetch, DefaultPolicy())
			if err != nil {
				t.Errorf("Ensure: %v", err)
				return
			}
			subs[i] = sub
		}(i)
	}
	wg.Wait()
	close(f.gate)

	for _, sub := range subs {
		if _, err := sub.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if got := f.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
	e, _ := c.Get(K("users", map[string]any{"page": 1}))
	if e.Subscribers != len(subs) {
		t.Errorf("Subscribers = %d, want %d", e.Subscribers, len(subs))
	}
}

func TestCache_FreshEntryIsNotRefetched(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{fn: constant("teams")}
	policy := Policy{StaleTime: time.Minute}

	if _, err := c.Fetch(ctx, K("teams"), f.fetch, policy); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	clock.Advance(30 * time.Second)
	if _, err := c.Fetch(ctx, K("teams"), f.fetch, policy); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := f.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestCache_StaleWhileRevalidate(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := testContext(t)
	policy := Policy{StaleTime: time.Minute}

	gate := make(chan struct{})
	f := &stubFetcher{fn: func(call int) (any, error) {
		switch call {
		case 1:
			return "v1", nil
		case 2:
			<-gate
			return "v2", nil
		default:
			<-gate
			return nil, errors.New("refresh failed")
		}
	}}

	if _, err := c.Fetch(ctx, K("users"), f.fetch, policy); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	clock.Advance(2 * time.Minute)

	// Stale: previous data is served immediately while a refetch runs.
	sub, err := c.Ensure(ctx, K("users"), f.fetch, policy)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()
	snap := sub.Snapshot()
	if snap.Data != "v1" || !snap.IsFetching || snap.Status != StatusSuccess {
		t.Fatalf("expected v1 with background fetch, got %+v", snap)
	}

	gate <- struct{}{}
	e, err := sub.Wait(ctx)
	if err != nil || e.Data != "v2" {
		t.Fatalf("expected v2 after refetch, got %v (%v)", e.Data, err)
	}

	// A failed refetch keeps the previous data and flags the error.
	clock.Advance(2 * time.Minute)
	if err := c.Refetch(ctx, K("users")); err != nil {
		t.Fatalf("Refetch: %v", err)
	}
	gate <- struct{}{}
	e, err = sub.Wait(ctx)
	if err == nil || err.Error() != "refresh failed" {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if e.Data != "v2" || !e.IsRefreshError() {
		t.Errorf("expected retained v2 with refresh error, got %+v", e)
	}
}

func TestCache_FetchFailureWithoutData(t *testing.T) {
	c, _ := newTestCache(t)
	f := &stubFetcher{fn: func(int) (any, error) { return nil, errors.New("Request failed") }}

	_, err := c.Fetch(testContext(t), K("fixture", 9), f.fetch, DefaultPolicy())
	if err == nil || err.Error() != "Request failed" {
		t.Fatalf("expected Request failed, got %v", err)
	}
	e, ok := c.Get(K("fixture", 9))
	if !ok || e.Status != StatusError || e.HasData() || e.IsRefreshError() {
		t.Errorf("expected error entry without data, got %+v", e)
	}
	if got := f.count(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (no retry by default)", got)
	}
}

func TestCache_RetryWhenPolicyRequestsIt(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{fn: func(call int) (any, error) {
		if call < 3 {
			return nil, errors.New("flaky")
		}
		return "ok", nil
	}}
	policy := Policy{Retry: RetryPolicy{Attempts: 3, InitialDelay: 10 * time.Millisecond}}

	sub, err := c.Ensure(ctx, K("plans"), f.fetch, policy)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()

	for i := 0; i < 2; i++ {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("retry %d never waited: %v", i+1, err)
		}
		clock.Advance(time.Second)
	}

	e, err := sub.Wait(ctx)
	if err != nil || e.Data != "ok" {
		t.Fatalf("expected ok after retries, got %v (%v)", e.Data, err)
	}
	if got := f.count(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := testContext(t)
	users := &stubFetcher{fn: func(call int) (any, error) { return call, nil }}
	fixtures := &stubFetcher{fn: constant("f")}

	active, err := c.Ensure(ctx, K("users", map[string]any{"page": 1}), users.fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer active.Release()
	if _, err := active.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := c.SetData(K("users", map[string]any{"page": 2}), "cached", DefaultPolicy()); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if _, err := c.Fetch(ctx, K("fixtures"), fixtures.fetch, DefaultPolicy()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if n := c.Invalidate(ctx, K("users")); n != 2 {
		t.Errorf("Invalidate matched %d, want 2", n)
	}

	// Subscribed entry is refetched right away.
	e, err := active.Wait(ctx)
	if err != nil || e.Data != 2 {
		t.Errorf("expected refetched data 2, got %v (%v)", e.Data, err)
	}

	// Unsubscribed entry keeps its data but is stale.
	idle, _ := c.Get(K("users", map[string]any{"page": 2}))
	if idle.Data != "cached" || idle.IsFetching {
		t.Errorf("expected untouched data without fetch, got %+v", idle)
	}
	if !idle.IsStale(clock.Now()) {
		t.Errorf("expected stale entry, got staleAt %v", idle.StaleAt)
	}

	// Other scopes are untouched.
	fx, _ := c.Get(K("fixtures"))
	if fx.UpdateCount != 1 || fixtures.count() != 1 {
		t.Errorf("fixtures should not be invalidated")
	}
}

func TestCache_InvalidateSupersedesInFlightFetch(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)

	// A fetch cancelled by Invalidate answers with the old value; the live
	// one answers once released. Call order does not matter.
	release := make(chan struct{})
	f := &stubFetcher{}
	fetch := func(fctx context.Context) (any, error) {
		f.calls.Add(1)
		select {
		case <-fctx.Done():
			return "before-mutation", nil
		case <-release:
			return "after-mutation", nil
		}
	}

	sub, err := c.Ensure(ctx, K("admins"), fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()

	c.Invalidate(ctx, K("admins"))
	close(release)

	e, err := sub.Wait(ctx)
	if err != nil || e.Data != "after-mutation" {
		t.Fatalf("expected after-mutation, got %v (%v)", e.Data, err)
	}

	// The superseded result must never overwrite the newer one.
	time.Sleep(20 * time.Millisecond)
	if e, _ := c.Get(K("admins")); e.Data != "after-mutation" {
		t.Errorf("stale response was written: %v", e.Data)
	}
	if n := f.count(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestCache_SetDataSeedsFreshEntry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{fn: constant("from-network")}

	if err := c.SetData(K("user"), "admin-profile", Policy{StaleTime: Forever}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	sub, err := c.Ensure(ctx, K("user"), f.fetch, Policy{StaleTime: Forever})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()

	snap := sub.Snapshot()
	if snap.Status != StatusSuccess || snap.Data != "admin-profile" || snap.IsFetching {
		t.Errorf("expected seeded entry without fetch, got %+v", snap)
	}
	if f.count() != 0 {
		t.Errorf("fetch calls = %d, want 0", f.count())
	}
}

func TestCache_SetDataSupersedesInFlightFetch(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)
	gate := make(chan struct{})
	f := &stubFetcher{gate: gate, fn: constant("network")}

	sub, err := c.Ensure(ctx, K("user", "42"), f.fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()

	if err := c.SetData(K("user", "42"), "direct", DefaultPolicy()); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	e, err := sub.Wait(ctx)
	if err != nil || e.Data != "direct" {
		t.Fatalf("expected direct, got %v (%v)", e.Data, err)
	}
	close(gate)
	time.Sleep(20 * time.Millisecond)
	if e, _ := c.Get(K("user", "42")); e.Data != "direct" {
		t.Errorf("superseded fetch overwrote direct write: %v", e.Data)
	}
}

func TestCache_ReleaseAndCollect(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := testContext(t)
	f := &stubFetcher{fn: constant("x")}
	policy := Policy{StaleTime: time.Minute, GCTime: 5 * time.Minute}

	sub, err := c.Ensure(ctx, K("fixtures"), f.fetch, policy)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := sub.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	clock.Advance(time.Hour)
	if n := c.Collect(); n != 0 {
		t.Fatalf("collected %d subscribed entries", n)
	}

	c.Release(sub)
	e, _ := c.Get(K("fixtures"))
	if e.Subscribers != 0 {
		t.Errorf("Subscribers = %d, want 0", e.Subscribers)
	}

	clock.Advance(4 * time.Minute)
	if n := c.Collect(); n != 0 {
		t.Errorf("collected before gcAt")
	}
	clock.Advance(2 * time.Minute)
	if n := c.Collect(); n != 1 {
		t.Errorf("Collect() = %d, want 1", n)
	}
	if _, ok := c.Get(K("fixtures")); ok {
		t.Error("entry still present after collection")
	}

	// Releasing twice is harmless.
	c.Release(sub)
}

func TestCache_JanitorCollects(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(Options{Clock: clock, GCInterval: time.Minute})
	defer c.Close()
	ctx := testContext(t)

	if err := c.SetData(K("plans"), "p", Policy{StaleTime: 0, GCTime: 30 * time.Second}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("janitor ticker not running: %v", err)
	}
	clock.Advance(time.Minute)

	for c.Len() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("janitor did not collect the entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestCache_ClearCancelsAndDiscards(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)

	cancelled := make(chan struct{})
	late := make(chan struct{})
	blocking := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		close(cancelled)
		<-late
		return "late", nil
	}

	sub, err := c.Ensure(ctx, K("users"), blocking, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := c.SetData(K("user"), "me", DefaultPolicy()); err != nil {
		t.Fatalf("SetData: %v", err)
	}

	c.Clear()

	select {
	case <-cancelled:
	case <-ctx.Done():
		t.Fatal("in-flight fetch was not cancelled")
	}
	if _, err := sub.Wait(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait after Clear = %v, want ErrClosed", err)
	}
	close(late)
	time.Sleep(20 * time.Millisecond)
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}

	// A previously cached key is a miss again.
	f := &stubFetcher{fn: constant("fresh")}
	if _, err := c.Fetch(ctx, K("user"), f.fetch, DefaultPolicy()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if f.count() != 1 {
		t.Errorf("expected network fetch after Clear, got %d calls", f.count())
	}
}

func TestCache_EventsInTransitionOrder(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)
	gate := make(chan struct{})
	f := &stubFetcher{gate: gate, fn: func(call int) (any, error) { return call, nil }}

	sub, err := c.Ensure(ctx, K("transactions", "u1"), f.fetch, DefaultPolicy())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	defer sub.Release()
	events := sub.Events()

	gate <- struct{}{}
	if _, err := sub.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	c.Invalidate(ctx, K("transactions"))
	gate <- struct{}{}

	want := []struct {
		status   Status
		fetching bool
		data     any
	}{
		{StatusSuccess, false, 1},
		{StatusSuccess, true, 1},
		{StatusSuccess, false, 2},
	}
	for i, w := range want {
		select {
		case ev := <-events:
			if ev.Status != w.status || ev.IsFetching != w.fetching || ev.Data != w.data {
				t.Errorf("event %d = {%v fetching=%v data=%v}, want %+v", i, ev.Status, ev.IsFetching, ev.Data, w)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	c.Release(sub)
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected events channel to close after Release")
		}
	case <-ctx.Done():
		t.Fatal("events channel not closed")
	}
}

func TestCache_ClosedRejectsUse(t *testing.T) {
	c := NewCache(Options{GCInterval: -1})
	c.Close()
	c.Close()

	_, err := c.Ensure(context.Background(), K("x"), func(context.Context) (any, error) { return nil, nil }, Policy{})
	if !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Ensure after Close = %v, want ErrCacheClosed", err)
	}
	if err := c.SetData(K("x"), 1, Policy{}); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("SetData after Close = %v, want ErrCacheClosed", err)
	}
}

func TestCache_ArgumentErrors(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Ensure(ctx, K("x"), nil, Policy{}); !errors.Is(err, ErrNilFetcher) {
		t.Errorf("nil fetcher: %v", err)
	}
	if _, err := c.Ensure(ctx, K(make(chan int)), func(context.Context) (any, error) { return nil, nil }, Policy{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("invalid key: %v", err)
	}
	if err := c.Refetch(ctx, K("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Refetch missing: %v", err)
	}
	if _, ok := c.Get(K("missing")); ok {
		t.Error("Get on missing key returned ok")
	}
}

func TestFetchAs(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := testContext(t)

	got, err := FetchAs(ctx, c, K("plans"), func(context.Context) ([]string, error) {
		return []string{"gold", "silver"}, nil
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("FetchAs: %v", err)
	}
	if len(got) != 2 || got[0] != "gold" {
		t.Errorf("FetchAs = %v", got)
	}

	e, _ := c.Get(K("plans"))
	if plans, ok := Value[[]string](e); !ok || len(plans) != 2 {
		t.Errorf("Value = %v, %v", plans, ok)
	}
	if len(c.Keys()) != 1 {
		t.Errorf("Keys() = %v", c.Keys())
	}
}
