package visibility

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakePager struct {
	mu       sync.Mutex
	pages    int
	total    int
	fetching bool
	err      error
	calls    int
}

func (p *fakePager) HasNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages < p.total
}

func (p *fakePager) IsFetchingNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetching
}

func (p *fakePager) FetchNextPage(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.pages++
	return nil
}

func TestTrigger_FiresOncePerTransition(t *testing.T) {
	s := NewSentinel()
	p := &fakePager{pages: 1, total: 4}
	var fetched int
	tr := NewTrigger(context.Background(), s, p, TriggerOptions{OnFetched: func() { fetched++ }})
	defer tr.Stop()

	if tr.Fired() != 0 {
		t.Fatal("hidden sentinel must not fire")
	}

	s.Set(true)
	s.Set(true)
	if p.calls != 1 {
		t.Fatalf("calls = %d after one transition, want 1", p.calls)
	}

	s.Bump()
	s.Bump()
	if p.calls != 3 || p.pages != 4 || fetched != 3 {
		t.Fatalf("calls = %d pages = %d fetched = %d", p.calls, p.pages, fetched)
	}

	// No next page: visible again does nothing.
	s.Bump()
	if p.calls != 3 || tr.Fired() != 3 {
		t.Errorf("fetched past the last page: calls = %d", p.calls)
	}
}

func TestTrigger_InitiallyVisible(t *testing.T) {
	s := NewSentinel()
	s.Set(true)
	p := &fakePager{pages: 1, total: 2}

	tr := NewTrigger(context.Background(), s, p, TriggerOptions{})
	defer tr.Stop()
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 for an initially visible sentinel", p.calls)
	}
}

func TestTrigger_SkipsWhileFetching(t *testing.T) {
	s := NewSentinel()
	p := &fakePager{pages: 1, total: 3, fetching: true}
	tr := NewTrigger(context.Background(), s, p, TriggerOptions{})
	defer tr.Stop()

	s.Set(true)
	if p.calls != 0 {
		t.Errorf("calls = %d while a page is in flight", p.calls)
	}
}

func TestTrigger_ReportsErrors(t *testing.T) {
	s := NewSentinel()
	boom := errors.New("boom")
	p := &fakePager{pages: 1, total: 3, err: boom}
	var got error
	tr := NewTrigger(context.Background(), s, p, TriggerOptions{OnError: func(err error) { got = err }})
	defer tr.Stop()

	s.Set(true)
	if !errors.Is(got, boom) {
		t.Errorf("OnError got %v", got)
	}
}

func TestTrigger_StopAndCancel(t *testing.T) {
	s := NewSentinel()
	p := &fakePager{pages: 1, total: 10}
	tr := NewTrigger(context.Background(), s, p, TriggerOptions{})
	tr.Stop()
	tr.Stop()
	s.Set(true)
	if p.calls != 0 {
		t.Errorf("stopped trigger fetched %d times", p.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s2 := NewSentinel()
	NewTrigger(ctx, s2, p, TriggerOptions{})
	cancel()
	s2.Set(true)
	if p.calls != 0 {
		t.Errorf("cancelled trigger fetched %d times", p.calls)
	}
}

func TestSentinel_ObserveDeliversCurrentState(t *testing.T) {
	s := NewSentinel()
	s.Set(true)

	var seen []bool
	stop := s.Observe(func(v bool) { seen = append(seen, v) })
	s.Set(false)
	stop()
	s.Set(true)

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Errorf("seen = %v, want [true false]", seen)
	}
	if !s.Visible() {
		t.Error("Visible() = false")
	}
}
