// Package visibility drives "load more" from a visibility signal: when the
// end of a list becomes visible, the next page is requested.
package visibility

import (
	"context"
	"sync"
)

// Observer reports visibility changes of one target.
//
// Contract:
//   - Observe calls fn with the current state, then on every change.
//   - The returned stop function ends delivery and may be called more
//     than once.
type Observer interface {
	Observe(fn func(visible bool)) (stop func())
}

// Pager is the part of an infinite list a Trigger drives.
type Pager interface {
	HasNextPage() bool
	IsFetchingNextPage() bool
	FetchNextPage(ctx context.Context) error
}

// Sentinel is an Observer whose state is set by hand, for hosts without a
// layout engine: a terminal pager marks it visible when the user asks for
// more.
type Sentinel struct {
	mu      sync.Mutex
	visible bool
	next    int
	subs    map[int]func(bool)
}

// NewSentinel creates a hidden Sentinel.
func NewSentinel() *Sentinel {
	return &Sentinel{subs: make(map[int]func(bool))}
}

// Observe implements Observer.
func (s *Sentinel) Observe(fn func(visible bool)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	visible := s.visible
	s.mu.Unlock()

	fn(visible)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Set changes the state and notifies observers when it differs.
func (s *Sentinel) Set(visible bool) {
	s.mu.Lock()
	if s.visible == visible {
		s.mu.Unlock()
		return
	}
	s.visible = visible
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(visible)
	}
}

// Visible returns the current state.
func (s *Sentinel) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Bump hides then shows the sentinel, producing one hidden-to-visible
// transition.
func (s *Sentinel) Bump() {
	s.Set(false)
	s.Set(true)
}

// TriggerOptions configures a Trigger.
type TriggerOptions struct {
	// OnError receives FetchNextPage failures. Default: ignored.
	OnError func(error)

	// OnFetched runs after each successful FetchNextPage.
	OnFetched func()
}

// Trigger requests the next page at most once per hidden-to-visible
// transition, and only while the pager has a next page and is not already
// fetching one. Fetches run synchronously on the observer's goroutine.
type Trigger struct {
	ctx   context.Context
	pager Pager
	opts  TriggerOptions

	mu      sync.Mutex
	visible bool
	fired   int
	stop    func()
}

// NewTrigger connects obs to pager until Stop or ctx is done.
func NewTrigger(ctx context.Context, obs Observer, pager Pager, opts TriggerOptions) *Trigger {
	t := &Trigger{ctx: ctx, pager: pager, opts: opts}
	stop := obs.Observe(t.onChange)

	t.mu.Lock()
	t.stop = stop
	t.mu.Unlock()

	context.AfterFunc(ctx, t.Stop)
	return t
}

func (t *Trigger) onChange(visible bool) {
	t.mu.Lock()
	rising := visible && !t.visible
	t.visible = visible
	if !rising || t.ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	if !t.pager.HasNextPage() || t.pager.IsFetchingNextPage() {
		t.mu.Unlock()
		return
	}
	t.fired++
	t.mu.Unlock()

	if err := t.pager.FetchNextPage(t.ctx); err != nil {
		if t.opts.OnError != nil {
			t.opts.OnError(err)
		}
		return
	}
	if t.opts.OnFetched != nil {
		t.opts.OnFetched()
	}
}

// Fired returns how many fetches the trigger has started.
func (t *Trigger) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Stop disconnects the trigger.
func (t *Trigger) Stop() {
	t.mu.Lock()
	stop := t.stop
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}
