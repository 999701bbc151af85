package query

import (
	"context"
	"sync"
)

// Subscription is one consumer's handle on an entry. Release it through
// Cache.Release when the consumer goes away.
type Subscription struct {
	cache *Cache
	e     *entry

	mu      sync.Mutex
	last    Entry
	changed chan struct{}
	closed  bool
	done    chan struct{}

	// events is created lazily by Events; queue buffers snapshots until the
	// pump hands them to the consumer.
	events chan Entry
	wake   chan struct{}
	queue  []Entry
}

func newSubscription(c *Cache, e *entry) *Subscription {
	return &Subscription{
		cache:   c,
		e:       e,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.e.key
}

// Release is shorthand for Cache.Release(s).
func (s *Subscription) Release() {
	s.cache.Release(s)
}

// Snapshot returns the latest state delivered to this subscription.
func (s *Subscription) Snapshot() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Events returns a channel that receives every state transition in the
// order it happened, starting with the first transition after the call.
// The channel is closed when the subscription is released or the cache is
// cleared.
func (s *Subscription) Events() <-chan Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events == nil {
		s.events = make(chan Entry)
		s.wake = make(chan struct{}, 1)
		if s.closed {
			close(s.events)
		} else {
			go s.pump()
		}
	}
	return s.events
}

func (s *Subscription) pump() {
	defer close(s.events)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, ev := range batch {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

// Wait blocks until the entry has settled: no fetch in flight and a
// success or error result available. An error result is returned as err
// together with the snapshot, which may still carry previous data.
func (s *Subscription) Wait(ctx context.Context) (Entry, error) {
	for {
		s.mu.Lock()
		snap, changed, closed := s.last, s.changed, s.closed
		s.mu.Unlock()

		if snap.settled() {
			if snap.Status == StatusError {
				return snap, snap.Err
			}
			return snap, nil
		}
		if closed {
			return snap, ErrClosed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// deliver records snap. Called with the cache lock held.
func (s *Subscription) deliver(snap Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.last = snap
	close(s.changed)
	s.changed = make(chan struct{})

	if s.events != nil {
		s.queue = append(s.queue, snap)
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.changed)
}
