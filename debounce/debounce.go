// Package debounce coalesces bursts of values into the last one.
package debounce

import (
	"sync"
	"time"
)

// DefaultSearchDelay is the settle time applied to search input.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer emits the most recent pushed value once no new value has
// arrived for the configured delay.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	emit    func(T)
	timer   *time.Timer
	pending T
	has     bool
	stopped bool

	// gen identifies the current timer; callbacks of replaced timers
	// carry an older value and do nothing.
	gen uint64
}

// New creates a Debouncer that calls emit with the settled value.
// emit runs on its own goroutine for timer-driven emissions.
func New[T any](delay time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, emit: emit}
}

// Push records v and restarts the delay.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = v
	d.has = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	if !d.has || d.stopped {
		d.timer = nil
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	if d.emit != nil {
		d.emit(v)
	}
}

// Flush emits the pending value immediately and synchronously. It does
// nothing when no value is pending.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if !d.has {
		d.timer = nil
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	if d.emit != nil {
		d.emit(v)
	}
}

// Pending returns the value waiting to be emitted.
func (d *Debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.has
}

// Stop discards the pending value. Later pushes are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending, d.has = zero, false
}

func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending, d.has, d.timer = zero, false, nil
	return v
}
